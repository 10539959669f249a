package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeader = "x-cg-demo-api-key"
	maxErrorBody = 512
)

// Client is the CoinGecko v3 REST API client (Boundary Layer).
// It performs exactly one GET per call: no caching, no retry.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *infra.Metrics
	logger     *slog.Logger
}

// NewClient creates a new CoinGecko API client.
func NewClient(cfg *infra.Config, metrics *infra.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}

	limit := rate.Inf
	if cfg.API.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.API.RequestsPerMinute) / 60.0)
	}
	burst := int(math.Max(1, float64(cfg.API.RequestsPerMinute)/10))

	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		apiKey:  cfg.API.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		metrics: metrics,
		logger:  logger.With("module", "coingecko_client"),
	}
}

// GlobalStats fetches market-wide aggregates.
func (c *Client) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	var resp globalResponse
	if err := c.get(ctx, "/global", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Coins fetches the top count coins by market cap.
func (c *Client) Coins(ctx context.Context, count int) ([]domain.MarketCoin, error) {
	path := fmt.Sprintf("/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=1&sparkline=false", count)
	var coins []domain.MarketCoin
	if err := c.get(ctx, path, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// CoinDetail fetches the full document of a coin.
func (c *Client) CoinDetail(ctx context.Context, coinID string) (*domain.CoinDetail, error) {
	if err := validateCoinID(coinID); err != nil {
		return nil, err
	}
	var detail domain.CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(coinID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CoinHistory fetches the USD price series of a coin over the last days.
// A non-positive days uses domain.DefaultHistoryDays.
func (c *Client) CoinHistory(ctx context.Context, coinID string, days int) (*domain.PriceHistory, error) {
	if err := validateCoinID(coinID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = domain.DefaultHistoryDays
	}
	path := fmt.Sprintf("/coins/%s/market_chart?vs_currency=usd&days=%d", url.PathEscape(coinID), days)
	var history domain.PriceHistory
	if err := c.get(ctx, path, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// TrendingCoins fetches the trending search list.
func (c *Client) TrendingCoins(ctx context.Context) ([]domain.TrendingCoin, error) {
	var resp trendingResponse
	if err := c.get(ctx, "/search/trending", &resp); err != nil {
		return nil, err
	}
	coins := make([]domain.TrendingCoin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		coins = append(coins, entry.Item)
	}
	return coins, nil
}

func validateCoinID(coinID string) error {
	if strings.TrimSpace(coinID) == "" || strings.ContainsAny(coinID, "/?#") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCoinID, coinID)
	}
	return nil
}

// get issues a GET against baseURL+path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	op := "GET " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.NewFatalNetworkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordFetchError()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordFetch(time.Since(start))
	if err != nil {
		c.metrics.RecordFetchError()
		return domain.NewNetworkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordFetchError()
		apiErr := &domain.APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: errorMessage(body)}
		c.logger.Warn("API request failed", slog.String("path", path), slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.RecordFetchError()
		return domain.NewFatalNetworkError(op, fmt.Errorf("failed to parse response: %w", err))
	}

	c.logger.Debug("API request completed", slog.String("path", path), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.message() != "" {
		return er.message()
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}
