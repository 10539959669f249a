package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GlobalStats holds market-wide aggregates from /global.
type GlobalStats struct {
	ActiveCryptocurrencies          int                        `json:"active_cryptocurrencies"`
	Markets                         int                        `json:"markets"`
	TotalMarketCap                  map[string]decimal.Decimal `json:"total_market_cap"`
	TotalVolume                     map[string]decimal.Decimal `json:"total_volume"`
	MarketCapPercentage             map[string]decimal.Decimal `json:"market_cap_percentage"`
	MarketCapChangePercentage24hUSD decimal.Decimal            `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt                       int64                      `json:"updated_at"`
}

// usd returns a currency-keyed value in USD, or zero when the provider omits it.
func usd(values map[string]decimal.Decimal) decimal.Decimal {
	if v, ok := values["usd"]; ok {
		return v
	}
	return decimal.Zero
}

// TotalMarketCapUSD returns the total market capitalization in USD.
func (g GlobalStats) TotalMarketCapUSD() decimal.Decimal { return usd(g.TotalMarketCap) }

// TotalVolumeUSD returns the total 24h volume in USD.
func (g GlobalStats) TotalVolumeUSD() decimal.Decimal { return usd(g.TotalVolume) }

// BitcoinDominance returns BTC's share of total market cap in percent.
func (g GlobalStats) BitcoinDominance() decimal.Decimal {
	if v, ok := g.MarketCapPercentage["btc"]; ok {
		return v
	}
	return decimal.Zero
}

// MarketCoin is a row of /coins/markets.
type MarketCoin struct {
	ID                       string              `json:"id"`
	Symbol                   string              `json:"symbol"`
	Name                     string              `json:"name"`
	Image                    string              `json:"image"`
	CurrentPrice             decimal.Decimal     `json:"current_price"`
	MarketCap                decimal.Decimal     `json:"market_cap"`
	MarketCapRank            int                 `json:"market_cap_rank"`
	TotalVolume              decimal.Decimal     `json:"total_volume"`
	PriceChangePercentage24h decimal.NullDecimal `json:"price_change_percentage_24h"`
}

// FilterByName keeps coins whose name contains term, case-insensitively.
// An empty term keeps every coin.
func FilterByName(coins []MarketCoin, term string) []MarketCoin {
	needle := strings.ToLower(strings.TrimSpace(term))
	result := make([]MarketCoin, 0, len(coins))
	for _, c := range coins {
		if needle == "" || strings.Contains(strings.ToLower(c.Name), needle) {
			result = append(result, c)
		}
	}
	return result
}

// FilterByIDs keeps coins whose id is in ids, preserving the order of coins.
func FilterByIDs(coins []MarketCoin, ids []string) []MarketCoin {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	result := make([]MarketCoin, 0, len(ids))
	for _, c := range coins {
		if _, ok := set[c.ID]; ok {
			result = append(result, c)
		}
	}
	return result
}

// CurrencyValues is a per-currency amount map as returned in coin market data.
type CurrencyValues map[string]decimal.Decimal

// USD returns the USD amount or zero.
func (v CurrencyValues) USD() decimal.Decimal { return usd(v) }

// CoinMarketData is the market_data block of a coin detail document.
type CoinMarketData struct {
	CurrentPrice             CurrencyValues      `json:"current_price"`
	MarketCap                CurrencyValues      `json:"market_cap"`
	TotalVolume              CurrencyValues      `json:"total_volume"`
	ATH                      CurrencyValues      `json:"ath"`
	PriceChangePercentage24h decimal.NullDecimal `json:"price_change_percentage_24h"`
	CirculatingSupply        decimal.NullDecimal `json:"circulating_supply"`
	TotalSupply              decimal.NullDecimal `json:"total_supply"`
	MaxSupply                decimal.NullDecimal `json:"max_supply"`
}

// CoinLinks holds external links of a coin.
type CoinLinks struct {
	Homepage       []string `json:"homepage"`
	BlockchainSite []string `json:"blockchain_site"`
	SubredditURL   string   `json:"subreddit_url"`
	ReposURL       struct {
		GitHub []string `json:"github"`
	} `json:"repos_url"`
}

// CoinDetail is the /coins/{id} document, limited to the fields the app displays.
type CoinDetail struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	MarketCapRank int      `json:"market_cap_rank"`
	Categories    []string `json:"categories"`
	Description   struct {
		EN string `json:"en"`
	} `json:"description"`
	Image struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	Links      CoinLinks      `json:"links"`
	MarketData CoinMarketData `json:"market_data"`
	Tickers    []CoinTicker   `json:"tickers"`
}

// CoinTicker is an exchange pair listed for a coin.
type CoinTicker struct {
	Base   string `json:"base"`
	Target string `json:"target"`
}

// NumberOfMarkets returns how many tickers the detail document listed.
func (d CoinDetail) NumberOfMarkets() int { return len(d.Tickers) }

// PricePoint is one [timestamp, price] sample of a market chart.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// PriceHistory is the decoded /coins/{id}/market_chart response.
type PriceHistory struct {
	Prices []PricePoint `json:"prices"`
}

// UnmarshalJSON decodes the provider's {"prices": [[ms, price], ...]} layout.
func (h *PriceHistory) UnmarshalJSON(data []byte) error {
	var raw struct {
		Prices [][]decimal.Decimal `json:"prices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Prices = make([]PricePoint, 0, len(raw.Prices))
	for i, pair := range raw.Prices {
		if len(pair) != 2 {
			return fmt.Errorf("price sample %d: want [timestamp, price], got %d values", i, len(pair))
		}
		h.Prices = append(h.Prices, PricePoint{
			Time:  time.UnixMilli(pair[0].IntPart()).UTC(),
			Price: pair[1],
		})
	}
	return nil
}

// Latest returns the most recent sample, if any.
func (h PriceHistory) Latest() (PricePoint, bool) {
	if len(h.Prices) == 0 {
		return PricePoint{}, false
	}
	return h.Prices[len(h.Prices)-1], true
}

// Change returns the percentage change between the first and last samples.
func (h PriceHistory) Change() (decimal.Decimal, bool) {
	if len(h.Prices) < 2 {
		return decimal.Zero, false
	}
	first := h.Prices[0].Price
	if first.IsZero() {
		return decimal.Zero, false
	}
	last := h.Prices[len(h.Prices)-1].Price
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)), true
}

// TrendingCoin is an item of /search/trending.
type TrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
	Score         int    `json:"score"`
}

// Timeframe is a selectable chart range.
type Timeframe struct {
	Days  int
	Label string
}

// Timeframes lists the chart ranges offered to the user.
var Timeframes = []Timeframe{
	{Days: 1, Label: "24h"},
	{Days: 7, Label: "7d"},
	{Days: 30, Label: "30d"},
	{Days: 90, Label: "3m"},
	{Days: 180, Label: "6m"},
	{Days: 365, Label: "1y"},
	{Days: 1825, Label: "5y"},
}

// DefaultHistoryDays is used when a history query does not name a range.
const DefaultHistoryDays = 365

// Page sizes of the coin list views.
const (
	SimplifiedListSize = 10
	FullListSize       = 100
	TrendingPreview    = 4
)
