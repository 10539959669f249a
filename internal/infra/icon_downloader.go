package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconSize is the edge length, in pixels, of cached coin icons.
const IconSize = 24

// IconDownloader handles downloading and caching coin icons
type IconDownloader struct {
	basePath string
	client   *http.Client
}

// NewIconDownloader creates a new IconDownloader storing icons under basePath
func NewIconDownloader(basePath string) (*IconDownloader, error) {
	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: basePath,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon downloads imageURL for coinID if it isn't cached yet.
// Returns the local file path on success.
// Images are resized to 24x24 pixels for consistent display.
func (d *IconDownloader) DownloadIcon(ctx context.Context, coinID, imageURL string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safeID := sanitizeCoinID(coinID)
	if safeID == "" {
		return "", fmt.Errorf("invalid coin id: %q", coinID)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image url for %s", coinID)
	}

	filePath := d.GetIconPath(safeID)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// Decode the image
	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, IconSize, IconSize, imaging.Lanczos)

	// Save the resized image
	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// GetIconPath returns the local path for a coin's icon
func (d *IconDownloader) GetIconPath(coinID string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeCoinID(coinID))+".png")
}

// sanitizeCoinID keeps the characters CoinGecko uses in ids (letters, digits, '-', '_').
func sanitizeCoinID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			res = append(res, r)
		}
	}
	return string(res)
}
