package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coin_tracker/internal/domain"

	"github.com/disintegration/imaging"
)

// IconDownloader handles downloading and caching coin icons
type IconDownloader struct {
	basePath string
	size     int
	client   *http.Client
	metrics  *Metrics
}

// NewIconDownloader creates a new IconDownloader rooted at the user icon cache
func NewIconDownloader(size int) (*IconDownloader, error) {
	path, err := IconDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assets path: %w", err)
	}
	return NewIconDownloaderAt(path, size)
}

// NewIconDownloaderAt creates an IconDownloader writing into basePath
func NewIconDownloaderAt(basePath string, size int) (*IconDownloader, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	if size <= 0 {
		size = 24
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: basePath,
		size:     size,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		metrics: GlobalMetrics,
	}, nil
}

// BasePath returns the cache directory.
func (d *IconDownloader) BasePath() string {
	return d.basePath
}

// DownloadIcon downloads the icon for a coin if it doesn't exist.
// Returns the local file path on success.
// Images are resized to size x size pixels for consistent UI display.
func (d *IconDownloader) DownloadIcon(ctx context.Context, coinID, imageURL string) (string, error) {
	filePath, err := d.IconPath(coinID)
	if err != nil {
		return "", err
	}

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	if imageURL == "" {
		return "", fmt.Errorf("no image url for %s", coinID)
	}

	path, err := d.fetchAndResize(ctx, imageURL, filePath)
	d.metrics.RecordIcon(err)
	return path, err
}

func (d *IconDownloader) fetchAndResize(ctx context.Context, imageURL, filePath string) (string, error) {
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

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// High-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, d.size, d.size, imaging.Lanczos)

	// Write to a temp name first so a half-written file is never served
	tmpPath := filePath + ".tmp.png"
	if err := imaging.Save(resizedImg, tmpPath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	return filePath, nil
}

// IconPath returns the local path for a coin's icon
func (d *IconDownloader) IconPath(coinID string) (string, error) {
	// Security: reject rather than rewrite, so distinct ids never share a file
	if !validCoinID(coinID) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSymbol, coinID)
	}
	return filepath.Join(d.basePath, coinID+".png"), nil
}

// HasIcon reports whether the icon for coinID is already cached.
func (d *IconDownloader) HasIcon(coinID string) bool {
	path, err := d.IconPath(coinID)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// validCoinID accepts CoinGecko ids: lowercase alphanumerics and inner '-'.
func validCoinID(id string) bool {
	if id == "" || strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return false
	}
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	return true
}
