package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coin_tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// marketResponse is one element of the CoinGecko /coins/markets array
type marketResponse struct {
	ID                       string         `json:"id"`
	Symbol                   string         `json:"symbol"`
	Name                     string         `json:"name"`
	Image                    string         `json:"image"`
	CurrentPrice             lenientDecimal `json:"current_price"`
	MarketCap                lenientDecimal `json:"market_cap"`
	MarketCapRank            *int           `json:"market_cap_rank"`
	TotalVolume              lenientDecimal `json:"total_volume"`
	PriceChangePercentage24h lenientDecimal `json:"price_change_percentage_24h"`
	LastUpdated              string         `json:"last_updated"`
}

// lenientDecimal decodes a JSON number or numeric string.
// null, absent or non-numeric values leave it invalid instead of failing the payload.
type lenientDecimal struct {
	decimal.NullDecimal
}

func (d *lenientDecimal) UnmarshalJSON(b []byte) error {
	d.Valid = false
	raw := string(bytes.TrimSpace(b))
	if raw == "" || raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	d.Decimal = v
	d.Valid = true
	return nil
}

// MarketClient fetches the coin market snapshot from CoinGecko
type MarketClient struct {
	baseURL    string
	vsCurrency string
	perPage    int
	maxRetries int
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
}

// NewMarketClient creates a client for the public CoinGecko API with default settings
func NewMarketClient() *MarketClient {
	return &MarketClient{
		baseURL:    DefaultCoinGeckoURL,
		vsCurrency: "usd",
		perPage:    250,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		metrics: GlobalMetrics,
		logger:  slog.Default().With("module", "coingecko"),
	}
}

// NewMarketClientWithConfig creates a client with custom configuration
func NewMarketClientWithConfig(cfg *Config, metrics *Metrics) *MarketClient {
	client := NewMarketClient()
	cg := cfg.API.CoinGecko
	if cg.BaseURL != "" {
		client.baseURL = strings.TrimRight(cg.BaseURL, "/")
	}
	if cg.VsCurrency != "" {
		client.vsCurrency = cg.VsCurrency
	}
	if cg.PerPage > 0 {
		client.perPage = cg.PerPage
	}
	if cg.TimeoutSec > 0 {
		client.httpClient.Timeout = time.Duration(cg.TimeoutSec) * time.Second
	}
	client.maxRetries = cg.MaxRetries
	if metrics != nil {
		client.metrics = metrics
	}
	return client
}

// MarketsURL returns the fully-qualified request URL.
func (c *MarketClient) MarketsURL() string {
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	return c.baseURL + "/coins/markets?" + q.Encode()
}

// FetchMarkets implements domain.MarketSource.
// Retries only happen when max_retries > 0 and the failure is retriable.
func (c *MarketClient) FetchMarkets(ctx context.Context) ([]domain.CoinRecord, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			delay := time.Duration(1<<uint(i-1)) * time.Second
			c.logger.Info("Retrying market fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, domain.NewRequestError(ctx.Err())
			case <-time.After(delay):
			}
		}

		start := time.Now()
		records, err := c.doFetch(ctx)
		c.metrics.RecordFetch(time.Since(start), err)
		if err == nil {
			return records, nil
		}
		lastErr = err
		c.logger.Warn("Market fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
		if !domain.IsRetriable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *MarketClient) doFetch(ctx context.Context) ([]domain.CoinRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MarketsURL(), nil)
	if err != nil {
		return nil, domain.NewRequestError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.NewStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewDecodeError(err)
	}

	var data []marketResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, domain.NewDecodeError(err)
	}

	records := make([]domain.CoinRecord, 0, len(data))
	for _, m := range data {
		records = append(records, m.toRecord())
	}
	return records, nil
}

func (m marketResponse) toRecord() domain.CoinRecord {
	rec := domain.CoinRecord{
		ID:                       m.ID,
		Symbol:                   m.Symbol,
		Name:                     m.Name,
		Image:                    m.Image,
		CurrentPrice:             m.CurrentPrice.NullDecimal,
		PriceChangePercentage24h: m.PriceChangePercentage24h.NullDecimal,
		TotalVolume:              m.TotalVolume.NullDecimal,
		MarketCap:                m.MarketCap.NullDecimal,
		MarketCapRank:            m.MarketCapRank,
	}
	if m.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, m.LastUpdated); err == nil {
			rec.LastUpdated = ts
		}
	}
	return rec
}
