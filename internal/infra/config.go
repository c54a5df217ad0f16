package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"coin_tracker/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultCoinGeckoURL is the public CoinGecko v3 API root
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 일부 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Owner   string `yaml:"owner"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			BaseURL            string `yaml:"base_url"`
			VsCurrency         string `yaml:"vs_currency"`
			PerPage            int    `yaml:"per_page"`
			TimeoutSec         int    `yaml:"timeout_sec"`
			MaxRetries         int    `yaml:"max_retries"`
			RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
		} `yaml:"coingecko"`
	} `yaml:"api"`

	UI struct {
		Theme          string `yaml:"theme"`
		Locale         string `yaml:"locale"`
		CurrencySymbol string `yaml:"currency_symbol"`
		PageSize       int    `yaml:"page_size"`
	} `yaml:"ui"`

	Web struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`

	Icons struct {
		Enabled    bool `yaml:"enabled"`
		Size       int  `yaml:"size"`
		RatePerSec int  `yaml:"rate_per_sec"`
		Workers    int  `yaml:"workers"`
	} `yaml:"icons"`

	Logging struct {
		Level  string `yaml:"level"`
		Dir    string `yaml:"dir"`
		Stdout bool   `yaml:"stdout"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "Coin Tracker"
	cfg.App.Version = "dev"
	cfg.App.Owner = "Patrick"

	cfg.API.CoinGecko.BaseURL = DefaultCoinGeckoURL
	cfg.API.CoinGecko.VsCurrency = "usd"
	cfg.API.CoinGecko.PerPage = 250
	cfg.API.CoinGecko.TimeoutSec = 10

	cfg.UI.Theme = "dark"
	cfg.UI.Locale = "en-US"
	cfg.UI.CurrencySymbol = "$"
	cfg.UI.PageSize = domain.DefaultPageSize

	cfg.Web.Addr = ":8080"
	cfg.Web.AllowedOrigins = []string{"*"}

	cfg.Icons.Enabled = true
	cfg.Icons.Size = 24
	cfg.Icons.RatePerSec = 5
	cfg.Icons.Workers = 4

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.Stdout = true
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file is not an error: defaults are used and
// domain.ErrConfigNotFound is reported through the second return value.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		overrideWithEnv(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
	case err != nil:
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	cg := c.API.CoinGecko
	if !strings.HasPrefix(cg.BaseURL, "http://") && !strings.HasPrefix(cg.BaseURL, "https://") {
		return &domain.ConfigError{Field: "api.coingecko.base_url", Err: fmt.Errorf("not an http(s) URL: %q", cg.BaseURL)}
	}
	if cg.VsCurrency == "" {
		return &domain.ConfigError{Field: "api.coingecko.vs_currency", Err: errors.New("must not be empty")}
	}
	if cg.PerPage <= 0 || cg.PerPage > 250 {
		return &domain.ConfigError{Field: "api.coingecko.per_page", Err: fmt.Errorf("must be within 1..250, got %d", cg.PerPage)}
	}
	if cg.TimeoutSec < 0 || cg.MaxRetries < 0 || cg.RefreshIntervalSec < 0 {
		return &domain.ConfigError{Field: "api.coingecko", Err: errors.New("timeouts, retries and intervals must not be negative")}
	}

	if !domain.IsValidPageSize(c.UI.PageSize) {
		return &domain.ConfigError{Field: "ui.page_size", Err: fmt.Errorf("%w: %d", domain.ErrInvalidPageSize, c.UI.PageSize)}
	}
	switch c.UI.Theme {
	case "light", "dark":
	default:
		return &domain.ConfigError{Field: "ui.theme", Err: fmt.Errorf("unknown theme %q", c.UI.Theme)}
	}

	if c.Icons.Enabled && (c.Icons.Size <= 0 || c.Icons.Workers <= 0 || c.Icons.RatePerSec <= 0) {
		return &domain.ConfigError{Field: "icons", Err: errors.New("size, workers and rate_per_sec must be positive")}
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("COINTRACKER_COINGECKO_URL"); url != "" {
		cfg.API.CoinGecko.BaseURL = url
	}
	if addr := os.Getenv("COINTRACKER_WEB_ADDR"); addr != "" {
		cfg.Web.Addr = addr
	}
	if level := os.Getenv("COINTRACKER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
