package infra

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"coin_tracker/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: Tracker
api:
  coingecko:
    base_url: https://example.com/api/v3
    per_page: 100
    max_retries: 2
ui:
  theme: light
  page_size: 25
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "Tracker" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.API.CoinGecko.PerPage != 100 || cfg.API.CoinGecko.MaxRetries != 2 {
		t.Errorf("Unexpected coingecko section: %+v", cfg.API.CoinGecko)
	}
	// Unset keys keep their defaults
	if cfg.API.CoinGecko.VsCurrency != "usd" || cfg.API.CoinGecko.TimeoutSec != 10 {
		t.Errorf("Defaults lost: %+v", cfg.API.CoinGecko)
	}
	if cfg.UI.Theme != "light" || cfg.UI.PageSize != 25 {
		t.Errorf("Unexpected ui section: %+v", cfg.UI)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound, got %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config")
	}
	if cfg.API.CoinGecko.BaseURL != DefaultCoinGeckoURL || cfg.UI.PageSize != domain.DefaultPageSize {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("COINTRACKER_COINGECKO_URL", "http://127.0.0.1:9999")
	t.Setenv("COINTRACKER_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, "app:\n  name: x\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.CoinGecko.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("BaseURL not overridden: %s", cfg.API.CoinGecko.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level not overridden: %s", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"bad url", func(c *Config) { c.API.CoinGecko.BaseURL = "ftp://x" }, "api.coingecko.base_url"},
		{"per page too large", func(c *Config) { c.API.CoinGecko.PerPage = 500 }, "api.coingecko.per_page"},
		{"page size", func(c *Config) { c.UI.PageSize = 30 }, "ui.page_size"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"icons", func(c *Config) { c.Icons.Workers = 0 }, "icons"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(cfg)
			err := cfg.Validate()
			var ce *domain.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if ce.Field != tc.field {
				t.Errorf("Field = %q, want %q", ce.Field, tc.field)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "ui: [unterminated")); err == nil {
		t.Error("Expected parse error")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
