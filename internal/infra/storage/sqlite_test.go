package storage

import (
	"path/filepath"
	"testing"
	"time"

	"coin_tracker/internal/domain"
)

func setupTestDB(t *testing.T) *Storage {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestUpsertAndGetCoin(t *testing.T) {
	s := setupTestDB(t)

	coin := &domain.CoinInfo{
		ID:        "bitcoin",
		Symbol:    "btc",
		Name:      "Bitcoin",
		UpdatedAt: time.Now(),
	}

	// 1. Create
	if err := s.UpsertCoin(coin); err != nil {
		t.Fatalf("UpsertCoin failed: %v", err)
	}

	// 2. Get
	fetched, err := s.GetCoin("bitcoin")
	if err != nil {
		t.Fatalf("GetCoin failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched coin is nil")
	}
	if fetched.Symbol != "btc" {
		t.Errorf("expected symbol btc, got %s", fetched.Symbol)
	}

	missing, err := s.GetCoin("nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing coin, got (%v, %v)", missing, err)
	}
}

func TestUpsertCoinsKeepsIconPath(t *testing.T) {
	s := setupTestDB(t)

	records := []domain.CoinRecord{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Image: "https://example.com/btc.png"},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Image: "https://example.com/eth.png"},
		{ID: "", Name: "skipped"},
	}
	if err := s.UpsertCoins(records); err != nil {
		t.Fatalf("UpsertCoins failed: %v", err)
	}
	if err := s.SetIconPath("bitcoin", "/tmp/bitcoin.png"); err != nil {
		t.Fatalf("SetIconPath failed: %v", err)
	}

	// Refresh with a renamed coin
	records[0].Name = "Bitcoin (renamed)"
	if err := s.UpsertCoins(records); err != nil {
		t.Fatalf("second UpsertCoins failed: %v", err)
	}

	btc, _ := s.GetCoin("bitcoin")
	if btc.Name != "Bitcoin (renamed)" {
		t.Errorf("expected refreshed name, got %q", btc.Name)
	}
	if btc.IconPath != "/tmp/bitcoin.png" {
		t.Errorf("icon path should survive refresh, got %q", btc.IconPath)
	}
	if btc.LastSyncedAt.IsZero() {
		t.Error("expected LastSyncedAt to be set")
	}

	all, err := s.GetAllCoins()
	if err != nil {
		t.Fatalf("GetAllCoins failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 coins, got %d", len(all))
	}

	missing, err := s.CoinsMissingIcons()
	if err != nil {
		t.Fatalf("CoinsMissingIcons failed: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != "ethereum" {
		t.Errorf("expected only ethereum to miss an icon, got %+v", missing)
	}
}

func TestDeleteCoin(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertCoin(&domain.CoinInfo{ID: "dogecoin", Name: "Delete Me"})

	if err := s.DeleteCoin("dogecoin"); err != nil {
		t.Fatalf("DeleteCoin failed: %v", err)
	}

	fetched, err := s.GetCoin("dogecoin")
	if err != nil {
		t.Fatalf("GetCoin after delete failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected coin to be deleted, but found record")
	}
}

func TestConfigMap(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveConfig(domain.PrefTheme, "light"); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if err := s.SaveConfig(domain.PrefTheme, "dark"); err != nil {
		t.Fatalf("SaveConfig overwrite failed: %v", err)
	}

	prefs, err := s.LoadConfigMap()
	if err != nil {
		t.Fatalf("LoadConfigMap failed: %v", err)
	}
	if prefs[domain.PrefTheme] != "dark" {
		t.Errorf("expected theme dark, got %q", prefs[domain.PrefTheme])
	}
}
