package domain

import "context"

// MarketSource yields the current market snapshot, ordered by
// descending market capitalization.
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]CoinRecord, error)
}

// PreferenceStore persists user preferences as key/value pairs.
type PreferenceStore interface {
	SaveConfig(key, value string) error
	LoadConfigMap() (map[string]string, error)
}

// Preference keys stored through PreferenceStore
const (
	PrefTheme = "theme"
)
