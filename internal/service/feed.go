package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"coin_tracker/internal/domain"
)

var errPanic = errors.New("panic while refreshing market data")

// Feed holds the latest market snapshot shared by every view.
// The snapshot is only ever replaced wholesale; a failed fetch keeps
// the previous one (empty before the first success).
type Feed struct {
	source domain.MarketSource
	logger *slog.Logger

	mu        sync.RWMutex
	records   []domain.CoinRecord
	updatedAt time.Time
	lastErr   error
	subs      map[chan struct{}]struct{}

	// onUpdate is called after every successful refresh (icon sync, storage).
	onUpdate func(ctx context.Context, records []domain.CoinRecord)
}

// NewFeed creates a Feed reading from source.
func NewFeed(source domain.MarketSource) *Feed {
	return &Feed{
		source:  source,
		logger:  slog.Default().With("module", "feed"),
		records: []domain.CoinRecord{},
		subs:    make(map[chan struct{}]struct{}),
	}
}

// OnUpdate registers a hook run synchronously after each successful refresh.
func (f *Feed) OnUpdate(fn func(ctx context.Context, records []domain.CoinRecord)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = fn
}

// Refresh performs one fetch. The returned error is informational:
// the snapshot is untouched on failure and nothing panics past this point.
// A response arriving after ctx is cancelled is discarded.
func (f *Feed) Refresh(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Market refresh panic recovered", slog.Any("panic", r))
			err = domain.NewDecodeError(errPanic)
			f.setErr(err)
		}
	}()

	records, err := f.source.FetchMarkets(ctx)
	if ctx.Err() != nil {
		f.logger.Debug("Discarding market response after cancellation")
		return ctx.Err()
	}
	if err != nil {
		f.logger.Warn("Market data fetch failed", slog.Any("error", err))
		f.setErr(err)
		return err
	}

	now := time.Now()
	f.mu.Lock()
	f.records = domain.CloneRecords(records)
	f.updatedAt = now
	f.lastErr = nil
	hook := f.onUpdate
	subs := make([]chan struct{}, 0, len(f.subs))
	for ch := range f.subs {
		subs = append(subs, ch)
	}
	f.mu.Unlock()

	f.logger.Info("Market data refreshed", slog.Int("records", len(records)))

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default: // already pending
		}
	}
	if hook != nil {
		hook(ctx, domain.CloneRecords(records))
	}
	return nil
}

func (f *Feed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastErr = err
}

// Run refreshes once immediately, then every interval until ctx is done.
// With interval <= 0 it is a single fetch-on-mount.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	f.Refresh(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Market polling stopped")
			return
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

// Snapshot returns a copy of the latest records, when they were fetched,
// and the error of the most recent failed refresh (nil after a success).
func (f *Feed) Snapshot() ([]domain.CoinRecord, time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.CloneRecords(f.records), f.updatedAt, f.lastErr
}

// Subscribe returns a channel signalled after each successful refresh
// and a function that unsubscribes.
func (f *Feed) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}
