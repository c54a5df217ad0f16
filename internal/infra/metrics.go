package infra

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides lightweight observability counters.
// Uses atomic operations for thread-safety; Collector exposes them to Prometheus.
type Metrics struct {
	// Counters
	fetchesTotal    atomic.Uint64
	fetchFailures   atomic.Uint64
	iconsDownloaded atomic.Uint64
	iconFailures    atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	recordsLoaded  atomic.Int64
	activeSessions atomic.Int32
	lastSuccessUx  atomic.Int64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFetch records one market fetch attempt with its latency.
func (m *Metrics) RecordFetch(latency time.Duration, err error) {
	m.fetchesTotal.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
	if err != nil {
		m.fetchFailures.Add(1)
	}
}

// SetRecordsLoaded records the size of the last successful snapshot.
func (m *Metrics) SetRecordsLoaded(n int, at time.Time) {
	m.recordsLoaded.Store(int64(n))
	m.lastSuccessUx.Store(at.Unix())
}

// RecordIcon records an icon download outcome.
func (m *Metrics) RecordIcon(err error) {
	if err != nil {
		m.iconFailures.Add(1)
		return
	}
	m.iconsDownloaded.Add(1)
}

// IncrementSessions increments active web sessions by 1.
func (m *Metrics) IncrementSessions() {
	m.activeSessions.Add(1)
}

// DecrementSessions decrements active web sessions by 1.
func (m *Metrics) DecrementSessions() {
	m.activeSessions.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FetchesTotal    uint64
	FetchFailures   uint64
	IconsDownloaded uint64
	IconFailures    uint64
	AvgLatencyNs    int64
	RecordsLoaded   int64
	ActiveSessions  int32
	LastSuccessUnix int64
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		FetchesTotal:    m.fetchesTotal.Load(),
		FetchFailures:   m.fetchFailures.Load(),
		IconsDownloaded: m.iconsDownloaded.Load(),
		IconFailures:    m.iconFailures.Load(),
		AvgLatencyNs:    avgLatency,
		RecordsLoaded:   m.recordsLoaded.Load(),
		ActiveSessions:  m.activeSessions.Load(),
		LastSuccessUnix: m.lastSuccessUx.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.fetchesTotal.Store(0)
	m.fetchFailures.Store(0)
	m.iconsDownloaded.Store(0)
	m.iconFailures.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.recordsLoaded.Store(0)
	m.activeSessions.Store(0)
	m.lastSuccessUx.Store(0)
}

// Collector adapts Metrics to prometheus.Collector.
type Collector struct {
	m *Metrics

	fetches        *prometheus.Desc
	fetchFailures  *prometheus.Desc
	avgLatency     *prometheus.Desc
	records        *prometheus.Desc
	sessions       *prometheus.Desc
	icons          *prometheus.Desc
	iconFailures   *prometheus.Desc
	lastSuccessUts *prometheus.Desc
}

// NewCollector creates a collector reading from m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m:              m,
		fetches:        prometheus.NewDesc("cointracker_market_fetches_total", "Market data fetch attempts.", nil, nil),
		fetchFailures:  prometheus.NewDesc("cointracker_market_fetch_failures_total", "Failed market data fetch attempts.", nil, nil),
		avgLatency:     prometheus.NewDesc("cointracker_market_fetch_latency_avg_seconds", "Average market fetch latency.", nil, nil),
		records:        prometheus.NewDesc("cointracker_market_records", "Coin records in the last successful snapshot.", nil, nil),
		sessions:       prometheus.NewDesc("cointracker_web_sessions", "Active WebSocket dashboard sessions.", nil, nil),
		icons:          prometheus.NewDesc("cointracker_icons_downloaded_total", "Coin icons downloaded and resized.", nil, nil),
		iconFailures:   prometheus.NewDesc("cointracker_icon_failures_total", "Coin icon downloads that failed.", nil, nil),
		lastSuccessUts: prometheus.NewDesc("cointracker_market_last_success_timestamp_seconds", "Unix time of the last successful fetch.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fetches
	ch <- c.fetchFailures
	ch <- c.avgLatency
	ch <- c.records
	ch <- c.sessions
	ch <- c.icons
	ch <- c.iconFailures
	ch <- c.lastSuccessUts
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.fetches, prometheus.CounterValue, float64(s.FetchesTotal))
	ch <- prometheus.MustNewConstMetric(c.fetchFailures, prometheus.CounterValue, float64(s.FetchFailures))
	ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, time.Duration(s.AvgLatencyNs).Seconds())
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(s.RecordsLoaded))
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(s.ActiveSessions))
	ch <- prometheus.MustNewConstMetric(c.icons, prometheus.CounterValue, float64(s.IconsDownloaded))
	ch <- prometheus.MustNewConstMetric(c.iconFailures, prometheus.CounterValue, float64(s.IconFailures))
	ch <- prometheus.MustNewConstMetric(c.lastSuccessUts, prometheus.GaugeValue, float64(s.LastSuccessUnix))
}
