// Package monitor records per-search timing samples, computes rolling
// statistics, and raises threshold-based alerts with deduplication.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Ring and window sizing.
const (
	RingSize     = 10000
	EvalWindow   = 100
	MinSamples   = 10
	DedupWindow  = 5 * time.Minute
	maxKeptAlert = 100
)

// Alert thresholds. Response times in milliseconds, rates in percent.
const (
	ResponseTimeWarn = 2000.0
	ResponseTimeCrit = 5000.0
	ErrorRateWarn    = 5.0
	ErrorRateCrit    = 15.0
	HitRateWarn      = 70.0
	HitRateCrit      = 50.0
)

// Sample is one recorded search outcome.
type Sample struct {
	Timestamp      time.Time
	ResponseTimeMs float64
	ResultCount    int
	Cached         bool
	Errored        bool
	ErrorKind      string
}

// AlertKind names the statistic that crossed a threshold.
type AlertKind string

// Alert kinds.
const (
	KindResponseTime AlertKind = "response_time"
	KindErrorRate    AlertKind = "error_rate"
	KindCacheHitRate AlertKind = "cache_hit_rate"
)

// Severity grades an alert.
type Severity string

// Severities.
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one threshold crossing.
type Alert struct {
	ID        string
	Kind      AlertKind
	Severity  Severity
	Value     float64
	Threshold float64
	Timestamp time.Time
}

// RollingStats are computed over the evaluation window.
type RollingStats struct {
	Samples            int
	MeanResponseTimeMs float64
	ErrorRate          float64 // percent
	CacheHitRate       float64 // percent
}

// WindowStats summarize a trailing wall-clock window.
type WindowStats struct {
	Searches           int
	Errors             int
	CacheHits          int
	MeanResponseTimeMs float64
}

// RealtimeStatus reports the trailing hour and minute.
type RealtimeStatus struct {
	LastHour   WindowStats
	LastMinute WindowStats
}

// Monitor is the performance monitoring facility. All mutation happens under
// one mutex so append+trim and evaluate-then-alert never interleave.
type Monitor struct {
	mu          sync.Mutex
	samples     []Sample // append-only ring, oldest first
	alerts      []Alert
	lastAlertAt map[AlertKind]time.Time

	thresholds  Thresholds
	alertsTotal *prometheus.CounterVec // labels kind, severity; optional
	logger      *zap.Logger
	nowFn       func() time.Time
}

// Thresholds hold the alert limits. Response times in milliseconds, rates
// in percent. Hit rate alerts fire below the threshold, the others above.
type Thresholds struct {
	ResponseTimeWarnMs float64
	ResponseTimeCritMs float64
	ErrorRateWarnPct   float64
	ErrorRateCritPct   float64
	HitRateWarnPct     float64
	HitRateCritPct     float64
}

// DefaultThresholds returns the standard alert limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ResponseTimeWarnMs: ResponseTimeWarn,
		ResponseTimeCritMs: ResponseTimeCrit,
		ErrorRateWarnPct:   ErrorRateWarn,
		ErrorRateCritPct:   ErrorRateCrit,
		HitRateWarnPct:     HitRateWarn,
		HitRateCritPct:     HitRateCrit,
	}
}

// New creates a monitor.
// alertsTotal is a counter vec with labels "kind" and "severity", passed explicitly.
func New(alertsTotal *prometheus.CounterVec, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		lastAlertAt: make(map[AlertKind]time.Time),
		thresholds:  DefaultThresholds(),
		alertsTotal: alertsTotal,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// WithThresholds overrides the alert limits.
func (m *Monitor) WithThresholds(t Thresholds) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
	return m
}

// WithClock overrides the time source. Intended for tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.nowFn = now
	return m
}

// Record appends a sample, dropping the oldest past RingSize, and re-evaluates
// the alert thresholds. Newly fired alerts are returned.
func (m *Monitor) Record(s Sample) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Timestamp.IsZero() {
		s.Timestamp = m.nowFn()
	}
	m.samples = append(m.samples, s)
	if len(m.samples) > RingSize {
		m.samples = m.samples[len(m.samples)-RingSize:]
	}

	return m.evaluate()
}

// Rolling returns the statistics over the evaluation window.
func (m *Monitor) Rolling() RollingStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rolling()
}

// Alerts returns the retained alert history, newest last.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// RealtimeStatus reports totals over the trailing hour and trailing minute.
func (m *Monitor) RealtimeStatus() RealtimeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	return RealtimeStatus{
		LastHour:   m.window(now.Add(-time.Hour)),
		LastMinute: m.window(now.Add(-time.Minute)),
	}
}

// OptimizationSuggestions derives remediation hints from the current rolling
// statistics. Deterministic rule table, no learning.
func (m *Monitor) OptimizationSuggestions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.rolling()
	if st.Samples < MinSamples {
		return []string{"not enough samples yet to assess performance"}
	}

	var out []string
	if st.MeanResponseTimeMs > m.thresholds.ResponseTimeWarnMs {
		out = append(out, fmt.Sprintf(
			"mean response time %.0fms exceeds %.0fms: reduce filter count or add a composite index",
			st.MeanResponseTimeMs, m.thresholds.ResponseTimeWarnMs))
	}
	if st.ErrorRate > m.thresholds.ErrorRateWarnPct {
		out = append(out, fmt.Sprintf(
			"error rate %.1f%% exceeds %.1f%%: check store connectivity and retry with backoff",
			st.ErrorRate, m.thresholds.ErrorRateWarnPct))
	}
	if st.CacheHitRate < m.thresholds.HitRateWarnPct {
		out = append(out, fmt.Sprintf(
			"cache hit rate %.1f%% below %.1f%%: raise cache TTL or capacity",
			st.CacheHitRate, m.thresholds.HitRateWarnPct))
	}
	if len(out) == 0 {
		out = append(out, "performance within configured targets")
	}
	return out
}

// --- internals (callers hold m.mu) ---

func (m *Monitor) rolling() RollingStats {
	window := m.samples
	if len(window) > EvalWindow {
		window = window[len(window)-EvalWindow:]
	}

	st := RollingStats{Samples: len(window)}
	if len(window) == 0 {
		return st
	}

	var totalMs float64
	errored, cached := 0, 0
	for _, s := range window {
		totalMs += s.ResponseTimeMs
		if s.Errored {
			errored++
		}
		if s.Cached {
			cached++
		}
	}
	n := float64(len(window))
	st.MeanResponseTimeMs = totalMs / n
	st.ErrorRate = float64(errored) / n * 100
	st.CacheHitRate = float64(cached) / n * 100
	return st
}

func (m *Monitor) window(since time.Time) WindowStats {
	var st WindowStats
	var totalMs float64
	for i := len(m.samples) - 1; i >= 0; i-- {
		s := m.samples[i]
		if s.Timestamp.Before(since) {
			break
		}
		st.Searches++
		totalMs += s.ResponseTimeMs
		if s.Errored {
			st.Errors++
		}
		if s.Cached {
			st.CacheHits++
		}
	}
	if st.Searches > 0 {
		st.MeanResponseTimeMs = totalMs / float64(st.Searches)
	}
	return st
}

// evaluate checks the three rolling statistics and fires at most one alert
// per kind per DedupWindow.
func (m *Monitor) evaluate() []Alert {
	st := m.rolling()
	if st.Samples < MinSamples {
		return nil
	}

	var fired []Alert
	if a, ok := m.check(KindResponseTime, st.MeanResponseTimeMs,
		m.thresholds.ResponseTimeWarnMs, m.thresholds.ResponseTimeCritMs, false); ok {
		fired = append(fired, a)
	}
	if a, ok := m.check(KindErrorRate, st.ErrorRate,
		m.thresholds.ErrorRateWarnPct, m.thresholds.ErrorRateCritPct, false); ok {
		fired = append(fired, a)
	}
	if a, ok := m.check(KindCacheHitRate, st.CacheHitRate,
		m.thresholds.HitRateWarnPct, m.thresholds.HitRateCritPct, true); ok {
		fired = append(fired, a)
	}
	return fired
}

// check fires an alert when value crosses warn (or crit) in the indicated
// direction. below=true alerts when the value is under the threshold.
func (m *Monitor) check(kind AlertKind, value, warn, crit float64, below bool) (Alert, bool) {
	breachedWarn := value > warn
	breachedCrit := value > crit
	if below {
		breachedWarn = value < warn
		breachedCrit = value < crit
	}
	if !breachedWarn {
		return Alert{}, false
	}

	now := m.nowFn()
	if last, ok := m.lastAlertAt[kind]; ok && now.Sub(last) < DedupWindow {
		return Alert{}, false
	}

	sev := SeverityWarning
	threshold := warn
	if breachedCrit {
		sev = SeverityCritical
		threshold = crit
	}

	a := Alert{
		ID:        uuid.NewString(),
		Kind:      kind,
		Severity:  sev,
		Value:     value,
		Threshold: threshold,
		Timestamp: now,
	}
	m.lastAlertAt[kind] = now
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > maxKeptAlert {
		m.alerts = m.alerts[len(m.alerts)-maxKeptAlert:]
	}
	if m.alertsTotal != nil {
		m.alertsTotal.WithLabelValues(string(kind), string(sev)).Inc()
	}
	m.logger.Warn("Performance alert",
		zap.String("kind", string(kind)),
		zap.String("severity", string(sev)),
		zap.Float64("value", value),
		zap.Float64("threshold", threshold),
	)
	return a, true
}
