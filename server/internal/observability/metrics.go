package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request counters and recent latencies per route.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	routeMetrics map[string]*RouteMetrics

	// durations is a FIFO window of recent request latencies.
	durations    []time.Duration
	maxDurations int
}

// RouteMetrics holds the counters of one route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector keeping at most maxDurations latencies.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		routeMetrics: make(map[string]*RouteMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a finished request.
func (m *Metrics) RecordRequest(route string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	rm := m.getRouteMetrics(route)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) getRouteMetrics(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routeMetrics[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routeMetrics[route] = rm
	}
	return rm
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.routeMetrics = make(map[string]*RouteMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteMetricsSnapshot, len(m.routeMetrics))
	for route, rm := range m.routeMetrics {
		count := rm.requestCount.Load()
		snapshot := &RouteMetricsSnapshot{
			RequestCount:  count,
			TotalDuration: rm.totalDuration.Load(),
			ErrorCount:    rm.errorCount.Load(),
		}
		if count > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / count
		}
		routes[route] = snapshot
	}

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Routes:        routes,
		DurationCount: len(sorted),
		P50:           percentile(sorted, 0.50),
		P95:           percentile(sorted, 0.95),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64
	RequestFailed int64
	Routes        map[string]*RouteMetricsSnapshot
	DurationCount int
	P50           time.Duration
	P95           time.Duration
}

// RouteMetricsSnapshot represents metrics for a specific route.
type RouteMetricsSnapshot struct {
	RequestCount    int64
	TotalDuration   int64
	ErrorCount      int64
	AverageDuration int64
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
