package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates turn counters per chat mode plus a sliding window of turn durations.
type Metrics struct {
	mu sync.Mutex

	turnTotal  atomic.Int64
	turnFailed atomic.Int64
	replies    atomic.Int64

	modeMetrics map[string]*ModeMetrics

	durations    []time.Duration
	maxDurations int
}

// ModeMetrics holds the counters of one chat mode.
type ModeMetrics struct {
	turnCount     atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a metrics collector keeping the last maxDurations turn durations.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		modeMetrics:  make(map[string]*ModeMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordTurn records a finished turn with its duration and the number of persona replies it produced.
func (m *Metrics) RecordTurn(mode string, duration time.Duration, replies int, failed bool) {
	m.turnTotal.Add(1)
	m.replies.Add(int64(replies))
	if failed {
		m.turnFailed.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)

	mm := m.modeMetricsLocked(mode)
	mm.turnCount.Add(1)
	mm.totalDuration.Add(duration.Milliseconds())
	if failed {
		mm.errorCount.Add(1)
	}
}

func (m *Metrics) modeMetricsLocked(mode string) *ModeMetrics {
	if _, ok := m.modeMetrics[mode]; !ok {
		m.modeMetrics[mode] = &ModeMetrics{}
	}
	return m.modeMetrics[mode]
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.turnTotal.Store(0)
	m.turnFailed.Store(0)
	m.replies.Store(0)

	m.mu.Lock()
	m.modeMetrics = make(map[string]*ModeMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[string]*ModeMetricsSnapshot, len(m.modeMetrics))
	for mode, mm := range m.modeMetrics {
		snapshot := &ModeMetricsSnapshot{
			TurnCount:     mm.turnCount.Load(),
			TotalDuration: mm.totalDuration.Load(),
			ErrorCount:    mm.errorCount.Load(),
		}
		if snapshot.TurnCount > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / snapshot.TurnCount
		}
		modes[mode] = snapshot
	}

	sorted := append([]time.Duration(nil), m.durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		TurnTotal:  m.turnTotal.Load(),
		TurnFailed: m.turnFailed.Load(),
		Replies:    m.replies.Load(),
		Modes:      modes,
		P50:        percentile(sorted, 50),
		P95:        percentile(sorted, 95),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	TurnTotal  int64
	TurnFailed int64
	Replies    int64
	Modes      map[string]*ModeMetricsSnapshot
	P50        time.Duration
	P95        time.Duration
}

// ModeMetricsSnapshot represents metrics for one chat mode.
type ModeMetricsSnapshot struct {
	TurnCount       int64
	TotalDuration   int64
	ErrorCount      int64
	AverageDuration int64
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.TurnTotal == 0 {
		return 100.0
	}
	return float64(s.TurnTotal-s.TurnFailed) / float64(s.TurnTotal) * 100.0
}
