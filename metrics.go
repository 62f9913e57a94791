package conformance

import (
	"sync/atomic"
	"time"
)

// Metrics tracks validation activity using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	validationsTotal  atomic.Uint64
	validationsFailed atomic.Uint64
	issuesTotal       atomic.Uint64

	// Timing, stored as nanoseconds
	validationTimeTotal atomic.Uint64
	validationTimeMax   atomic.Uint64
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordValidation records one completed top-level validation call.
func (m *Metrics) RecordValidation(report Report, duration time.Duration) {
	m.validationsTotal.Add(1)
	if report.Failed() {
		m.validationsFailed.Add(1)
	}
	m.issuesTotal.Add(uint64(len(report.Evidence)))

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)
	for {
		max := m.validationTimeMax.Load()
		if ns <= max || m.validationTimeMax.CompareAndSwap(max, ns) {
			break
		}
	}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ValidationsTotal  uint64
	ValidationsFailed uint64
	IssuesTotal       uint64
	AverageDuration   time.Duration
	MaxDuration       time.Duration
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	total := m.validationsTotal.Load()
	snap := MetricsSnapshot{
		ValidationsTotal:  total,
		ValidationsFailed: m.validationsFailed.Load(),
		IssuesTotal:       m.issuesTotal.Load(),
		MaxDuration:       time.Duration(m.validationTimeMax.Load()),
	}
	if total > 0 {
		snap.AverageDuration = time.Duration(m.validationTimeTotal.Load() / total)
	}
	return snap
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsFailed.Store(0)
	m.issuesTotal.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMax.Store(0)
}
