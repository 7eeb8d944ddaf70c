package adminauth

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricPrimarySuccess MetricID = iota
	MetricPrimaryFailure
	MetricAccountLocked
	MetricLockoutTriggered
	MetricCodeSent
	MetricCodeSendRateLimited
	MetricCodeDeliveryFailure
	MetricCodeVerifySuccess
	MetricCodeVerifyFailure
	MetricCodeExpired
	MetricCodeReplayRejected
	MetricSessionIssued
	MetricSessionEscalated
	MetricSessionInvalidated
	MetricSecondFactorActivated
	MetricSecondFactorDisabled
	metricCount
)

// Metrics is a lock-free counter registry. Counters only increase; Snapshot
// copies them out for export.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricCount),
	}
	if m == nil {
		return snapshot
	}
	for id := MetricID(0); id < metricCount; id++ {
		snapshot.Counters[id] = m.counters[id].Load()
	}
	return snapshot
}
