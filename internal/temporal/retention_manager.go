package temporal

import (
	"sync"
	"time"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// RetentionPolicy describes how long WAL data stays at full ("hot")
// fidelity before it may be pruned toward a "cold" cutoff.
type RetentionPolicy struct {
	HotRetentionUS uint64
	ColdCutoffUS   uint64
}

// RetentionStats is a read-only snapshot of the currently applied
// policy.
type RetentionStats struct {
	HotZoneStartUS uint64
	ColdCutoffUS   uint64
	PolicyUpdates  uint64
}

// RetentionManager computes and tracks the adaptive WAL retention
// policy. Ported from ai/temporal/retention_manager.cpp. Actual WAL
// truncation is out of scope; this only tracks the policy for
// observability and future enforcement.
type RetentionManager struct {
	defaultHotRetention time.Duration
	defaultColdCutoff   time.Duration

	mu    sync.Mutex
	stats RetentionStats
}

// NewRetentionManager creates a RetentionManager with the given
// default hot/cold durations.
func NewRetentionManager(defaultHotRetention, defaultColdCutoff time.Duration) *RetentionManager {
	return &RetentionManager{
		defaultHotRetention: defaultHotRetention,
		defaultColdCutoff:   defaultColdCutoff,
	}
}

// ComputePolicy derives a retention policy from the tracker's hot
// timestamps: if users keep querying data older than the hot window,
// the cold cutoff is extended to cover it.
func (m *RetentionManager) ComputePolicy(tracker *AccessTracker) RetentionPolicy {
	policy := RetentionPolicy{
		HotRetentionUS: uint64(m.defaultHotRetention / time.Microsecond),
		ColdCutoffUS:   uint64(m.defaultColdCutoff / time.Microsecond),
	}

	nowUS := aimodel.NowMicros()
	for _, ts := range tracker.GetHotTimestamps(10) {
		if ts >= nowUS {
			continue
		}
		age := nowUS - ts
		if age > policy.HotRetentionUS && age < policy.ColdCutoffUS*2 {
			if extended := age + policy.HotRetentionUS; extended > policy.ColdCutoffUS {
				policy.ColdCutoffUS = extended
			}
		}
	}
	return policy
}

// UpdatePolicy applies policy, recording the resulting hot-zone start
// and cold cutoff wall-clock boundaries.
func (m *RetentionManager) UpdatePolicy(policy RetentionPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nowUS := aimodel.NowMicros()
	m.stats.HotZoneStartUS = nowUS - policy.HotRetentionUS
	m.stats.ColdCutoffUS = nowUS - policy.ColdCutoffUS
	m.stats.PolicyUpdates++
}

// GetStats returns a snapshot of the currently applied policy.
func (m *RetentionManager) GetStats() RetentionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
