package temporal

import (
	"sync"
	"time"

	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
)

// CheckpointService is the engine-provided fire-and-forget checkpoint
// trigger consumed by the snapshot scheduler.
type CheckpointService interface {
	BeginCheckpoint()
}

// SnapshotScheduler decides when hotspot and change-point signals
// warrant an out-of-band checkpoint. Ported from
// ai/temporal/snapshot_scheduler.cpp.
type SnapshotScheduler struct {
	checkpoint CheckpointService
	metrics    *metricsstore.Store
	log        *ailog.Logger
	cooldown   time.Duration

	mu                 sync.Mutex
	lastSnapshotUS     uint64
	totalSnapshots     uint64
	scheduledSnapshots []uint64
}

// NewSnapshotScheduler creates a SnapshotScheduler. checkpoint may be
// nil, in which case Evaluate never triggers a snapshot and logs
// nothing.
func NewSnapshotScheduler(checkpoint CheckpointService, metrics *metricsstore.Store, cooldown time.Duration, log *ailog.Logger) *SnapshotScheduler {
	if log == nil {
		log = ailog.Nop()
	}
	return &SnapshotScheduler{checkpoint: checkpoint, metrics: metrics, cooldown: cooldown, log: log}
}

// Evaluate decides whether to trigger a checkpoint given the latest
// hotspot and change-point detections, and refreshes the list of
// hotspot centers tracked for observability. Within the cooldown after
// the last snapshot it returns without doing either.
func (s *SnapshotScheduler) Evaluate(hotspots []aimodel.TemporalHotspot, changePoints []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowUS := aimodel.NowMicros()
	if !s.shouldSnapshotLocked(nowUS) {
		return
	}

	shouldTrigger := false
	for _, cp := range changePoints {
		var age uint64
		if nowUS > cp {
			age = nowUS - cp
		}
		if age < uint64(5*time.Minute/time.Microsecond) {
			shouldTrigger = true
			break
		}
	}
	if !shouldTrigger {
		for _, hs := range hotspots {
			if hs.Density > 1.0 && hs.AccessCount >= 10 {
				shouldTrigger = true
				break
			}
		}
	}

	if shouldTrigger && s.checkpoint != nil {
		s.log.Info("TemporalIndex", "smart snapshot triggered (hotspots=%d, change_points=%d)", len(hotspots), len(changePoints))
		s.checkpoint.BeginCheckpoint()
		s.lastSnapshotUS = nowUS
		s.totalSnapshots++
		s.metrics.Record(aimodel.MetricEvent{Kind: aimodel.KindSnapshotTriggered, TimestampUS: nowUS})
	}

	s.scheduledSnapshots = s.scheduledSnapshots[:0]
	for _, hs := range hotspots {
		s.scheduledSnapshots = append(s.scheduledSnapshots, hs.CenterTimestampUS)
	}
}

func (s *SnapshotScheduler) shouldSnapshotLocked(nowUS uint64) bool {
	if s.lastSnapshotUS == 0 {
		return true
	}
	elapsed := nowUS - s.lastSnapshotUS
	return elapsed >= uint64(s.cooldown/time.Microsecond)
}

// GetScheduledSnapshots returns the hotspot centers from the most
// recent evaluation.
func (s *SnapshotScheduler) GetScheduledSnapshots() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.scheduledSnapshots))
	copy(out, s.scheduledSnapshots)
	return out
}

// GetLastSnapshotTime returns the wall-clock microsecond timestamp of
// the last triggered snapshot, or 0 if none has fired.
func (s *SnapshotScheduler) GetLastSnapshotTime() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshotUS
}

// GetTotalSnapshotsTriggered returns the number of snapshots fired
// over the scheduler's lifetime.
func (s *SnapshotScheduler) GetTotalSnapshotsTriggered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSnapshots
}
