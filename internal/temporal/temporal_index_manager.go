package temporal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
	"github.com/chronosdb/chronosai/internal/scheduler"
)

// Manager owns the four temporal sub-parts and composes them into the
// periodic hotspot/change-point/retention analysis cycle. Ported from
// ai/temporal/temporal_index_manager.cpp.
type Manager struct {
	cfg     aiconfig.Config
	metrics *metricsstore.Store
	log     *ailog.Logger

	Tracker   *AccessTracker
	Detector  *HotspotDetector
	Scheduler *SnapshotScheduler
	Retention *RetentionManager

	active uint32 // atomic bool

	resultsMu       sync.RWMutex
	currentHotspots []aimodel.TemporalHotspot

	sched  *scheduler.Scheduler
	taskID scheduler.TaskID
}

// New creates a Temporal Index Manager wired to the shared metrics
// store and an optional checkpoint service.
func New(cfg aiconfig.Config, metrics *metricsstore.Store, checkpoint CheckpointService, log *ailog.Logger) *Manager {
	if log == nil {
		log = ailog.Nop()
	}
	return &Manager{
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		Tracker:   NewAccessTracker(cfg.AccessPatternWindowSize),
		Detector:  NewHotspotDetector(uint64(cfg.HotspotClusterEpsilonUS), cfg.HotspotClusterMinPoints, cfg.CUSUMThresholdSigmaMult, cfg.CUSUMDriftSigmaMult),
		Scheduler: NewSnapshotScheduler(checkpoint, metrics, cfg.SnapshotCooldown, log),
		Retention: NewRetentionManager(24*time.Hour, 7*24*time.Hour),
	}
}

// OnTimeTravelQuery records a time-travel query target against the
// access tracker and the shared metrics store.
func (m *Manager) OnTimeTravelQuery(table, db string, targetTimestampUS uint64) {
	if !m.isActive() {
		return
	}
	nowUS := aimodel.NowMicros()
	m.Tracker.RecordAccess(aimodel.TemporalAccessEvent{
		QueriedTimestampUS: targetTimestampUS,
		QueryTimeUS:        nowUS,
		TableName:          table,
		DBName:             db,
	})
	m.metrics.Record(aimodel.MetricEvent{
		Kind:            aimodel.KindTimeTravelQuery,
		TimestampUS:     nowUS,
		TableName:       table,
		DBName:          db,
		TargetTimestamp: targetTimestampUS,
	})
}

// periodicAnalysis runs one hotspot-detection / change-point /
// retention analysis cycle.
func (m *Manager) periodicAnalysis() {
	if !m.isActive() {
		return
	}

	events := m.Tracker.GetAllEvents()
	if len(events) == 0 {
		return
	}

	hotspots := m.Detector.DetectHotspots(events)

	histogram := m.Tracker.GetFrequencyHistogram(60_000_000, 10_000)
	rates := make([]float64, len(histogram))
	timestamps := make([]uint64, len(histogram))
	for i, bucket := range histogram {
		rates[i] = float64(bucket.AccessCount)
		timestamps[i] = bucket.StartUS
	}
	changePoints := m.Detector.DetectChangePoints(rates, timestamps)

	m.resultsMu.Lock()
	m.currentHotspots = hotspots
	m.resultsMu.Unlock()

	m.Scheduler.Evaluate(hotspots, changePoints)

	policy := m.Retention.ComputePolicy(m.Tracker)
	m.Retention.UpdatePolicy(policy)

	if len(hotspots) > 0 {
		m.log.Info("TemporalIndex", "analysis: %d hotspots, %d change points, %d access events",
			len(hotspots), len(changePoints), len(events))
	}
}

func (m *Manager) isActive() bool {
	return m.IsActive()
}

// IsActive reports whether the manager is currently tracking
// time-travel access patterns, for SHOW AI STATUS.
func (m *Manager) IsActive() bool {
	return atomic.LoadUint32(&m.active) == 1
}

// GetCurrentHotspots returns the hotspots from the most recent
// periodic analysis, or nil if no analysis has produced any.
func (m *Manager) GetCurrentHotspots() []aimodel.TemporalHotspot {
	m.resultsMu.RLock()
	defer m.resultsMu.RUnlock()
	if m.currentHotspots == nil {
		return nil
	}
	out := make([]aimodel.TemporalHotspot, len(m.currentHotspots))
	copy(out, m.currentHotspots)
	return out
}

// Summary is a human-readable one-line status, used by SHOW AI STATUS.
func (m *Manager) Summary() string {
	m.resultsMu.RLock()
	hotspots := len(m.currentHotspots)
	m.resultsMu.RUnlock()
	return fmt.Sprintf("%d hotspots detected, %d time-travel queries tracked, %d smart snapshots triggered",
		hotspots, m.Tracker.GetTotalAccessCount(), m.Scheduler.GetTotalSnapshotsTriggered())
}

// Start activates the manager and schedules periodic analysis via
// sched at the configured cadence.
func (m *Manager) Start(sched *scheduler.Scheduler) {
	atomic.StoreUint32(&m.active, 1)
	m.sched = sched
	m.taskID = sched.SchedulePeriodic("TemporalIndex::PeriodicAnalysis", m.cfg.TemporalAnalysisInterval.Milliseconds(), m.periodicAnalysis)
	m.log.Info("TemporalIndex", "temporal index manager started (analysis interval=%dms)", m.cfg.TemporalAnalysisIntervalMS)
}

// Stop deactivates the manager and cancels its periodic analysis task.
func (m *Manager) Stop() {
	atomic.StoreUint32(&m.active, 0)
	if m.sched != nil {
		m.sched.Cancel(m.taskID)
	}
}
