// Package aimanager implements the AI Manager: the process-wide
// singleton that owns the Metrics Store, the AI Scheduler, the
// Observer Registry, and the Learning Engine / Immune System /
// Temporal Index Manager, wiring them together in the leaves-first
// initialization order spec.md §9 documents and reversing it on
// shutdown. Ported from ai/ai_manager.cpp.
package aimanager

import (
	"math"
	"sync"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/dmlbus"
	"github.com/chronosdb/chronosai/internal/immune"
	"github.com/chronosdb/chronosai/internal/learning"
	"github.com/chronosdb/chronosai/internal/metricsstore"
	"github.com/chronosdb/chronosai/internal/scheduler"
	"github.com/chronosdb/chronosai/internal/temporal"
)

// EngineServices is the set of engine-provided entry points the
// manager's sub-parts are wired against: point-in-time recovery,
// checkpoint triggering, and catalog reads (spec.md §6's "Engine
// services interface"). internal/enginehooks.Engine satisfies this
// structurally.
type EngineServices interface {
	immune.RecoveryService
	temporal.CheckpointService
	learning.CatalogIndexLookup
}

// Manager is the AI layer's singleton composition root.
type Manager struct {
	cfg aiconfig.Config
	log *ailog.Logger

	Metrics  *metricsstore.Store
	Registry *dmlbus.Registry
	Sched    *scheduler.Scheduler

	Learning *learning.Engine
	Immune   *immune.System
	Temporal *temporal.Manager

	mu          sync.RWMutex
	initialized bool
}

// New constructs a Manager and every sub-part, but does not start
// them; call Initialize to bring the system up.
func New(cfg aiconfig.Config, engine EngineServices, log *ailog.Logger) *Manager {
	if log == nil {
		log = ailog.Nop()
	}
	metrics := metricsstore.New(cfg.MetricsRingBufferCapacity)
	sched := scheduler.New(cfg.AISchedulerTick, cfg.AIThreadPoolSize, log)
	registry := dmlbus.New(sched)

	learningEngine := learning.New(cfg, engine, metrics, log)
	immuneSystem := immune.New(cfg, metrics, engine, log)
	temporalManager := temporal.New(cfg, metrics, engine, log)

	return &Manager{
		cfg:      cfg,
		log:      log,
		Metrics:  metrics,
		Registry: registry,
		Sched:    sched,
		Learning: learningEngine,
		Immune:   immuneSystem,
		Temporal: temporalManager,
	}
}

// Initialize brings the whole AI layer up in leaves-first order:
// Metrics Store and Scheduler already exist from New; the Scheduler
// starts, then the Learning Engine registers as an observer, then the
// Immune System registers and schedules its periodic analysis, then
// the Temporal Index Manager schedules its own. Idempotent.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return
	}

	m.Sched.Start()

	m.Learning.Start()
	m.Registry.Register(m.Learning)

	m.Immune.Start(m.Sched)
	m.Registry.Register(m.Immune)

	m.Temporal.Start(m.Sched)

	m.initialized = true
	m.log.Info("AIManager", "AI layer initialized")
}

// Shutdown tears the AI layer down in the reverse order of
// Initialize, unregistering observers before stopping their owning
// subsystems to eliminate the tail-racing-observer hazard. Idempotent.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return
	}

	m.Temporal.Stop()

	m.Registry.Unregister(m.Immune)
	m.Immune.Stop()

	m.Registry.Unregister(m.Learning)
	m.Learning.Stop()

	m.Sched.Stop()

	m.initialized = false
	m.log.Info("AIManager", "AI layer shut down")
}

// NotifyBefore routes an engine-observed before-hook through the
// Observer Registry. Returns false to veto the DML.
func (m *Manager) NotifyBefore(event aimodel.DMLEvent) bool {
	return m.Registry.NotifyBefore(event)
}

// NotifyAfter routes an engine-observed after-hook through the
// Observer Registry, asynchronously.
func (m *Manager) NotifyAfter(event aimodel.DMLEvent) {
	m.Registry.NotifyAfter(event)
}

// OnTimeTravelQuery forwards a time-travel query observation directly
// to the Temporal Index Manager (it is not an Observer Registry
// participant — time-travel queries are a read-only query-plan
// signal, not a DML event).
func (m *Manager) OnTimeTravelQuery(table, db string, targetTimestampUS uint64) {
	m.Temporal.OnTimeTravelQuery(table, db, targetTimestampUS)
}

// IsInitialized reports whether the manager is currently up.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// GetStatus aggregates the SHOW AI STATUS shape from spec.md §6
// across every sub-part.
func (m *Manager) GetStatus() aimodel.Status {
	m.mu.RLock()
	initialized := m.initialized
	m.mu.RUnlock()

	var tasks []aimodel.ScheduledTaskStatus
	for _, t := range m.Sched.GetScheduledTasks() {
		tasks = append(tasks, aimodel.ScheduledTaskStatus{
			Name:       t.Name,
			IntervalMS: t.IntervalMS,
			RunCount:   t.RunCount,
			Periodic:   t.Periodic,
		})
	}

	var arms []aimodel.ArmStatus
	for _, a := range m.Learning.Bandit.GetStats() {
		// An unpulled arm's UCB score is +Inf, which JSON cannot
		// encode; report it as the largest finite float instead.
		ucb := a.UCBScore
		if math.IsInf(ucb, 1) {
			ucb = math.MaxFloat64
		}
		arms = append(arms, aimodel.ArmStatus{
			Strategy:      a.Strategy.String(),
			TotalPulls:    a.TotalPulls,
			AverageReward: a.AverageReward,
			UCBScore:      ucb,
		})
	}

	low, medium, high := m.Immune.Detector.Thresholds()

	return aimodel.Status{
		Initialized:     initialized,
		MetricsRecorded: m.Metrics.GetTotalRecorded(),
		ScheduledTasks:  tasks,
		LearningEngine: aimodel.LearningEngineStatus{
			Active:       m.Learning.IsActive(),
			TotalQueries: m.Learning.GetTotalQueriesObserved(),
			MinSamples:   m.Learning.MinSamplesBeforeLearning(),
			Ready:        m.Learning.HasSufficientData(),
			Arms:         arms,
			Summary:      m.Learning.Summary(),
		},
		ImmuneSystem: aimodel.ImmuneSystemStatus{
			Active:          m.Immune.IsActive(),
			TotalAnomalies:  m.Immune.Detector.TotalAnomalies(),
			BlockedTables:   m.Immune.Responder.GetBlockedTables(),
			BlockedUsers:    m.Immune.Responder.GetBlockedUsers(),
			MonitoredTables: m.Immune.Monitor.GetMonitoredTables(),
			Thresholds:      aimodel.ThresholdsStatus{Low: low, Medium: medium, High: high},
			RecentAnomalies: m.Immune.Detector.GetRecentAnomalies(10),
			Summary:         m.Immune.Summary(),
		},
		TemporalIndex: aimodel.TemporalIndexStatus{
			Active:             m.Temporal.IsActive(),
			TotalAccesses:      m.Temporal.Tracker.GetTotalAccessCount(),
			TotalSnapshots:     m.Temporal.Scheduler.GetTotalSnapshotsTriggered(),
			AnalysisIntervalMS: m.cfg.TemporalAnalysisInterval.Milliseconds(),
			Hotspots:           m.Temporal.GetCurrentHotspots(),
			Summary:            m.Temporal.Summary(),
		},
	}
}
