package immune

import (
	"sync"
	"time"

	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
	"github.com/chronosdb/chronosai/internal/scheduler"
)

// System implements dmlbus.Observer and wires together the Mutation
// Monitor, User Profiler, Anomaly Detector, and Response Engine.
// Ported from ai/immune/immune_system.cpp.
type System struct {
	cfg     aiconfig.Config
	metrics *metricsstore.Store
	log     *ailog.Logger

	Monitor   *MutationMonitor
	Profiler  *UserProfiler
	Detector  *AnomalyDetector
	Responder *ResponseEngine

	activeMu sync.RWMutex
	active   bool

	sched  *scheduler.Scheduler
	taskID scheduler.TaskID
}

// New creates an Immune System composition using the given config,
// shared metrics store, and optional recovery service.
func New(cfg aiconfig.Config, metrics *metricsstore.Store, recovery RecoveryService, log *ailog.Logger) *System {
	if log == nil {
		log = ailog.Nop()
	}
	return &System{
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		Monitor:   NewMutationMonitor(uint64(cfg.MutationRollingWindowUS), uint64(cfg.RateIntervalUS)),
		Profiler:  NewUserProfiler(cfg.UserProfileHistorySize, uint64(cfg.RateIntervalUS), cfg.UserDeviationMutationWeight, cfg.UserDeviationTableWeight),
		Detector:  NewAnomalyDetector(cfg.MutationWindowSize, uint64(cfg.RateIntervalUS), cfg.ZScoreLowThreshold, cfg.ZScoreMediumThreshold, cfg.ZScoreHighThreshold, cfg.MaxAnomalyHistory),
		Responder: NewResponseEngine(uint64(cfg.RecoveryLookbackUS), cfg.RecoveryCooldown, recovery, log),
	}
}

// OnBeforeDML implements dmlbus.Observer. SELECT is always allowed;
// mutations are vetoed if the table or the user is blocked.
func (s *System) OnBeforeDML(event aimodel.DMLEvent) bool {
	if !s.isActive() {
		return true
	}
	if event.Operation == aimodel.OpSelect {
		return true
	}
	if s.Responder.IsTableBlocked(event.TableName) {
		return false
	}
	if event.User != "" && s.Responder.IsUserBlocked(event.User) {
		return false
	}
	return true
}

// OnAfterDML implements dmlbus.Observer: records mutations to the
// Mutation Monitor, all user-attributed events to the User Profiler,
// and always writes a metric event.
func (s *System) OnAfterDML(event aimodel.DMLEvent) {
	if !s.isActive() {
		return
	}
	if event.Operation.IsMutation() {
		s.Monitor.RecordMutation(event.TableName, event.RowsAffected, event.StartTimeUS)
	}
	if event.User != "" {
		s.Profiler.RecordEvent(event.User, event.Operation, event.TableName, event.StartTimeUS)
	}

	s.metrics.Record(aimodel.MetricEvent{
		Kind:         eventKindFor(event.Operation),
		TimestampUS:  event.StartTimeUS,
		DurationUS:   event.DurationUS,
		SessionID:    event.SessionID,
		User:         event.User,
		TableName:    event.TableName,
		DBName:       event.DBName,
		RowsAffected: event.RowsAffected,
	})
}

func eventKindFor(op aimodel.Operation) aimodel.EventKind {
	switch op {
	case aimodel.OpInsert:
		return aimodel.KindInsert
	case aimodel.OpUpdate:
		return aimodel.KindUpdate
	case aimodel.OpDelete:
		return aimodel.KindDelete
	default:
		return aimodel.KindSelect
	}
}

// analyze runs one detection/response cycle: for each fresh report,
// record it to history before responding, so history reflects every
// anomaly even when the response itself fails. A HIGH report for a
// table in post-recovery cooldown is skipped and not recorded.
func (s *System) analyze() {
	now := aimodel.NowMicros()
	reports := s.Detector.Analyze(s.Monitor, s.Profiler, now)
	for _, report := range reports {
		if report.Severity == aimodel.SeverityHigh && s.Responder.IsTableInCooldown(report.TableName, time.Now()) {
			continue // suppressed during post-recovery cooldown
		}
		s.Detector.RecordAnomaly(report)
		s.Responder.Respond(report)
	}
}

func (s *System) isActive() bool {
	return s.IsActive()
}

// IsActive reports whether the system is currently monitoring DML
// traffic, for SHOW AI STATUS.
func (s *System) IsActive() bool {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.active
}

// Start activates the system and schedules periodic analysis via
// sched at the configured cadence.
func (s *System) Start(sched *scheduler.Scheduler) {
	s.activeMu.Lock()
	s.active = true
	s.activeMu.Unlock()

	s.sched = sched
	s.taskID = sched.SchedulePeriodic("ImmuneSystem::Analyze", s.cfg.ImmuneCheckInterval.Milliseconds(), s.analyze)
}

// Stop deactivates the system and cancels its periodic analysis task.
func (s *System) Stop() {
	s.activeMu.Lock()
	s.active = false
	s.activeMu.Unlock()

	if s.sched != nil {
		s.sched.Cancel(s.taskID)
	}
}

// Summary is a human-readable one-line status, used by SHOW AI STATUS.
func (s *System) Summary() string {
	if !s.isActive() {
		return "immune system inactive"
	}
	return "monitoring mutation rates and user behavior"
}
