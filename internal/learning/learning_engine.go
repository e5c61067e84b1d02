package learning

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
)

// Engine is the Learning Engine composition layer: it implements the
// DML observer interface and the plan/strategy recommendation
// interface consumed by the execution engine, routing between the
// feature extractor, the scan-strategy bandit, and the plan
// optimizer. Ported from ai/learning/learning_engine.cpp.
type Engine struct {
	catalog CatalogIndexLookup
	metrics *metricsstore.Store
	log     *ailog.Logger

	minSamples int

	Bandit    *ScanBandit
	Optimizer *PlanOptimizer

	active       uint32 // atomic bool
	totalQueries uint64 // atomic
}

// New creates a Learning Engine wired to catalog and the shared
// metrics store.
func New(cfg aiconfig.Config, catalog CatalogIndexLookup, metrics *metricsstore.Store, log *ailog.Logger) *Engine {
	if log == nil {
		log = ailog.Nop()
	}
	return &Engine{
		catalog:    catalog,
		metrics:    metrics,
		log:        log,
		minSamples: cfg.MinSamplesBeforeLearning,
		Bandit:     NewScanBandit(cfg.MinSamplesBeforeLearning, cfg.MinArmPulls, cfg.MinTablePullsForContext, cfg.UCB1ExplorationConstant, cfg.RewardScaleMS),
		Optimizer:  NewPlanOptimizer(cfg.MinSamplesBeforeLearning, cfg.MinArmPulls, cfg.UCB1ExplorationConstant, cfg.RewardScaleMS),
	}
}

// Start activates the engine.
func (e *Engine) Start() {
	atomic.StoreUint32(&e.active, 1)
	e.log.Info("LearningEngine", "self-learning execution engine started (UCB1 bandit, exploration=%d queries)", e.minSamples)
}

// Stop deactivates the engine.
func (e *Engine) Stop() {
	atomic.StoreUint32(&e.active, 0)
}

func (e *Engine) isActive() bool {
	return e.IsActive()
}

// IsActive reports whether the engine is currently learning from
// SELECT traffic, for SHOW AI STATUS.
func (e *Engine) IsActive() bool {
	return atomic.LoadUint32(&e.active) == 1
}

// HasSufficientData reports whether the bandit has cleared the
// exploration threshold, for SHOW AI STATUS's "ready" field.
func (e *Engine) HasSufficientData() bool {
	return e.Bandit.HasSufficientData()
}

// MinSamplesBeforeLearning returns the configured exploration
// threshold, for SHOW AI STATUS.
func (e *Engine) MinSamplesBeforeLearning() int {
	return e.minSamples
}

// OnBeforeDML implements the observer interface. The Learning Engine
// only ever observes; it never vetoes a DML.
func (e *Engine) OnBeforeDML(event aimodel.DMLEvent) bool {
	return true
}

// OnAfterDML implements the observer interface. Only SELECT events
// feed the learning loop.
func (e *Engine) OnAfterDML(event aimodel.DMLEvent) {
	if !e.isActive() || event.Operation != aimodel.OpSelect {
		return
	}
	atomic.AddUint64(&e.totalQueries, 1)

	used := aimodel.ScanSequential
	if event.UsedIndexScan {
		used = aimodel.ScanIndex
	}
	durationMS := float64(event.DurationUS) / 1000.0
	e.Bandit.RecordOutcome(used, event.TableName, durationMS)

	kind := aimodel.KindScanSeq
	if event.UsedIndexScan {
		kind = aimodel.KindScanIndex
	}
	e.metrics.Record(aimodel.MetricEvent{
		Kind:         kind,
		TimestampUS:  event.StartTimeUS,
		DurationUS:   event.DurationUS,
		TableName:    event.TableName,
		RowsAffected: event.ResultRowCount,
		ScanStrategy: int(used),
	})
}

// RecommendScanStrategy returns the bandit's choice for stmt against
// table, or (zero, false) if the engine is inactive or the bandit
// lacks sufficient data.
func (e *Engine) RecommendScanStrategy(stmt aimodel.SelectStatement, table string) (aimodel.ScanStrategy, bool) {
	if !e.isActive() || !e.Bandit.HasSufficientData() {
		return aimodel.ScanSequential, false
	}
	features := Extract(stmt, e.catalog)
	return e.Bandit.SelectStrategy(features, table), true
}

// OptimizePlan delegates to the plan optimizer.
func (e *Engine) OptimizePlan(stmt aimodel.SelectStatement, table string) aimodel.ExecutionPlan {
	return e.Optimizer.Optimize(stmt, table)
}

// RecordPlanFeedback delegates to the plan optimizer.
func (e *Engine) RecordPlanFeedback(feedback aimodel.OptimizationFeedback, plan aimodel.ExecutionPlan) {
	e.Optimizer.RecordFeedback(feedback, plan)
}

// GetTotalQueriesObserved returns the number of SELECTs the engine has
// learned from.
func (e *Engine) GetTotalQueriesObserved() uint64 {
	return atomic.LoadUint64(&e.totalQueries)
}

// Summary is a human-readable one-line status, used by SHOW AI STATUS.
func (e *Engine) Summary() string {
	queries := atomic.LoadUint64(&e.totalQueries)
	if !e.Bandit.HasSufficientData() {
		return fmt.Sprintf("%d queries observed, learning (need %d)", queries, e.minSamples)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d queries observed, UCB1 active", queries)
	for _, s := range e.Bandit.GetStats() {
		label := "SEQ"
		if s.Strategy == aimodel.ScanIndex {
			label = "IDX"
		}
		fmt.Fprintf(&b, " | %s: %d pulls, avg_r=%d%%", label, s.TotalPulls, int(s.AverageReward*100))
	}
	return b.String()
}
