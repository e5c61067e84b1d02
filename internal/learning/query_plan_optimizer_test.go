package learning

import (
	"path/filepath"
	"testing"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func newTestOptimizer() *PlanOptimizer {
	return NewPlanOptimizer(20, 5, 1.4142135623730951, 100)
}

func TestOptimize_BelowMinSamplesReturnsIdentityOrderNotAIGenerated(t *testing.T) {
	o := newTestOptimizer()
	stmt := aimodel.SelectStatement{
		TableName:  "orders",
		Predicates: []aimodel.Predicate{{Column: "a", Op: "="}, {Column: "b", Op: ">"}},
	}

	plan := o.Optimize(stmt, "orders")
	if plan.AIGenerated {
		t.Fatal("plan should not be AI-generated before MIN_SAMPLES_BEFORE_LEARNING")
	}
	if len(plan.FilterOrder) != 2 || plan.FilterOrder[0] != 0 || plan.FilterOrder[1] != 1 {
		t.Fatalf("FilterOrder = %v, want identity [0 1]", plan.FilterOrder)
	}
}

func TestOptimize_EarlyTerminationIneligibleWithOrderBy(t *testing.T) {
	o := newTestOptimizer()
	for i := 0; i < 25; i++ {
		o.RecordFeedback(aimodel.OptimizationFeedback{HadLimit: true, HadOrderBy: false, DurationMS: 10},
			aimodel.ExecutionPlan{LimitStrategy: aimodel.LimitEarlyTermination})
	}

	stmt := aimodel.SelectStatement{TableName: "orders", HasLimit: true, HasOrderBy: true}
	plan := o.Optimize(stmt, "orders")
	if plan.LimitStrategy != aimodel.LimitFullScan {
		t.Fatalf("LimitStrategy with ORDER BY + LIMIT = %v, want FULL_SCAN", plan.LimitStrategy)
	}
}

func TestRecordFeedback_SingleConditionDoesNotUpdateFilterArm(t *testing.T) {
	o := newTestOptimizer()
	o.RecordFeedback(aimodel.OptimizationFeedback{WhereClauseCount: 1, DurationMS: 10},
		aimodel.ExecutionPlan{FilterStrategy: aimodel.FilterSelectivity})

	stats := o.GetStats()
	for _, p := range stats.Dimensions[0].Pulls {
		if p != 0 {
			t.Fatalf("filter arm pulls = %v, want all zero for a single-predicate query", stats.Dimensions[0].Pulls)
		}
	}
}

func TestRecordFeedback_UpdatesSelectivityModel(t *testing.T) {
	o := newTestOptimizer()
	o.RecordFeedback(aimodel.OptimizationFeedback{
		TableName: "orders", WhereClauseCount: 2, RowsAfterFilter: 10, TotalRowsScanned: 100, DurationMS: 5,
	}, aimodel.ExecutionPlan{})

	o.selMu.Lock()
	entry, ok := o.selModel[selectivityKey("orders", "*", "2conds")]
	o.selMu.Unlock()
	if !ok {
		t.Fatal("selectivity model should have an entry for orders::*::2conds")
	}
	if entry.observations != 1 || entry.cumulativeSelectivity != 0.1 {
		t.Fatalf("selectivity entry = %+v, want {1, 0.1}", entry)
	}
}

func TestSaveLoadState_RoundTrips(t *testing.T) {
	o := newTestOptimizer()
	for i := 0; i < 30; i++ {
		o.RecordFeedback(aimodel.OptimizationFeedback{WhereClauseCount: 2, DurationMS: float64(i), TotalRowsScanned: 100, RowsAfterFilter: 10, TableName: "orders"},
			aimodel.ExecutionPlan{FilterStrategy: aimodel.FilterStrategy(i % numFilterArms)})
	}

	path := filepath.Join(t.TempDir(), "optimizer.state")
	if err := o.SaveState(path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded := newTestOptimizer()
	if err := loaded.LoadState(path); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if loaded.GetStats().TotalOptimizations != o.GetStats().TotalOptimizations {
		t.Fatalf("TotalOptimizations mismatch after round trip: got %d, want %d",
			loaded.GetStats().TotalOptimizations, o.GetStats().TotalOptimizations)
	}
}

func TestReset_ClearsAllState(t *testing.T) {
	o := newTestOptimizer()
	o.RecordFeedback(aimodel.OptimizationFeedback{WhereClauseCount: 2, DurationMS: 10, TotalRowsScanned: 10, RowsAfterFilter: 1, TableName: "t"},
		aimodel.ExecutionPlan{})
	o.Reset()

	if o.HasSufficientData() || o.GetStats().TotalOptimizations != 0 {
		t.Fatal("Reset should clear total optimizations")
	}
}
