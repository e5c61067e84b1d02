package learning

import (
	"strings"
	"testing"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
)

func newTestEngine() *Engine {
	cfg := aiconfig.DefaultConfig()
	catalog := &stubCatalog{rowCounts: map[string]uint64{"orders": 1000}, indexes: map[string]bool{"orders.id": true}}
	metrics := metricsstore.New(1000)
	return New(cfg, catalog, metrics, nil)
}

func TestOnBeforeDML_NeverVetoes(t *testing.T) {
	e := newTestEngine()
	if !e.OnBeforeDML(aimodel.DMLEvent{Operation: aimodel.OpDelete, TableName: "orders"}) {
		t.Fatal("Learning Engine should never veto a DML")
	}
}

func TestOnAfterDML_IgnoresNonSelect(t *testing.T) {
	e := newTestEngine()
	e.Start()
	e.OnAfterDML(aimodel.DMLEvent{Operation: aimodel.OpUpdate, TableName: "orders"})
	if e.GetTotalQueriesObserved() != 0 {
		t.Fatal("non-SELECT events should not count toward total queries")
	}
}

func TestOnAfterDML_RecordsSelectAndFeedsMetricsStore(t *testing.T) {
	e := newTestEngine()
	e.Start()
	e.OnAfterDML(aimodel.DMLEvent{
		Operation: aimodel.OpSelect, TableName: "orders", UsedIndexScan: true,
		DurationUS: 5000, StartTimeUS: 1_000_000, ResultRowCount: 3,
	})
	if e.GetTotalQueriesObserved() != 1 {
		t.Fatalf("GetTotalQueriesObserved() = %d, want 1", e.GetTotalQueriesObserved())
	}
}

func TestOnAfterDML_InactiveEngineIgnoresEvents(t *testing.T) {
	e := newTestEngine()
	e.OnAfterDML(aimodel.DMLEvent{Operation: aimodel.OpSelect, TableName: "orders"})
	if e.GetTotalQueriesObserved() != 0 {
		t.Fatal("inactive engine should not record queries")
	}
}

func TestRecommendScanStrategy_InsufficientDataReturnsFalse(t *testing.T) {
	e := newTestEngine()
	e.Start()
	stmt := aimodel.SelectStatement{TableName: "orders", Predicates: []aimodel.Predicate{{Column: "id", Op: "="}}}
	_, ok := e.RecommendScanStrategy(stmt, "orders")
	if ok {
		t.Fatal("RecommendScanStrategy should return false before the bandit has sufficient data")
	}
}

func TestRecommendScanStrategy_ReadyAfterEnoughQueries(t *testing.T) {
	e := newTestEngine()
	e.Start()
	for i := 0; i < 25; i++ {
		e.OnAfterDML(aimodel.DMLEvent{
			Operation: aimodel.OpSelect, TableName: "orders", UsedIndexScan: i%2 == 0,
			DurationUS: 1000, ResultRowCount: 1,
		})
	}
	stmt := aimodel.SelectStatement{TableName: "orders", Predicates: []aimodel.Predicate{{Column: "id", Op: "="}}}
	_, ok := e.RecommendScanStrategy(stmt, "orders")
	if !ok {
		t.Fatal("RecommendScanStrategy should succeed once the bandit has sufficient data")
	}
}

func TestSummary_ReflectsLearningState(t *testing.T) {
	e := newTestEngine()
	e.Start()
	summary := e.Summary()
	if !strings.Contains(summary, "learning") {
		t.Fatalf("Summary() = %q, want it to mention the learning phase before sufficient data", summary)
	}
}
