package temporal

import (
	"testing"
	"time"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/metricsstore"
	"github.com/chronosdb/chronosai/internal/scheduler"
)

func TestOnTimeTravelQuery_InactiveManagerIgnoresEvents(t *testing.T) {
	m := New(aiconfig.DefaultConfig(), metricsstore.New(100), nil, nil)
	m.OnTimeTravelQuery("orders", "db", 123)
	if got := m.Tracker.GetTotalAccessCount(); got != 0 {
		t.Fatalf("GetTotalAccessCount() = %d, want 0 while inactive", got)
	}
}

func TestOnTimeTravelQuery_ActiveManagerRecordsAccess(t *testing.T) {
	m := New(aiconfig.DefaultConfig(), metricsstore.New(100), nil, nil)
	sched := scheduler.New(time.Millisecond, 2, nil)
	sched.Start()
	defer sched.Stop()

	m.Start(sched)
	defer m.Stop()

	m.OnTimeTravelQuery("orders", "db", 123)
	if got := m.Tracker.GetTotalAccessCount(); got != 1 {
		t.Fatalf("GetTotalAccessCount() = %d, want 1", got)
	}
}

func TestPeriodicAnalysis_NoEventsIsNoOp(t *testing.T) {
	m := New(aiconfig.DefaultConfig(), metricsstore.New(100), nil, nil)
	sched := scheduler.New(time.Millisecond, 2, nil)
	sched.Start()
	defer sched.Stop()

	m.Start(sched)
	defer m.Stop()

	m.periodicAnalysis()
	if got := m.GetCurrentHotspots(); got != nil {
		t.Fatalf("GetCurrentHotspots() = %v, want nil with no access events", got)
	}
}

func TestSummary_ReflectsTrackedAccesses(t *testing.T) {
	m := New(aiconfig.DefaultConfig(), metricsstore.New(100), nil, nil)
	sched := scheduler.New(time.Millisecond, 2, nil)
	sched.Start()
	defer sched.Stop()

	m.Start(sched)
	defer m.Stop()

	m.OnTimeTravelQuery("orders", "db", 1)
	summary := m.Summary()
	if summary == "" {
		t.Fatal("Summary() should not be empty")
	}
}
