package immune

import (
	"testing"
	"time"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
	"github.com/chronosdb/chronosai/internal/scheduler"
)

func newTestSystem() *System {
	cfg := aiconfig.DefaultConfig()
	metrics := metricsstore.New(1000)
	return New(cfg, metrics, nil, nil)
}

func TestOnBeforeDML_SelectAlwaysAllowed(t *testing.T) {
	s := newTestSystem()
	s.active = true
	s.Responder.block(aimodel.AnomalyReport{TableName: "orders"})

	allowed := s.OnBeforeDML(aimodel.DMLEvent{Operation: aimodel.OpSelect, TableName: "orders"})
	if !allowed {
		t.Fatal("SELECT should always be allowed, even on a blocked table")
	}
}

func TestOnBeforeDML_VetoesBlockedTable(t *testing.T) {
	s := newTestSystem()
	s.active = true
	s.Responder.block(aimodel.AnomalyReport{TableName: "orders"})

	if s.OnBeforeDML(aimodel.DMLEvent{Operation: aimodel.OpUpdate, TableName: "orders"}) {
		t.Fatal("mutation on blocked table should be vetoed")
	}
}

func TestOnBeforeDML_VetoesBlockedUser(t *testing.T) {
	s := newTestSystem()
	s.active = true
	s.Responder.block(aimodel.AnomalyReport{TableName: "other", User: "alice"})

	if s.OnBeforeDML(aimodel.DMLEvent{Operation: aimodel.OpInsert, TableName: "orders", User: "alice"}) {
		t.Fatal("mutation by blocked user should be vetoed")
	}
}

func TestOnBeforeDML_InactiveSystemAllowsEverything(t *testing.T) {
	s := newTestSystem()
	s.Responder.block(aimodel.AnomalyReport{TableName: "orders"})

	if !s.OnBeforeDML(aimodel.DMLEvent{Operation: aimodel.OpUpdate, TableName: "orders"}) {
		t.Fatal("inactive system should allow all DML")
	}
}

func TestOnAfterDML_RecordsMutationAndUserAndMetric(t *testing.T) {
	s := newTestSystem()
	s.active = true

	s.OnAfterDML(aimodel.DMLEvent{
		Operation:    aimodel.OpUpdate,
		TableName:    "orders",
		User:         "alice",
		RowsAffected: 3,
		StartTimeUS:  1_000_000,
	})

	if got := s.Monitor.GetMutationCount("orders", 10_000_000, 1_000_000); got != 3 {
		t.Fatalf("GetMutationCount = %d, want 3", got)
	}
	if got := s.Profiler.UserEventCount("alice"); got != 1 {
		t.Fatalf("UserEventCount = %d, want 1", got)
	}
	if got := s.metrics.GetTotalRecorded(); got != 1 {
		t.Fatalf("GetTotalRecorded = %d, want 1", got)
	}
}

func TestOnAfterDML_SelectDoesNotRecordMutation(t *testing.T) {
	s := newTestSystem()
	s.active = true

	s.OnAfterDML(aimodel.DMLEvent{Operation: aimodel.OpSelect, TableName: "orders", User: "alice", StartTimeUS: 1_000_000})

	if got := s.Monitor.GetMutationCount("orders", 10_000_000, 1_000_000); got != 0 {
		t.Fatalf("GetMutationCount after SELECT = %d, want 0", got)
	}
	if got := s.Profiler.UserEventCount("alice"); got != 1 {
		t.Fatalf("UserEventCount after SELECT = %d, want 1 (queries still profiled)", got)
	}
}

func TestStartStop_TogglesActiveAndSummary(t *testing.T) {
	s := newTestSystem()
	if s.Summary() == "monitoring mutation rates and user behavior" {
		t.Fatal("system should be inactive before Start")
	}

	sched := scheduler.New(time.Millisecond, 2, nil)
	sched.Start()
	defer sched.Stop()

	s.Start(sched)
	if !s.isActive() {
		t.Fatal("system should be active after Start")
	}
	if s.Summary() != "monitoring mutation rates and user behavior" {
		t.Fatalf("Summary() = %q, want active summary", s.Summary())
	}

	s.Stop()
	if s.isActive() {
		t.Fatal("system should be inactive after Stop")
	}
}
