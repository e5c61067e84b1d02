package immune

import (
	"testing"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func TestRecordEvent_BoundsHistoryAndCountsTableAccess(t *testing.T) {
	p := NewUserProfiler(3, 1_000_000, 0.7, 0.3)
	for i := uint64(0); i < 5; i++ {
		p.RecordEvent("alice", aimodel.OpUpdate, "orders", i*1_000_000)
	}
	if got := p.UserEventCount("alice"); got != 5 {
		t.Fatalf("UserEventCount = %d, want 5", got)
	}
	h := p.users["alice"]
	if got := len(h.mutationTS); got != 3 {
		t.Fatalf("len(mutationTS) = %d, want 3 (bounded by historySize)", got)
	}
	if got := h.tableAccess["orders"]; got != 5 {
		t.Fatalf("tableAccess[orders] = %d, want 5", got)
	}
}

func TestGetDeviationScore_InsufficientBaselineIsZero(t *testing.T) {
	p := NewUserProfiler(1000, 1_000_000, 0.7, 0.3)
	for i := uint64(0); i < 5; i++ {
		p.RecordEvent("bob", aimodel.OpUpdate, "orders", i*1_000_000)
	}
	if got := p.GetDeviationScore("bob", 5_000_000); got != 0 {
		t.Fatalf("GetDeviationScore with <20 events = %v, want 0", got)
	}
}

func TestGetDeviationScore_UnknownUserIsZero(t *testing.T) {
	p := NewUserProfiler(1000, 1_000_000, 0.7, 0.3)
	if got := p.GetDeviationScore("ghost", 1_000_000); got != 0 {
		t.Fatalf("GetDeviationScore(unknown user) = %v, want 0", got)
	}
}

func TestGetDeviationScore_SpikeProducesPositiveScore(t *testing.T) {
	p := NewUserProfiler(1000, 1_000_000, 0.7, 0.3)

	// Steady baseline: one mutation every 10s for a long while.
	var ts uint64
	for i := 0; i < 25; i++ {
		p.RecordEvent("alice", aimodel.OpUpdate, "orders", ts)
		ts += 10_000_000
	}
	// Then a burst of mutations within the last 1s rate window.
	burstStart := ts
	for i := 0; i < 20; i++ {
		p.RecordEvent("alice", aimodel.OpUpdate, "orders", burstStart+uint64(i)*10_000)
	}
	now := burstStart + 1_000_000

	score := p.GetDeviationScore("alice", now)
	if score <= 0 {
		t.Fatalf("GetDeviationScore after burst = %v, want > 0", score)
	}
}

func TestUserEventCount_UnknownUserIsZero(t *testing.T) {
	p := NewUserProfiler(1000, 1_000_000, 0.7, 0.3)
	if got := p.UserEventCount("ghost"); got != 0 {
		t.Fatalf("UserEventCount(unknown) = %d, want 0", got)
	}
}
