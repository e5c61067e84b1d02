package temporal

import (
	"testing"
	"time"

	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/metricsstore"
)

type countingCheckpoint struct {
	count int
}

func (c *countingCheckpoint) BeginCheckpoint() { c.count++ }

func TestEvaluate_TriggersOnRecentChangePoint(t *testing.T) {
	cp := &countingCheckpoint{}
	s := NewSnapshotScheduler(cp, metricsstore.New(100), 30*time.Second, nil)

	s.Evaluate(nil, []uint64{aimodel.NowMicros()})
	if cp.count != 1 {
		t.Fatalf("checkpoint count = %d, want 1 after a recent change point", cp.count)
	}
}

func TestEvaluate_TriggersOnDenseHotspot(t *testing.T) {
	cp := &countingCheckpoint{}
	s := NewSnapshotScheduler(cp, metricsstore.New(100), 30*time.Second, nil)

	s.Evaluate([]aimodel.TemporalHotspot{{Density: 2.0, AccessCount: 15}}, nil)
	if cp.count != 1 {
		t.Fatalf("checkpoint count = %d, want 1 after a dense hotspot", cp.count)
	}
}

func TestEvaluate_DoesNotTriggerWithoutSignal(t *testing.T) {
	cp := &countingCheckpoint{}
	s := NewSnapshotScheduler(cp, metricsstore.New(100), 30*time.Second, nil)

	s.Evaluate([]aimodel.TemporalHotspot{{Density: 0.1, AccessCount: 2}}, nil)
	if cp.count != 0 {
		t.Fatalf("checkpoint count = %d, want 0 without a qualifying signal", cp.count)
	}
}

func TestEvaluate_RespectsCooldown(t *testing.T) {
	cp := &countingCheckpoint{}
	s := NewSnapshotScheduler(cp, metricsstore.New(100), time.Hour, nil)

	s.Evaluate(nil, []uint64{aimodel.NowMicros()})
	s.Evaluate(nil, []uint64{aimodel.NowMicros()})
	if cp.count != 1 {
		t.Fatalf("checkpoint count = %d, want 1 (second evaluate should be suppressed by cooldown)", cp.count)
	}
}

func TestGetScheduledSnapshots_TracksHotspotCenters(t *testing.T) {
	s := NewSnapshotScheduler(nil, metricsstore.New(100), 30*time.Second, nil)
	s.Evaluate([]aimodel.TemporalHotspot{{CenterTimestampUS: 42}}, nil)

	got := s.GetScheduledSnapshots()
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("GetScheduledSnapshots() = %v, want [42]", got)
	}
}
