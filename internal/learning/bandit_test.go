package learning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func newTestBandit() *ScanBandit {
	return NewScanBandit(20, 5, 3, 1.4142135623730951, 100)
}

func TestSelectStrategy_NoIndexAlwaysSequential(t *testing.T) {
	b := newTestBandit()
	f := Features{IndexAvailable: 0}
	for i := 0; i < 100; i++ {
		if got := b.SelectStrategy(f, "orders"); got != aimodel.ScanSequential {
			t.Fatalf("SelectStrategy(no index) = %v, want SEQUENTIAL_SCAN", got)
		}
	}
}

func TestSelectStrategy_ExplorationPhaseAlternates(t *testing.T) {
	b := newTestBandit()
	f := Features{IndexAvailable: 1}
	seen := map[aimodel.ScanStrategy]bool{}
	for i := 0; i < 10; i++ {
		seen[b.SelectStrategy(f, "orders")] = true
		b.RecordOutcome(aimodel.ScanStrategy(i%2), "orders", 10)
	}
	if !seen[aimodel.ScanSequential] || !seen[aimodel.ScanIndex] {
		t.Fatal("exploration phase should try both arms")
	}
}

func TestRecordOutcome_FasterQueriesYieldHigherReward(t *testing.T) {
	b := newTestBandit()
	for i := 0; i < 20; i++ {
		b.RecordOutcome(aimodel.ScanIndex, "orders", 1) // fast
	}
	for i := 0; i < 20; i++ {
		b.RecordOutcome(aimodel.ScanSequential, "orders", 1000) // slow
	}
	stats := b.GetStats()
	if stats[aimodel.ScanIndex].AverageReward <= stats[aimodel.ScanSequential].AverageReward {
		t.Fatalf("index (fast) reward %v should exceed sequential (slow) reward %v",
			stats[aimodel.ScanIndex].AverageReward, stats[aimodel.ScanSequential].AverageReward)
	}
}

func TestHasSufficientData_Threshold(t *testing.T) {
	b := newTestBandit()
	if b.HasSufficientData() {
		t.Fatal("fresh bandit should not have sufficient data")
	}
	for i := 0; i < 20; i++ {
		b.RecordOutcome(aimodel.ScanSequential, "t", 10)
	}
	if !b.HasSufficientData() {
		t.Fatal("bandit with 20 pulls should have sufficient data")
	}
}

func TestDecay_ZeroIsReset(t *testing.T) {
	b := newTestBandit()
	b.RecordOutcome(aimodel.ScanSequential, "t", 10)
	b.Decay(0.0)
	if b.HasSufficientData() || b.GetStats()[0].TotalPulls != 0 {
		t.Fatal("Decay(0) should fully reset the bandit")
	}
}

func TestDecay_OneIsNoOp(t *testing.T) {
	b := newTestBandit()
	for i := 0; i < 10; i++ {
		b.RecordOutcome(aimodel.ScanSequential, "t", 10)
	}
	before := b.GetStats()[0].TotalPulls
	b.Decay(1.0)
	after := b.GetStats()[0].TotalPulls
	if before != after {
		t.Fatalf("Decay(1.0) changed pull count: %d -> %d", before, after)
	}
}

func TestSaveLoadState_RoundTrips(t *testing.T) {
	b := newTestBandit()
	for i := 0; i < 10; i++ {
		b.RecordOutcome(aimodel.ScanStrategy(i%2), "orders", float64(10+i))
	}
	for i := 0; i < 5; i++ {
		b.RecordOutcome(aimodel.ScanSequential, "users", float64(5+i))
	}

	path := filepath.Join(t.TempDir(), "bandit.state")
	if err := b.SaveState(path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded := newTestBandit()
	if err := loaded.LoadState(path); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	wantStats := b.GetStats()
	gotStats := loaded.GetStats()
	for i := range wantStats {
		if wantStats[i].TotalPulls != gotStats[i].TotalPulls {
			t.Fatalf("arm %d TotalPulls = %d, want %d", i, gotStats[i].TotalPulls, wantStats[i].TotalPulls)
		}
	}
}

func TestLoadState_RejectsBadHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.state")
	writeFile(t, path, "NOT_A_BANDIT\n0\n2\n")

	b := newTestBandit()
	if err := b.LoadState(path); err == nil {
		t.Fatal("LoadState should reject a mismatched header")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
}
