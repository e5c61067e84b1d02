package temporal

import (
	"testing"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func TestRecordAccess_PrunesToWindowSize(t *testing.T) {
	tr := NewAccessTracker(3)
	for i := 0; i < 5; i++ {
		tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: uint64(i)})
	}
	if got := tr.GetTotalAccessCount(); got != 3 {
		t.Fatalf("GetTotalAccessCount() = %d, want 3", got)
	}
}

func TestGetFrequencyHistogram_EmptyIsNil(t *testing.T) {
	tr := NewAccessTracker(100)
	if got := tr.GetFrequencyHistogram(1_000_000, 10); got != nil {
		t.Fatalf("GetFrequencyHistogram on empty tracker = %v, want nil", got)
	}
}

func TestGetFrequencyHistogram_BucketsEvents(t *testing.T) {
	tr := NewAccessTracker(100)
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 0})
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 500_000})
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 2_000_000})

	hist := tr.GetFrequencyHistogram(1_000_000, 10)
	if len(hist) != 3 {
		t.Fatalf("len(hist) = %d, want 3 buckets spanning 0..2s", len(hist))
	}
	if hist[0].AccessCount != 2 {
		t.Fatalf("hist[0].AccessCount = %d, want 2", hist[0].AccessCount)
	}
	if hist[2].AccessCount != 1 {
		t.Fatalf("hist[2].AccessCount = %d, want 1", hist[2].AccessCount)
	}
}

func TestGetHotTimestamps_OrdersByFrequencyThenTimestamp(t *testing.T) {
	tr := NewAccessTracker(100)
	for i := 0; i < 3; i++ {
		tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 1_000_000})
	}
	for i := 0; i < 3; i++ {
		tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 2_000_000})
	}
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 3_000_000})

	hot := tr.GetHotTimestamps(2)
	if len(hot) != 2 || hot[0] != 1_000_000 || hot[1] != 2_000_000 {
		t.Fatalf("GetHotTimestamps(2) = %v, want [1000000 2000000] (tie broken by timestamp asc)", hot)
	}
}

func TestGetEvents_FiltersByRange(t *testing.T) {
	tr := NewAccessTracker(100)
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 1})
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 5})
	tr.RecordAccess(aimodel.TemporalAccessEvent{QueriedTimestampUS: 10})

	got := tr.GetEvents(1, 10)
	if len(got) != 2 {
		t.Fatalf("GetEvents(1,10) returned %d events, want 2", len(got))
	}
}
