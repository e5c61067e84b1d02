// Package temporal implements the Temporal Index Manager: a bounded
// time-travel access tracker, a 1-D DBSCAN hotspot detector with
// CUSUM change-point detection, a smart snapshot scheduler, and an
// adaptive WAL retention manager. Ported from ai/temporal/*.cpp.
package temporal

import (
	"sort"
	"sync"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// FrequencyBucket is one equal-width bucket of a queried-timestamp
// histogram.
type FrequencyBucket struct {
	StartUS     uint64
	EndUS       uint64
	AccessCount int
}

// AccessTracker is a bounded deque of time-travel access events,
// pruned to a fixed window on every insert. Ported from
// ai/temporal/access_tracker.cpp.
type AccessTracker struct {
	windowSize int

	mu     sync.RWMutex
	events []aimodel.TemporalAccessEvent
}

// NewAccessTracker creates an AccessTracker bounded to windowSize
// events.
func NewAccessTracker(windowSize int) *AccessTracker {
	return &AccessTracker{windowSize: windowSize}
}

// RecordAccess appends event and prunes the oldest entries beyond the
// configured window size.
func (t *AccessTracker) RecordAccess(event aimodel.TemporalAccessEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
	if len(t.events) > t.windowSize {
		t.events = t.events[len(t.events)-t.windowSize:]
	}
}

// GetFrequencyHistogram buckets queried timestamps into up to
// maxBuckets equal-width buckets of bucketWidthUS spanning the
// observed min/max timestamps.
func (t *AccessTracker) GetFrequencyHistogram(bucketWidthUS uint64, maxBuckets int) []FrequencyBucket {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.events) == 0 {
		return nil
	}

	minTS := t.events[0].QueriedTimestampUS
	maxTS := minTS
	for _, e := range t.events {
		if e.QueriedTimestampUS < minTS {
			minTS = e.QueriedTimestampUS
		}
		if e.QueriedTimestampUS > maxTS {
			maxTS = e.QueriedTimestampUS
		}
	}

	numBuckets := int((maxTS-minTS)/bucketWidthUS) + 1
	if numBuckets > maxBuckets {
		numBuckets = maxBuckets
	}
	if numBuckets < 1 {
		numBuckets = 1
	}

	histogram := make([]FrequencyBucket, numBuckets)
	for i := range histogram {
		start := minTS + uint64(i)*bucketWidthUS
		histogram[i] = FrequencyBucket{StartUS: start, EndUS: start + bucketWidthUS}
	}

	for _, e := range t.events {
		idx := int((e.QueriedTimestampUS - minTS) / bucketWidthUS)
		if idx < numBuckets {
			histogram[idx].AccessCount++
		}
	}
	return histogram
}

// GetEvents returns events with QueriedTimestampUS in [startUS, endUS).
func (t *AccessTracker) GetEvents(startUS, endUS uint64) []aimodel.TemporalAccessEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []aimodel.TemporalAccessEvent
	for _, e := range t.events {
		if e.QueriedTimestampUS >= startUS && e.QueriedTimestampUS < endUS {
			out = append(out, e)
		}
	}
	return out
}

// GetAllEvents returns a snapshot of every tracked event.
func (t *AccessTracker) GetAllEvents() []aimodel.TemporalAccessEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]aimodel.TemporalAccessEvent, len(t.events))
	copy(out, t.events)
	return out
}

// GetHotTimestamps rounds each queried timestamp to the nearest
// second and returns the top-k by frequency. Ties are broken by
// timestamp ascending, so the ordering is deterministic.
func (t *AccessTracker) GetHotTimestamps(k int) []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	freq := make(map[uint64]uint64)
	for _, e := range t.events {
		bucket := ((e.QueriedTimestampUS + 500_000) / 1_000_000) * 1_000_000
		freq[bucket]++
	}

	type kv struct {
		ts    uint64
		count uint64
	}
	sorted := make([]kv, 0, len(freq))
	for ts, count := range freq {
		sorted = append(sorted, kv{ts, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].ts < sorted[j].ts
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	out := make([]uint64, k)
	for i := 0; i < k; i++ {
		out[i] = sorted[i].ts
	}
	return out
}

// GetTotalAccessCount returns the number of currently tracked events.
func (t *AccessTracker) GetTotalAccessCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}
