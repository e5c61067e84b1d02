// Package metricsstore implements the single process-wide ring buffer
// of metric events consumed by every AI subsystem. Ported from the
// original ai/metrics_store.cpp: an atomically advanced write index
// guards a fixed-capacity slot array behind a short-lived exclusive
// lock, so readers never see a torn write.
package metricsstore

import (
	"sync"
	"sync/atomic"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// Store is a fixed-capacity, insertion-order-preserving ring buffer of
// aimodel.MetricEvent. The zero value is not usable; use New.
type Store struct {
	mu         sync.RWMutex
	slots      []aimodel.MetricEvent
	capacity   uint64
	writeIndex uint64 // monotonically increasing; atomic
	count      uint64 // saturates at capacity; atomic
	totalRecorded uint64 // atomic, never saturates
}

// New creates a Store with the given capacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		slots:    make([]aimodel.MetricEvent, capacity),
		capacity: uint64(capacity),
	}
}

// Record appends event to the buffer. O(1); never blocks a writer
// against another writer beyond the index increment, and never fails.
func (s *Store) Record(event aimodel.MetricEvent) {
	idx := atomic.AddUint64(&s.writeIndex, 1) - 1
	slot := idx % s.capacity

	s.mu.Lock()
	s.slots[slot] = event
	s.mu.Unlock()

	atomic.AddUint64(&s.totalRecorded, 1)
	for {
		cur := atomic.LoadUint64(&s.count)
		if cur >= s.capacity {
			break
		}
		if atomic.CompareAndSwapUint64(&s.count, cur, cur+1) {
			break
		}
	}
}

// GetTotalRecorded returns the number of Record calls ever made,
// unbounded by capacity.
func (s *Store) GetTotalRecorded() uint64 {
	return atomic.LoadUint64(&s.totalRecorded)
}

// Reset clears all recorded state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		s.slots[i] = aimodel.MetricEvent{}
	}
	atomic.StoreUint64(&s.writeIndex, 0)
	atomic.StoreUint64(&s.count, 0)
	atomic.StoreUint64(&s.totalRecorded, 0)
}

// forEach invokes fn for every currently-stored event in insertion
// order, oldest first. Held under a shared lock for the duration.
func (s *Store) forEach(fn func(aimodel.MetricEvent)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := atomic.LoadUint64(&s.count)
	writeIdx := atomic.LoadUint64(&s.writeIndex)

	if count < s.capacity {
		// Buffer never wrapped: slots [0, count) are in insertion order.
		for i := uint64(0); i < count; i++ {
			fn(s.slots[i])
		}
		return
	}

	// Wrapped: oldest entry is at writeIdx % capacity.
	start := writeIdx % s.capacity
	for i := uint64(0); i < s.capacity; i++ {
		idx := (start + i) % s.capacity
		fn(s.slots[idx])
	}
}

// Query returns all events in the half-open range [startUS, endUS)
// whose kind matches. kind == "" matches every kind.
func (s *Store) Query(startUS, endUS uint64, kind aimodel.EventKind) []aimodel.MetricEvent {
	var out []aimodel.MetricEvent
	s.forEach(func(e aimodel.MetricEvent) {
		if e.TimestampUS < startUS || e.TimestampUS >= endUS {
			return
		}
		if kind != "" && e.Kind != kind {
			return
		}
		out = append(out, e)
	})
	return out
}

// CountEvents counts events of kind recorded within the last windowUS
// relative to the most recent timestamp observed in the buffer.
func (s *Store) CountEvents(kind aimodel.EventKind, windowUS uint64) uint64 {
	var maxTS uint64
	s.forEach(func(e aimodel.MetricEvent) {
		if e.TimestampUS > maxTS {
			maxTS = e.TimestampUS
		}
	})
	if maxTS == 0 {
		return 0
	}
	var cutoff uint64
	if windowUS < maxTS {
		cutoff = maxTS - windowUS
	}
	var n uint64
	s.forEach(func(e aimodel.MetricEvent) {
		if e.Kind == kind && e.TimestampUS >= cutoff {
			n++
		}
	})
	return n
}

// GetMutationCount sums RowsAffected for mutation-kind events on table
// within windowUS of the most recent timestamp in the buffer.
func (s *Store) GetMutationCount(table string, windowUS uint64) uint64 {
	var maxTS uint64
	s.forEach(func(e aimodel.MetricEvent) {
		if e.TimestampUS > maxTS {
			maxTS = e.TimestampUS
		}
	})
	var cutoff uint64
	if windowUS < maxTS {
		cutoff = maxTS - windowUS
	}
	var total uint64
	isMutationKind := func(k aimodel.EventKind) bool {
		return k == aimodel.KindInsert || k == aimodel.KindUpdate || k == aimodel.KindDelete
	}
	s.forEach(func(e aimodel.MetricEvent) {
		if e.TableName == table && isMutationKind(e.Kind) && e.TimestampUS >= cutoff {
			total += e.RowsAffected
		}
	})
	return total
}

// GetUserEventCount counts all events attributed to user.
func (s *Store) GetUserEventCount(user string) uint64 {
	var n uint64
	s.forEach(func(e aimodel.MetricEvent) {
		if e.User == user {
			n++
		}
	})
	return n
}
