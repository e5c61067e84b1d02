package immune

import (
	"sync"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

const userMinBaselineEvents = 20

type userHistory struct {
	mu           sync.Mutex
	mutationTS   []uint64
	queryTS      []uint64
	tableAccess  map[string]uint64
	totalEvents  uint64
}

// UserProfiler tracks per-user event timing and computes a deviation
// score against each user's own recent rate. Ported from
// ai/immune/user_profiler.cpp.
type UserProfiler struct {
	historySize          int
	rateIntervalUS       uint64
	mutationWeight       float64
	tableWeight          float64

	usersMu sync.RWMutex
	users   map[string]*userHistory
}

// NewUserProfiler creates a UserProfiler.
func NewUserProfiler(historySize int, rateIntervalUS uint64, mutationWeight, tableWeight float64) *UserProfiler {
	return &UserProfiler{
		historySize:    historySize,
		rateIntervalUS: rateIntervalUS,
		mutationWeight: mutationWeight,
		tableWeight:    tableWeight,
		users:          make(map[string]*userHistory),
	}
}

func (p *UserProfiler) getOrCreate(user string) *userHistory {
	p.usersMu.RLock()
	h, ok := p.users[user]
	p.usersMu.RUnlock()
	if ok {
		return h
	}

	p.usersMu.Lock()
	defer p.usersMu.Unlock()
	if h, ok := p.users[user]; ok {
		return h
	}
	h = &userHistory{tableAccess: make(map[string]uint64)}
	p.users[user] = h
	return h
}

// RecordEvent appends timestampUS to the mutation or query deque for
// user depending on op, bumps the table access counter, and prunes
// each deque to historySize.
func (p *UserProfiler) RecordEvent(user string, op aimodel.Operation, table string, timestampUS uint64) {
	h := p.getOrCreate(user)
	h.mu.Lock()
	defer h.mu.Unlock()

	if op.IsMutation() {
		h.mutationTS = append(h.mutationTS, timestampUS)
		if len(h.mutationTS) > p.historySize {
			h.mutationTS = h.mutationTS[len(h.mutationTS)-p.historySize:]
		}
	} else {
		h.queryTS = append(h.queryTS, timestampUS)
		if len(h.queryTS) > p.historySize {
			h.queryTS = h.queryTS[len(h.queryTS)-p.historySize:]
		}
	}
	h.tableAccess[table]++
	h.totalEvents++
}

// GetDeviationScore returns a non-negative scalar measuring how far
// user's recent mutation rate deviates from their own overall rate.
// Users with fewer than 20 recorded events return 0 (insufficient
// baseline). The table-access deviation term is currently a fixed
// placeholder, reserved for a future per-table access-pattern model.
func (p *UserProfiler) GetDeviationScore(user string, nowUS uint64) float64 {
	p.usersMu.RLock()
	h, ok := p.users[user]
	p.usersMu.RUnlock()
	if !ok {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalEvents < userMinBaselineEvents {
		return 0
	}

	overallRate := rateOf(h.mutationTS, 0, nowUS)
	var cutoff uint64
	if nowUS > p.rateIntervalUS {
		cutoff = nowUS - p.rateIntervalUS
	}
	recentRate := rateOf(h.mutationTS, cutoff, nowUS)

	denom := overallRate
	if denom < 1.0 {
		denom = 1.0
	}
	mutationDeviation := abs(recentRate-overallRate) / denom
	const tableDeviation = 0.0

	return p.mutationWeight*mutationDeviation + p.tableWeight*tableDeviation
}

func rateOf(timestamps []uint64, cutoffUS, nowUS uint64) float64 {
	var count int
	var earliest uint64 = nowUS
	for _, ts := range timestamps {
		if ts >= cutoffUS {
			count++
			if ts < earliest {
				earliest = ts
			}
		}
	}
	if count == 0 {
		return 0
	}
	spanSec := float64(nowUS-earliest) / 1_000_000.0
	if spanSec <= 0 {
		spanSec = 1.0
	}
	return float64(count) / spanSec
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// UserEventCount returns the total events recorded for user.
func (p *UserProfiler) UserEventCount(user string) uint64 {
	p.usersMu.RLock()
	h, ok := p.users[user]
	p.usersMu.RUnlock()
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalEvents
}
