// Package immune implements the Immune System: mutation rate
// monitoring, per-user behavior profiling, z-score anomaly detection,
// and a graded block/cooldown/auto-recovery response engine. Ported
// from ai/immune/{mutation_monitor,user_profiler,anomaly_detector,
// response_engine,immune_system}.cpp.
package immune

import (
	"sort"
	"sync"
)

type mutationEntry struct {
	timestampUS uint64
	rowCount    uint64
}

type tableMutationLog struct {
	mu      sync.Mutex
	entries []mutationEntry
}

// MutationMonitor tracks per-table mutation rates in a rolling window,
// using two-level locking: a map-level R/W lock plus a per-table mutex
// so uncontended tables never contend with each other.
type MutationMonitor struct {
	rollingWindowUS uint64
	rateIntervalUS  uint64

	tablesMu sync.RWMutex
	tables   map[string]*tableMutationLog
}

// NewMutationMonitor creates a MutationMonitor. rollingWindowUS bounds
// how long entries are retained; rateIntervalUS is the default
// rate-averaging window used by GetMutationRate.
func NewMutationMonitor(rollingWindowUS, rateIntervalUS uint64) *MutationMonitor {
	return &MutationMonitor{
		rollingWindowUS: rollingWindowUS,
		rateIntervalUS:  rateIntervalUS,
		tables:          make(map[string]*tableMutationLog),
	}
}

func (m *MutationMonitor) getOrCreate(table string) *tableMutationLog {
	m.tablesMu.RLock()
	log, ok := m.tables[table]
	m.tablesMu.RUnlock()
	if ok {
		return log
	}

	m.tablesMu.Lock()
	defer m.tablesMu.Unlock()
	if log, ok := m.tables[table]; ok {
		return log
	}
	log = &tableMutationLog{}
	m.tables[table] = log
	return log
}

// RecordMutation appends an entry for table and prunes entries older
// than the rolling window relative to timestampUS.
func (m *MutationMonitor) RecordMutation(table string, rowCount uint64, timestampUS uint64) {
	log := m.getOrCreate(table)
	log.mu.Lock()
	defer log.mu.Unlock()

	log.entries = append(log.entries, mutationEntry{timestampUS: timestampUS, rowCount: rowCount})

	var cutoff uint64
	if timestampUS > m.rollingWindowUS {
		cutoff = timestampUS - m.rollingWindowUS
	}
	pruneOldEntries(log, cutoff)
}

func pruneOldEntries(log *tableMutationLog, cutoffUS uint64) {
	i := 0
	for i < len(log.entries) && log.entries[i].timestampUS < cutoffUS {
		i++
	}
	if i > 0 {
		log.entries = log.entries[i:]
	}
}

// GetMutationCount sums row counts for table within windowUS of now.
func (m *MutationMonitor) GetMutationCount(table string, windowUS uint64, nowUS uint64) uint64 {
	m.tablesMu.RLock()
	log, ok := m.tables[table]
	m.tablesMu.RUnlock()
	if !ok {
		return 0
	}

	var cutoff uint64
	if nowUS > windowUS {
		cutoff = nowUS - windowUS
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	var count uint64
	for _, e := range log.entries {
		if e.timestampUS >= cutoff {
			count += e.rowCount
		}
	}
	return count
}

// GetMutationRate returns rows/second for table over the configured
// rate interval, as of nowUS.
func (m *MutationMonitor) GetMutationRate(table string, nowUS uint64) float64 {
	count := m.GetMutationCount(table, m.rateIntervalUS, nowUS)
	intervalSeconds := float64(m.rateIntervalUS) / 1_000_000.0
	if intervalSeconds <= 0 {
		return 0
	}
	return float64(count) / intervalSeconds
}

// GetHistoricalRates buckets table's mutation log into numIntervals
// contiguous intervals of intervalUS ending at nowUS; index 0 is the
// most recent interval.
func (m *MutationMonitor) GetHistoricalRates(table string, numIntervals int, intervalUS uint64, nowUS uint64) []float64 {
	rates := make([]float64, numIntervals)

	m.tablesMu.RLock()
	log, ok := m.tables[table]
	m.tablesMu.RUnlock()
	if !ok {
		return rates
	}

	intervalSec := float64(intervalUS) / 1_000_000.0

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, e := range log.entries {
		if e.timestampUS >= nowUS {
			continue
		}
		ageUS := nowUS - e.timestampUS
		idx := int(ageUS / intervalUS)
		if idx < numIntervals && intervalSec > 0 {
			rates[idx] += float64(e.rowCount) / intervalSec
		}
	}
	return rates
}

// GetMonitoredTables lists every table name seen at least once.
func (m *MutationMonitor) GetMonitoredTables() []string {
	m.tablesMu.RLock()
	defer m.tablesMu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for name := range m.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
