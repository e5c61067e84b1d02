// Package enginehooks provides the engine-services adapter the AI
// layer is wired against: point-in-time recovery, checkpoint
// triggering, and catalog reads. In the real system these three
// entry points are implemented by the storage engine (the log
// manager, the checkpoint coordinator, the catalog) and handed to
// the AI Manager at startup; this package supplies a standalone
// in-memory adapter so the AI layer can run, be exercised from the
// CLI, and be tested without a live engine attached.
package enginehooks

import (
	"sync"
	"time"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// CatalogEntry is the read-only row-count/index view enginehooks
// tracks per table.
type CatalogEntry struct {
	RowCount uint64
	Indexes  map[string]struct{}
}

// Engine is an in-memory stand-in for the storage engine's services
// interface (spec.md §6's "Engine services interface"). It satisfies
// immune.RecoveryService, temporal.CheckpointService, and
// learning.CatalogIndexLookup structurally — none of those packages
// import this one.
type Engine struct {
	mu sync.RWMutex

	catalog map[string]*CatalogEntry

	checkpoints int

	// recoverFn lets callers (tests) control whether RecoverTo
	// succeeds, mirroring the stub
	// recover_to used in the auto-recovery end-to-end test property.
	recoverFn func(targetTimestampUS uint64, dbName string) aimodel.RecoveryResult
}

// New creates an Engine with an empty catalog and a RecoverTo that
// always succeeds immediately.
func New() *Engine {
	return &Engine{
		catalog: make(map[string]*CatalogEntry),
		recoverFn: func(uint64, string) aimodel.RecoveryResult {
			return aimodel.RecoveryResult{Success: true, ElapsedMS: 0}
		},
	}
}

// SetTable registers or replaces a table's row count and index set.
func (e *Engine) SetTable(table string, rowCount uint64, indexedColumns ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry := &CatalogEntry{RowCount: rowCount, Indexes: make(map[string]struct{}, len(indexedColumns))}
	for _, col := range indexedColumns {
		entry.Indexes[col] = struct{}{}
	}
	e.catalog[table] = entry
}

// SetRecoveryFunc overrides how RecoverTo resolves, for tests that
// need to force a failed or slow recovery.
func (e *Engine) SetRecoveryFunc(fn func(targetTimestampUS uint64, dbName string) aimodel.RecoveryResult) {
	e.mu.Lock()
	e.recoverFn = fn
	e.mu.Unlock()
}

// HasIndex reports whether table carries an index on column.
func (e *Engine) HasIndex(table, column string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.catalog[table]
	if !ok {
		return false
	}
	_, indexed := entry.Indexes[column]
	return indexed
}

// RowCount returns table's tracked row count, 0 for unknown tables.
func (e *Engine) RowCount(table string) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if entry, ok := e.catalog[table]; ok {
		return entry.RowCount
	}
	return 0
}

// BeginCheckpoint fires a snapshot. Fire-and-forget, per spec.
func (e *Engine) BeginCheckpoint() {
	e.mu.Lock()
	e.checkpoints++
	e.mu.Unlock()
}

// CheckpointsTriggered returns how many times BeginCheckpoint fired,
// for status reporting and tests.
func (e *Engine) CheckpointsTriggered() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.checkpoints
}

// RecoverTo performs point-in-time recovery to targetTimestampUS in
// dbName, per the configured recoverFn.
func (e *Engine) RecoverTo(targetTimestampUS uint64, dbName string) aimodel.RecoveryResult {
	start := time.Now()
	e.mu.RLock()
	fn := e.recoverFn
	e.mu.RUnlock()
	result := fn(targetTimestampUS, dbName)
	if result.ElapsedMS == 0 {
		result.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0
	}
	return result
}
