// Package dmlbus implements the Observer Registry: the sole coupling
// point between the storage engine and the AI layer. Ported from
// ai/dml_observer.cpp — a synchronous, veto-capable before-hook and an
// asynchronous after-hook dispatched through the AI Scheduler so query
// execution never blocks on AI processing.
package dmlbus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chronosdb/chronosai/internal/aimodel"
	"github.com/chronosdb/chronosai/internal/scheduler"
)

// NewEvent builds a DMLEvent for the engine to pass to NotifyBefore
// and NotifyAfter. When sessionID is empty, a fresh one is generated
// so every event carries a collision-resistant correlation ID even
// when the caller has none handy.
func NewEvent(op aimodel.Operation, table, db, user, sessionID string) aimodel.DMLEvent {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return aimodel.DMLEvent{
		Operation: op,
		TableName: table,
		DBName:    db,
		User:      user,
		SessionID: sessionID,
	}
}

// Observer is implemented by every AI subsystem that needs to see DML
// traffic: the Learning Engine and the Immune System.
type Observer interface {
	OnBeforeDML(event aimodel.DMLEvent) bool
	OnAfterDML(event aimodel.DMLEvent)
}

// Registry is a thread-safe, order-preserving observer list.
type Registry struct {
	mu        sync.RWMutex
	observers []Observer
	scheduler Scheduler
}

// Scheduler is the subset of *scheduler.Scheduler the registry needs
// to dispatch after-hooks asynchronously.
type Scheduler interface {
	ScheduleOnce(name string, delayMS int64, fn scheduler.TaskFunc) scheduler.TaskID
}

// New creates a Registry. sched dispatches NotifyAfter fan-out onto
// the shared worker pool instead of running it on the caller's
// goroutine.
func New(sched Scheduler) *Registry {
	return &Registry{scheduler: sched}
}

// Register adds observer if it is not already registered. Idempotent.
func (r *Registry) Register(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.observers {
		if existing == o {
			return
		}
	}
	r.observers = append(r.observers, o)
}

// Unregister removes observer if present. Idempotent.
func (r *Registry) Unregister(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.observers {
		if existing == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// NotifyBefore fans out to every observer in registration order,
// synchronously, on the caller's goroutine. Returns false as soon as
// any observer vetoes; this is the only path that can block a DML.
func (r *Registry) NotifyBefore(event aimodel.DMLEvent) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.observers {
		if !o.OnBeforeDML(event) {
			return false
		}
	}
	return true
}

// NotifyAfter snapshots the observer list under a shared lock, then
// dispatches the fan-out onto the scheduler's worker pool so the
// calling goroutine returns immediately.
func (r *Registry) NotifyAfter(event aimodel.DMLEvent) {
	r.mu.RLock()
	snapshot := make([]Observer, len(r.observers))
	copy(snapshot, r.observers)
	r.mu.RUnlock()

	dispatch := func() {
		for _, o := range snapshot {
			o.OnAfterDML(event)
		}
	}

	if r.scheduler != nil {
		r.scheduler.ScheduleOnce("DMLObserver::NotifyAfter", 0, dispatch)
		return
	}
	go dispatch()
}

// GetObserverCount returns the number of currently registered
// observers.
func (r *Registry) GetObserverCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}
