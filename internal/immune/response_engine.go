package immune

import (
	"sync"
	"time"

	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/aimodel"
)

// RecoveryService is the engine-provided point-in-time recovery entry
// point consumed during HIGH-severity auto-recovery.
type RecoveryService interface {
	RecoverTo(targetTimestampUS uint64, dbName string) aimodel.RecoveryResult
}

// ResponseEngine executes graded responses to anomaly reports and owns
// the blocklist and cooldown state (see DESIGN.md for the cooldown
// state machine's provenance): after a successful HIGH-severity
// auto-recovery, a table is unblocked but enters a cooldown during
// which further HIGH analysis is suppressed.
type ResponseEngine struct {
	recoveryLookbackUS uint64
	cooldownDuration   time.Duration
	recovery           RecoveryService
	log                *ailog.Logger

	blockedMu     sync.RWMutex
	blockedTables map[string]struct{}
	blockedUsers  map[string]struct{}

	cooldownMu sync.RWMutex
	cooldowns  map[string]time.Time // table -> cooldown end (monotonic)
}

// NewResponseEngine creates a ResponseEngine. recovery may be nil, in
// which case HIGH-severity responses block the table and log that
// auto-recovery is unavailable, matching the original's
// missing-dependency guard.
func NewResponseEngine(recoveryLookbackUS uint64, cooldown time.Duration, recovery RecoveryService, log *ailog.Logger) *ResponseEngine {
	if log == nil {
		log = ailog.Nop()
	}
	return &ResponseEngine{
		recoveryLookbackUS: recoveryLookbackUS,
		cooldownDuration:   cooldown,
		recovery:           recovery,
		log:                log,
		blockedTables:      make(map[string]struct{}),
		blockedUsers:       make(map[string]struct{}),
		cooldowns:          make(map[string]time.Time),
	}
}

// Respond dispatches report to the graded handler for its severity.
func (r *ResponseEngine) Respond(report aimodel.AnomalyReport) {
	switch report.Severity {
	case aimodel.SeverityLow:
		r.respondLow(report)
	case aimodel.SeverityMedium:
		r.respondMedium(report)
	case aimodel.SeverityHigh:
		r.respondHigh(report)
	}
}

// IsTableInCooldown reports whether table is currently suppressing
// HIGH-severity re-analysis following a successful auto-recovery.
func (r *ResponseEngine) IsTableInCooldown(table string, now time.Time) bool {
	r.cooldownMu.RLock()
	defer r.cooldownMu.RUnlock()
	end, ok := r.cooldowns[table]
	return ok && now.Before(end)
}

func (r *ResponseEngine) enterCooldown(table string, now time.Time) {
	r.cooldownMu.Lock()
	defer r.cooldownMu.Unlock()
	r.cooldowns[table] = now.Add(r.cooldownDuration)
}

func (r *ResponseEngine) IsTableBlocked(table string) bool {
	r.blockedMu.RLock()
	defer r.blockedMu.RUnlock()
	_, ok := r.blockedTables[table]
	return ok
}

func (r *ResponseEngine) IsUserBlocked(user string) bool {
	r.blockedMu.RLock()
	defer r.blockedMu.RUnlock()
	_, ok := r.blockedUsers[user]
	return ok
}

// UnblockTable is an admin action that removes table from the
// blocklist regardless of cooldown state.
func (r *ResponseEngine) UnblockTable(table string) {
	r.blockedMu.Lock()
	delete(r.blockedTables, table)
	r.blockedMu.Unlock()
	r.log.Info("ImmuneSystem", "table %q unblocked by admin", table)
}

// UnblockUser is an admin action that removes user from the blocklist.
func (r *ResponseEngine) UnblockUser(user string) {
	r.blockedMu.Lock()
	delete(r.blockedUsers, user)
	r.blockedMu.Unlock()
	r.log.Info("ImmuneSystem", "user %q unblocked by admin", user)
}

// GetBlockedTables returns a snapshot of currently blocked tables.
func (r *ResponseEngine) GetBlockedTables() []string {
	r.blockedMu.RLock()
	defer r.blockedMu.RUnlock()
	out := make([]string, 0, len(r.blockedTables))
	for t := range r.blockedTables {
		out = append(out, t)
	}
	return out
}

// GetBlockedUsers returns a snapshot of currently blocked users.
func (r *ResponseEngine) GetBlockedUsers() []string {
	r.blockedMu.RLock()
	defer r.blockedMu.RUnlock()
	out := make([]string, 0, len(r.blockedUsers))
	for u := range r.blockedUsers {
		out = append(out, u)
	}
	return out
}

func (r *ResponseEngine) respondLow(report aimodel.AnomalyReport) {
	r.log.Warn("ImmuneSystem", "[ANOMALY LOW] %s", report.Description)
}

func (r *ResponseEngine) block(report aimodel.AnomalyReport) {
	r.blockedMu.Lock()
	r.blockedTables[report.TableName] = struct{}{}
	if report.User != "" {
		r.blockedUsers[report.User] = struct{}{}
	}
	r.blockedMu.Unlock()
}

func (r *ResponseEngine) respondMedium(report aimodel.AnomalyReport) {
	r.log.Warn("ImmuneSystem", "[ANOMALY MEDIUM] blocking mutations on table %q - %s", report.TableName, report.Description)
	r.block(report)
}

func (r *ResponseEngine) respondHigh(report aimodel.AnomalyReport) {
	r.log.Error("ImmuneSystem", "[ANOMALY HIGH] auto-recovering table %q - %s", report.TableName, report.Description)
	r.block(report)

	if r.recovery == nil {
		r.log.Error("ImmuneSystem", "cannot auto-recover: no recovery service configured")
		return
	}

	var targetTime uint64
	if report.TimestampUS > r.recoveryLookbackUS {
		targetTime = report.TimestampUS - r.recoveryLookbackUS
	}

	result := r.safeRecover(targetTime, report)
	if result.Success {
		r.log.Info("ImmuneSystem", "[AUTO-RECOVERY] recovered table %q, records=%d elapsed=%.1fms",
			report.TableName, result.RecordsProcessed, result.ElapsedMS)
		r.blockedMu.Lock()
		delete(r.blockedTables, report.TableName)
		r.blockedMu.Unlock()
		r.enterCooldown(report.TableName, time.Now())
	} else {
		r.log.Error("ImmuneSystem", "[AUTO-RECOVERY FAILED] %s. table remains blocked.", result.ErrorMessage)
	}
}

func (r *ResponseEngine) safeRecover(targetTime uint64, report aimodel.AnomalyReport) (result aimodel.RecoveryResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = aimodel.RecoveryResult{Success: false, ErrorMessage: "recovery panicked"}
			r.log.Error("ImmuneSystem", "[AUTO-RECOVERY EXCEPTION] %v", rec)
		}
	}()
	return r.recovery.RecoverTo(targetTime, "")
}
