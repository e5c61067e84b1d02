package immune

import (
	"testing"
	"time"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

type stubRecovery struct {
	result aimodel.RecoveryResult
}

func (s *stubRecovery) RecoverTo(targetTimestampUS uint64, dbName string) aimodel.RecoveryResult {
	return s.result
}

func TestRespond_Medium_BlocksTableAndUser(t *testing.T) {
	r := NewResponseEngine(30_000_000, time.Minute, nil, nil)
	r.Respond(aimodel.AnomalyReport{TableName: "orders", User: "alice", Severity: aimodel.SeverityMedium})

	if !r.IsTableBlocked("orders") {
		t.Fatal("table should be blocked after MEDIUM response")
	}
	if !r.IsUserBlocked("alice") {
		t.Fatal("user should be blocked after MEDIUM response")
	}
}

func TestRespond_High_SuccessfulRecovery_UnblocksAndEntersCooldown(t *testing.T) {
	recovery := &stubRecovery{result: aimodel.RecoveryResult{Success: true}}
	r := NewResponseEngine(30_000_000, time.Minute, recovery, nil)

	r.Respond(aimodel.AnomalyReport{TableName: "orders", Severity: aimodel.SeverityHigh, TimestampUS: 100_000_000})

	if r.IsTableBlocked("orders") {
		t.Fatal("table should be unblocked after successful auto-recovery")
	}
	if !r.IsTableInCooldown("orders", time.Now()) {
		t.Fatal("table should be in cooldown after successful auto-recovery")
	}
}

func TestRespond_High_FailedRecovery_StaysBlocked(t *testing.T) {
	recovery := &stubRecovery{result: aimodel.RecoveryResult{Success: false, ErrorMessage: "boom"}}
	r := NewResponseEngine(30_000_000, time.Minute, recovery, nil)

	r.Respond(aimodel.AnomalyReport{TableName: "orders", Severity: aimodel.SeverityHigh, TimestampUS: 100_000_000})

	if !r.IsTableBlocked("orders") {
		t.Fatal("table should remain blocked after failed auto-recovery")
	}
	if r.IsTableInCooldown("orders", time.Now()) {
		t.Fatal("table should not be in cooldown after failed auto-recovery")
	}
}

func TestUnblockTable_RemovesFromBlocklist(t *testing.T) {
	r := NewResponseEngine(30_000_000, time.Minute, nil, nil)
	r.Respond(aimodel.AnomalyReport{TableName: "orders", Severity: aimodel.SeverityMedium})
	r.UnblockTable("orders")
	if r.IsTableBlocked("orders") {
		t.Fatal("table should be unblocked after UnblockTable")
	}
}

func TestRespond_Low_DoesNotBlock(t *testing.T) {
	r := NewResponseEngine(30_000_000, time.Minute, nil, nil)
	r.Respond(aimodel.AnomalyReport{TableName: "orders", Severity: aimodel.SeverityLow})
	if r.IsTableBlocked("orders") {
		t.Fatal("LOW severity should never block a table")
	}
}
