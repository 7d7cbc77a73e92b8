package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerChangedMessage(t *testing.T) {
	msg := NewLedgerChangedMessage("withdrawal.recorded", 42)

	if msg.Reason != "withdrawal.recorded" {
		t.Errorf("Reason = %q, want %q", msg.Reason, "withdrawal.recorded")
	}
	if msg.EntityID != 42 {
		t.Errorf("EntityID = %d, want 42", msg.EntityID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestLedgerChangedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerChangedMessage{
		Reason:    "employee.deleted",
		EntityID:  7,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerChangedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerChangedMessageFromJSON() error = %v", err)
	}

	if parsed.Reason != msg.Reason {
		t.Errorf("Parsed Reason = %q, want %q", parsed.Reason, msg.Reason)
	}
	if parsed.EntityID != msg.EntityID {
		t.Errorf("Parsed EntityID = %d, want %d", parsed.EntityID, msg.EntityID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerChangedMessage_InvalidJSON(t *testing.T) {
	if _, err := LedgerChangedMessageFromJSON([]byte(`{"entity_id": "nope"}`)); err == nil {
		t.Error("LedgerChangedMessageFromJSON() should fail with invalid JSON")
	}
}
