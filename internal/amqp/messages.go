package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that the ledger changed. It carries only
// the change reason and entity id; the worker reads the current ledger state
// from the database before mirroring.
type LedgerChangedMessage struct {
	Reason    string    `json:"reason"`
	EntityID  int64     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(reason string, entityID int64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Reason:    reason,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
