package amqp

import (
	"encoding/json"
	"time"

	"divvy/internal/notify"
)

// LedgerEventMessage is the wire form of a committed ledger change. It
// carries identifiers only; consumers re-read the store for current
// snapshots.
type LedgerEventMessage struct {
	UserID        string    `json:"userId"`
	Kind          string    `json:"kind"`
	TransactionID string    `json:"transactionId,omitempty"`
	Month         string    `json:"month,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage wraps a notify.Event for publishing.
func NewLedgerEventMessage(ev notify.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		UserID:        ev.UserID,
		Kind:          ev.Kind,
		TransactionID: ev.TransactionID,
		Month:         ev.Month,
		Timestamp:     time.Now(),
	}
}

// Event converts the message back into a notify.Event.
func (m *LedgerEventMessage) Event() notify.Event {
	return notify.Event{
		UserID:        m.UserID,
		Kind:          m.Kind,
		TransactionID: m.TransactionID,
		Month:         m.Month,
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
