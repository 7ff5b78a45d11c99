package amqp

import (
	"encoding/json"
	"time"
)

// ExpensesChangedMessage tells consumers that the expense ledger changed.
// It carries no record data; consumers re-read the store.
type ExpensesChangedMessage struct {
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpensesChangedMessage creates a change message stamped with the current time
func NewExpensesChangedMessage(origin string) *ExpensesChangedMessage {
	return &ExpensesChangedMessage{
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpensesChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpensesChangedMessageFromJSON creates a message from JSON bytes
func ExpensesChangedMessageFromJSON(data []byte) (*ExpensesChangedMessage, error) {
	var msg ExpensesChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
