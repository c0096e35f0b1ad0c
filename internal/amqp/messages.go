package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ZTicketMessage carries the end-of-day report of one date. A mailer sends
// Subject and Body. Ledger is the encoded day the report was built from, so
// the export worker does not have to read a ledger the till may be
// rewriting.
type ZTicketMessage struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Ledger    string    `json:"ledger,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewZTicketMessage creates a message with a fresh ID.
func NewZTicketMessage(date, subject, body string) *ZTicketMessage {
	return &ZTicketMessage{
		ID:        uuid.NewString(),
		Date:      date,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ZTicketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ZTicketMessageFromJSON creates a message from JSON bytes. A message
// without a date cannot be handled.
func ZTicketMessageFromJSON(data []byte) (*ZTicketMessage, error) {
	var msg ZTicketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Date == "" {
		return nil, errors.New("z-ticket message without date")
	}
	return &msg, nil
}
