package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// LedgerChangedMessage announces that one account month changed. It carries
// no entry data; consumers reload the document.
type LedgerChangedMessage struct {
	AccountID string    `json:"accountId"`
	Action    string    `json:"action"`
	Year      int       `json:"year"`
	Month     int       `json:"month"` // 0-11
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(accountID, action string, year, month int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		AccountID: accountID,
		Action:    action,
		Year:      year,
		Month:     month,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) Validate() error {
	if m.AccountID == "" {
		return errors.New("missing account id")
	}
	if m.Month < 0 || m.Month > 11 {
		return fmt.Errorf("invalid month %d", m.Month)
	}
	if m.Year < 1 {
		return fmt.Errorf("invalid year %d", m.Year)
	}
	return nil
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
