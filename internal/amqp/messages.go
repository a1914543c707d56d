package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finance/internal/core"
)

// MessageVersion is bumped whenever LedgerEventMessage changes incompatibly.
const MessageVersion = 1

const dateLayout = "2006-01-02"

// LedgerEventMessage is the wire form of a committed ledger entry.
type LedgerEventMessage struct {
	ID            string    `json:"id"`
	Version       int       `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Kind          string    `json:"kind"`
	EntryID       int64     `json:"entry_id"`
	UserID        int64     `json:"user_id"`
	AccountID     int64     `json:"account_id"`
	CategoryID    int64     `json:"category_id,omitempty"`
	CounterpartID int64     `json:"counterpart_account_id,omitempty"`
	ValueCents    int64     `json:"value_cents"`
	Description   string    `json:"description,omitempty"`
	Date          string    `json:"date"`
	ObligationID  int64     `json:"obligation_id,omitempty"`
	Retired       bool      `json:"retired,omitempty"`
}

func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:            uuid.NewString(),
		Version:       MessageVersion,
		Timestamp:     time.Now().UTC(),
		Kind:          string(ev.Kind),
		EntryID:       ev.EntryID,
		UserID:        ev.UserID,
		AccountID:     ev.AccountID,
		CategoryID:    ev.CategoryID,
		CounterpartID: ev.CounterpartID,
		ValueCents:    ev.Value.Cents,
		Description:   ev.Description,
		Date:          ev.Date.Format(dateLayout),
		ObligationID:  ev.ObligationID,
		Retired:       ev.Retired,
	}
}

// Event converts the message back into a core.LedgerEvent.
func (m *LedgerEventMessage) Event() (core.LedgerEvent, error) {
	if m.Version != MessageVersion {
		return core.LedgerEvent{}, fmt.Errorf("unsupported message version %d", m.Version)
	}
	kind := core.Kind(m.Kind)
	if kind != core.KindTransaction && kind != core.KindTransfer {
		return core.LedgerEvent{}, fmt.Errorf("unknown entry kind %q", m.Kind)
	}
	date, err := time.Parse(dateLayout, m.Date)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse date: %w", err)
	}
	return core.LedgerEvent{
		Kind:          kind,
		EntryID:       m.EntryID,
		UserID:        m.UserID,
		AccountID:     m.AccountID,
		CategoryID:    m.CategoryID,
		CounterpartID: m.CounterpartID,
		Value:         core.Money{Cents: m.ValueCents},
		Description:   m.Description,
		Date:          date,
		ObligationID:  m.ObligationID,
		Retired:       m.Retired,
	}, nil
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
