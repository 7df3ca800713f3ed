package ledger

// Append-only event log, grounded on the teacher's event_store.go. Every
// mutating kernel operation (posting, amendment, closing, schedule run)
// appends a JournalEvent alongside its projection (amendments and deletions
// before the store write; creations, closings and schedule runs after it),
// giving the system an audit trail independent of the bbolt entity buckets.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventVerificationCreated = "VERIFICATION_CREATED"
	EventVerificationAmended = "VERIFICATION_AMENDED"
	EventVerificationDeleted = "VERIFICATION_DELETED"
	EventFiscalYearClosed    = "FISCAL_YEAR_CLOSED"
	EventDepreciationPosted  = "DEPRECIATION_POSTED"
	EventAccrualPosted       = "ACCRUAL_POSTED"
	EventSIEImported         = "SIE_IMPORTED"
)

// JournalEvent is one immutable entry of the audit log.
type JournalEvent struct {
	ID              string          `json:"id"`
	CompanyID       int64           `json:"company_id"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	ValidTime       time.Time       `json:"valid_time"`
	TransactionTime time.Time       `json:"transaction_time"`
	Actor           string          `json:"actor,omitempty"`
}

// EventStore appends events to the store's events bucket and lists them
// back out in transaction-time order.
type EventStore struct {
	store *Store
}

func NewEventStore(store *Store) *EventStore {
	return &EventStore{store: store}
}

func (es *EventStore) Append(companyID int64, eventType string, payload any, validTime time.Time, actor string) (*JournalEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ledger: marshal event payload: %w", err)
	}
	event := &JournalEvent{
		ID:              uuid.NewString(),
		CompanyID:       companyID,
		EventType:       eventType,
		Payload:         data,
		ValidTime:       validTime,
		TransactionTime: time.Now().UTC(),
		Actor:           actor,
	}
	if err := es.store.appendEvent(event); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	return event, nil
}

// ListEvents returns every event recorded for companyID between from and
// to (inclusive), ordered by transaction time at whole-second resolution;
// events recorded within the same second are ordered by their id.
func (es *EventStore) ListEvents(companyID int64, from, to time.Time) ([]*JournalEvent, error) {
	return es.store.listEvents(companyID, from, to)
}

// VerificationCreatedEvent is the payload appended when the Posting Engine
// commits a new verification.
type VerificationCreatedEvent struct {
	VerificationID int64 `json:"verification_id"`
}

// VerificationAmendedEvent is the payload appended by any amendment
// operation (add/update/delete line, update header).
type VerificationAmendedEvent struct {
	VerificationID int64  `json:"verification_id"`
	Operation      string `json:"operation"`
}

// VerificationDeletedEvent is the payload appended when a verification is
// removed outright.
type VerificationDeletedEvent struct {
	VerificationID int64 `json:"verification_id"`
}

// FiscalYearClosedEvent is the payload appended when the Closing Engine
// finishes a year-end transition.
type FiscalYearClosedEvent struct {
	FiscalYearID    int64 `json:"fiscal_year_id"`
	NextFiscalYearID int64 `json:"next_fiscal_year_id,omitempty"`
}
