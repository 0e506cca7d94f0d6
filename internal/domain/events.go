package domain

import "time"

// EventType identifies a ledger event kind.
type EventType string

const (
	EventTypeTokenMinted       EventType = "token.minted"
	EventTypeTokenBurned       EventType = "token.burned"
	EventTypeCompanyRegistered EventType = "company.registered"
	EventTypeProductCreated    EventType = "product.created"
	EventTypeInvoiceCreated    EventType = "invoice.created"
	EventTypeInvoicePaid       EventType = "invoice.paid"
	EventTypeSettlement        EventType = "settlement.executed"
)

// LedgerEvent is the normalized event emitted for every auditable state
// transition. A copy is persisted in the same transaction as the transition;
// the same payload is published to the message broker after commit.
type LedgerEvent struct {
	// EventID is a ULID, monotonic within a process
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	// Company is empty for token-only events
	Company  Identity `json:"company,omitempty"`
	Subject  Identity `json:"subject"`
	Amount   int64    `json:"amount"`
	Fee      int64    `json:"fee,omitempty"`
	Sequence uint64   `json:"sequence,omitempty"`
	// Reference groups the events of one settlement call
	Reference string    `json:"reference,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
