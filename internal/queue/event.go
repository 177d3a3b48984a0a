// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Event types published on the bid events queue.
const (
	EventRetailBidSubmitted     = "retail_bid.submitted"
	EventRetailBidStatusChanged = "retail_bid.status_changed"
	EventBidCreated             = "bid.created"
	EventBidStatusChanged       = "bid.status_changed"
	EventBidSettled             = "bid.settled"
	EventPaymentCaptured        = "bid_payment.captured"
	EventPaymentStatusChanged   = "bid_payment.status_changed"
)

// BidEvent is published whenever a bid, retail bid or payment changes.
// It carries enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.  Fields
// that do not apply to an event type are left at their zero value.
type BidEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	BidID       uint64 `json:"bid_id"`
	RetailBidID uint64 `json:"retail_bid_id,omitempty"`
	PaymentID   uint64 `json:"payment_id,omitempty"`
	UserID      uint64 `json:"user_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Seats       int    `json:"seats,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	PaymentRef  string `json:"payment_ref,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
