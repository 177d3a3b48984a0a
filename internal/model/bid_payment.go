package model

import "time"

// BidPayment is a captured deposit for a RetailBid.
//
// Fields:
//  ID          – primary key identifier.
//  RetailBidID – retail bid the payment belongs to.
//  BidID       – bid of the retail bid, joined on read.
//  UserID      – paying user.
//  AmountCents – captured amount.
//  PaymentRef  – reference returned by the payment capture.
//  StatusID    – reference into statuses.
//  StatusCode  – code of StatusID, joined on read.
//  ProcessedAt – when the capture happened.
type BidPayment struct {
	ID          uint64     // bid_payments.id
	RetailBidID uint64     // bid_payments.retail_bid_id
	BidID       uint64     // retail_bids.bid_id
	UserID      uint64     // bid_payments.user_id
	AmountCents int64      // bid_payments.amount_cents
	PaymentRef  string     // bid_payments.payment_ref
	StatusID    uint64     // bid_payments.status_id
	StatusCode  StatusCode // statuses.code
	ProcessedAt time.Time  // bid_payments.processed_at
}
