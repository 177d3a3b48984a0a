package model

import "time"

// RetailBid is one user's participation in a Bid.  Its seats count
// against the bid's capacity only while its status is Under Review or
// Approved.
//
// Fields:
//  ID          – primary key identifier.
//  BidID       – owning bid.
//  UserID      – submitting user.
//  SeatBooked  – number of seats requested.
//  AmountCents – submitted per-seat amount.
//  StatusID    – reference into statuses.
//  StatusCode  – code of StatusID, joined on read.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type RetailBid struct {
	ID          uint64     // retail_bids.id
	BidID       uint64     // retail_bids.bid_id
	UserID      uint64     // retail_bids.user_id
	SeatBooked  int        // retail_bids.seat_booked
	AmountCents int64      // retail_bids.amount_cents
	StatusID    uint64     // retail_bids.status_id
	StatusCode  StatusCode // statuses.code
	CreatedAt   time.Time  // retail_bids.created_at
	UpdatedAt   time.Time  // retail_bids.updated_at
}
