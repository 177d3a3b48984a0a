package model

import "time"

// Bid is a group offer posted by an operator.  Seat capacity is fixed at
// creation; seats consumed by retail bids are computed, never decremented
// in place.
//
// Fields:
//  ID                  – primary key identifier.
//  TotalSeatsAvailable – configured capacity (nullable for legacy rows).
//  MinAmountCents      – minimum per-seat amount a retail bid may offer.
//  Config              – free-form JSON blob (route, travel window, rules).
//  StatusID            – reference into statuses.
//  StatusCode          – code of StatusID, joined on read.
//  CreatedBy           – operator who created the bid.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Bid struct {
	ID                  uint64     // bids.id
	TotalSeatsAvailable *int       // bids.total_seats_available (nullable)
	MinAmountCents      int64      // bids.min_amount_cents
	Config              string     // bids.config
	StatusID            uint64     // bids.status_id
	StatusCode          StatusCode // statuses.code
	CreatedBy           uint64     // bids.created_by
	CreatedAt           time.Time  // bids.created_at
	UpdatedAt           time.Time  // bids.updated_at
}
