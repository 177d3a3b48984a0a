// Package bidding holds the seat-availability and per-viewer status rules
// for group bids.  Everything here is a pure function of its inputs; the
// service layer loads records and feeds them in.
package bidding

import "github.com/iliyamo/group-travel-bidding/internal/model"

// DefaultCapacity is used when neither the bid nor its config carries a
// seat count.
const DefaultCapacity = 100

// CapacitySource names the tier ResolveCapacity took its value from.
type CapacitySource string

const (
	CapacityFromBid     CapacitySource = "bid"
	CapacityFromConfig  CapacitySource = "config"
	CapacityFromDefault CapacitySource = "default"
)

// ResolveCapacity walks the ordered fallback bid column -> config
// totalSeats -> DefaultCapacity.  Only positive values are accepted at
// each tier.  Callers should surface CapacityFromDefault, since it means
// the bid carries no capacity at all.
func ResolveCapacity(bid model.Bid, cfg model.BidConfig) (int, CapacitySource) {
	if bid.TotalSeatsAvailable != nil && *bid.TotalSeatsAvailable > 0 {
		return *bid.TotalSeatsAvailable, CapacityFromBid
	}
	if cfg.TotalSeats > 0 {
		return cfg.TotalSeats, CapacityFromConfig
	}
	return DefaultCapacity, CapacityFromDefault
}

// Availability is the seat picture of a bid at one point in time.
// AvailableSeats is not clamped: a negative value means the bid is
// overbooked.  DisplayAvailableSeats is the same value floored at zero.
type Availability struct {
	TotalSeatsAvailable   int            `json:"total_seats_available"`
	BookedSeats           int            `json:"booked_seats"`
	AvailableSeats        int            `json:"available_seats"`
	DisplayAvailableSeats int            `json:"display_available_seats"`
	Overbooked            bool           `json:"overbooked"`
	IsFullyBooked         bool           `json:"is_fully_booked"`
	CapacitySource        CapacitySource `json:"capacity_source"`
}

// BookedSeats sums SeatBooked over retail bids whose status holds seats.
func BookedSeats(retailBids []model.RetailBid) int {
	booked := 0
	for _, rb := range retailBids {
		if rb.StatusCode.CountsAgainstCapacity() {
			booked += rb.SeatBooked
		}
	}
	return booked
}

// ComputeAvailability aggregates capacity and consumed seats for a bid.
func ComputeAvailability(bid model.Bid, cfg model.BidConfig, retailBids []model.RetailBid) Availability {
	total, src := ResolveCapacity(bid, cfg)
	booked := BookedSeats(retailBids)
	available := total - booked
	display := available
	if display < 0 {
		display = 0
	}
	return Availability{
		TotalSeatsAvailable:   total,
		BookedSeats:           booked,
		AvailableSeats:        available,
		DisplayAvailableSeats: display,
		Overbooked:            available < 0,
		IsFullyBooked:         available <= 0,
		CapacitySource:        src,
	}
}
