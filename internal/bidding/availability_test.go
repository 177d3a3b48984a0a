package bidding

import (
	"testing"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

func intPtr(v int) *int { return &v }

func retail(id, user uint64, seats int, code model.StatusCode) model.RetailBid {
	return model.RetailBid{ID: id, BidID: 1, UserID: user, SeatBooked: seats, AmountCents: 10000, StatusCode: code}
}

func TestResolveCapacity_PrefersBidColumn(t *testing.T) {
	bid := model.Bid{TotalSeatsAvailable: intPtr(40)}
	cfg := model.ParseBidConfig(`{"totalSeats": 12}`)

	seats, src := ResolveCapacity(bid, cfg)
	if seats != 40 || src != CapacityFromBid {
		t.Fatalf("expected 40 from bid, got %d from %s", seats, src)
	}
}

func TestResolveCapacity_FallsBackToConfig(t *testing.T) {
	for _, bid := range []model.Bid{{}, {TotalSeatsAvailable: intPtr(0)}} {
		seats, src := ResolveCapacity(bid, model.ParseBidConfig(`{"totalSeats": 12}`))
		if seats != 12 || src != CapacityFromConfig {
			t.Fatalf("expected 12 from config, got %d from %s", seats, src)
		}
	}
}

func TestResolveCapacity_FallsBackToDefault(t *testing.T) {
	cases := []string{"", "not json", `{"totalSeats": "many"}`, `{"totalSeats": -3}`, `[1,2]`}
	for _, raw := range cases {
		seats, src := ResolveCapacity(model.Bid{Config: raw}, model.ParseBidConfig(raw))
		if seats != DefaultCapacity || src != CapacityFromDefault {
			t.Fatalf("config %q: expected default capacity, got %d from %s", raw, seats, src)
		}
	}
}

func TestComputeAvailability_CountsOnlyHeldStatuses(t *testing.T) {
	bid := model.Bid{TotalSeatsAvailable: intPtr(10)}
	rbs := []model.RetailBid{
		retail(1, 1, 2, model.StatusUnderReview),
		retail(2, 2, 3, model.StatusApproved),
		retail(3, 3, 4, model.StatusRejected),
		retail(4, 4, 5, model.StatusClosed),
	}

	got := ComputeAvailability(bid, model.BidConfig{}, rbs)
	if got.TotalSeatsAvailable != 10 || got.BookedSeats != 5 || got.AvailableSeats != 5 {
		t.Fatalf("unexpected availability: %+v", got)
	}
	if got.IsFullyBooked || got.Overbooked {
		t.Fatalf("expected open availability, got %+v", got)
	}
}

func TestComputeAvailability_RejectionReleasesSeats(t *testing.T) {
	bid := model.Bid{TotalSeatsAvailable: intPtr(6)}
	rbs := []model.RetailBid{
		retail(1, 1, 2, model.StatusUnderReview),
		retail(2, 2, 3, model.StatusUnderReview),
	}
	before := ComputeAvailability(bid, model.BidConfig{}, rbs)

	rbs[1].StatusCode = model.StatusRejected
	after := ComputeAvailability(bid, model.BidConfig{}, rbs)

	if after.AvailableSeats-before.AvailableSeats != 3 {
		t.Fatalf("expected rejection to release 3 seats, before=%d after=%d", before.AvailableSeats, after.AvailableSeats)
	}
}

func TestComputeAvailability_OverbookedKeepsRawValue(t *testing.T) {
	bid := model.Bid{TotalSeatsAvailable: intPtr(2)}
	rbs := []model.RetailBid{
		retail(1, 1, 2, model.StatusApproved),
		retail(2, 2, 1, model.StatusUnderReview),
	}

	got := ComputeAvailability(bid, model.BidConfig{}, rbs)
	if got.AvailableSeats != -1 || got.DisplayAvailableSeats != 0 {
		t.Fatalf("expected raw -1 and display 0, got %+v", got)
	}
	if !got.Overbooked || !got.IsFullyBooked {
		t.Fatalf("expected overbooked and fully booked, got %+v", got)
	}
}

func TestComputeAvailability_MatchesCapacityMinusCounted(t *testing.T) {
	statuses := []model.StatusCode{model.StatusUnderReview, model.StatusApproved, model.StatusRejected, model.StatusOpen}
	for capacity := 1; capacity <= 8; capacity++ {
		var rbs []model.RetailBid
		counted := 0
		for i := 0; i < 12; i++ {
			code := statuses[(i*7+capacity)%len(statuses)]
			seats := (i % 3) + 1
			rbs = append(rbs, retail(uint64(i+1), uint64(i+1), seats, code))
			if code == model.StatusUnderReview || code == model.StatusApproved {
				counted += seats
			}
		}
		got := ComputeAvailability(model.Bid{TotalSeatsAvailable: intPtr(capacity)}, model.BidConfig{}, rbs)
		if got.AvailableSeats != capacity-counted {
			t.Fatalf("capacity %d: expected %d available, got %d", capacity, capacity-counted, got.AvailableSeats)
		}
		if got.IsFullyBooked != (got.AvailableSeats <= 0) {
			t.Fatalf("capacity %d: fully booked flag disagrees with %d available", capacity, got.AvailableSeats)
		}
	}
}
