package bidding

import (
	"sort"
	"time"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// Decision moves one retail bid to a new status.
type Decision struct {
	RetailBidID uint64
	UserID      uint64
	To          model.StatusCode
}

// Settlement is the set of changes applied when a bid window closes.
type Settlement struct {
	BidID     uint64
	Decisions []Decision
}

// SettlementDue reports whether the bid is still taking retail bids but
// its window ended at or before now.
func SettlementDue(s Snapshot, now time.Time) bool {
	if s.Bid.StatusCode != model.StatusOpen && s.Bid.StatusCode != model.StatusActive {
		return false
	}
	end, ok := s.Config.WindowEnd()
	if !ok {
		return false
	}
	return !end.After(now)
}

// PlanSettlement applies the bid's auto-award rules to its Under Review
// retail bids.  With rules disabled the plan is empty and the bid is just
// closed by the caller.  Candidates are taken by amount descending, then
// by submission order.  A candidate at or above the award threshold is
// approved while its seats still fit; one that no longer fits is
// rejected; one below the threshold is rejected only with RejectBelowMin.
func PlanSettlement(s Snapshot) Settlement {
	plan := Settlement{BidID: s.Bid.ID}
	rules := s.Config.AutoAward
	if !rules.Enabled {
		return plan
	}
	threshold := rules.MinAmountCents
	if threshold <= 0 {
		threshold = s.Bid.MinAmountCents
	}

	held := 0
	var candidates []model.RetailBid
	for _, rb := range s.RetailBids {
		switch rb.StatusCode {
		case model.StatusApproved:
			held += rb.SeatBooked
		case model.StatusUnderReview:
			candidates = append(candidates, rb)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AmountCents != candidates[j].AmountCents {
			return candidates[i].AmountCents > candidates[j].AmountCents
		}
		return candidates[i].ID < candidates[j].ID
	})

	capacity := s.Availability.TotalSeatsAvailable
	for _, rb := range candidates {
		switch {
		case rb.AmountCents < threshold:
			if rules.RejectBelowMin {
				plan.Decisions = append(plan.Decisions, Decision{rb.ID, rb.UserID, model.StatusRejected})
			}
		case held+rb.SeatBooked <= capacity:
			held += rb.SeatBooked
			plan.Decisions = append(plan.Decisions, Decision{rb.ID, rb.UserID, model.StatusApproved})
		default:
			plan.Decisions = append(plan.Decisions, Decision{rb.ID, rb.UserID, model.StatusRejected})
		}
	}
	return plan
}
