package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/group-travel-bidding/internal/bidding"
	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/queue"
	"github.com/iliyamo/group-travel-bidding/internal/repository"
)

// SettleExpiredBids closes every Open or Active bid whose window ended at
// or before now, applying its auto-award rules first.  Each bid settles
// in its own transaction; a failure on one bid is logged and does not
// stop the others.  It returns how many bids were closed.
func (s *BiddingService) SettleExpiredBids(ctx context.Context, now time.Time) (int, error) {
	closedID, err := s.statusID(model.StatusClosed)
	if err != nil {
		return 0, err
	}
	bids, err := s.store.ListBidsByStatuses(ctx, []model.StatusCode{model.StatusOpen, model.StatusActive})
	if err != nil {
		return 0, s.fail("list open bids", err, nil)
	}

	settled := 0
	var errs []error
	for _, b := range bids {
		if !bidding.SettlementDue(bidding.NewSnapshot(b, nil, nil), now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		plan, ok, err := s.settleBid(ctx, b.ID, closedID, now)
		if err != nil {
			errs = append(errs, s.fail("settle bid", err, logrus.Fields{"bid_id": b.ID}))
			continue
		}
		if !ok {
			continue
		}
		settled++
		evs := make([]queue.BidEvent, 0, len(plan.Decisions)+1)
		for _, d := range plan.Decisions {
			evs = append(evs, queue.BidEvent{
				Type:        queue.EventRetailBidStatusChanged,
				BidID:       plan.BidID,
				RetailBidID: d.RetailBidID,
				UserID:      d.UserID,
				Status:      string(d.To),
			})
		}
		evs = append(evs, queue.BidEvent{Type: queue.EventBidSettled, BidID: plan.BidID, Status: string(model.StatusClosed)})
		s.committed(ctx, evs...)
		s.log.WithFields(logrus.Fields{"bid_id": plan.BidID, "decisions": len(plan.Decisions)}).Info("bid settled")
	}
	return settled, errors.Join(errs...)
}

// settleBid re-checks the bid under its row lock, applies the plan and
// closes the bid.  ok is false when the bid no longer needs settling.
func (s *BiddingService) settleBid(ctx context.Context, bidID, closedID uint64, now time.Time) (bidding.Settlement, bool, error) {
	var plan bidding.Settlement
	ok := false
	err := s.store.InTx(ctx, func(tx repository.BidStoreTx) error {
		bid, err := tx.LockBid(ctx, bidID)
		if err != nil {
			return err
		}
		rbs, err := tx.ListRetailBids(ctx, bid.ID)
		if err != nil {
			return err
		}
		snap := bidding.NewSnapshot(*bid, rbs, nil)
		if !bidding.SettlementDue(snap, now) {
			return nil
		}
		plan = bidding.PlanSettlement(snap)
		for _, d := range plan.Decisions {
			id, err := s.statusID(d.To)
			if err != nil {
				return err
			}
			if err := tx.UpdateRetailBidStatus(ctx, d.RetailBidID, id); err != nil {
				return err
			}
		}
		if err := tx.UpdateBidStatus(ctx, bid.ID, closedID); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return bidding.Settlement{}, false, err
	}
	return plan, ok, nil
}
