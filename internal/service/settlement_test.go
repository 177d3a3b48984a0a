package service

import (
	"context"
	"testing"

	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/queue"
)

const endedWindow = `{"bidWindow":{"start":"2026-01-01T00:00:00Z","end":"2026-02-01T00:00:00Z"}`

func TestSettleExpiredBids_ClosesWithoutRules(t *testing.T) {
	f := newFixture(Options{})
	expired := f.store.addBid(seats(5), 0, endedWindow+`}`, model.StatusOpen)
	running := f.store.addBid(seats(5), 0, `{"bidWindow":{"end":"2026-06-01T00:00:00Z"}}`, model.StatusOpen)
	noWindow := f.store.addBid(seats(5), 0, "", model.StatusActive)
	rb := f.store.addRetail(expired.ID, 1, 2, 10, model.StatusUnderReview)

	n, err := f.svc.SettleExpiredBids(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SettleExpiredBids: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 settled bid, got %d", n)
	}
	if got := f.store.bids[expired.ID].StatusCode; got != model.StatusClosed {
		t.Fatalf("expected expired bid closed, got %s", got)
	}
	for _, id := range []uint64{running.ID, noWindow.ID} {
		if got := f.store.bids[id].StatusCode; got == model.StatusClosed {
			t.Fatalf("expected bid %d untouched", id)
		}
	}
	if got := f.store.retail[rb.ID].StatusCode; got != model.StatusUnderReview {
		t.Fatalf("expected retail bid untouched without rules, got %s", got)
	}
	if got := f.pub.types(); len(got) != 1 || got[0] != queue.EventBidSettled {
		t.Fatalf("expected only bid.settled, got %v", got)
	}
}

func TestSettleExpiredBids_AppliesAutoAward(t *testing.T) {
	f := newFixture(Options{})
	b := f.store.addBid(seats(5), 100, endedWindow+`,"autoAward":{"enabled":true,"rejectBelowMin":true}}`, model.StatusOpen)
	high := f.store.addRetail(b.ID, 1, 3, 500, model.StatusUnderReview)
	mid := f.store.addRetail(b.ID, 2, 3, 400, model.StatusUnderReview)
	low := f.store.addRetail(b.ID, 3, 1, 50, model.StatusUnderReview)

	n, err := f.svc.SettleExpiredBids(context.Background(), f.now)
	if err != nil || n != 1 {
		t.Fatalf("expected one settled bid, got n=%d err=%v", n, err)
	}
	want := map[uint64]model.StatusCode{high.ID: model.StatusApproved, mid.ID: model.StatusRejected, low.ID: model.StatusRejected}
	for id, code := range want {
		if got := f.store.retail[id].StatusCode; got != code {
			t.Fatalf("retail bid %d: expected %s, got %s", id, code, got)
		}
	}
	if got := len(f.pub.events); got != 4 {
		t.Fatalf("expected 3 decision events and 1 settlement event, got %v", f.pub.types())
	}
}

func TestSettleExpiredBids_RollsBackOnMissingStatus(t *testing.T) {
	catalog := testCatalog(model.StatusApproved)
	store := newMemStore(catalog)
	logger, _ := newNullLogger()
	svc := NewBiddingService(store, catalog, nil, nil, logger, Options{})
	f := newFixture(Options{})

	b := store.addBid(seats(5), 0, endedWindow+`,"autoAward":{"enabled":true}}`, model.StatusOpen)
	store.addRetail(b.ID, 1, 1, 10, model.StatusUnderReview)

	n, err := svc.SettleExpiredBids(context.Background(), f.now)
	if err == nil || n != 0 {
		t.Fatalf("expected failure and no settled bids, got n=%d err=%v", n, err)
	}
	if got := store.bids[b.ID].StatusCode; got != model.StatusOpen {
		t.Fatalf("expected bid to stay open after rollback, got %s", got)
	}
}
