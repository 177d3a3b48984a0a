package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

var (
	created   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bidCols   = []string{"id", "total_seats_available", "min_amount_cents", "config", "status_id", "code", "created_by", "created_at", "updated_at"}
	retailCol = []string{"id", "bid_id", "user_id", "seat_booked", "amount_cents", "status_id", "code", "created_at", "updated_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInTx_LockBidTakesRowLockThenReadsWithStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM bids WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bids b JOIN statuses s ON s.id = b.status_id WHERE b.id = ?`)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(bidCols).AddRow(5, 40, 1000, `{"routeId":"LHR-JFK"}`, 1, "O", 9, created, created))
	mock.ExpectCommit()

	var got *model.Bid
	err := store.InTx(context.Background(), func(tx BidStoreTx) error {
		var err error
		got, err = tx.LockBid(context.Background(), 5)
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if got.StatusCode != model.StatusOpen || got.TotalSeatsAvailable == nil || *got.TotalSeatsAvailable != 40 {
		t.Fatalf("expected open bid with 40 seats, got %+v", got)
	}
	if got.Config != `{"routeId":"LHR-JFK"}` || got.CreatedBy != 9 {
		t.Fatalf("unexpected bid fields %+v", got)
	}
	verify(t, mock)
}

func TestInTx_RollsBackWhenFnFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM bids WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx BidStoreTx) error {
		_, err := tx.LockBid(context.Background(), 404)
		return err
	})
	if !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestGetBid_NullCapacityAndMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN statuses s ON s.id = b.status_id WHERE b.id = ?`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(bidCols).AddRow(1, nil, 0, nil, 2, "UR", 3, created, created))
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN statuses s ON s.id = b.status_id WHERE b.id = ?`)).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(bidCols))

	b, err := store.GetBid(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBid: %v", err)
	}
	if b.TotalSeatsAvailable != nil || b.Config != "" || b.StatusCode != model.StatusUnderReview {
		t.Fatalf("expected legacy bid without capacity, got %+v", b)
	}
	if _, err := store.GetBid(context.Background(), 2); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestListRetailBidsByBids_GroupsByBid(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN statuses s ON s.id = rb.status_id WHERE rb.bid_id IN (?, ?, ?) ORDER BY rb.id`)).
		WithArgs(uint64(1), uint64(2), uint64(3)).
		WillReturnRows(sqlmock.NewRows(retailCol).
			AddRow(10, 1, 7, 2, 500, 2, "UR", created, created).
			AddRow(11, 3, 8, 1, 300, 4, "R", created, created).
			AddRow(12, 1, 9, 4, 700, 3, "AP", created, created))

	got, err := store.ListRetailBidsByBids(context.Background(), []uint64{1, 2, 3})
	if err != nil {
		t.Fatalf("ListRetailBidsByBids: %v", err)
	}
	if len(got[1]) != 2 || got[1][0].ID != 10 || got[1][1].ID != 12 {
		t.Fatalf("expected bid 1 to hold retail bids 10 and 12 in order, got %+v", got[1])
	}
	if got[1][1].StatusCode != model.StatusApproved || got[1][1].SeatBooked != 4 {
		t.Fatalf("expected approved retail bid with 4 seats, got %+v", got[1][1])
	}
	if _, ok := got[2]; ok {
		t.Fatalf("expected bid 2 absent, got %+v", got[2])
	}
	if len(got[3]) != 1 || got[3][0].StatusCode != model.StatusRejected {
		t.Fatalf("expected one rejected retail bid for bid 3, got %+v", got[3])
	}
	verify(t, mock)
}

func TestListRetailBidsByBids_EmptySkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)
	got, err := store.ListRetailBidsByBids(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty map, got %v %v", got, err)
	}
	verify(t, mock)
}

func TestCreateBidPayment_DuplicateReference(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bid_payments`)).
		WithArgs(uint64(10), uint64(7), int64(500), "sim_abc", uint64(2), "2026-03-01 12:00:00").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'sim_abc' for key 'uq_bid_payments_ref'"})
	mock.ExpectRollback()

	p := &model.BidPayment{RetailBidID: 10, UserID: 7, AmountCents: 500, PaymentRef: "sim_abc", StatusID: 2, ProcessedAt: created}
	err := store.InTx(context.Background(), func(tx BidStoreTx) error {
		return tx.CreateBidPayment(context.Background(), p)
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	verify(t, mock)
}

func TestCreateBidPayment_SetsID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bid_payments`)).
		WillReturnResult(sqlmock.NewResult(33, 1))
	mock.ExpectCommit()

	p := &model.BidPayment{RetailBidID: 10, UserID: 7, AmountCents: 500, PaymentRef: "sim_def", StatusID: 2, ProcessedAt: created}
	err := store.InTx(context.Background(), func(tx BidStoreTx) error {
		return tx.CreateBidPayment(context.Background(), p)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if p.ID != 33 {
		t.Fatalf("expected id 33, got %d", p.ID)
	}
	verify(t, mock)
}

func TestUpdateStatus_ConfirmsMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE retail_bids SET status_id = ? WHERE id = ?`)).
		WithArgs(uint64(4), uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM retail_bids WHERE id = ?`)).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bids SET status_id = ? WHERE id = ?`)).
		WithArgs(uint64(6), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM bids WHERE id = ?`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	if err := store.UpdateRetailBidStatus(context.Background(), 8, 4); !errors.Is(err, ErrRetailBidNotFound) {
		t.Fatalf("expected ErrRetailBidNotFound, got %v", err)
	}
	if err := store.UpdateBidStatus(context.Background(), 1, 6); err != nil {
		t.Fatalf("expected unchanged status to succeed, got %v", err)
	}
	verify(t, mock)
}
