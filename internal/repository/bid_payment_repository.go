package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// BidPaymentRepo provides data access to the bid_payments table.
type BidPaymentRepo struct {
	db *sql.DB
}

// NewBidPaymentRepo returns a new BidPaymentRepo bound to the provided database.
func NewBidPaymentRepo(db *sql.DB) *BidPaymentRepo { return &BidPaymentRepo{db: db} }

const paymentSelect = `SELECT p.id, p.retail_bid_id, rb.bid_id, p.user_id, p.amount_cents, p.payment_ref,
                              p.status_id, s.code, p.processed_at
                       FROM bid_payments p
                       JOIN retail_bids rb ON rb.id = p.retail_bid_id
                       JOIN statuses s ON s.id = p.status_id`

func listPayments(ctx context.Context, q querier, query string, args ...any) ([]model.BidPayment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BidPayment{}
	for rows.Next() {
		var p model.BidPayment
		var code string
		if err := rows.Scan(&p.ID, &p.RetailBidID, &p.BidID, &p.UserID, &p.AmountCents, &p.PaymentRef,
			&p.StatusID, &code, &p.ProcessedAt); err != nil {
			return nil, err
		}
		p.StatusCode = model.StatusCode(code)
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateTx inserts a payment within the provided transaction.  The
// generated ID is set on p; BidID and StatusCode are filled by the
// caller or on the next read.  A payment reference that is already
// recorded yields ErrConflict.
func (r *BidPaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.BidPayment) error {
	const q = `INSERT INTO bid_payments (retail_bid_id, user_id, amount_cents, payment_ref, status_id, processed_at)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.RetailBidID, p.UserID, p.AmountCents, p.PaymentRef, p.StatusID,
		p.ProcessedAt.UTC().Format("2006-01-02 15:04:05"))
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: payment reference %s already recorded", ErrConflict, p.PaymentRef)
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByBid returns every payment made against retail bids of a bid.
func (r *BidPaymentRepo) ListByBid(ctx context.Context, bidID uint64) ([]model.BidPayment, error) {
	return listPayments(ctx, r.db, paymentSelect+` WHERE rb.bid_id = ? ORDER BY p.id`, bidID)
}

// ListByBidTx is like ListByBid but reads inside the caller's transaction.
func (r *BidPaymentRepo) ListByBidTx(ctx context.Context, tx *sql.Tx, bidID uint64) ([]model.BidPayment, error) {
	return listPayments(ctx, tx, paymentSelect+` WHERE rb.bid_id = ? ORDER BY p.id`, bidID)
}

// ListByRetailBidTx returns the payments of one retail bid.
func (r *BidPaymentRepo) ListByRetailBidTx(ctx context.Context, tx *sql.Tx, retailBidID uint64) ([]model.BidPayment, error) {
	return listPayments(ctx, tx, paymentSelect+` WHERE p.retail_bid_id = ? ORDER BY p.id`, retailBidID)
}

// GetByID returns a payment or ErrPaymentNotFound.
func (r *BidPaymentRepo) GetByID(ctx context.Context, id uint64) (*model.BidPayment, error) {
	list, err := listPayments(ctx, r.db, paymentSelect+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrPaymentNotFound
	}
	return &list[0], nil
}

// UpdateStatus sets the status of a payment.
func (r *BidPaymentRepo) UpdateStatus(ctx context.Context, id, statusID uint64) error {
	return updateStatus(ctx, r.db, "bid_payments", id, statusID, ErrPaymentNotFound)
}
