package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// RetailBidRepo provides data access to the retail_bids table.  A retail
// bid is one user's claim on seats of a bid.
type RetailBidRepo struct {
	db *sql.DB
}

// NewRetailBidRepo returns a new RetailBidRepo bound to the provided database.
func NewRetailBidRepo(db *sql.DB) *RetailBidRepo { return &RetailBidRepo{db: db} }

const retailBidSelect = `SELECT rb.id, rb.bid_id, rb.user_id, rb.seat_booked, rb.amount_cents, rb.status_id, s.code,
                                rb.created_at, rb.updated_at
                         FROM retail_bids rb JOIN statuses s ON s.id = rb.status_id`

func scanRetailBid(row rowScanner) (*model.RetailBid, error) {
	var rb model.RetailBid
	var code string
	if err := row.Scan(&rb.ID, &rb.BidID, &rb.UserID, &rb.SeatBooked, &rb.AmountCents, &rb.StatusID, &code,
		&rb.CreatedAt, &rb.UpdatedAt); err != nil {
		return nil, err
	}
	rb.StatusCode = model.StatusCode(code)
	return &rb, nil
}

func listRetailBids(ctx context.Context, q querier, query string, args ...any) ([]model.RetailBid, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RetailBid{}
	for rows.Next() {
		rb, err := scanRetailBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rb)
	}
	return out, rows.Err()
}

// CreateTx inserts a retail bid within the provided transaction and
// reloads it to populate the ID, timestamps and status code.
func (r *RetailBidRepo) CreateTx(ctx context.Context, tx *sql.Tx, rb *model.RetailBid) error {
	const q = `INSERT INTO retail_bids (bid_id, user_id, seat_booked, amount_cents, status_id) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rb.BidID, rb.UserID, rb.SeatBooked, rb.AmountCents, rb.StatusID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.getByID(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*rb = *got
	return nil
}

// GetByID returns a retail bid or ErrRetailBidNotFound.
func (r *RetailBidRepo) GetByID(ctx context.Context, id uint64) (*model.RetailBid, error) {
	return r.getByID(ctx, r.db, id)
}

// GetByIDTx reads a retail bid inside the caller's transaction.
func (r *RetailBidRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.RetailBid, error) {
	return r.getByID(ctx, tx, id)
}

func (r *RetailBidRepo) getByID(ctx context.Context, q querier, id uint64) (*model.RetailBid, error) {
	rb, err := scanRetailBid(q.QueryRowContext(ctx, retailBidSelect+` WHERE rb.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRetailBidNotFound
	}
	return rb, err
}

// ListByBid returns every retail bid of a bid in submission order.
func (r *RetailBidRepo) ListByBid(ctx context.Context, bidID uint64) ([]model.RetailBid, error) {
	return listRetailBids(ctx, r.db, retailBidSelect+` WHERE rb.bid_id = ? ORDER BY rb.id`, bidID)
}

// ListByBidTx is like ListByBid but reads inside the caller's transaction.
func (r *RetailBidRepo) ListByBidTx(ctx context.Context, tx *sql.Tx, bidID uint64) ([]model.RetailBid, error) {
	return listRetailBids(ctx, tx, retailBidSelect+` WHERE rb.bid_id = ? ORDER BY rb.id`, bidID)
}

// ListByBids groups the retail bids of several bids by bid ID.  Bids
// without retail bids are absent from the map.
func (r *RetailBidRepo) ListByBids(ctx context.Context, bidIDs []uint64) (map[uint64][]model.RetailBid, error) {
	out := make(map[uint64][]model.RetailBid, len(bidIDs))
	if len(bidIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(bidIDs))
	for _, id := range bidIDs {
		args = append(args, id)
	}
	all, err := listRetailBids(ctx, r.db, retailBidSelect+` WHERE rb.bid_id IN (`+placeholders(len(bidIDs))+`) ORDER BY rb.id`, args...)
	if err != nil {
		return nil, err
	}
	for _, rb := range all {
		out[rb.BidID] = append(out[rb.BidID], rb)
	}
	return out, nil
}

// ListByUser returns the retail bids submitted by a user, newest first.
func (r *RetailBidRepo) ListByUser(ctx context.Context, userID uint64) ([]model.RetailBid, error) {
	return listRetailBids(ctx, r.db, retailBidSelect+` WHERE rb.user_id = ? ORDER BY rb.id DESC`, userID)
}

// UpdateStatus sets the status of a retail bid.
func (r *RetailBidRepo) UpdateStatus(ctx context.Context, id, statusID uint64) error {
	return updateStatus(ctx, r.db, "retail_bids", id, statusID, ErrRetailBidNotFound)
}

// UpdateStatusTx is like UpdateStatus but runs inside the caller's transaction.
func (r *RetailBidRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, statusID uint64) error {
	return updateStatus(ctx, tx, "retail_bids", id, statusID, ErrRetailBidNotFound)
}
