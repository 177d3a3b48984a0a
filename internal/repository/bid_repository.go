package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// BidRepo manages persistence for bids.  Reads join the statuses table
// so every returned bid carries its StatusCode.
type BidRepo struct {
	db *sql.DB
}

// NewBidRepo constructs a BidRepo with the given DB handle.
func NewBidRepo(db *sql.DB) *BidRepo { return &BidRepo{db: db} }

const bidColumns = `b.id, b.total_seats_available, b.min_amount_cents, b.config, b.status_id, s.code,
                    b.created_by, b.created_at, b.updated_at`

const bidFrom = ` FROM bids b JOIN statuses s ON s.id = b.status_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*model.Bid, error) {
	var (
		b      model.Bid
		seats  sql.NullInt64
		config sql.NullString
		code   string
	)
	if err := row.Scan(&b.ID, &seats, &b.MinAmountCents, &config, &b.StatusID, &code,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if seats.Valid {
		n := int(seats.Int64)
		b.TotalSeatsAvailable = &n
	}
	b.Config = config.String
	b.StatusCode = model.StatusCode(code)
	return &b, nil
}

// Create inserts a new bid and reloads it to populate the generated ID,
// timestamps and status code.
func (r *BidRepo) Create(ctx context.Context, b *model.Bid) error {
	return r.create(ctx, r.db, b)
}

func (r *BidRepo) create(ctx context.Context, q querier, b *model.Bid) error {
	const ins = `INSERT INTO bids (total_seats_available, min_amount_cents, config, status_id, created_by) VALUES (?, ?, ?, ?, ?)`
	var seats any
	if b.TotalSeatsAvailable != nil {
		seats = *b.TotalSeatsAvailable
	}
	var config any
	if b.Config != "" {
		config = b.Config
	}
	res, err := q.ExecContext(ctx, ins, seats, b.MinAmountCents, config, b.StatusID, b.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.getByID(ctx, q, uint64(id))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID retrieves a bid by its ID.  It returns ErrBidNotFound if there
// is no matching row.
func (r *BidRepo) GetByID(ctx context.Context, id uint64) (*model.Bid, error) {
	return r.getByID(ctx, r.db, id)
}

// GetByIDForUpdateTx locks the bid row for the rest of the transaction
// and returns it.  Concurrent submissions against the same bid queue on
// this lock, so the availability they compute cannot go stale before
// they insert.
func (r *BidRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Bid, error) {
	var locked uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM bids WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, tx, id)
}

func (r *BidRepo) getByID(ctx context.Context, q querier, id uint64) (*model.Bid, error) {
	b, err := scanBid(q.QueryRowContext(ctx, `SELECT `+bidColumns+bidFrom+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	return b, err
}

// List returns a page of bids, newest first.
func (r *BidRepo) List(ctx context.Context, limit, offset int) ([]model.Bid, error) {
	q := `SELECT ` + bidColumns + bidFrom + ` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	return r.list(ctx, q, limit, offset)
}

// ListByStatuses returns every bid whose status code is one of codes,
// oldest first.
func (r *BidRepo) ListByStatuses(ctx context.Context, codes []model.StatusCode) ([]model.Bid, error) {
	if len(codes) == 0 {
		return []model.Bid{}, nil
	}
	args := make([]any, 0, len(codes))
	for _, c := range codes {
		args = append(args, string(c))
	}
	q := `SELECT ` + bidColumns + bidFrom + ` WHERE s.code IN (` + placeholders(len(codes)) + `) ORDER BY b.id`
	return r.list(ctx, q, args...)
}

func (r *BidRepo) list(ctx context.Context, q string, args ...any) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a bid.
func (r *BidRepo) UpdateStatus(ctx context.Context, id, statusID uint64) error {
	return updateStatus(ctx, r.db, "bids", id, statusID, ErrBidNotFound)
}

// UpdateStatusTx is like UpdateStatus but runs inside the caller's transaction.
func (r *BidRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, statusID uint64) error {
	return updateStatus(ctx, tx, "bids", id, statusID, ErrBidNotFound)
}
