package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/group-travel-bidding/internal/model"
)

// BidStore is the persistence surface the bidding service needs.  Store
// implements it over MySQL; tests substitute stubs.
type BidStore interface {
	CreateBid(ctx context.Context, b *model.Bid) error
	GetBid(ctx context.Context, id uint64) (*model.Bid, error)
	ListBids(ctx context.Context, limit, offset int) ([]model.Bid, error)
	ListBidsByStatuses(ctx context.Context, codes []model.StatusCode) ([]model.Bid, error)
	ListRetailBids(ctx context.Context, bidID uint64) ([]model.RetailBid, error)
	ListRetailBidsByBids(ctx context.Context, bidIDs []uint64) (map[uint64][]model.RetailBid, error)
	ListRetailBidsByUser(ctx context.Context, userID uint64) ([]model.RetailBid, error)
	GetRetailBid(ctx context.Context, id uint64) (*model.RetailBid, error)
	ListPayments(ctx context.Context, bidID uint64) ([]model.BidPayment, error)
	GetPayment(ctx context.Context, id uint64) (*model.BidPayment, error)
	UpdateBidStatus(ctx context.Context, id, statusID uint64) error
	UpdateRetailBidStatus(ctx context.Context, id, statusID uint64) error
	UpdatePaymentStatus(ctx context.Context, id, statusID uint64) error

	// InTx runs fn inside one transaction, committing when fn returns nil
	// and rolling back otherwise.
	InTx(ctx context.Context, fn func(tx BidStoreTx) error) error
}

// BidStoreTx is the transactional subset of BidStore.  LockBid must be
// called before reading children that a write decision depends on.
type BidStoreTx interface {
	LockBid(ctx context.Context, id uint64) (*model.Bid, error)
	ListRetailBids(ctx context.Context, bidID uint64) ([]model.RetailBid, error)
	ListPayments(ctx context.Context, bidID uint64) ([]model.BidPayment, error)
	ListPaymentsByRetailBid(ctx context.Context, retailBidID uint64) ([]model.BidPayment, error)
	GetRetailBid(ctx context.Context, id uint64) (*model.RetailBid, error)
	CreateRetailBid(ctx context.Context, rb *model.RetailBid) error
	CreateBidPayment(ctx context.Context, p *model.BidPayment) error
	UpdateBidStatus(ctx context.Context, id, statusID uint64) error
	UpdateRetailBidStatus(ctx context.Context, id, statusID uint64) error
}

// Store composes the bidding repositories behind BidStore.
type Store struct {
	db         *sql.DB
	Bids       *BidRepo
	RetailBids *RetailBidRepo
	Payments   *BidPaymentRepo
	Statuses   *StatusRepo
}

// NewStore wires every repository to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Bids:       NewBidRepo(db),
		RetailBids: NewRetailBidRepo(db),
		Payments:   NewBidPaymentRepo(db),
		Statuses:   NewStatusRepo(db),
	}
}

func (s *Store) CreateBid(ctx context.Context, b *model.Bid) error { return s.Bids.Create(ctx, b) }

func (s *Store) GetBid(ctx context.Context, id uint64) (*model.Bid, error) {
	return s.Bids.GetByID(ctx, id)
}

func (s *Store) ListBids(ctx context.Context, limit, offset int) ([]model.Bid, error) {
	return s.Bids.List(ctx, limit, offset)
}

func (s *Store) ListBidsByStatuses(ctx context.Context, codes []model.StatusCode) ([]model.Bid, error) {
	return s.Bids.ListByStatuses(ctx, codes)
}

func (s *Store) ListRetailBids(ctx context.Context, bidID uint64) ([]model.RetailBid, error) {
	return s.RetailBids.ListByBid(ctx, bidID)
}

func (s *Store) ListRetailBidsByBids(ctx context.Context, bidIDs []uint64) (map[uint64][]model.RetailBid, error) {
	return s.RetailBids.ListByBids(ctx, bidIDs)
}

func (s *Store) ListRetailBidsByUser(ctx context.Context, userID uint64) ([]model.RetailBid, error) {
	return s.RetailBids.ListByUser(ctx, userID)
}

func (s *Store) GetRetailBid(ctx context.Context, id uint64) (*model.RetailBid, error) {
	return s.RetailBids.GetByID(ctx, id)
}

func (s *Store) ListPayments(ctx context.Context, bidID uint64) ([]model.BidPayment, error) {
	return s.Payments.ListByBid(ctx, bidID)
}

func (s *Store) GetPayment(ctx context.Context, id uint64) (*model.BidPayment, error) {
	return s.Payments.GetByID(ctx, id)
}

func (s *Store) UpdateBidStatus(ctx context.Context, id, statusID uint64) error {
	return s.Bids.UpdateStatus(ctx, id, statusID)
}

func (s *Store) UpdateRetailBidStatus(ctx context.Context, id, statusID uint64) error {
	return s.RetailBids.UpdateStatus(ctx, id, statusID)
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id, statusID uint64) error {
	return s.Payments.UpdateStatus(ctx, id, statusID)
}

// InTx implements BidStore.
func (s *Store) InTx(ctx context.Context, fn func(tx BidStoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txStore{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// txStore binds the repositories to one *sql.Tx.
type txStore struct {
	s  *Store
	tx *sql.Tx
}

func (t *txStore) LockBid(ctx context.Context, id uint64) (*model.Bid, error) {
	return t.s.Bids.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) ListRetailBids(ctx context.Context, bidID uint64) ([]model.RetailBid, error) {
	return t.s.RetailBids.ListByBidTx(ctx, t.tx, bidID)
}

func (t *txStore) ListPayments(ctx context.Context, bidID uint64) ([]model.BidPayment, error) {
	return t.s.Payments.ListByBidTx(ctx, t.tx, bidID)
}

func (t *txStore) ListPaymentsByRetailBid(ctx context.Context, retailBidID uint64) ([]model.BidPayment, error) {
	return t.s.Payments.ListByRetailBidTx(ctx, t.tx, retailBidID)
}

func (t *txStore) GetRetailBid(ctx context.Context, id uint64) (*model.RetailBid, error) {
	return t.s.RetailBids.GetByIDTx(ctx, t.tx, id)
}

func (t *txStore) CreateRetailBid(ctx context.Context, rb *model.RetailBid) error {
	return t.s.RetailBids.CreateTx(ctx, t.tx, rb)
}

func (t *txStore) CreateBidPayment(ctx context.Context, p *model.BidPayment) error {
	return t.s.Payments.CreateTx(ctx, t.tx, p)
}

func (t *txStore) UpdateBidStatus(ctx context.Context, id, statusID uint64) error {
	return t.s.Bids.UpdateStatusTx(ctx, t.tx, id, statusID)
}

func (t *txStore) UpdateRetailBidStatus(ctx context.Context, id, statusID uint64) error {
	return t.s.RetailBids.UpdateStatusTx(ctx, t.tx, id, statusID)
}

var _ BidStore = (*Store)(nil)
