package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/queue"
	"github.com/iliyamo/group-travel-bidding/internal/repository"
)

var allCodes = []model.StatusCode{
	model.StatusOpen, model.StatusUnderReview, model.StatusApproved, model.StatusRejected,
	model.StatusActive, model.StatusClosed, model.StatusCompleted, model.StatusExpired, model.StatusDraft,
}

// testCatalog numbers the statuses from 10 so a zero id never resolves.
func testCatalog(except ...model.StatusCode) *model.StatusCatalog {
	skip := map[model.StatusCode]bool{}
	for _, c := range except {
		skip[c] = true
	}
	var entries []model.StatusEntry
	for i, c := range allCodes {
		if skip[c] {
			continue
		}
		entries = append(entries, model.StatusEntry{ID: uint64(10 + i), Code: c, Name: c.Name()})
	}
	return model.NewStatusCatalog(entries)
}

// memStore is an in-memory BidStore.  InTx snapshots the maps and
// restores them when fn fails.
type memStore struct {
	mu       sync.Mutex
	catalog  *model.StatusCatalog
	nextID   uint64
	bids     map[uint64]model.Bid
	retail   map[uint64]model.RetailBid
	payments map[uint64]model.BidPayment

	childrenErr error
	createErr   error
	locks       int
}

func newMemStore(catalog *model.StatusCatalog) *memStore {
	return &memStore{
		catalog:  catalog,
		nextID:   100,
		bids:     map[uint64]model.Bid{},
		retail:   map[uint64]model.RetailBid{},
		payments: map[uint64]model.BidPayment{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

func (m *memStore) code(id uint64) model.StatusCode {
	c, _ := m.catalog.CodeForID(id)
	return c
}

func (m *memStore) addBid(seats *int, minAmount int64, config string, code model.StatusCode) model.Bid {
	id, _ := m.catalog.IDForCode(code)
	b := model.Bid{ID: m.id(), TotalSeatsAvailable: seats, MinAmountCents: minAmount, Config: config, StatusID: id, StatusCode: code}
	m.bids[b.ID] = b
	return b
}

func (m *memStore) addRetail(bidID, userID uint64, seats int, amount int64, code model.StatusCode) model.RetailBid {
	id, _ := m.catalog.IDForCode(code)
	rb := model.RetailBid{ID: m.id(), BidID: bidID, UserID: userID, SeatBooked: seats, AmountCents: amount, StatusID: id, StatusCode: code}
	m.retail[rb.ID] = rb
	return rb
}

func (m *memStore) addPayment(rb model.RetailBid, amount int64, code model.StatusCode) model.BidPayment {
	id, _ := m.catalog.IDForCode(code)
	p := model.BidPayment{ID: m.id(), RetailBidID: rb.ID, BidID: rb.BidID, UserID: rb.UserID, AmountCents: amount,
		StatusID: id, StatusCode: code, ProcessedAt: time.Now()}
	p.PaymentRef = fmt.Sprintf("ref-%d", p.ID)
	m.payments[p.ID] = p
	return p
}

func (m *memStore) CreateBid(_ context.Context, b *model.Bid) error {
	if m.createErr != nil {
		return m.createErr
	}
	b.ID = m.id()
	b.StatusCode = m.code(b.StatusID)
	m.bids[b.ID] = *b
	return nil
}

func (m *memStore) GetBid(_ context.Context, id uint64) (*model.Bid, error) {
	b, ok := m.bids[id]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	return &b, nil
}

func (m *memStore) ListBids(_ context.Context, limit, offset int) ([]model.Bid, error) {
	var out []model.Bid
	for _, b := range m.bids {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListBidsByStatuses(_ context.Context, codes []model.StatusCode) ([]model.Bid, error) {
	var out []model.Bid
	for _, b := range m.bids {
		for _, c := range codes {
			if b.StatusCode == c {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListRetailBids(_ context.Context, bidID uint64) ([]model.RetailBid, error) {
	if m.childrenErr != nil {
		return nil, m.childrenErr
	}
	out := []model.RetailBid{}
	for _, rb := range m.retail {
		if rb.BidID == bidID {
			out = append(out, rb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListRetailBidsByBids(ctx context.Context, bidIDs []uint64) (map[uint64][]model.RetailBid, error) {
	out := map[uint64][]model.RetailBid{}
	for _, id := range bidIDs {
		rbs, err := m.ListRetailBids(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rbs
	}
	return out, nil
}

func (m *memStore) ListRetailBidsByUser(_ context.Context, userID uint64) ([]model.RetailBid, error) {
	out := []model.RetailBid{}
	for _, rb := range m.retail {
		if rb.UserID == userID {
			out = append(out, rb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) GetRetailBid(_ context.Context, id uint64) (*model.RetailBid, error) {
	rb, ok := m.retail[id]
	if !ok {
		return nil, repository.ErrRetailBidNotFound
	}
	return &rb, nil
}

func (m *memStore) ListPayments(_ context.Context, bidID uint64) ([]model.BidPayment, error) {
	if m.childrenErr != nil {
		return nil, m.childrenErr
	}
	out := []model.BidPayment{}
	for _, p := range m.payments {
		if p.BidID == bidID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListPaymentsByRetailBid(_ context.Context, retailBidID uint64) ([]model.BidPayment, error) {
	out := []model.BidPayment{}
	for _, p := range m.payments {
		if p.RetailBidID == retailBidID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPayment(_ context.Context, id uint64) (*model.BidPayment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *memStore) UpdateBidStatus(_ context.Context, id, statusID uint64) error {
	b, ok := m.bids[id]
	if !ok {
		return repository.ErrBidNotFound
	}
	b.StatusID, b.StatusCode = statusID, m.code(statusID)
	m.bids[id] = b
	return nil
}

func (m *memStore) UpdateRetailBidStatus(_ context.Context, id, statusID uint64) error {
	rb, ok := m.retail[id]
	if !ok {
		return repository.ErrRetailBidNotFound
	}
	rb.StatusID, rb.StatusCode = statusID, m.code(statusID)
	m.retail[id] = rb
	return nil
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, id, statusID uint64) error {
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	p.StatusID, p.StatusCode = statusID, m.code(statusID)
	m.payments[id] = p
	return nil
}

func (m *memStore) LockBid(ctx context.Context, id uint64) (*model.Bid, error) {
	m.locks++
	return m.GetBid(ctx, id)
}

func (m *memStore) CreateRetailBid(_ context.Context, rb *model.RetailBid) error {
	if m.createErr != nil {
		return m.createErr
	}
	rb.ID = m.id()
	rb.StatusCode = m.code(rb.StatusID)
	m.retail[rb.ID] = *rb
	return nil
}

func (m *memStore) CreateBidPayment(_ context.Context, p *model.BidPayment) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.payments {
		if existing.PaymentRef == p.PaymentRef {
			return repository.ErrConflict
		}
	}
	p.ID = m.id()
	m.payments[p.ID] = *p
	return nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx repository.BidStoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bids, retail, payments := copyMap(m.bids), copyMap(m.retail), copyMap(m.payments)
	if err := fn(m); err != nil {
		m.bids, m.retail, m.payments = bids, retail, payments
		return err
	}
	return nil
}

func copyMap[V any](in map[uint64]V) map[uint64]V {
	out := make(map[uint64]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ repository.BidStore   = (*memStore)(nil)
	_ repository.BidStoreTx = (*memStore)(nil)
)

// recordingPublisher keeps published events.
type recordingPublisher struct {
	events []queue.BidEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BidEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// stubCapturer returns ref or err.  onCapture runs after a successful
// capture, which lets a test commit a competing payment in between.
type stubCapturer struct {
	ref       string
	err       error
	calls     int
	onCapture func()
	voids     []string
	voidErr   error
}

func (c *stubCapturer) Capture(context.Context, PaymentRequest) (string, error) {
	c.calls++
	if c.err == nil && c.onCapture != nil {
		c.onCapture()
	}
	return c.ref, c.err
}

func (c *stubCapturer) Void(_ context.Context, ref string) error {
	c.voids = append(c.voids, ref)
	return c.voidErr
}

// captureOnly cannot void.
type captureOnly struct{ onCapture func() }

func (c captureOnly) Capture(context.Context, PaymentRequest) (string, error) {
	c.onCapture()
	return "gw_1", nil
}

// countingCache counts invalidations.
type countingCache struct {
	calls int
	err   error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return c.err
}

var errDB = errors.New("connection reset")

type fixture struct {
	svc   *BiddingService
	store *memStore
	pub   *recordingPublisher
	cap   *stubCapturer
	cache *countingCache
	logs  *test.Hook
	now   time.Time
}

func newFixture(opts Options) *fixture {
	catalog := testCatalog()
	store := newMemStore(catalog)
	pub := &recordingPublisher{}
	capt := &stubCapturer{ref: "sim_ref"}
	cache := &countingCache{}
	if opts.Cache == nil {
		opts.Cache = cache
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	svc := NewBiddingService(store, catalog, pub, capt, logger, opts)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, store: store, pub: pub, cap: capt, cache: cache, logs: hook, now: now}
}

func seats(n int) *int { return &n }

func uid(v uint64) *uint64 { return &v }

func newNullLogger() (*logrus.Logger, *test.Hook) { return test.NewNullLogger() }
