// Package service holds the bidding use cases: creating bids, taking
// retail bids and payments, resolving what each viewer sees and settling
// bids whose window has closed.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/group-travel-bidding/internal/bidding"
	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/queue"
	"github.com/iliyamo/group-travel-bidding/internal/repository"
)

// CacheInvalidator is told whenever a write changes what bid readers
// see, so cached listing and detail responses are not served stale.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Options tune a BiddingService.
type Options struct {
	// StatusFallback lets GetBidWithDetails answer with the legacy
	// resolver when children of a bid cannot be loaded.
	StatusFallback bool
	// Cache is invalidated after every committed write.  Nil disables it.
	Cache CacheInvalidator
}

// BiddingService implements the bidding use cases over a BidStore.
type BiddingService struct {
	store     repository.BidStore
	catalog   *model.StatusCatalog
	publisher EventPublisher
	capturer  PaymentCapturer
	log       logrus.FieldLogger
	opts      Options

	resolver bidding.StatusResolver
	legacy   bidding.StatusResolver
	now      func() time.Time
}

// NewBiddingService wires a service.  A nil publisher drops events and a
// nil capturer falls back to SimulatedCapturer.
func NewBiddingService(store repository.BidStore, catalog *model.StatusCatalog, publisher EventPublisher,
	capturer PaymentCapturer, log logrus.FieldLogger, opts Options) *BiddingService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if capturer == nil {
		capturer = SimulatedCapturer{}
	}
	return &BiddingService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		capturer:  capturer,
		log:       log,
		opts:      opts,
		resolver:  bidding.Resolver{},
		legacy:    bidding.LegacyResolver{},
		now:       time.Now,
	}
}

// statusID translates a code through the catalog.  A missing row is a
// deployment fault and is never papered over with a default.
func (s *BiddingService) statusID(code model.StatusCode) (uint64, error) {
	id, ok := s.catalog.IDForCode(code)
	if !ok {
		return 0, fmt.Errorf("%s %w", code.Name(), ErrStatusNotFound)
	}
	return id, nil
}

// parseStatus validates a code supplied by a caller.
func parseStatus(raw string) (model.StatusCode, error) {
	code := model.StatusCode(raw)
	if !code.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return code, nil
}

// isDomainErr reports whether err is an expected outcome rather than a
// data-layer failure.
func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidStatus, ErrStatusNotFound,
		ErrBidNotOpen, ErrAmountTooLow, ErrDuplicateRetailBid, ErrInsufficientSeats,
		ErrRetailBidRejected, ErrPaymentAlreadyCompleted, ErrPaymentFailed,
		repository.ErrBidNotFound, repository.ErrRetailBidNotFound, repository.ErrPaymentNotFound,
		repository.ErrForbidden, repository.ErrConflict,
		context.Canceled, context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail logs data-layer errors with their context before returning them
// wrapped.  Domain errors are returned untouched.
func (s *BiddingService) fail(op string, err error, fields logrus.Fields) error {
	if isDomainErr(err) {
		return err
	}
	s.log.WithFields(fields).WithError(err).Errorf("%s failed", op)
	return fmt.Errorf("%s: %w", op, err)
}

// committed runs after a write is durable: it invalidates cached reads
// once, then publishes evs.  Both are best effort; failures are logged
// and never reach the caller.
func (s *BiddingService) committed(ctx context.Context, evs ...queue.BidEvent) {
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
			s.log.WithError(err).Warn("response cache invalidation failed")
		}
	}
	for _, ev := range evs {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.WithFields(logrus.Fields{"event_type": ev.Type, "bid_id": ev.BidID}).WithError(err).
				Warn("event publish failed")
		}
	}
}

// CreateBidInput describes a new bid.  Status defaults to Open.
type CreateBidInput struct {
	TotalSeats     *int
	MinAmountCents int64
	Config         json.RawMessage
	Status         string
	CreatedBy      uint64
}

// CreateBid validates and stores a new bid.
func (s *BiddingService) CreateBid(ctx context.Context, in CreateBidInput) (*model.Bid, error) {
	if in.TotalSeats != nil && *in.TotalSeats <= 0 {
		return nil, fmt.Errorf("%w: total seats must be positive", ErrInvalidInput)
	}
	if in.MinAmountCents < 0 {
		return nil, fmt.Errorf("%w: minimum amount must not be negative", ErrInvalidInput)
	}
	var config string
	if len(in.Config) > 0 && string(in.Config) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.Config, &obj); err != nil {
			return nil, fmt.Errorf("%w: config must be a JSON object", ErrInvalidInput)
		}
		config = string(in.Config)
	}
	code := model.StatusOpen
	if in.Status != "" {
		c, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		code = c
	}
	statusID, err := s.statusID(code)
	if err != nil {
		return nil, err
	}

	b := &model.Bid{
		TotalSeatsAvailable: in.TotalSeats,
		MinAmountCents:      in.MinAmountCents,
		Config:              config,
		StatusID:            statusID,
		CreatedBy:           in.CreatedBy,
	}
	if err := s.store.CreateBid(ctx, b); err != nil {
		return nil, s.fail("create bid", err, logrus.Fields{"created_by": in.CreatedBy})
	}
	s.committed(ctx, queue.BidEvent{Type: queue.EventBidCreated, BidID: b.ID, UserID: in.CreatedBy, Status: string(b.StatusCode)})
	return b, nil
}

// CreateRetailBidInput describes a user's claim on seats of a bid.
// Status overrides the initial Under Review code when set.
type CreateRetailBidInput struct {
	BidID       uint64
	UserID      uint64
	Seats       int
	AmountCents int64
	Status      string
}

// acceptingRetailBids reports whether a bid takes new retail bids at now.
func acceptingRetailBids(bid model.Bid, cfg model.BidConfig, now time.Time) bool {
	if bid.StatusCode != model.StatusOpen && bid.StatusCode != model.StatusActive {
		return false
	}
	if start, ok := cfg.WindowStart(); ok && now.Before(start) {
		return false
	}
	if end, ok := cfg.WindowEnd(); ok && !now.Before(end) {
		return false
	}
	return true
}

// CreateRetailBid submits a retail bid.  The bid row stays locked from
// the availability check until the insert commits, so two concurrent
// submissions cannot both take the last seats.
func (s *BiddingService) CreateRetailBid(ctx context.Context, in CreateRetailBidInput) (*model.RetailBid, error) {
	if in.Seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", ErrInvalidInput)
	}
	if in.AmountCents < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	code := model.StatusUnderReview
	if in.Status != "" {
		c, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		code = c
	}
	statusID, err := s.statusID(code)
	if err != nil {
		return nil, err
	}

	var created model.RetailBid
	err = s.store.InTx(ctx, func(tx repository.BidStoreTx) error {
		bid, err := tx.LockBid(ctx, in.BidID)
		if err != nil {
			return err
		}
		cfg := model.ParseBidConfig(bid.Config)
		if !acceptingRetailBids(*bid, cfg, s.now()) {
			return ErrBidNotOpen
		}
		if in.AmountCents < bid.MinAmountCents {
			return fmt.Errorf("%w: minimum is %d cents", ErrAmountTooLow, bid.MinAmountCents)
		}
		rbs, err := tx.ListRetailBids(ctx, bid.ID)
		if err != nil {
			return err
		}
		if own := bidding.ViewerRetailBid(rbs, in.UserID); own != nil && own.StatusCode != model.StatusRejected {
			return ErrDuplicateRetailBid
		}
		if code.CountsAgainstCapacity() {
			avail := bidding.ComputeAvailability(*bid, cfg, rbs)
			if in.Seats > avail.AvailableSeats {
				return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientSeats, in.Seats, avail.DisplayAvailableSeats)
			}
		}
		created = model.RetailBid{
			BidID:       bid.ID,
			UserID:      in.UserID,
			SeatBooked:  in.Seats,
			AmountCents: in.AmountCents,
			StatusID:    statusID,
		}
		return tx.CreateRetailBid(ctx, &created)
	})
	if err != nil {
		return nil, s.fail("create retail bid", err, logrus.Fields{"bid_id": in.BidID, "user_id": in.UserID})
	}
	s.committed(ctx, queue.BidEvent{
		Type:        queue.EventRetailBidSubmitted,
		BidID:       created.BidID,
		RetailBidID: created.ID,
		UserID:      created.UserID,
		Status:      string(created.StatusCode),
		Seats:       created.SeatBooked,
		AmountCents: created.AmountCents,
	})
	return &created, nil
}

// CreateBidPaymentInput records a payment for a retail bid.  PaymentRef
// is the provider reference of an already captured payment; Status
// defaults to Approved and ProcessedAt to now.
type CreateBidPaymentInput struct {
	RetailBidID uint64
	UserID      uint64
	AmountCents int64
	PaymentRef  string
	Status      string
	ProcessedAt *time.Time
}

// payable checks that userID may pay for rb.  payments are the existing
// payments of rb.
func payable(rb model.RetailBid, cfg model.BidConfig, payments []model.BidPayment, userID uint64) error {
	if rb.UserID != userID {
		return repository.ErrForbidden
	}
	if rb.StatusCode == model.StatusRejected {
		return ErrRetailBidRejected
	}
	if cfg.PaymentCompletedFor(userID) {
		return ErrPaymentAlreadyCompleted
	}
	for _, p := range payments {
		if p.StatusCode != model.StatusRejected {
			return ErrPaymentAlreadyCompleted
		}
	}
	return nil
}

// CreateBidPayment stores a payment for an already captured amount.  It
// does not talk to the payment provider; PayRetailBid does.
func (s *BiddingService) CreateBidPayment(ctx context.Context, in CreateBidPaymentInput) (*model.BidPayment, error) {
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if in.PaymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidInput)
	}
	code := model.StatusApproved
	if in.Status != "" {
		c, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		code = c
	}
	statusID, err := s.statusID(code)
	if err != nil {
		return nil, err
	}
	processedAt := s.now().UTC()
	if in.ProcessedAt != nil {
		processedAt = in.ProcessedAt.UTC()
	}

	var p model.BidPayment
	err = s.store.InTx(ctx, func(tx repository.BidStoreTx) error {
		rb, err := tx.GetRetailBid(ctx, in.RetailBidID)
		if err != nil {
			return err
		}
		if rb.UserID != in.UserID {
			return repository.ErrForbidden
		}
		bid, err := tx.LockBid(ctx, rb.BidID)
		if err != nil {
			return err
		}
		// re-read under the bid lock
		rb, err = tx.GetRetailBid(ctx, in.RetailBidID)
		if err != nil {
			return err
		}
		existing, err := tx.ListPaymentsByRetailBid(ctx, rb.ID)
		if err != nil {
			return err
		}
		if err := payable(*rb, model.ParseBidConfig(bid.Config), existing, in.UserID); err != nil {
			return err
		}
		p = model.BidPayment{
			RetailBidID: rb.ID,
			BidID:       bid.ID,
			UserID:      in.UserID,
			AmountCents: in.AmountCents,
			PaymentRef:  in.PaymentRef,
			StatusID:    statusID,
			StatusCode:  code,
			ProcessedAt: processedAt,
		}
		return tx.CreateBidPayment(ctx, &p)
	})
	if err != nil {
		return nil, s.fail("create bid payment", err, logrus.Fields{"retail_bid_id": in.RetailBidID, "user_id": in.UserID})
	}
	s.committed(ctx, queue.BidEvent{
		Type:        queue.EventPaymentCaptured,
		BidID:       p.BidID,
		RetailBidID: p.RetailBidID,
		PaymentID:   p.ID,
		UserID:      p.UserID,
		Status:      string(p.StatusCode),
		AmountCents: p.AmountCents,
		PaymentRef:  p.PaymentRef,
	})
	return &p, nil
}

// PayRetailBidInput is a customer's request to pay for a retail bid.
// AmountCents defaults to the amount of the retail bid.
type PayRetailBidInput struct {
	RetailBidID uint64
	UserID      uint64
	AmountCents int64
}

// PayRetailBid checks the retail bid is payable, captures the amount
// through the PaymentCapturer and records the payment.  The checks run
// again inside CreateBidPayment under the bid lock.
func (s *BiddingService) PayRetailBid(ctx context.Context, in PayRetailBidInput) (*model.BidPayment, error) {
	rb, err := s.store.GetRetailBid(ctx, in.RetailBidID)
	if err != nil {
		return nil, s.fail("load retail bid", err, logrus.Fields{"retail_bid_id": in.RetailBidID})
	}
	if rb.UserID != in.UserID {
		return nil, repository.ErrForbidden
	}
	bid, err := s.store.GetBid(ctx, rb.BidID)
	if err != nil {
		return nil, s.fail("load bid", err, logrus.Fields{"bid_id": rb.BidID})
	}
	payments, err := s.store.ListPayments(ctx, bid.ID)
	if err != nil {
		return nil, s.fail("list payments", err, logrus.Fields{"bid_id": bid.ID})
	}
	var existing []model.BidPayment
	for _, p := range payments {
		if p.RetailBidID == rb.ID {
			existing = append(existing, p)
		}
	}
	if err := payable(*rb, model.ParseBidConfig(bid.Config), existing, in.UserID); err != nil {
		return nil, err
	}

	amount := in.AmountCents
	if amount == 0 {
		amount = rb.AmountCents
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	ref, err := s.capturer.Capture(ctx, PaymentRequest{RetailBidID: rb.ID, UserID: in.UserID, AmountCents: amount})
	if err != nil {
		s.log.WithFields(logrus.Fields{"retail_bid_id": rb.ID, "user_id": in.UserID}).WithError(err).Warn("payment capture failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	p, err := s.CreateBidPayment(ctx, CreateBidPaymentInput{
		RetailBidID: rb.ID,
		UserID:      in.UserID,
		AmountCents: amount,
		PaymentRef:  ref,
	})
	if err != nil {
		s.releaseCapture(ctx, ref, rb, err)
		return nil, err
	}
	return p, nil
}

// releaseCapture handles money taken for a payment that could not be
// recorded, usually because a concurrent payment won the bid lock.  The
// reference is logged at error level and voided when the capturer
// supports it.
func (s *BiddingService) releaseCapture(ctx context.Context, ref string, rb *model.RetailBid, cause error) {
	log := s.log.WithFields(logrus.Fields{"payment_ref": ref, "retail_bid_id": rb.ID, "user_id": rb.UserID})
	voider, ok := s.capturer.(PaymentVoider)
	if !ok {
		log.WithError(cause).Error("captured payment not recorded and cannot be voided")
		return
	}
	if err := voider.Void(context.WithoutCancel(ctx), ref); err != nil {
		log.WithError(errors.Join(cause, err)).Error("captured payment not recorded and void failed")
		return
	}
	log.WithError(cause).Error("captured payment not recorded, capture voided")
}

// BidView is the bid part of BidDetails.
type BidView struct {
	ID             uint64           `json:"id"`
	MinAmountCents int64            `json:"min_amount_cents"`
	BidStatus      model.StatusCode `json:"bid_status"`
	CreatedBy      uint64           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Config         map[string]any   `json:"config"`
}

// BidDetails is a bid as one viewer sees it.  Degraded is set when the
// answer came from the legacy resolver because children failed to load;
// seat counts are then unknown and Availability is nil, which leaves the
// seat fields out of the JSON.
type BidDetails struct {
	BidView
	*bidding.Availability
	bidding.ViewerStatus
	Degraded bool `json:"degraded"`
}

func newBidView(s bidding.Snapshot) BidView {
	cfg := s.Config.Raw
	if cfg == nil {
		cfg = map[string]any{}
	}
	return BidView{
		ID:             s.Bid.ID,
		MinAmountCents: s.Bid.MinAmountCents,
		BidStatus:      s.Bid.StatusCode,
		CreatedBy:      s.Bid.CreatedBy,
		CreatedAt:      s.Bid.CreatedAt,
		UpdatedAt:      s.Bid.UpdatedAt,
		Config:         cfg,
	}
}

func (s *BiddingService) details(snap bidding.Snapshot, viewerID *uint64) BidDetails {
	avail := snap.Availability
	if avail.CapacitySource == bidding.CapacityFromDefault {
		s.log.WithField("bid_id", snap.Bid.ID).
			Warnf("bid has no capacity configured, using default of %d seats", bidding.DefaultCapacity)
	}
	if avail.Overbooked {
		s.log.WithFields(logrus.Fields{"bid_id": snap.Bid.ID, "available_seats": avail.AvailableSeats}).
			Warn("bid is overbooked")
	}
	return BidDetails{
		BidView:      newBidView(snap),
		Availability: &avail,
		ViewerStatus: s.resolver.Resolve(snap, viewerID),
	}
}

// GetBidWithDetails loads a bid with its retail bids and payments and
// resolves the status viewerID sees.  viewerID is nil for anonymous
// callers.
func (s *BiddingService) GetBidWithDetails(ctx context.Context, bidID uint64, viewerID *uint64) (*BidDetails, error) {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, s.fail("load bid", err, logrus.Fields{"bid_id": bidID})
	}
	rbs, err := s.store.ListRetailBids(ctx, bidID)
	var payments []model.BidPayment
	if err == nil {
		payments, err = s.store.ListPayments(ctx, bidID)
	}
	if err != nil {
		if !s.opts.StatusFallback || ctx.Err() != nil {
			return nil, s.fail("load bid children", err, logrus.Fields{"bid_id": bidID})
		}
		s.log.WithField("bid_id", bidID).WithError(err).Warn("bid children unavailable, using legacy status")
		snap := bidding.BidOnlySnapshot(*bid)
		return &BidDetails{
			BidView:      newBidView(snap),
			ViewerStatus: s.legacy.Resolve(snap, viewerID),
			Degraded:     true,
		}, nil
	}
	d := s.details(bidding.NewSnapshot(*bid, rbs, payments), viewerID)
	return &d, nil
}

// ListBids returns a page of bids newest first, each with availability
// and the anonymous display status.
func (s *BiddingService) ListBids(ctx context.Context, limit, offset int) ([]BidDetails, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	bids, err := s.store.ListBids(ctx, limit, offset)
	if err != nil {
		return nil, s.fail("list bids", err, logrus.Fields{"limit": limit, "offset": offset})
	}
	ids := make([]uint64, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ID)
	}
	children, err := s.store.ListRetailBidsByBids(ctx, ids)
	if err != nil {
		return nil, s.fail("list retail bids", err, logrus.Fields{"bids": len(ids)})
	}
	out := make([]BidDetails, 0, len(bids))
	for _, b := range bids {
		out = append(out, s.details(bidding.NewSnapshot(b, children[b.ID], nil), nil))
	}
	return out, nil
}

// ListRetailBidsForBid returns every retail bid of a bid for operators.
func (s *BiddingService) ListRetailBidsForBid(ctx context.Context, bidID uint64) ([]model.RetailBid, error) {
	if _, err := s.store.GetBid(ctx, bidID); err != nil {
		return nil, s.fail("load bid", err, logrus.Fields{"bid_id": bidID})
	}
	rbs, err := s.store.ListRetailBids(ctx, bidID)
	if err != nil {
		return nil, s.fail("list retail bids", err, logrus.Fields{"bid_id": bidID})
	}
	return rbs, nil
}

// ListRetailBidsForUser returns the retail bids a user has submitted.
func (s *BiddingService) ListRetailBidsForUser(ctx context.Context, userID uint64) ([]model.RetailBid, error) {
	rbs, err := s.store.ListRetailBidsByUser(ctx, userID)
	if err != nil {
		return nil, s.fail("list user retail bids", err, logrus.Fields{"user_id": userID})
	}
	return rbs, nil
}

// UpdateBidStatus moves a bid to the status with the given code.
func (s *BiddingService) UpdateBidStatus(ctx context.Context, bidID uint64, rawCode string) error {
	code, err := parseStatus(rawCode)
	if err != nil {
		return err
	}
	id, err := s.statusID(code)
	if err != nil {
		return err
	}
	if err := s.store.UpdateBidStatus(ctx, bidID, id); err != nil {
		return s.fail("update bid status", err, logrus.Fields{"bid_id": bidID, "status": code})
	}
	s.committed(ctx, queue.BidEvent{Type: queue.EventBidStatusChanged, BidID: bidID, Status: string(code)})
	return nil
}

// UpdateRetailBidStatus moves a retail bid to the status with the given
// code.  Rejecting a retail bid releases its seats.
func (s *BiddingService) UpdateRetailBidStatus(ctx context.Context, retailBidID uint64, rawCode string) error {
	code, err := parseStatus(rawCode)
	if err != nil {
		return err
	}
	id, err := s.statusID(code)
	if err != nil {
		return err
	}
	if err := s.store.UpdateRetailBidStatus(ctx, retailBidID, id); err != nil {
		return s.fail("update retail bid status", err, logrus.Fields{"retail_bid_id": retailBidID, "status": code})
	}
	ev := queue.BidEvent{Type: queue.EventRetailBidStatusChanged, RetailBidID: retailBidID, Status: string(code)}
	if rb, err := s.store.GetRetailBid(ctx, retailBidID); err == nil {
		ev.BidID, ev.UserID, ev.Seats = rb.BidID, rb.UserID, rb.SeatBooked
	}
	s.committed(ctx, ev)
	return nil
}

// UpdatePaymentStatus moves a payment to the status with the given code.
func (s *BiddingService) UpdatePaymentStatus(ctx context.Context, paymentID uint64, rawCode string) error {
	code, err := parseStatus(rawCode)
	if err != nil {
		return err
	}
	id, err := s.statusID(code)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePaymentStatus(ctx, paymentID, id); err != nil {
		return s.fail("update payment status", err, logrus.Fields{"payment_id": paymentID, "status": code})
	}
	ev := queue.BidEvent{Type: queue.EventPaymentStatusChanged, PaymentID: paymentID, Status: string(code)}
	if p, err := s.store.GetPayment(ctx, paymentID); err == nil {
		ev.BidID, ev.RetailBidID, ev.UserID = p.BidID, p.RetailBidID, p.UserID
	}
	s.committed(ctx, ev)
	return nil
}
