// Package handler exposes the HTTP handlers of the bidding API.  Handlers
// translate requests into service calls and service errors into status
// codes; they hold no business rules of their own.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/repository"
	"github.com/iliyamo/group-travel-bidding/internal/service"
)

// BiddingService is the subset of service.BiddingService the handlers use.
type BiddingService interface {
	CreateBid(ctx context.Context, in service.CreateBidInput) (*model.Bid, error)
	CreateRetailBid(ctx context.Context, in service.CreateRetailBidInput) (*model.RetailBid, error)
	PayRetailBid(ctx context.Context, in service.PayRetailBidInput) (*model.BidPayment, error)
	GetBidWithDetails(ctx context.Context, bidID uint64, viewerID *uint64) (*service.BidDetails, error)
	ListBids(ctx context.Context, limit, offset int) ([]service.BidDetails, error)
	ListRetailBidsForBid(ctx context.Context, bidID uint64) ([]model.RetailBid, error)
	ListRetailBidsForUser(ctx context.Context, userID uint64) ([]model.RetailBid, error)
	UpdateBidStatus(ctx context.Context, bidID uint64, code string) error
	UpdateRetailBidStatus(ctx context.Context, retailBidID uint64, code string) error
	UpdatePaymentStatus(ctx context.Context, paymentID uint64, code string) error
}

var _ BiddingService = (*service.BiddingService)(nil)

// BidHandler serves every bid route.  Routes are split by audience
// across the public, customer and operator files.
type BidHandler struct {
	svc BiddingService
}

// NewBidHandler panics on a nil service.
func NewBidHandler(svc BiddingService) *BidHandler {
	if svc == nil {
		panic("nil service passed to NewBidHandler")
	}
	return &BidHandler{svc: svc}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// writeError maps service and repository errors onto status codes.
// Unexpected errors become 500 without leaking their text.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, repository.ErrBidNotFound),
		errors.Is(err, repository.ErrRetailBidNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrBidNotOpen),
		errors.Is(err, service.ErrDuplicateRetailBid),
		errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrRetailBidRejected),
		errors.Is(err, service.ErrPaymentAlreadyCompleted),
		errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrAmountTooLow):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrPaymentFailed):
		status, msg = http.StatusPaymentRequired, err.Error()
	case errors.Is(err, service.ErrStatusNotFound):
		// catalog integrity problem; the message names the missing row
		msg = err.Error()
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// retailBidResponse is the wire form of a retail bid.
type retailBidResponse struct {
	ID          uint64           `json:"id"`
	BidID       uint64           `json:"bid_id"`
	UserID      uint64           `json:"user_id"`
	SeatBooked  int              `json:"seat_booked"`
	AmountCents int64            `json:"amount_cents"`
	Status      model.StatusCode `json:"status"`
	StatusName  string           `json:"status_name"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toRetailBidResponse(rb model.RetailBid) retailBidResponse {
	return retailBidResponse{
		ID:          rb.ID,
		BidID:       rb.BidID,
		UserID:      rb.UserID,
		SeatBooked:  rb.SeatBooked,
		AmountCents: rb.AmountCents,
		Status:      rb.StatusCode,
		StatusName:  rb.StatusCode.Name(),
		CreatedAt:   rb.CreatedAt,
		UpdatedAt:   rb.UpdatedAt,
	}
}

func toRetailBidResponses(rbs []model.RetailBid) []retailBidResponse {
	out := make([]retailBidResponse, 0, len(rbs))
	for _, rb := range rbs {
		out = append(out, toRetailBidResponse(rb))
	}
	return out
}

// paymentResponse is the wire form of a bid payment.
type paymentResponse struct {
	ID          uint64           `json:"id"`
	RetailBidID uint64           `json:"retail_bid_id"`
	BidID       uint64           `json:"bid_id"`
	UserID      uint64           `json:"user_id"`
	AmountCents int64            `json:"amount_cents"`
	PaymentRef  string           `json:"payment_ref"`
	Status      model.StatusCode `json:"status"`
	ProcessedAt time.Time        `json:"processed_at"`
}

func toPaymentResponse(p model.BidPayment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		RetailBidID: p.RetailBidID,
		BidID:       p.BidID,
		UserID:      p.UserID,
		AmountCents: p.AmountCents,
		PaymentRef:  p.PaymentRef,
		Status:      p.StatusCode,
		ProcessedAt: p.ProcessedAt,
	}
}

// bidResponse is the wire form of a freshly created bid.
type bidResponse struct {
	ID                  uint64           `json:"id"`
	TotalSeatsAvailable *int             `json:"total_seats_available"`
	MinAmountCents      int64            `json:"min_amount_cents"`
	Config              json.RawMessage  `json:"config"`
	Status              model.StatusCode `json:"status"`
	CreatedBy           uint64           `json:"created_by"`
	CreatedAt           time.Time        `json:"created_at"`
}

func toBidResponse(b model.Bid) bidResponse {
	cfg := json.RawMessage("{}")
	if b.Config != "" && json.Valid([]byte(b.Config)) {
		cfg = json.RawMessage(b.Config)
	}
	return bidResponse{
		ID:                  b.ID,
		TotalSeatsAvailable: b.TotalSeatsAvailable,
		MinAmountCents:      b.MinAmountCents,
		Config:              cfg,
		Status:              b.StatusCode,
		CreatedBy:           b.CreatedBy,
		CreatedAt:           b.CreatedAt,
	}
}
