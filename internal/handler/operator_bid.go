package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/group-travel-bidding/internal/middleware"
	"github.com/iliyamo/group-travel-bidding/internal/service"
)

// CreateBid handles POST /v1/operator/bids.  Body:
// {"total_seats_available": n|null, "min_amount_cents": n, "config": {...}, "status": "O"}.
func (h *BidHandler) CreateBid(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TotalSeats     *int            `json:"total_seats_available"`
		MinAmountCents int64           `json:"min_amount_cents"`
		Config         json.RawMessage `json:"config"`
		Status         string          `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.svc.CreateBid(c.Request().Context(), service.CreateBidInput{
		TotalSeats:     body.TotalSeats,
		MinAmountCents: body.MinAmountCents,
		Config:         body.Config,
		Status:         strings.ToUpper(strings.TrimSpace(body.Status)),
		CreatedBy:      userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBidResponse(*b))
}

// ListRetailBids handles GET /v1/operator/bids/:id/retail-bids.
func (h *BidHandler) ListRetailBids(c echo.Context) error {
	bidID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bid id"})
	}
	rbs, err := h.svc.ListRetailBidsForBid(c.Request().Context(), bidID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toRetailBidResponses(rbs)})
}

// statusBody reads {"status": "<code>"}.
func statusBody(c echo.Context) (string, bool) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return "", false
	}
	code := strings.ToUpper(strings.TrimSpace(body.Status))
	return code, code != ""
}

// updateStatus runs one of the status setters for PATCH .../:id/status
// and answers 204.
func (h *BidHandler) updateStatus(c echo.Context, what string, set func(c echo.Context, id uint64, code string) error) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
	}
	code, ok := statusBody(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}
	if err := set(c, id, code); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateBidStatus handles PATCH /v1/operator/bids/:id/status.
func (h *BidHandler) UpdateBidStatus(c echo.Context) error {
	return h.updateStatus(c, "bid", func(c echo.Context, id uint64, code string) error {
		return h.svc.UpdateBidStatus(c.Request().Context(), id, code)
	})
}

// UpdateRetailBidStatus handles PATCH /v1/operator/retail-bids/:id/status.
func (h *BidHandler) UpdateRetailBidStatus(c echo.Context) error {
	return h.updateStatus(c, "retail bid", func(c echo.Context, id uint64, code string) error {
		return h.svc.UpdateRetailBidStatus(c.Request().Context(), id, code)
	})
}

// UpdatePaymentStatus handles PATCH /v1/operator/payments/:id/status.
func (h *BidHandler) UpdatePaymentStatus(c echo.Context) error {
	return h.updateStatus(c, "payment", func(c echo.Context, id uint64, code string) error {
		return h.svc.UpdatePaymentStatus(c.Request().Context(), id, code)
	})
}
