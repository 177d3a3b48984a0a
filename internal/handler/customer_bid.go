package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/group-travel-bidding/internal/middleware"
	"github.com/iliyamo/group-travel-bidding/internal/service"
)

// SubmitRetailBid handles POST /v1/bids/:id/retail-bids.  Body:
// {"seats": n, "amount_cents": n}.  Returns 201 with the retail bid.
func (h *BidHandler) SubmitRetailBid(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bidID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bid id"})
	}
	var body struct {
		Seats       int   `json:"seats"`
		AmountCents int64 `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Seats <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must be positive"})
	}

	rb, err := h.svc.CreateRetailBid(c.Request().Context(), service.CreateRetailBidInput{
		BidID:       bidID,
		UserID:      userID,
		Seats:       body.Seats,
		AmountCents: body.AmountCents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toRetailBidResponse(*rb))
}

// PayRetailBid handles POST /v1/retail-bids/:id/payments.  The optional
// body {"amount_cents": n} overrides the retail bid amount.
func (h *BidHandler) PayRetailBid(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	retailBidID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid retail bid id"})
	}
	var body struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AmountCents < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must not be negative"})
	}

	p, err := h.svc.PayRetailBid(c.Request().Context(), service.PayRetailBidInput{
		RetailBidID: retailBidID,
		UserID:      userID,
		AmountCents: body.AmountCents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toPaymentResponse(*p))
}

// MyRetailBids handles GET /v1/my-retail-bids.
func (h *BidHandler) MyRetailBids(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rbs, err := h.svc.ListRetailBidsForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toRetailBidResponses(rbs)})
}
