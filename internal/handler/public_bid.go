package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/group-travel-bidding/internal/middleware"
)

// ListBids handles GET /v1/bids?page=&page_size=.  Every bid carries its
// availability and the status an anonymous visitor sees.
func (h *BidHandler) ListBids(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	items, err := h.svc.ListBids(c.Request().Context(), size, (page-1)*size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"page":      page,
		"page_size": size,
	})
}

// GetBid handles GET /v1/bids/:id.  With a bearer token the status is
// resolved for that user; without one the anonymous view is returned.
func (h *BidHandler) GetBid(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bid id"})
	}
	var viewer *uint64
	if uid, ok := middleware.UserID(c); ok {
		viewer = &uid
	}
	d, err := h.svc.GetBidWithDetails(c.Request().Context(), id, viewer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
