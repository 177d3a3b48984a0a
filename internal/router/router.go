// Package router registers the HTTP routes of the bidding API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/group-travel-bidding/internal/config"
	"github.com/iliyamo/group-travel-bidding/internal/handler"
	"github.com/iliyamo/group-travel-bidding/internal/middleware"
)

// Deps carries what the route groups need.  Redis may be nil, in which
// case caching and rate limiting are skipped.
type Deps struct {
	Bids      *handler.BidHandler
	DB        handler.Pinger
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       logrus.FieldLogger
}

// RegisterRoutes registers every route group on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterOperator(e, d)
}

// RegisterPublic registers the browse endpoints.  A bearer token is
// optional; anonymous answers are cached.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	optional := middleware.OptionalJWT(d.JWTSecret)
	e.GET("/v1/bids", d.Bids.ListBids, cache)
	e.GET("/v1/bids/:id", d.Bids.GetBid, optional, cache)
}

// RegisterCustomer registers endpoints that require the CUSTOMER role.
// They are rate limited per user and route.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	)
	g.POST("/bids/:id/retail-bids", d.Bids.SubmitRetailBid)
	g.POST("/retail-bids/:id/payments", d.Bids.PayRetailBid)
	g.GET("/my-retail-bids", d.Bids.MyRetailBids)
}

// RegisterOperator registers bid management endpoints for the OPERATOR role.
func RegisterOperator(e *echo.Echo, d Deps) {
	g := e.Group("/v1/operator",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleOperator),
	)
	g.POST("/bids", d.Bids.CreateBid)
	g.PATCH("/bids/:id/status", d.Bids.UpdateBidStatus)
	g.GET("/bids/:id/retail-bids", d.Bids.ListRetailBids)
	g.PATCH("/retail-bids/:id/status", d.Bids.UpdateRetailBidStatus)
	g.PATCH("/payments/:id/status", d.Bids.UpdatePaymentStatus)
}
