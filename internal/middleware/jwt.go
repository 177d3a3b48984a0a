// Package middleware contains the echo middleware shared by all routes:
// bearer authentication, role gates, rate limiting, response caching and
// request logging.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var errNoBearer = errors.New("missing bearer token")

// parseBearer validates an "Authorization: Bearer <jwt>" header signed
// with HS256 and secret.
func parseBearer(secret, header string) (jwt.MapClaims, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errNoBearer
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// setIdentity stores the subject and role claims under "user_id" and
// "role".  UserID converts the subject back.
func setIdentity(c echo.Context, claims jwt.MapClaims) {
	c.Set("user_id", claims["sub"])
	c.Set("role", claims["role"])
}

// JWTAuth rejects requests without a valid bearer token with 401 and
// otherwise injects the token's identity into the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(secret, c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalJWT lets anonymous requests through unchanged.  A request that
// does send a bearer token must send a valid one.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return next(c)
			}
			claims, err := parseBearer(secret, header)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}
