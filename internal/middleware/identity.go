package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id.  ok is false for anonymous
// requests and for subjects that are not positive integers.  JSON
// decoding turns numeric claims into float64, so every numeric form is
// accepted.
func UserID(c echo.Context) (uint64, bool) {
	var id uint64
	switch t := c.Get("user_id").(type) {
	case uint64:
		id = t
	case int:
		if t > 0 {
			id = uint64(t)
		}
	case int64:
		if t > 0 {
			id = uint64(t)
		}
	case float64:
		if t > 0 && t == float64(uint64(t)) {
			id = uint64(t)
		}
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err == nil {
			id = n
		}
	}
	return id, id != 0
}

// subjectKey identifies the caller in rate limit keys.
func subjectKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
