package model

import (
	"encoding/json"
	"strings"
	"time"
)

// BidWindow bounds the period in which retail bids are accepted.  Both
// ends are RFC3339 strings as written by the operator console.
type BidWindow struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// AutoAwardRules drive settlement once the bid window has closed.
type AutoAwardRules struct {
	Enabled        bool  `json:"enabled"`
	MinAmountCents int64 `json:"minAmountCents,omitempty"`
	RejectBelowMin bool  `json:"rejectBelowMin,omitempty"`
}

// BidConfig is the typed view of Bid.Config.  Raw keeps every field of
// the blob, including ones this type does not know about, so the parsed
// object can be returned to clients unchanged.
type BidConfig struct {
	Origin           string         `json:"origin,omitempty"`
	Destination      string         `json:"destination,omitempty"`
	TravelDate       string         `json:"travelDate,omitempty"`
	BidWindow        BidWindow      `json:"bidWindow"`
	TotalSeats       int            `json:"totalSeats,omitempty"`
	AutoAward        AutoAwardRules `json:"autoAward"`
	PaymentCompleted bool           `json:"paymentCompleted,omitempty"`
	PaidUserID       uint64         `json:"paidUserId,omitempty"`

	Raw map[string]any `json:"-"`
}

// ParseBidConfig never fails.  Empty or malformed text yields a zero
// config with an empty Raw map; fields with unexpected types are left at
// their zero value while the remaining fields are still read.
func ParseBidConfig(raw string) BidConfig {
	cfg := BidConfig{Raw: map[string]any{}}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cfg
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return cfg
	}
	// type mismatches are reported after the other fields are filled
	_ = json.Unmarshal([]byte(raw), &cfg)
	cfg.Raw = m
	return cfg
}

// WindowStart parses BidWindow.Start.  ok is false when the start is
// missing or not RFC3339.
func (c BidConfig) WindowStart() (t time.Time, ok bool) {
	return parseWindowBound(c.BidWindow.Start)
}

// WindowEnd parses BidWindow.End.  ok is false when the end is missing or
// not RFC3339.
func (c BidConfig) WindowEnd() (t time.Time, ok bool) {
	return parseWindowBound(c.BidWindow.End)
}

func parseWindowBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PaymentCompletedFor reports whether the legacy payment-completion
// marker applies to userID.  A marker without a paidUserId applies to
// every user.
func (c BidConfig) PaymentCompletedFor(userID uint64) bool {
	if !c.PaymentCompleted {
		return false
	}
	return c.PaidUserID == 0 || c.PaidUserID == userID
}
