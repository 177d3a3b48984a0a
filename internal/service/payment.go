package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PaymentRequest describes one capture against the payment provider.
type PaymentRequest struct {
	RetailBidID uint64
	UserID      uint64
	AmountCents int64
}

// PaymentCapturer takes the money for a retail bid and returns the
// provider reference of the capture.
type PaymentCapturer interface {
	Capture(ctx context.Context, req PaymentRequest) (string, error)
}

// PaymentVoider is implemented by capturers that can release a capture
// which could not be recorded.
type PaymentVoider interface {
	Void(ctx context.Context, ref string) error
}

// SimulatedCapturer accepts every positive amount and issues a random
// reference.  There is no real gateway integration.
type SimulatedCapturer struct{}

func (SimulatedCapturer) Capture(ctx context.Context, req PaymentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.AmountCents <= 0 {
		return "", errors.New("amount must be positive")
	}
	return "sim_" + uuid.NewString(), nil
}

// Void accepts any reference the simulator issued.
func (SimulatedCapturer) Void(_ context.Context, ref string) error {
	if !strings.HasPrefix(ref, "sim_") {
		return fmt.Errorf("unknown payment reference %q", ref)
	}
	return nil
}
