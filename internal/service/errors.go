package service

import "errors"

// Domain errors returned by BiddingService.  Repository sentinels such as
// repository.ErrBidNotFound and repository.ErrForbidden pass through
// unchanged.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidStatus  = errors.New("invalid status code")
	ErrStatusNotFound = errors.New("status not found")

	ErrBidNotOpen              = errors.New("bid is not open for retail bids")
	ErrAmountTooLow            = errors.New("amount is below the bid minimum")
	ErrDuplicateRetailBid      = errors.New("user already has an active retail bid on this bid")
	ErrInsufficientSeats       = errors.New("not enough seats available")
	ErrRetailBidRejected       = errors.New("retail bid was rejected")
	ErrPaymentAlreadyCompleted = errors.New("payment already completed for this bid")
	ErrPaymentFailed           = errors.New("payment capture failed")
)
