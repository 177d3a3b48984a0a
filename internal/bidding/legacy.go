package bidding

import "github.com/iliyamo/group-travel-bidding/internal/model"

// coarseStatus is the bid-level state older clients derive from a bid
// without looking at retail bids.
type coarseStatus string

const (
	coarseActive    coarseStatus = "active"
	coarseAccepted  coarseStatus = "accepted"
	coarseRejected  coarseStatus = "rejected"
	coarseCompleted coarseStatus = "completed"
	coarseExpired   coarseStatus = "expired"
	coarseClosed    coarseStatus = "closed"
	coarseDraft     coarseStatus = "draft"
)

func coarseOf(code model.StatusCode) coarseStatus {
	switch code {
	case model.StatusOpen, model.StatusActive:
		return coarseActive
	case model.StatusApproved:
		return coarseAccepted
	case model.StatusRejected:
		return coarseRejected
	case model.StatusCompleted:
		return coarseCompleted
	case model.StatusExpired:
		return coarseExpired
	case model.StatusClosed:
		return coarseClosed
	}
	return coarseDraft
}

var legacyRules = []rule{
	{"bid rejected", func(f facts) bool { return f.coarse == coarseRejected }, model.DisplayRejected},
	{"bid accepted", func(f facts) bool { return f.coarse == coarseAccepted }, model.DisplayApproved},
	{"bid completed", func(f facts) bool { return f.coarse == coarseCompleted }, model.DisplayCompleted},
	{"bid expired", func(f facts) bool { return f.coarse == coarseExpired }, model.DisplayExpired},
	{"bid closed", func(f facts) bool { return f.coarse == coarseClosed }, model.DisplayClosed},
	{"bid draft", func(f facts) bool { return f.coarse != coarseActive }, model.DisplayDraft},
	{"paid marker", func(f facts) bool { return !f.anonymous && f.paid }, model.DisplayUnderReview},
	{"bid active", func(f facts) bool { return true }, model.DisplayOpen},
}

// BidOnlySnapshot is the snapshot available when the children of a bid
// cannot be loaded.  It carries no retail bids, payments or
// availability, and only LegacyResolver may read it.
func BidOnlySnapshot(bid model.Bid) Snapshot {
	return Snapshot{Bid: bid, Config: model.ParseBidConfig(bid.Config)}
}

// LegacyResolver is the degraded-mode StatusResolver.  It only reads
// bid-level fields: the bid's own status and the payment-completion
// marker in its config.  Seat counts are unknown to it, so an active bid
// maps to Open exactly as the coarse mapping does.
type LegacyResolver struct{}

// Resolve implements StatusResolver.
func (LegacyResolver) Resolve(s Snapshot, viewerID *uint64) ViewerStatus {
	f := facts{
		anonymous: viewerID == nil,
		coarse:    coarseOf(s.Bid.StatusCode),
	}
	if viewerID != nil {
		f.paid = s.Config.PaymentCompletedFor(*viewerID)
	}
	return ViewerStatus{
		DisplayStatus: decide(legacyRules, f),
		HasViewerPaid: f.paid,
	}
}
