package bidding

import "github.com/iliyamo/group-travel-bidding/internal/model"

// Snapshot is everything a StatusResolver may look at for one bid.
type Snapshot struct {
	Bid          model.Bid
	Config       model.BidConfig
	RetailBids   []model.RetailBid
	Payments     []model.BidPayment
	Availability Availability
}

// NewSnapshot parses the bid config and computes availability from the
// given children.
func NewSnapshot(bid model.Bid, retailBids []model.RetailBid, payments []model.BidPayment) Snapshot {
	cfg := model.ParseBidConfig(bid.Config)
	return Snapshot{
		Bid:          bid,
		Config:       cfg,
		RetailBids:   retailBids,
		Payments:     payments,
		Availability: ComputeAvailability(bid, cfg, retailBids),
	}
}

// ViewerStatus is the per-viewer outcome of a resolver.
// ViewerRetailBidStatus is the raw code of the viewer's own retail bid,
// nil when the viewer is anonymous or has not submitted.
type ViewerStatus struct {
	DisplayStatus         model.DisplayStatus `json:"status"`
	HasViewerPaid         bool                `json:"has_user_paid"`
	ViewerRetailBidStatus *model.StatusCode   `json:"user_retail_bid_status"`
}

// StatusResolver derives the display status one viewer sees.  viewerID
// is nil for anonymous listing views.  Implementations must be pure.
type StatusResolver interface {
	Resolve(s Snapshot, viewerID *uint64) ViewerStatus
}

// facts is the reduced input of the decision table.
type facts struct {
	anonymous   bool
	paid        bool
	own         model.StatusCode
	available   int
	fullyBooked bool
	coarse      coarseStatus
}

// rule is one row of a decision table; the first row whose when matches
// decides the status.
type rule struct {
	name string
	when func(f facts) bool
	then model.DisplayStatus
}

// viewerRules is the authoritative decision table.  Order matters:
// a viewer who paid always sees their own outcome, and a viewer who did
// not pay sees Closed as soon as the bid is fully booked.
var viewerRules = []rule{
	{"anonymous with seats", func(f facts) bool { return f.anonymous && f.available > 0 }, model.DisplayOpen},
	{"anonymous without seats", func(f facts) bool { return f.anonymous }, model.DisplayClosed},
	{"paid and approved", func(f facts) bool { return f.paid && f.own == model.StatusApproved }, model.DisplayApproved},
	{"paid and rejected", func(f facts) bool { return f.paid && f.own == model.StatusRejected }, model.DisplayRejected},
	{"paid and unresolved", func(f facts) bool { return f.paid }, model.DisplayUnderReview},
	{"unpaid and fully booked", func(f facts) bool { return f.fullyBooked }, model.DisplayClosed},
	{"unpaid with seats", func(f facts) bool { return f.available > 0 }, model.DisplayOpen},
	{"unpaid without seats", func(f facts) bool { return true }, model.DisplayClosed},
}

func decide(table []rule, f facts) model.DisplayStatus {
	for _, r := range table {
		if r.when(f) {
			return r.then
		}
	}
	return model.DisplayClosed
}

// Resolver is the authoritative StatusResolver backed by retail bid and
// payment records.
type Resolver struct{}

// Resolve implements StatusResolver.
func (Resolver) Resolve(s Snapshot, viewerID *uint64) ViewerStatus {
	f := facts{
		anonymous:   viewerID == nil,
		available:   s.Availability.AvailableSeats,
		fullyBooked: s.Availability.IsFullyBooked,
	}
	var out ViewerStatus
	if viewerID != nil {
		own := ViewerRetailBid(s.RetailBids, *viewerID)
		if own != nil {
			code := own.StatusCode
			out.ViewerRetailBidStatus = &code
			f.own = code
		}
		f.paid = f.own.CountsAgainstCapacity() || viewerHasPayment(s.Payments, *viewerID)
		out.HasViewerPaid = f.paid
	}
	out.DisplayStatus = decide(viewerRules, f)
	return out
}

// ViewerRetailBid returns the most recent retail bid of userID, or nil.
func ViewerRetailBid(retailBids []model.RetailBid, userID uint64) *model.RetailBid {
	var found *model.RetailBid
	for i := range retailBids {
		rb := &retailBids[i]
		if rb.UserID != userID {
			continue
		}
		if found == nil || rb.ID > found.ID {
			found = rb
		}
	}
	return found
}

// viewerHasPayment reports whether userID holds a payment that was not
// rejected.
func viewerHasPayment(payments []model.BidPayment, userID uint64) bool {
	for _, p := range payments {
		if p.UserID == userID && p.StatusCode != model.StatusRejected {
			return true
		}
	}
	return false
}
