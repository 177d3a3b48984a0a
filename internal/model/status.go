package model

// StatusCode is the short code stored in the statuses table.  Records do
// not persist the code itself; they reference statuses.id, which differs
// between environments.  Code paths work with StatusCode and translate
// through a StatusCatalog only when writing.
type StatusCode string

const (
	StatusOpen        StatusCode = "O"
	StatusUnderReview StatusCode = "UR"
	StatusApproved    StatusCode = "AP"
	StatusRejected    StatusCode = "R"
	StatusActive      StatusCode = "A"
	StatusClosed      StatusCode = "C"
	StatusCompleted   StatusCode = "CP"
	StatusExpired     StatusCode = "EX"
	StatusDraft       StatusCode = "D"
)

var statusNames = map[StatusCode]string{
	StatusOpen:        "Open",
	StatusUnderReview: "Under Review",
	StatusApproved:    "Approved",
	StatusRejected:    "Rejected",
	StatusActive:      "Active",
	StatusClosed:      "Closed",
	StatusCompleted:   "Completed",
	StatusExpired:     "Expired",
	StatusDraft:       "Draft",
}

// Valid reports whether c is one of the known status codes.
func (c StatusCode) Valid() bool {
	_, ok := statusNames[c]
	return ok
}

// Name returns the human readable name of the code, or the raw code when
// it is unknown.
func (c StatusCode) Name() string {
	if n, ok := statusNames[c]; ok {
		return n
	}
	return string(c)
}

// CountsAgainstCapacity reports whether a retail bid in this status holds
// seats of its bid.  Only Under Review and Approved do.
func (c StatusCode) CountsAgainstCapacity() bool {
	return c == StatusUnderReview || c == StatusApproved
}

// StatusEntry mirrors one row of the statuses table.
//
// Fields:
//  ID   – primary key referenced by bids, retail_bids and bid_payments.
//  Code – short code (O, UR, AP, ...).
//  Name – display name.
type StatusEntry struct {
	ID   uint64     // statuses.id
	Code StatusCode // statuses.code
	Name string     // statuses.name
}

// StatusCatalog is an immutable code <-> identifier lookup built once at
// startup.  A nil catalog behaves as an empty one.
type StatusCatalog struct {
	byCode map[StatusCode]uint64
	byID   map[uint64]StatusCode
}

// NewStatusCatalog indexes the given entries.  Later entries win when a
// code appears twice.
func NewStatusCatalog(entries []StatusEntry) *StatusCatalog {
	c := &StatusCatalog{
		byCode: make(map[StatusCode]uint64, len(entries)),
		byID:   make(map[uint64]StatusCode, len(entries)),
	}
	for _, e := range entries {
		c.byCode[e.Code] = e.ID
		c.byID[e.ID] = e.Code
	}
	return c
}

// IDForCode returns the identifier for code.  The boolean is false when
// the code is not in the catalog; callers must not substitute a default.
func (c *StatusCatalog) IDForCode(code StatusCode) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.byCode[code]
	return id, ok
}

// CodeForID is the reverse lookup of IDForCode.
func (c *StatusCatalog) CodeForID(id uint64) (StatusCode, bool) {
	if c == nil {
		return "", false
	}
	code, ok := c.byID[id]
	return code, ok
}

// Missing returns the codes from required that the catalog cannot resolve.
func (c *StatusCatalog) Missing(required ...StatusCode) []StatusCode {
	var out []StatusCode
	for _, code := range required {
		if _, ok := c.IDForCode(code); !ok {
			out = append(out, code)
		}
	}
	return out
}
