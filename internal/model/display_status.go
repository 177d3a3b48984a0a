package model

// DisplayStatus is the single state shown to one viewer of a bid.
type DisplayStatus string

const (
	DisplayOpen        DisplayStatus = "Open"
	DisplayUnderReview DisplayStatus = "Under Review"
	DisplayApproved    DisplayStatus = "Approved"
	DisplayRejected    DisplayStatus = "Rejected"
	DisplayClosed      DisplayStatus = "Closed"
	DisplayCompleted   DisplayStatus = "Completed"
	DisplayExpired     DisplayStatus = "Expired"
	DisplayDraft       DisplayStatus = "Draft"
)

// Valid reports whether s belongs to the display vocabulary.
func (s DisplayStatus) Valid() bool {
	switch s {
	case DisplayOpen, DisplayUnderReview, DisplayApproved, DisplayRejected,
		DisplayClosed, DisplayCompleted, DisplayExpired, DisplayDraft:
		return true
	}
	return false
}
