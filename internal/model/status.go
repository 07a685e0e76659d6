package model

// Status is the approval lifecycle state shared by stock items and
// outbound requests. pending is the only state transitions start from;
// approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether a record in this status can still transition.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}
