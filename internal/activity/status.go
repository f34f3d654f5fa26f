package activity

import "strings"

// Status is the closed attendance-status vocabulary. Raw strings coming
// from the record source are free-form and must pass through
// NormalizeStatus before any counting or reporting.
type Status string

const (
	StatusPresent Status = "presente"
	StatusLate    Status = "atraso"
	StatusAbsent  Status = "falta"
)

// Valid returns true when the status is one of the closed vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	default:
		return false
	}
}

// NormalizeStatus maps a raw status string to the closed vocabulary.
// Matching is case-insensitive and ignores surrounding whitespace.
// Anything unrecognized, including the empty string, counts as an
// absence so dirty data lowers a rate instead of disappearing from it.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "presente":
		return StatusPresent
	case "atraso":
		return StatusLate
	case "falta", "ausente":
		return StatusAbsent
	default:
		return StatusAbsent
	}
}

// Approval is the tri-state outcome of a justification review. Pending is
// a first-class state carried by records whose approval flag was never set.
type Approval string

const (
	ApprovalApproved Approval = "aprovada"
	ApprovalRejected Approval = "recusada"
	ApprovalPending  Approval = "pendente"
)

// ApprovalFromFlag resolves the nullable boolean stored upstream into the
// explicit tri-state. A nil flag means the review has not happened yet.
func ApprovalFromFlag(flag *bool) Approval {
	switch {
	case flag == nil:
		return ApprovalPending
	case *flag:
		return ApprovalApproved
	default:
		return ApprovalRejected
	}
}
