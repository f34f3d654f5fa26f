package activity

import (
	"errors"
	"time"
)

// Sentinel errors surfaced to callers. Handlers map these to HTTP codes;
// everything else is treated as an internal failure.
var (
	ErrStudentNotFound   = errors.New("activity: student not found")
	ErrSourceUnavailable = errors.New("activity: record source unavailable")
	ErrInvalidDateRange  = errors.New("activity: invalid date range")
	ErrInvalidInput      = errors.New("activity: invalid input")
)

// SourceError wraps a failed fetch from the record source so callers can
// distinguish infrastructure failure from data conditions via
// errors.Is(err, ErrSourceUnavailable) while keeping the cause chain.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return "activity: fetch " + e.Op + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// DateRange bounds a query period. Nil bounds are open; set bounds are
// inclusive.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Validate rejects ranges whose lower bound is after the upper bound.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether t falls inside the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Scope narrows a cohort aggregation to one class and/or a period.
type Scope struct {
	ClassID *int64
	Range   DateRange
}

// Validate rejects non-positive class ids before any fetch happens.
func (s Scope) Validate() error {
	if s.ClassID != nil && *s.ClassID <= 0 {
		return ErrInvalidInput
	}
	return s.Range.Validate()
}

// AttendanceRecord is one presence mark for one class session. Status is
// carried raw; consumers normalize it. StudentName and ClassName are only
// populated on scope (cohort) queries, where the source joins them in.
type AttendanceRecord struct {
	ID              int64
	StudentID       int64
	ClassID         int64
	Status          string
	OccurredAt      time.Time
	CreatedAt       time.Time
	TeacherID       *int64
	TeacherName     *string
	JustificationID *int64
	StudentName     string
	ClassName       string
}

// EventTime returns the record's timestamp, falling back to its creation
// time when the session timestamp was never filled in.
func (r AttendanceRecord) EventTime() time.Time {
	if r.OccurredAt.IsZero() {
		return r.CreatedAt
	}
	return r.OccurredAt
}

// Justified reports whether the record is linked to a justification,
// regardless of that justification's approval state.
func (r AttendanceRecord) Justified() bool { return r.JustificationID != nil }

// JustificationRecord is a submitted explanation for an absence.
type JustificationRecord struct {
	ID            int64
	StudentID     int64
	TeacherID     *int64
	TeacherName   *string
	CreatedAt     time.Time
	Reason        string
	AttachmentURL *string
	Approved      *bool
}

// Approval resolves the nullable stored flag into the tri-state.
func (r JustificationRecord) Approval() Approval { return ApprovalFromFlag(r.Approved) }

// WarningRecord is an immutable disciplinary note. The engine only ever
// reads these; the append-only rule is enforced upstream.
type WarningRecord struct {
	ID          int64
	StudentID   int64
	TeacherID   *int64
	TeacherName *string
	CreatedAt   time.Time
	Description string
}

// StudentProfile is the profile slice of a student the reports need. Age,
// class name and medical flags are passed through verbatim from the
// source; the engine never derives them.
type StudentProfile struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CPF              string     `json:"cpf"`
	IsNeurodivergent bool       `json:"isNeurodivergent"`
	BirthDate        *time.Time `json:"birthDate,omitempty"`
	Age              int        `json:"age"`
	ClassID          *int64     `json:"classId,omitempty"`
	ClassName        string     `json:"className,omitempty"`
	MedicalInfo      *string    `json:"medicalInfo,omitempty"`
	Allergies        *string    `json:"allergies,omitempty"`
}

// StudentSummary is the compact identity block embedded in timeline
// responses.
type StudentSummary struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	CPF              string `json:"cpf"`
	IsNeurodivergent bool   `json:"isNeurodivergent"`
}

// Summary projects the profile down to the timeline identity block.
func (p StudentProfile) Summary() StudentSummary {
	return StudentSummary{
		ID:               p.ID,
		Name:             p.Name,
		CPF:              p.CPF,
		IsNeurodivergent: p.IsNeurodivergent,
	}
}
