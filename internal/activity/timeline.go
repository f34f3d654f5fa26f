package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Kind tags the origin of a timeline event.
type Kind string

const (
	KindAttendance    Kind = "attendance"
	KindJustification Kind = "justification"
	KindWarning       Kind = "warning"
)

// TimelineEvent is one entry of the merged per-student history. Details
// holds a kind-specific struct (AttendanceDetails or JustificationDetails)
// or nil for warnings, which carry nothing beyond their description.
type TimelineEvent struct {
	Kind        Kind      `json:"kind"`
	ID          int64     `json:"id"`
	OccurredAt  time.Time `json:"occurredAt"`
	Description string    `json:"description"`
	TeacherName string    `json:"teacherName,omitempty"`
	Details     any       `json:"details,omitempty"`
}

// AttendanceDetails carries the attendance-specific slice of an event.
type AttendanceDetails struct {
	Status    Status `json:"status"`
	ClassID   int64  `json:"classId"`
	Justified bool   `json:"justified"`
}

// JustificationDetails carries the justification-specific slice.
type JustificationDetails struct {
	Approval      Approval `json:"approval"`
	AttachmentURL string   `json:"attachmentUrl,omitempty"`
}

// TimelineOptions narrows a timeline request. A nil/empty Kinds means all
// three kinds. BestEffort switches the merge from fail-fast to skipping
// record kinds whose fetch failed; it never masks a missing student or a
// failed profile fetch.
type TimelineOptions struct {
	Range      DateRange
	Kinds      []Kind
	BestEffort bool
}

func (o TimelineOptions) wants(k Kind) bool {
	if len(o.Kinds) == 0 {
		return true
	}
	for _, want := range o.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// TimelineResult is the merged history for one student.
type TimelineResult struct {
	Student StudentSummary  `json:"student"`
	Events  []TimelineEvent `json:"timeline"`
	Total   int             `json:"total"`
}

// Timeline merges the three record kinds for one student into a single
// sequence sorted by timestamp descending. The profile and the requested
// record kinds are fetched concurrently; by default the first fetch
// failure aborts the whole merge, so callers never see a partial
// timeline. Events with identical timestamps keep a stable order within
// one kind; cross-kind order at equal timestamps is unspecified.
func (s *Service) Timeline(ctx context.Context, studentID int64, opts TimelineOptions) (*TimelineResult, error) {
	if studentID <= 0 {
		return nil, fmt.Errorf("student id %d: %w", studentID, ErrInvalidInput)
	}
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	var (
		profile        *StudentProfile
		attendance     []AttendanceRecord
		justifications []JustificationRecord
		warnings       []WarningRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.src.StudentByID(gctx, studentID)
		if err != nil {
			return &SourceError{Op: "student", Err: err}
		}
		profile = p
		return nil
	})
	// fetch wraps one kind fetch; in best-effort mode a failure drops the
	// kind from the merge instead of cancelling the group.
	fetch := func(op string, fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(gctx); err != nil {
				if opts.BestEffort {
					return nil
				}
				return &SourceError{Op: op, Err: err}
			}
			return nil
		}
	}
	if opts.wants(KindAttendance) {
		g.Go(fetch("attendance", func(ctx context.Context) error {
			recs, err := s.src.AttendanceByStudent(ctx, studentID, opts.Range)
			attendance = recs
			return err
		}))
	}
	if opts.wants(KindJustification) {
		g.Go(fetch("justifications", func(ctx context.Context) error {
			recs, err := s.src.JustificationsByStudent(ctx, studentID, opts.Range)
			justifications = recs
			return err
		}))
	}
	if opts.wants(KindWarning) {
		g.Go(fetch("warnings", func(ctx context.Context) error {
			recs, err := s.src.WarningsByStudent(ctx, studentID, opts.Range)
			warnings = recs
			return err
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}

	events := make([]TimelineEvent, 0, len(attendance)+len(justifications)+len(warnings))
	for _, r := range attendance {
		events = append(events, attendanceEvent(r))
	}
	for _, r := range justifications {
		events = append(events, justificationEvent(r))
	}
	for _, r := range warnings {
		events = append(events, warningEvent(r))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})

	return &TimelineResult{
		Student: profile.Summary(),
		Events:  events,
		Total:   len(events),
	}, nil
}

func attendanceEvent(r AttendanceRecord) TimelineEvent {
	status := NormalizeStatus(r.Status)
	var desc string
	switch status {
	case StatusPresent:
		desc = "Presença registrada"
	case StatusLate:
		desc = "Atraso registrado"
	default:
		desc = "Falta registrada"
	}
	return TimelineEvent{
		Kind:        KindAttendance,
		ID:          r.ID,
		OccurredAt:  r.EventTime(),
		Description: desc,
		TeacherName: deref(r.TeacherName),
		Details: AttendanceDetails{
			Status:    status,
			ClassID:   r.ClassID,
			Justified: r.Justified(),
		},
	}
}

func justificationEvent(r JustificationRecord) TimelineEvent {
	return TimelineEvent{
		Kind:        KindJustification,
		ID:          r.ID,
		OccurredAt:  r.CreatedAt,
		Description: r.Reason,
		TeacherName: deref(r.TeacherName),
		Details: JustificationDetails{
			Approval:      r.Approval(),
			AttachmentURL: deref(r.AttachmentURL),
		},
	}
}

func warningEvent(r WarningRecord) TimelineEvent {
	return TimelineEvent{
		Kind:        KindWarning,
		ID:          r.ID,
		OccurredAt:  r.CreatedAt,
		Description: r.Description,
		TeacherName: deref(r.TeacherName),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
