package activity

import "context"

// Source supplies the raw record collections the engine aggregates. The
// engine never writes through it. Implementations own all blocking I/O
// and any timeout policy; the engine itself only computes.
//
// StudentByID returns (nil, nil) when the student does not exist so the
// engine can tell "missing" apart from "fetch failed".
type Source interface {
	StudentByID(ctx context.Context, id int64) (*StudentProfile, error)
	AttendanceByStudent(ctx context.Context, studentID int64, r DateRange) ([]AttendanceRecord, error)
	JustificationsByStudent(ctx context.Context, studentID int64, r DateRange) ([]JustificationRecord, error)
	WarningsByStudent(ctx context.Context, studentID int64, r DateRange) ([]WarningRecord, error)
	AttendanceByScope(ctx context.Context, scope Scope) ([]AttendanceRecord, error)
}

// Service runs the aggregation and reporting operations on top of an
// injected Source. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	src Source
}

// NewService creates a service backed by a record source.
func NewService(src Source) *Service {
	return &Service{src: src}
}
