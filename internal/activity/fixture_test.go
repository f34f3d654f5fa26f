package activity

import (
	"context"
	"time"
)

// fixtureSource is an in-memory Source for exercising the engine without
// a database. Per-call errors can be injected to simulate fetch failures.
type fixtureSource struct {
	students       map[int64]StudentProfile
	attendance     []AttendanceRecord
	justifications []JustificationRecord
	warnings       []WarningRecord

	studentErr       error
	attendanceErr    error
	justificationErr error
	warningErr       error
	scopeErr         error
}

func (f *fixtureSource) StudentByID(_ context.Context, id int64) (*StudentProfile, error) {
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	p, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fixtureSource) AttendanceByStudent(_ context.Context, studentID int64, r DateRange) ([]AttendanceRecord, error) {
	if f.attendanceErr != nil {
		return nil, f.attendanceErr
	}
	var out []AttendanceRecord
	for _, rec := range f.attendance {
		if rec.StudentID == studentID && r.Contains(rec.EventTime()) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fixtureSource) JustificationsByStudent(_ context.Context, studentID int64, r DateRange) ([]JustificationRecord, error) {
	if f.justificationErr != nil {
		return nil, f.justificationErr
	}
	var out []JustificationRecord
	for _, rec := range f.justifications {
		if rec.StudentID == studentID && r.Contains(rec.CreatedAt) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fixtureSource) WarningsByStudent(_ context.Context, studentID int64, r DateRange) ([]WarningRecord, error) {
	if f.warningErr != nil {
		return nil, f.warningErr
	}
	var out []WarningRecord
	for _, rec := range f.warnings {
		if rec.StudentID == studentID && r.Contains(rec.CreatedAt) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fixtureSource) AttendanceByScope(_ context.Context, scope Scope) ([]AttendanceRecord, error) {
	if f.scopeErr != nil {
		return nil, f.scopeErr
	}
	var out []AttendanceRecord
	for _, rec := range f.attendance {
		if scope.ClassID != nil && rec.ClassID != *scope.ClassID {
			continue
		}
		if !scope.Range.Contains(rec.EventTime()) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
