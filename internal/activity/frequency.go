package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

var weekdayNames = [...]string{
	"domingo",
	"segunda-feira",
	"terça-feira",
	"quarta-feira",
	"quinta-feira",
	"sexta-feira",
	"sábado",
}

func weekdayName(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return weekdayNames[int(t.Weekday())]
}

// FrequencyStatistics is the attendance summary of one student's report.
//
// AttendanceRate here uses the present-only formula, unlike the cohort
// aggregation which counts late as attendance. The two views shipped
// with different formulas and are kept as observed.
type FrequencyStatistics struct {
	TotalDays           int `json:"totalDays"`
	Present             int `json:"present"`
	Late                int `json:"late"`
	Absent              int `json:"absent"`
	JustifiedAbsences   int `json:"justifiedAbsences"`
	UnjustifiedAbsences int `json:"unjustifiedAbsences"`
	AttendanceRate      int `json:"attendanceRate"`
}

// HistoryEntry is one attendance mark annotated for display.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Weekday     string    `json:"weekday"`
	Status      Status    `json:"status"`
	IsJustified bool      `json:"isJustified"`
}

// FrequencyReport is the per-student frequency view: profile
// pass-throughs, the summary statistics and the annotated history, most
// recent first.
type FrequencyReport struct {
	Student    StudentProfile      `json:"student"`
	Statistics FrequencyStatistics `json:"statistics"`
	History    []HistoryEntry      `json:"history"`
	Period     DateRange           `json:"period"`
}

// FrequencyReport assembles the single-student report. The profile and
// the attendance records are fetched concurrently; a missing student is
// a NotFound condition, never an empty report.
func (s *Service) FrequencyReport(ctx context.Context, studentID int64, r DateRange) (*FrequencyReport, error) {
	if studentID <= 0 {
		return nil, fmt.Errorf("student id %d: %w", studentID, ErrInvalidInput)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var (
		profile *StudentProfile
		records []AttendanceRecord
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
	g.Go(func() error {
		recs, err := s.src.AttendanceByStudent(gctx, studentID, r)
		if err != nil {
			return &SourceError{Op: "attendance", Err: err}
		}
		records = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}

	report := &FrequencyReport{
		Student: *profile,
		History: make([]HistoryEntry, 0, len(records)),
		Period:  r,
	}
	stats := &report.Statistics
	for _, rec := range records {
		status := NormalizeStatus(rec.Status)
		stats.TotalDays++
		switch status {
		case StatusPresent:
			stats.Present++
		case StatusLate:
			stats.Late++
		default:
			stats.Absent++
			if rec.Justified() {
				stats.JustifiedAbsences++
			}
		}
		when := rec.EventTime()
		report.History = append(report.History, HistoryEntry{
			ID:          rec.ID,
			Date:        when,
			Weekday:     weekdayName(when),
			Status:      status,
			IsJustified: rec.Justified(),
		})
	}
	stats.UnjustifiedAbsences = stats.Absent - stats.JustifiedAbsences
	stats.AttendanceRate = percentage(stats.Present, stats.TotalDays)

	sort.SliceStable(report.History, func(i, j int) bool {
		return report.History[i].Date.After(report.History[j].Date)
	})

	return report, nil
}
