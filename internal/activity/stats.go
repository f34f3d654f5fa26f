package activity

import (
	"context"
	"math"
	"sort"
)

// unknownDay buckets records whose session timestamp was never filled
// in. The literal sorts after every real yyyy-mm-dd key, so the
// chronological trend stays contiguous.
const unknownDay = "sem-data"

// Bucket is a counts-plus-rate summary for one grouping key. The same
// shape serves the overall, per-class, per-day and per-student
// dimensions. Present+Late+Absent always equals Total.
type Bucket struct {
	Present        int `json:"present"`
	Late           int `json:"late"`
	Absent         int `json:"absent"`
	Total          int `json:"total"`
	AttendanceRate int `json:"attendanceRate"`
}

func (b *Bucket) count(s Status) {
	switch s {
	case StatusPresent:
		b.Present++
	case StatusLate:
		b.Late++
	default:
		b.Absent++
	}
	b.Total++
}

// finalize computes the cohort rate: late counts as attendance but stays
// tracked apart from present.
func (b *Bucket) finalize() {
	b.AttendanceRate = percentage(b.Present+b.Late, b.Total)
}

// percentage rounds half-up to the nearest integer and is defined as 0
// for an empty bucket.
func percentage(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}

// ClassBucket is the per-class dimension, keyed by class id.
type ClassBucket struct {
	ClassID   int64  `json:"classId"`
	ClassName string `json:"className"`
	Bucket
}

// DayBucket is the per-calendar-day dimension. Day is yyyy-mm-dd, or
// "sem-data" for records without a timestamp.
type DayBucket struct {
	Day string `json:"day"`
	Bucket
}

// StudentBucket is the per-student dimension, keyed by student id.
type StudentBucket struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Bucket
}

// ClassStatistics is the full four-dimension aggregation result.
// ByClass is ordered by cohort size (total descending), ByStudent by
// attendance rate descending, ByDay chronologically ascending.
type ClassStatistics struct {
	Overall   Bucket          `json:"summary"`
	ByClass   []ClassBucket   `json:"byClass"`
	ByDay     []DayBucket     `json:"trend"`
	ByStudent []StudentBucket `json:"allStudents"`
}

// TopStudents returns the leading slice of the rate ranking. It is a
// view over ByStudent, not a separate computation.
func (s *ClassStatistics) TopStudents(n int) []StudentBucket {
	if n > len(s.ByStudent) {
		n = len(s.ByStudent)
	}
	return s.ByStudent[:n]
}

// Aggregate fetches every attendance record in scope and computes the
// four groupings in one pass over the materialized set. A fetch failure
// aborts the whole aggregation; no partial buckets are returned. Output
// ordering is fully deterministic (ties broken by id or key) so repeated
// calls over an unchanged source yield identical results.
func (s *Service) Aggregate(ctx context.Context, scope Scope) (*ClassStatistics, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	records, err := s.src.AttendanceByScope(ctx, scope)
	if err != nil {
		return nil, &SourceError{Op: "attendance", Err: err}
	}

	stats := &ClassStatistics{
		ByClass:   []ClassBucket{},
		ByDay:     []DayBucket{},
		ByStudent: []StudentBucket{},
	}
	byClass := map[int64]*ClassBucket{}
	byDay := map[string]*DayBucket{}
	byStudent := map[int64]*StudentBucket{}

	for _, r := range records {
		status := NormalizeStatus(r.Status)
		stats.Overall.count(status)

		cb, ok := byClass[r.ClassID]
		if !ok {
			cb = &ClassBucket{ClassID: r.ClassID, ClassName: r.ClassName}
			byClass[r.ClassID] = cb
		}
		cb.count(status)

		day := unknownDay
		if !r.OccurredAt.IsZero() {
			day = r.OccurredAt.Format("2006-01-02")
		}
		db, ok := byDay[day]
		if !ok {
			db = &DayBucket{Day: day}
			byDay[day] = db
		}
		db.count(status)

		sb, ok := byStudent[r.StudentID]
		if !ok {
			sb = &StudentBucket{StudentID: r.StudentID, StudentName: r.StudentName}
			byStudent[r.StudentID] = sb
		}
		sb.count(status)
	}

	stats.Overall.finalize()
	for _, cb := range byClass {
		cb.finalize()
		stats.ByClass = append(stats.ByClass, *cb)
	}
	for _, db := range byDay {
		db.finalize()
		stats.ByDay = append(stats.ByDay, *db)
	}
	for _, sb := range byStudent {
		sb.finalize()
		stats.ByStudent = append(stats.ByStudent, *sb)
	}

	sort.Slice(stats.ByClass, func(i, j int) bool {
		if stats.ByClass[i].Total != stats.ByClass[j].Total {
			return stats.ByClass[i].Total > stats.ByClass[j].Total
		}
		return stats.ByClass[i].ClassID < stats.ByClass[j].ClassID
	})
	sort.Slice(stats.ByDay, func(i, j int) bool {
		return stats.ByDay[i].Day < stats.ByDay[j].Day
	})
	sort.Slice(stats.ByStudent, func(i, j int) bool {
		if stats.ByStudent[i].AttendanceRate != stats.ByStudent[j].AttendanceRate {
			return stats.ByStudent[i].AttendanceRate > stats.ByStudent[j].AttendanceRate
		}
		return stats.ByStudent[i].StudentID < stats.ByStudent[j].StudentID
	})

	return stats, nil
}
