package activity

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// Repository is the Postgres-backed record source.
type Repository struct {
	db *sql.DB
}

var _ Source = (*Repository)(nil)

// NewRepository creates a repo over an open connection pool.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentByID loads the profile slice reports need. Returns (nil, nil)
// when no such student exists.
func (r *Repository) StudentByID(ctx context.Context, id int64) (*StudentProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.cpf, s.is_neurodivergent, s.birth_date,
		       COALESCE(EXTRACT(YEAR FROM age(s.birth_date)), 0)::int,
		       s.class_id, COALESCE(c.name, ''), s.medical_info, s.allergies
		FROM students s
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE s.id = $1
	`, id)
	var p StudentProfile
	err := row.Scan(&p.ID, &p.Name, &p.CPF, &p.IsNeurodivergent, &p.BirthDate,
		&p.Age, &p.ClassID, &p.ClassName, &p.MedicalInfo, &p.Allergies)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// AttendanceByStudent returns one student's attendance marks, teacher
// name joined in, range filtered on the session timestamp (falling back
// to creation time when the session timestamp is null).
func (r *Repository) AttendanceByStudent(ctx context.Context, studentID int64, rng DateRange) ([]AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_id, a.class_id, a.status, a.occurred_at, a.created_at,
		       a.teacher_id, t.name, a.justification_id
		FROM attendance_records a
		LEFT JOIN teachers t ON t.id = a.teacher_id`
	args := []any{studentID}
	clauses := []string{"a.student_id = $1"}
	clauses, args = appendRange(clauses, args, "COALESCE(a.occurred_at, a.created_at)", rng)
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY a.occurred_at DESC NULLS LAST"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []AttendanceRecord
	for rows.Next() {
		var (
			rec      AttendanceRecord
			occurred sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Status,
			&occurred, &rec.CreatedAt, &rec.TeacherID, &rec.TeacherName,
			&rec.JustificationID); err != nil {
			return nil, err
		}
		rec.OccurredAt = occurred.Time
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// JustificationsByStudent returns one student's absence justifications,
// range filtered on submission time.
func (r *Repository) JustificationsByStudent(ctx context.Context, studentID int64, rng DateRange) ([]JustificationRecord, error) {
	query := `
		SELECT j.id, j.student_id, j.teacher_id, t.name, j.created_at,
		       j.reason, j.attachment_url, j.approved
		FROM justifications j
		LEFT JOIN teachers t ON t.id = j.teacher_id`
	args := []any{studentID}
	clauses := []string{"j.student_id = $1"}
	clauses, args = appendRange(clauses, args, "j.created_at", rng)
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY j.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []JustificationRecord
	for rows.Next() {
		var rec JustificationRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.TeacherID, &rec.TeacherName,
			&rec.CreatedAt, &rec.Reason, &rec.AttachmentURL, &rec.Approved); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// WarningsByStudent returns one student's disciplinary warnings, range
// filtered on creation time.
func (r *Repository) WarningsByStudent(ctx context.Context, studentID int64, rng DateRange) ([]WarningRecord, error) {
	query := `
		SELECT w.id, w.student_id, w.teacher_id, t.name, w.created_at, w.description
		FROM warnings w
		LEFT JOIN teachers t ON t.id = w.teacher_id`
	args := []any{studentID}
	clauses := []string{"w.student_id = $1"}
	clauses, args = appendRange(clauses, args, "w.created_at", rng)
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY w.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []WarningRecord
	for rows.Next() {
		var rec WarningRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.TeacherID, &rec.TeacherName,
			&rec.CreatedAt, &rec.Description); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// AttendanceByScope returns the attendance marks of a whole cohort with
// student and class names joined in for grouping.
func (r *Repository) AttendanceByScope(ctx context.Context, scope Scope) ([]AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_id, a.class_id, a.status, a.occurred_at, a.created_at,
		       a.justification_id, s.name, COALESCE(c.name, '')
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		LEFT JOIN classes c ON c.id = a.class_id`
	var (
		args    []any
		clauses []string
	)
	if scope.ClassID != nil {
		args = append(args, *scope.ClassID)
		clauses = append(clauses, "a.class_id = $"+strconv.Itoa(len(args)))
	}
	clauses, args = appendRange(clauses, args, "COALESCE(a.occurred_at, a.created_at)", scope.Range)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY a.occurred_at ASC NULLS LAST, a.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []AttendanceRecord
	for rows.Next() {
		var (
			rec      AttendanceRecord
			occurred sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Status,
			&occurred, &rec.CreatedAt, &rec.JustificationID,
			&rec.StudentName, &rec.ClassName); err != nil {
			return nil, err
		}
		rec.OccurredAt = occurred.Time
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// appendRange adds inclusive bound conditions on column for the set
// bounds of rng, numbering placeholders after the existing args.
func appendRange(clauses []string, args []any, column string, rng DateRange) ([]string, []any) {
	if rng.From != nil {
		args = append(args, *rng.From)
		clauses = append(clauses, column+" >= $"+strconv.Itoa(len(args)))
	}
	if rng.To != nil {
		args = append(args, *rng.To)
		clauses = append(clauses, column+" <= $"+strconv.Itoa(len(args)))
	}
	return clauses, args
}
