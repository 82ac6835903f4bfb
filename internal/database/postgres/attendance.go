package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendai/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance records.
// Uniqueness of (student_id, date, period) is enforced by the schema.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func dateParam(t time.Time) string {
	return t.Format(database.DateLayout)
}

// GetAttendance returns the record for (student, date, period) or nil.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, studentID int64, date time.Time, period int) (*database.AttendanceRecord, error) {
	query := `
		SELECT id, student_id, date, period, status, source, created_at, updated_at
		FROM attendance
		WHERE student_id = $1 AND date = $2 AND period = $3
	`

	var rec database.AttendanceRecord
	var status, source string
	err := r.pool.QueryRow(ctx, query, studentID, dateParam(date), period).Scan(
		&rec.ID, &rec.StudentID, &rec.Date, &rec.Period, &status, &source, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	rec.Status = database.Status(status)
	rec.Source = database.Source(source)
	rec.Date = database.Day(rec.Date)
	return &rec, nil
}

// InsertAttendance inserts a record unless (student, date, period) already exists.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance (student_id, date, period, status, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, date, period) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.StudentID, dateParam(rec.Date), rec.Period, string(rec.Status), string(rec.Source),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// MarkPresent upgrades an absent record to present.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, studentID int64, date time.Time, period int, source database.Source) (bool, error) {
	query := `
		UPDATE attendance
		SET status = 'present', source = $4, updated_at = NOW()
		WHERE student_id = $1 AND date = $2 AND period = $3 AND status = 'absent'
	`

	result, err := r.pool.Exec(ctx, query, studentID, dateParam(date), period, string(source))
	if err != nil {
		return false, fmt.Errorf("mark present: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark present: %w", err)
	}
	return n > 0, nil
}

// ListAttendance lists records joined with students, newest first.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ClassName != "" {
		add("s.class_name = $%d", filter.ClassName)
	}
	if !filter.Date.IsZero() {
		add("a.date = $%d", dateParam(filter.Date))
	}
	if filter.Period > 0 {
		add("a.period = $%d", filter.Period)
	}
	if filter.StudentID > 0 {
		add("a.student_id = $%d", filter.StudentID)
	}

	query := `
		SELECT a.id, a.student_id, a.date, a.period, a.status, a.source, a.created_at, a.updated_at,
		       s.name, s.roll_no, s.class_name
		FROM attendance a
		JOIN students s ON s.id = a.student_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.date DESC, a.period DESC, s.roll_no"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status, source string
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.Date, &rec.Period, &status, &source, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.StudentName, &rec.RollNo, &rec.ClassName,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Status = database.Status(status)
		rec.Source = database.Source(source)
		rec.Date = database.Day(rec.Date)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// ClassSummaries aggregates attendance per class.
func (r *AttendanceRepository) ClassSummaries(ctx context.Context) ([]database.ClassSummary, error) {
	query := `
		SELECT s.class_name,
		       COUNT(DISTINCT s.id),
		       COUNT(a.id),
		       COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0)
		FROM students s
		LEFT JOIN attendance a ON a.student_id = s.id
		GROUP BY s.class_name
		ORDER BY s.class_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query class summaries: %w", err)
	}
	defer rows.Close()

	var summaries []database.ClassSummary
	for rows.Next() {
		var cs database.ClassSummary
		if err := rows.Scan(&cs.ClassName, &cs.Students, &cs.Records, &cs.Present, &cs.Absent); err != nil {
			return nil, fmt.Errorf("scan class summary: %w", err)
		}
		cs.Percentage = database.Percentage(cs.Present, cs.Records)
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class summaries: %w", err)
	}
	return summaries, nil
}
