package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendai/internal/database"
)

// AttendanceRepository provides SQLite-backed attendance records.
type AttendanceRepository struct {
	db *sql.DB
}

type recordRow struct {
	rec                  database.AttendanceRecord
	date, status, source string
	createdAt, updatedAt string
}

func (row *recordRow) targets() []any {
	return []any{
		&row.rec.ID, &row.rec.StudentID, &row.date, &row.rec.Period, &row.status, &row.source,
		&row.createdAt, &row.updatedAt,
	}
}

func (row *recordRow) record() (database.AttendanceRecord, error) {
	date, err := database.ParseDate(row.date)
	if err != nil {
		return database.AttendanceRecord{}, fmt.Errorf("parse attendance date %q: %w", row.date, err)
	}
	rec := row.rec
	rec.Date = date
	rec.Status = database.Status(row.status)
	rec.Source = database.Source(row.source)
	rec.CreatedAt = parseTimestamp(row.createdAt)
	rec.UpdatedAt = parseTimestamp(row.updatedAt)
	return rec, nil
}

// GetAttendance returns the record for (student, date, period) or nil.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, studentID int64, date time.Time, period int) (*database.AttendanceRecord, error) {
	query := `
		SELECT id, student_id, date, period, status, source, created_at, updated_at
		FROM attendance
		WHERE student_id = ? AND date = ? AND period = ?
	`

	var row recordRow
	err := r.db.QueryRowContext(ctx, query, studentID, dateParam(date), period).Scan(row.targets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertAttendance inserts a record unless (student, date, period) already exists.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance (student_id, date, period, status, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, date, period) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query,
		rec.StudentID, dateParam(rec.Date), rec.Period, string(rec.Status), string(rec.Source),
	).Scan(&rec.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return true, nil
}

// MarkPresent upgrades an absent record to present.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, studentID int64, date time.Time, period int, source database.Source) (bool, error) {
	query := `
		UPDATE attendance
		SET status = 'present', source = ?, updated_at = CURRENT_TIMESTAMP
		WHERE student_id = ? AND date = ? AND period = ? AND status = 'absent'
	`

	result, err := r.db.ExecContext(ctx, query, string(source), studentID, dateParam(date), period)
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
	if filter.ClassName != "" {
		conds = append(conds, "s.class_name = ?")
		args = append(args, filter.ClassName)
	}
	if !filter.Date.IsZero() {
		conds = append(conds, "a.date = ?")
		args = append(args, dateParam(filter.Date))
	}
	if filter.Period > 0 {
		conds = append(conds, "a.period = ?")
		args = append(args, filter.Period)
	}
	if filter.StudentID > 0 {
		conds = append(conds, "a.student_id = ?")
		args = append(args, filter.StudentID)
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

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var row recordRow
		targets := append(row.targets(), &row.rec.StudentName, &row.rec.RollNo, &row.rec.ClassName)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
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

	rows, err := r.db.QueryContext(ctx, query)
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
