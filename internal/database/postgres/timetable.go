package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendai/internal/database"
)

// TimetableRepository provides PostgreSQL-backed class timetables.
type TimetableRepository struct {
	pool *Pool
}

// NewTimetableRepository creates a new PostgreSQL timetable repository.
func NewTimetableRepository(pool *Pool) *TimetableRepository {
	return &TimetableRepository{pool: pool}
}

// ListTimetable returns a class timetable, optionally for a single day.
func (r *TimetableRepository) ListTimetable(ctx context.Context, className, dayOfWeek string) ([]database.TimetableEntry, error) {
	query := `
		SELECT id, class_name, day_of_week, period, subject, start_time, end_time
		FROM timetable
		WHERE class_name = $1 AND ($2 = '' OR day_of_week = $2)
	`

	rows, err := r.pool.Query(ctx, query, className, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("query timetable: %w", err)
	}
	defer rows.Close()

	var entries []database.TimetableEntry
	for rows.Next() {
		var e database.TimetableEntry
		if err := rows.Scan(&e.ID, &e.ClassName, &e.DayOfWeek, &e.Period, &e.Subject, &e.StartTime, &e.EndTime); err != nil {
			return nil, fmt.Errorf("scan timetable entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timetable: %w", err)
	}

	database.SortTimetable(entries)
	return entries, nil
}

// SaveTimetableEntry inserts or replaces the entry for (class, day, period).
func (r *TimetableRepository) SaveTimetableEntry(ctx context.Context, e *database.TimetableEntry) error {
	query := `
		INSERT INTO timetable (class_name, day_of_week, period, subject, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (class_name, day_of_week, period) DO UPDATE SET
			subject = EXCLUDED.subject,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query, e.ClassName, e.DayOfWeek, e.Period, e.Subject, e.StartTime, e.EndTime).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("save timetable entry: %w", err)
	}
	return nil
}
