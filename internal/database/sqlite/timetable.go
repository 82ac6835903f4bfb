package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/attendai/internal/database"
)

// TimetableRepository provides SQLite-backed class timetables.
type TimetableRepository struct {
	db *sql.DB
}

// ListTimetable returns a class timetable, optionally for a single day.
func (r *TimetableRepository) ListTimetable(ctx context.Context, className, dayOfWeek string) ([]database.TimetableEntry, error) {
	query := `
		SELECT id, class_name, day_of_week, period, subject, start_time, end_time
		FROM timetable
		WHERE class_name = ? AND (? = '' OR day_of_week = ?)
	`

	rows, err := r.db.QueryContext(ctx, query, className, dayOfWeek, dayOfWeek)
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (class_name, day_of_week, period) DO UPDATE SET
			subject = excluded.subject,
			start_time = excluded.start_time,
			end_time = excluded.end_time
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, e.ClassName, e.DayOfWeek, e.Period, e.Subject, e.StartTime, e.EndTime).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("save timetable entry: %w", err)
	}
	return nil
}
