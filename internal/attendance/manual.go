package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendai/internal/database"
)

// MarkManual records a teacher-entered status for (student, date, period).
// Absent may be upgraded to present; present is never downgraded
// (database.ErrStatusRegression). Repeating the current status is a no-op.
// Manual entries do not take the session lock.
func (s *Service) MarkManual(ctx context.Context, studentID int64, date time.Time, period int, status database.Status) (*database.AttendanceRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	date = database.Day(date)

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, ErrUnknownStudent
	}

	existing, err := s.attendance.GetAttendance(ctx, studentID, date, period)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	if existing == nil {
		rec := &database.AttendanceRecord{
			StudentID: studentID,
			Date:      date,
			Period:    period,
			Status:    status,
			Source:    database.SourceManual,
		}
		inserted, err := s.attendance.InsertAttendance(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("insert attendance: %w", err)
		}
		if inserted {
			return rec, nil
		}
		if existing, err = s.attendance.GetAttendance(ctx, studentID, date, period); err != nil {
			return nil, fmt.Errorf("get attendance: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("attendance of student %d disappeared after a conflicting insert", studentID)
		}
	}

	switch {
	case existing.Status == status:
		return existing, nil
	case existing.Status == database.StatusPresent:
		return nil, database.ErrStatusRegression
	}

	if _, err := s.attendance.MarkPresent(ctx, studentID, date, period, database.SourceManual); err != nil {
		return nil, fmt.Errorf("mark present: %w", err)
	}
	updated, err := s.attendance.GetAttendance(ctx, studentID, date, period)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return updated, nil
}

// TodayEntry is one timetable period of a student's day with its attendance status.
type TodayEntry struct {
	database.TimetableEntry
	Label  string `json:"label"`
	Status string `json:"status"`
}

// StatusNotTaken marks a period without an attendance record.
const StatusNotTaken = "not taken"

// StudentDay combines today's timetable of the student's class with their attendance.
func (s *Service) StudentDay(ctx context.Context, student *database.Student, timetable database.TimetableReader) ([]TodayEntry, error) {
	today := s.Today()
	entries, err := timetable.ListTimetable(ctx, student.ClassName, database.WeekdayName(today))
	if err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}

	result := make([]TodayEntry, 0, len(entries))
	for _, e := range entries {
		entry := TodayEntry{TimetableEntry: e, Label: PeriodLabel(e.Period), Status: StatusNotTaken}
		rec, err := s.attendance.GetAttendance(ctx, student.ID, today, e.Period)
		if err != nil {
			return nil, fmt.Errorf("get attendance: %w", err)
		}
		if rec != nil {
			entry.Status = string(rec.Status)
		}
		result = append(result, entry)
	}
	return result, nil
}
