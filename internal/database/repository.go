package database

import (
	"context"
	"time"

	"github.com/kozaktomas/attendai/internal/facematch"
)

// StudentReader provides read access to students.
type StudentReader interface {
	// GetStudent returns the student or nil if it does not exist.
	GetStudent(ctx context.Context, id int64) (*Student, error)
	// GetStudentByRollNo returns the student or nil if it does not exist.
	GetStudentByRollNo(ctx context.Context, rollNo string) (*Student, error)
	// ListStudents returns students ordered by roll number; an empty class lists all.
	ListStudents(ctx context.Context, className string) ([]Student, error)
	// ListClasses returns distinct class names.
	ListClasses(ctx context.Context) ([]string, error)
}

// StudentWriter provides write access to students.
type StudentWriter interface {
	StudentReader
	// CreateStudent inserts the student and sets its ID. Returns ErrDuplicateRollNo.
	CreateStudent(ctx context.Context, s *Student) error
	// DeleteStudent removes the student together with attendance and login.
	DeleteStudent(ctx context.Context, id int64) error
}

// AttendanceReader provides read access to attendance records.
type AttendanceReader interface {
	// GetAttendance returns the record for (student, date, period) or nil.
	GetAttendance(ctx context.Context, studentID int64, date time.Time, period int) (*AttendanceRecord, error)
	// ListAttendance returns records matching the filter, newest first.
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// ClassSummaries aggregates attendance per class.
	ClassSummaries(ctx context.Context) ([]ClassSummary, error)
}

// AttendanceWriter provides write access to attendance records.
// At most one record exists per (student, date, period).
type AttendanceWriter interface {
	AttendanceReader
	// InsertAttendance inserts the record unless one already exists for
	// (student, date, period). Returns false when nothing was inserted.
	InsertAttendance(ctx context.Context, rec *AttendanceRecord) (bool, error)
	// MarkPresent changes an absent record to present.
	// Returns false when no absent record matched.
	MarkPresent(ctx context.Context, studentID int64, date time.Time, period int, source Source) (bool, error)
}

// UserReader provides read access to login accounts.
type UserReader interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// UserWriter provides write access to login accounts.
type UserWriter interface {
	UserReader
	// CreateUser inserts the user and sets its ID. Returns ErrDuplicateUsername.
	CreateUser(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// TimetableReader provides read access to class timetables.
type TimetableReader interface {
	// ListTimetable returns entries for a class; an empty day lists the whole week.
	ListTimetable(ctx context.Context, className, dayOfWeek string) ([]TimetableEntry, error)
}

// TimetableWriter provides write access to class timetables.
type TimetableWriter interface {
	TimetableReader
	// SaveTimetableEntry inserts or replaces the entry for (class, day, period).
	SaveTimetableEntry(ctx context.Context, e *TimetableEntry) error
}

// EnrollmentReader loads enrolled face embeddings.
type EnrollmentReader interface {
	// LoadAll returns every student's embeddings, L2-normalized.
	// A store that has never been written returns an empty map.
	LoadAll(ctx context.Context) (map[int64][]facematch.Vector, error)
}

// EnrollmentWriter appends and removes enrolled face embeddings.
type EnrollmentWriter interface {
	EnrollmentReader
	// Append adds one embedding to the student's set. Existing embeddings are kept.
	Append(ctx context.Context, studentID int64, embedding facematch.Vector) error
	// Delete removes the student's whole set.
	Delete(ctx context.Context, studentID int64) error
}
