package database

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of attendance dates.
const DateLayout = time.DateOnly

// Role of a user account.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Status of an attendance record.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Source records which path wrote an attendance record.
type Source string

const (
	SourceFace   Source = "face"
	SourceManual Source = "manual"
	SourceSweep  Source = "sweep"
)

// Student is a registered student.
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RollNo    string    `json:"roll_no"`
	ClassName string    `json:"class_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord is the attendance of one student for one (date, period).
type AttendanceRecord struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	Date      time.Time `json:"-"`
	Period    int       `json:"period"`
	Status    Status    `json:"status"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Filled by listing queries that join students.
	StudentName string `json:"student_name,omitempty"`
	RollNo      string `json:"roll_no,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
}

// DateString returns the record date in DateLayout.
func (r *AttendanceRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// AttendanceFilter narrows attendance listings. Zero values match everything.
type AttendanceFilter struct {
	ClassName string
	Date      time.Time
	Period    int
	StudentID int64
}

// ClassSummary aggregates attendance for one class.
type ClassSummary struct {
	ClassName  string  `json:"class_name"`
	Students   int     `json:"students"`
	Records    int     `json:"records"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// User is a login account. Student accounts reference their student row.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Department   string    `json:"department,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	StudentID    *int64    `json:"student_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TimetableEntry is one period of a class timetable.
type TimetableEntry struct {
	ID        int64  `json:"id"`
	ClassName string `json:"class_name"`
	DayOfWeek string `json:"day_of_week"`
	Period    int    `json:"period"`
	Subject   string `json:"subject"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Day truncates t to its calendar date (in t's location) at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Percentage returns present/records*100 rounded to two decimals.
func Percentage(present, records int) float64 {
	if records == 0 {
		return 0
	}
	p := float64(present) * 100 / float64(records)
	return float64(int64(p*100+0.5)) / 100
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NormalizeWeekday returns the canonical English day name ("monday" -> "Monday").
func NormalizeWeekday(s string) (string, bool) {
	for _, d := range weekdays {
		if strings.EqualFold(strings.TrimSpace(s), d) {
			return d, true
		}
	}
	return "", false
}

// WeekdayName returns the canonical day name of t.
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// SortTimetable orders entries Monday first, then by period.
func SortTimetable(entries []TimetableEntry) {
	index := func(day string) int {
		if i := slices.Index(weekdays, day); i >= 0 {
			return i
		}
		return len(weekdays)
	}
	slices.SortStableFunc(entries, func(a, b TimetableEntry) int {
		if c := cmp.Compare(index(a.DayOfWeek), index(b.DayOfWeek)); c != 0 {
			return c
		}
		return cmp.Compare(a.Period, b.Period)
	})
}
