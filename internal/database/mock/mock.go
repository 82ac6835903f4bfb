// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
)

// MockStudentWriter is a mock implementation of database.StudentWriter
type MockStudentWriter struct {
	mu       sync.RWMutex
	students map[int64]*database.Student
	nextID   int64

	// Error injection
	GetError    error
	ListError   error
	CreateError error
	DeleteError error
}

// NewMockStudentWriter creates a new mock student store
func NewMockStudentWriter() *MockStudentWriter {
	return &MockStudentWriter{
		students: make(map[int64]*database.Student),
		nextID:   1,
	}
}

// AddStudent adds a student to the mock store, assigning an ID when zero
func (m *MockStudentWriter) AddStudent(s database.Student) database.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.students[s.ID] = &s
	return s
}

// GetStudent retrieves a student by id
func (m *MockStudentWriter) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.students[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// GetStudentByRollNo retrieves a student by roll number
func (m *MockStudentWriter) GetStudentByRollNo(ctx context.Context, rollNo string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.RollNo == rollNo {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

// ListStudents lists students of a class ordered by roll number
func (m *MockStudentWriter) ListStudents(ctx context.Context, className string) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		if className == "" || s.ClassName == className {
			result = append(result, *s)
		}
	}
	slices.SortFunc(result, func(a, b database.Student) int { return cmp.Compare(a.RollNo, b.RollNo) })
	return result, nil
}

// ListClasses returns distinct class names
func (m *MockStudentWriter) ListClasses(ctx context.Context) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var classes []string
	for _, s := range m.students {
		if !slices.Contains(classes, s.ClassName) {
			classes = append(classes, s.ClassName)
		}
	}
	slices.Sort(classes)
	return classes, nil
}

// CreateStudent inserts a student
func (m *MockStudentWriter) CreateStudent(ctx context.Context, s *database.Student) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.students {
		if existing.RollNo == s.RollNo {
			return database.ErrDuplicateRollNo
		}
	}
	s.ID = m.nextID
	m.nextID++
	s.CreatedAt = time.Now().UTC()
	c := *s
	m.students[s.ID] = &c
	return nil
}

// DeleteStudent removes a student
func (m *MockStudentWriter) DeleteStudent(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.students, id)
	return nil
}

type attendanceKey struct {
	studentID int64
	date      string
	period    int
}

// MockAttendanceWriter is a mock implementation of database.AttendanceWriter.
// It enforces one record per (student, date, period).
type MockAttendanceWriter struct {
	mu       sync.RWMutex
	records  map[attendanceKey]*database.AttendanceRecord
	nextID   int64
	students *MockStudentWriter

	// Error injection
	GetError         error
	ListError        error
	SummaryError     error
	InsertError      error
	MarkPresentError error
	// InsertErrorFor fails inserts only for the listed students.
	InsertErrorFor map[int64]error
}

// NewMockAttendanceWriter creates a new mock attendance store.
// students is used to join names in listings and may be nil.
func NewMockAttendanceWriter(students *MockStudentWriter) *MockAttendanceWriter {
	return &MockAttendanceWriter{
		records:  make(map[attendanceKey]*database.AttendanceRecord),
		nextID:   1,
		students: students,
	}
}

func keyOf(studentID int64, date time.Time, period int) attendanceKey {
	return attendanceKey{studentID: studentID, date: date.Format(database.DateLayout), period: period}
}

// Records returns a copy of all stored records
func (m *MockAttendanceWriter) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.AttendanceRecord, 0, len(m.records))
	for _, r := range m.records {
		result = append(result, *r)
	}
	slices.SortFunc(result, func(a, b database.AttendanceRecord) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

// GetAttendance returns the record for (student, date, period)
func (m *MockAttendanceWriter) GetAttendance(ctx context.Context, studentID int64, date time.Time, period int) (*database.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[keyOf(studentID, date, period)]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

// ListAttendance lists records matching the filter, newest first
func (m *MockAttendanceWriter) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.AttendanceRecord
	for _, r := range m.records {
		rec := *r
		if m.students != nil {
			if s, _ := m.students.GetStudent(ctx, rec.StudentID); s != nil {
				rec.StudentName, rec.RollNo, rec.ClassName = s.Name, s.RollNo, s.ClassName
			}
		}
		if filter.ClassName != "" && rec.ClassName != filter.ClassName {
			continue
		}
		if !filter.Date.IsZero() && rec.DateString() != filter.Date.Format(database.DateLayout) {
			continue
		}
		if filter.Period > 0 && rec.Period != filter.Period {
			continue
		}
		if filter.StudentID > 0 && rec.StudentID != filter.StudentID {
			continue
		}
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b database.AttendanceRecord) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Period, a.Period); c != 0 {
			return c
		}
		return cmp.Compare(a.RollNo, b.RollNo)
	})
	return result, nil
}

// ClassSummaries aggregates attendance per class
func (m *MockAttendanceWriter) ClassSummaries(ctx context.Context) ([]database.ClassSummary, error) {
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	if m.students == nil {
		return nil, nil
	}
	students, err := m.students.ListStudents(ctx, "")
	if err != nil {
		return nil, err
	}

	byClass := make(map[string]*database.ClassSummary)
	classOf := make(map[int64]string, len(students))
	for _, s := range students {
		cs, ok := byClass[s.ClassName]
		if !ok {
			cs = &database.ClassSummary{ClassName: s.ClassName}
			byClass[s.ClassName] = cs
		}
		cs.Students++
		classOf[s.ID] = s.ClassName
	}

	m.mu.RLock()
	for _, r := range m.records {
		cs, ok := byClass[classOf[r.StudentID]]
		if !ok {
			continue
		}
		cs.Records++
		if r.Status == database.StatusPresent {
			cs.Present++
		} else {
			cs.Absent++
		}
	}
	m.mu.RUnlock()

	result := make([]database.ClassSummary, 0, len(byClass))
	for _, cs := range byClass {
		cs.Percentage = database.Percentage(cs.Present, cs.Records)
		result = append(result, *cs)
	}
	slices.SortFunc(result, func(a, b database.ClassSummary) int { return cmp.Compare(a.ClassName, b.ClassName) })
	return result, nil
}

// InsertAttendance inserts a record unless one exists for (student, date, period)
func (m *MockAttendanceWriter) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.InsertError != nil {
		return false, m.InsertError
	}
	if err := m.InsertErrorFor[rec.StudentID]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyOf(rec.StudentID, rec.Date, rec.Period)
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	now := time.Now().UTC()
	rec.ID = m.nextID
	m.nextID++
	rec.CreatedAt, rec.UpdatedAt = now, now
	c := *rec
	m.records[key] = &c
	return true, nil
}

// MarkPresent upgrades an absent record to present
func (m *MockAttendanceWriter) MarkPresent(ctx context.Context, studentID int64, date time.Time, period int, source database.Source) (bool, error) {
	if m.MarkPresentError != nil {
		return false, m.MarkPresentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[keyOf(studentID, date, period)]
	if !ok || r.Status != database.StatusAbsent {
		return false, nil
	}
	r.Status = database.StatusPresent
	r.Source = source
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MockUserWriter is a mock implementation of database.UserWriter
type MockUserWriter struct {
	mu     sync.RWMutex
	users  map[int64]*database.User
	nextID int64

	// Error injection
	GetError    error
	CreateError error
	UpdateError error
}

// NewMockUserWriter creates a new mock user store
func NewMockUserWriter() *MockUserWriter {
	return &MockUserWriter{
		users:  make(map[int64]*database.User),
		nextID: 1,
	}
}

// GetUserByUsername retrieves a user by username
func (m *MockUserWriter) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetUser retrieves a user by id
func (m *MockUserWriter) GetUser(ctx context.Context, id int64) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

// CreateUser inserts a user
func (m *MockUserWriter) CreateUser(ctx context.Context, u *database.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return database.ErrDuplicateUsername
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now().UTC()
	c := *u
	m.users[u.ID] = &c
	return nil
}

// UpdatePassword replaces a user's password hash
func (m *MockUserWriter) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// MockTimetableWriter is a mock implementation of database.TimetableWriter
type MockTimetableWriter struct {
	mu      sync.RWMutex
	entries []database.TimetableEntry
	nextID  int64

	// Error injection
	ListError error
	SaveError error
}

// NewMockTimetableWriter creates a new mock timetable store
func NewMockTimetableWriter() *MockTimetableWriter {
	return &MockTimetableWriter{nextID: 1}
}

// ListTimetable returns entries of a class, optionally for one day
func (m *MockTimetableWriter) ListTimetable(ctx context.Context, className, dayOfWeek string) ([]database.TimetableEntry, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.TimetableEntry
	for _, e := range m.entries {
		if e.ClassName == className && (dayOfWeek == "" || e.DayOfWeek == dayOfWeek) {
			result = append(result, e)
		}
	}
	database.SortTimetable(result)
	return result, nil
}

// SaveTimetableEntry inserts or replaces the entry for (class, day, period)
func (m *MockTimetableWriter) SaveTimetableEntry(ctx context.Context, e *database.TimetableEntry) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.entries {
		if existing.ClassName == e.ClassName && existing.DayOfWeek == e.DayOfWeek && existing.Period == e.Period {
			e.ID = existing.ID
			m.entries[i] = *e
			return nil
		}
	}
	e.ID = m.nextID
	m.nextID++
	m.entries = append(m.entries, *e)
	return nil
}

// MockEnrollmentWriter is a mock implementation of database.EnrollmentWriter
type MockEnrollmentWriter struct {
	mu         sync.RWMutex
	embeddings map[int64][]facematch.Vector

	// Error injection
	LoadError   error
	AppendError error
	DeleteError error
}

// NewMockEnrollmentWriter creates a new mock enrollment store
func NewMockEnrollmentWriter() *MockEnrollmentWriter {
	return &MockEnrollmentWriter{
		embeddings: make(map[int64][]facematch.Vector),
	}
}

// LoadAll returns a copy of every student's normalized embeddings
func (m *MockEnrollmentWriter) LoadAll(ctx context.Context) (map[int64][]facematch.Vector, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64][]facematch.Vector, len(m.embeddings))
	for id, vecs := range m.embeddings {
		result[id] = slices.Clone(vecs)
	}
	return result, nil
}

// Append adds a normalized copy of embedding to the student's set
func (m *MockEnrollmentWriter) Append(ctx context.Context, studentID int64, embedding facematch.Vector) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[studentID] = append(m.embeddings[studentID], facematch.Normalize(embedding))
	return nil
}

// Delete removes the student's embeddings
func (m *MockEnrollmentWriter) Delete(ctx context.Context, studentID int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.embeddings, studentID)
	return nil
}

// Count returns the number of embeddings stored for a student
func (m *MockEnrollmentWriter) Count(studentID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings[studentID])
}

// NewBackend returns a backend wired to fresh mock repositories
func NewBackend() (*database.Backend, *MockStudentWriter, *MockAttendanceWriter) {
	students := NewMockStudentWriter()
	attendance := NewMockAttendanceWriter(students)
	return &database.Backend{
		Name:       "mock",
		Students:   students,
		Attendance: attendance,
		Users:      NewMockUserWriter(),
		Timetable:  NewMockTimetableWriter(),
	}, students, attendance
}
