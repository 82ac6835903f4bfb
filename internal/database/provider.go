package database

import (
	"context"
	"errors"
	"sync"
)

// Backend groups the repositories of one storage backend.
type Backend struct {
	Name       string
	Students   StudentWriter
	Attendance AttendanceWriter
	Users      UserWriter
	Timetable  TimetableWriter
}

var (
	backendMu       sync.RWMutex
	activeBackend   *Backend
	enrollmentStore EnrollmentWriter
)

var errNotInitialized = errors.New("database backend not initialized: DATABASE_URL is required")

// RegisterBackend registers the active storage backend.
// This is called by cmd after opening postgres or sqlite to avoid import cycles.
func RegisterBackend(b *Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	activeBackend = b
}

// RegisterEnrollmentStore registers the store holding enrolled face embeddings.
func RegisterEnrollmentStore(store EnrollmentWriter) {
	backendMu.Lock()
	defer backendMu.Unlock()
	enrollmentStore = store
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return activeBackend != nil
}

// BackendName returns the name of the registered backend, or "" if none.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if activeBackend == nil {
		return ""
	}
	return activeBackend.Name
}

func getBackend() (*Backend, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if activeBackend == nil {
		return nil, errNotInitialized
	}
	return activeBackend, nil
}

// GetStudentWriter returns the StudentWriter of the active backend
func GetStudentWriter(ctx context.Context) (StudentWriter, error) {
	b, err := getBackend()
	if err != nil {
		return nil, err
	}
	if b.Students == nil {
		return nil, errors.New("student repository not registered")
	}
	return b.Students, nil
}

// GetAttendanceWriter returns the AttendanceWriter of the active backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	b, err := getBackend()
	if err != nil {
		return nil, err
	}
	if b.Attendance == nil {
		return nil, errors.New("attendance repository not registered")
	}
	return b.Attendance, nil
}

// GetUserWriter returns the UserWriter of the active backend
func GetUserWriter(ctx context.Context) (UserWriter, error) {
	b, err := getBackend()
	if err != nil {
		return nil, err
	}
	if b.Users == nil {
		return nil, errors.New("user repository not registered")
	}
	return b.Users, nil
}

// GetTimetableWriter returns the TimetableWriter of the active backend
func GetTimetableWriter(ctx context.Context) (TimetableWriter, error) {
	b, err := getBackend()
	if err != nil {
		return nil, err
	}
	if b.Timetable == nil {
		return nil, errors.New("timetable repository not registered")
	}
	return b.Timetable, nil
}

// GetEnrollmentWriter returns the registered enrollment store
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if enrollmentStore == nil {
		return nil, errors.New("enrollment store not registered")
	}
	return enrollmentStore, nil
}

// ResetForTesting clears all registrations.
func ResetForTesting() {
	backendMu.Lock()
	defer backendMu.Unlock()
	activeBackend = nil
	enrollmentStore = nil
}
