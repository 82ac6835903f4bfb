// Package attendance runs face-recognition attendance sessions.
//
// A Service owns at most one active session per process. While a session is
// active, each recognized student is marked present at most once; stopping
// the session marks every enrolled, unseen student of the class absent.
// Present records are never turned back into absent ones.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// Outcome of recognizing one face.
type Outcome string

const (
	OutcomeUnrecognized      Outcome = "unrecognized"
	OutcomeAlreadyMarked     Outcome = "already_marked"
	OutcomeNewlyMarked       Outcome = "newly_marked"
	OutcomeUpdatedFromAbsent Outcome = "updated_from_absent"
	OutcomeAlreadyPresent    Outcome = "already_present"
	OutcomeFailed            Outcome = "failed"
)

// sweepTimeout bounds the absence sweep, which outlives the caller's context.
const sweepTimeout = time.Minute

// Descriptor identifies a running session.
type Descriptor struct {
	ID        string    `json:"id"`
	ClassName string    `json:"class_name"`
	Date      string    `json:"date"`
	Period    int       `json:"period"`
	StartedAt time.Time `json:"started_at"`
	Seen      int       `json:"seen"`
}

// Recognition is the result of matching one face against the enrolled directory.
type Recognition struct {
	Outcome     Outcome `json:"outcome"`
	StudentID   int64   `json:"student_id,omitempty"`
	StudentName string  `json:"student_name,omitempty"`
	RollNo      string  `json:"roll_no,omitempty"`
	Score       float64 `json:"score"`
	// Error is set when the face matched but its attendance could not be written.
	Error string `json:"error,omitempty"`
}

// SweepFailure records a student the absence sweep could not write.
type SweepFailure struct {
	StudentID int64  `json:"student_id"`
	Error     string `json:"error"`
}

// StopSummary reports what a stopped session recorded.
type StopSummary struct {
	Session      Descriptor     `json:"session"`
	PresentCount int            `json:"present_count"`
	AbsentCount  int            `json:"absent_count"`
	Failures     []SweepFailure `json:"failures,omitempty"`
}

type session struct {
	id        string
	className string
	date      time.Time
	period    int
	startedAt time.Time
	seen      map[int64]struct{}
}

func (s *session) descriptor() Descriptor {
	return Descriptor{
		ID:        s.id,
		ClassName: s.className,
		Date:      s.date.Format(database.DateLayout),
		Period:    s.period,
		StartedAt: s.startedAt,
		Seen:      len(s.seen),
	}
}

// Config wires a Service to its collaborators.
type Config struct {
	Directory   *facematch.DirectoryCache
	Extractor   fingerprint.Extractor
	Students    database.StudentReader
	Attendance  database.AttendanceWriter
	Enrollments database.EnrollmentWriter
	Threshold   float64
	// Location decides which calendar day "today" is. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service owns the attendance session state machine.
type Service struct {
	dir         *facematch.DirectoryCache
	extractor   fingerprint.Extractor
	students    database.StudentReader
	attendance  database.AttendanceWriter
	enrollments database.EnrollmentWriter
	threshold   float64
	location    *time.Location
	now         func() time.Time

	mu    sync.Mutex // guards state; held for every transition
	state *session   // nil when idle
}

// NewService creates an idle service.
func NewService(cfg Config) *Service {
	s := &Service{
		dir:         cfg.Directory,
		extractor:   cfg.Extractor,
		students:    cfg.Students,
		attendance:  cfg.Attendance,
		enrollments: cfg.Enrollments,
		threshold:   cfg.Threshold,
		location:    cfg.Location,
		now:         cfg.Now,
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Threshold returns the configured match threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Directory returns the current enrolled directory snapshot.
func (s *Service) Directory() *facematch.Directory {
	return s.dir.Snapshot()
}

// Today returns the current school date.
func (s *Service) Today() time.Time {
	return database.Day(s.now().In(s.location))
}

// Start opens a session for className and period on today's date.
func (s *Service) Start(ctx context.Context, className string, period int) (*Descriptor, error) {
	className = facematch.CanonicalClassName(className)
	if className == "" {
		return nil, ErrClassRequired
	}
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return nil, ErrAlreadyActive
	}

	now := s.now()
	s.state = &session{
		id:        uuid.NewString(),
		className: className,
		date:      database.Day(now.In(s.location)),
		period:    period,
		startedAt: now,
		seen:      make(map[int64]struct{}),
	}

	d := s.state.descriptor()
	log.Printf("Attendance session %s started: class %s, %s, period %d", d.ID, d.ClassName, d.Date, d.Period)
	return &d, nil
}

// Status returns the active session, or nil when idle.
func (s *Service) Status() *Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	d := s.state.descriptor()
	return &d
}

// Recognize matches one embedding and records attendance for the matched student.
func (s *Service) Recognize(ctx context.Context, embedding facematch.Vector) (*Recognition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, ErrNotActive
	}
	r, err := s.recognizeLocked(ctx, s.state, embedding)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SubmitFrame extracts every face in img and recognizes each of them.
// A frame without faces yields a single unrecognized result. A face whose
// attendance cannot be written is reported as failed without dropping the
// results of the other faces.
func (s *Service) SubmitFrame(ctx context.Context, img image.Image) ([]Recognition, error) {
	sessionID, err := s.activeID()
	if err != nil {
		return nil, err
	}

	// Extraction is slow; run it without holding the session lock.
	embeddings, err := s.extractor.Extract(ctx, img)
	if err != nil && !errors.Is(err, fingerprint.ErrNoFaceDetected) {
		return nil, fmt.Errorf("extract faces: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The frame belongs to the session it was submitted to.
	if s.state == nil || s.state.id != sessionID {
		return nil, ErrNotActive
	}

	if len(embeddings) == 0 {
		return []Recognition{{Outcome: OutcomeUnrecognized, Score: -1}}, nil
	}

	results := make([]Recognition, 0, len(embeddings))
	for _, embedding := range embeddings {
		r, err := s.recognizeLocked(ctx, s.state, embedding)
		if err != nil {
			log.Printf("Failed to record attendance of student %d: %v", r.StudentID, err)
			r.Outcome = OutcomeFailed
			r.Error = err.Error()
		}
		results = append(results, *r)
	}
	return results, nil
}

func (s *Service) activeID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return "", ErrNotActive
	}
	return s.state.id, nil
}

// recognizeLocked always returns the recognition, with the matched identity
// filled in even when writing attendance fails.
func (s *Service) recognizeLocked(ctx context.Context, st *session, embedding facematch.Vector) (*Recognition, error) {
	match := facematch.Match(embedding, s.dir.Snapshot(), s.threshold)
	if !match.Matched {
		if match.StudentID != 0 {
			log.Printf("Near miss: closest student %d scored %.3f (threshold %.2f)", match.StudentID, match.Score, s.threshold)
		}
		return &Recognition{Outcome: OutcomeUnrecognized, Score: match.Score}, nil
	}

	r := &Recognition{StudentID: match.StudentID, Score: match.Score}
	s.describe(ctx, r)

	if _, ok := st.seen[match.StudentID]; ok {
		r.Outcome = OutcomeAlreadyMarked
		return r, nil
	}

	outcome, err := s.markPresent(ctx, st, match.StudentID)
	if err != nil {
		return r, err
	}
	st.seen[match.StudentID] = struct{}{}
	r.Outcome = outcome
	return r, nil
}

// describe fills in student identity; a failed lookup only costs the name.
func (s *Service) describe(ctx context.Context, r *Recognition) {
	student, err := s.students.GetStudent(ctx, r.StudentID)
	if err != nil {
		log.Printf("Failed to look up student %d: %v", r.StudentID, err)
		return
	}
	if student != nil {
		r.StudentName = student.Name
		r.RollNo = student.RollNo
	}
}

// markPresent writes a present record for the session's (date, period).
// A concurrent writer that wins the insert is reconciled by re-reading.
func (s *Service) markPresent(ctx context.Context, st *session, studentID int64) (Outcome, error) {
	existing, err := s.attendance.GetAttendance(ctx, studentID, st.date, st.period)
	if err != nil {
		return "", fmt.Errorf("get attendance: %w", err)
	}

	if existing == nil {
		rec := &database.AttendanceRecord{
			StudentID: studentID,
			Date:      st.date,
			Period:    st.period,
			Status:    database.StatusPresent,
			Source:    database.SourceFace,
		}
		inserted, err := s.attendance.InsertAttendance(ctx, rec)
		if err != nil {
			return "", fmt.Errorf("insert attendance: %w", err)
		}
		if inserted {
			return OutcomeNewlyMarked, nil
		}

		existing, err = s.attendance.GetAttendance(ctx, studentID, st.date, st.period)
		if err != nil {
			return "", fmt.Errorf("get attendance: %w", err)
		}
		if existing == nil {
			return "", fmt.Errorf("attendance of student %d disappeared after a conflicting insert", studentID)
		}
	}

	if existing.Status == database.StatusAbsent {
		updated, err := s.attendance.MarkPresent(ctx, studentID, st.date, st.period, database.SourceFace)
		if err != nil {
			return "", fmt.Errorf("mark present: %w", err)
		}
		if updated {
			return OutcomeUpdatedFromAbsent, nil
		}
	}
	return OutcomeAlreadyPresent, nil
}

// Stop ends the session and marks enrolled students of the class who were
// not seen as absent. Existing records are left untouched. When the class
// roster cannot be loaded the session stays active. Once the roster is
// loaded the sweep runs to completion even if ctx is canceled.
func (s *Service) Stop(ctx context.Context) (*StopSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st == nil {
		return nil, ErrNotActive
	}

	roster, err := s.students.ListStudents(ctx, st.className)
	if err != nil {
		return nil, fmt.Errorf("load class roster: %w", err)
	}

	sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sweepTimeout)
	defer cancel()

	dir := s.dir.Snapshot()
	summary := &StopSummary{
		Session:      st.descriptor(),
		PresentCount: len(st.seen),
	}

	for _, student := range roster {
		if _, ok := st.seen[student.ID]; ok || !dir.Has(student.ID) {
			continue
		}

		rec := &database.AttendanceRecord{
			StudentID: student.ID,
			Date:      st.date,
			Period:    st.period,
			Status:    database.StatusAbsent,
			Source:    database.SourceSweep,
		}
		inserted, err := s.attendance.InsertAttendance(sweepCtx, rec)
		if err != nil {
			log.Printf("Failed to mark student %d absent: %v", student.ID, err)
			summary.Failures = append(summary.Failures, SweepFailure{StudentID: student.ID, Error: err.Error()})
			continue
		}
		if inserted {
			summary.AbsentCount++
		}
	}

	s.state = nil
	log.Printf("Attendance session %s stopped: %d present, %d absent, %d failures",
		st.id, summary.PresentCount, summary.AbsentCount, len(summary.Failures))
	return summary, nil
}
