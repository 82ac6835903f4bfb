package attendance

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// EnrollResult reports a batch enrollment.
type EnrollResult struct {
	StudentID int64    `json:"student_id"`
	Added     int      `json:"added"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
	// Embeddings is the student's total after the directory reload.
	Embeddings int `json:"embeddings"`
}

type enrollOptions struct {
	progress func(done, total int)
}

// EnrollOption customizes Enroll.
type EnrollOption func(*enrollOptions)

// WithProgress reports after each processed image.
func WithProgress(fn func(done, total int)) EnrollOption {
	return func(o *enrollOptions) {
		o.progress = fn
	}
}

// Enroll adds one embedding per image (the first detected face) to the
// student's set. Images that fail to decode, contain no face or cannot be
// stored are counted as failures and skipped. The directory is reloaded once
// if anything was added.
func (s *Service) Enroll(ctx context.Context, studentID int64, images [][]byte, opts ...EnrollOption) (*EnrollResult, error) {
	var o enrollOptions
	for _, opt := range opts {
		opt(&o)
	}

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, ErrUnknownStudent
	}

	result := &EnrollResult{StudentID: studentID}
	for i, data := range images {
		if err := s.enrollOne(ctx, studentID, data); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("image %d: %v", i+1, err))
		} else {
			result.Added++
		}
		if o.progress != nil {
			o.progress(i+1, len(images))
		}
	}

	if result.Added == 0 {
		result.Embeddings = len(s.dir.Snapshot().Vectors(studentID))
		return result, nil
	}

	dir, err := s.dir.Reload(ctx)
	if err != nil {
		return result, fmt.Errorf("reload directory: %w", err)
	}
	result.Embeddings = len(dir.Vectors(studentID))
	log.Printf("Enrolled %d face(s) for student %d (%d failed, %d total)", result.Added, studentID, result.Failed, result.Embeddings)
	return result, nil
}

func (s *Service) enrollOne(ctx context.Context, studentID int64, data []byte) error {
	img, err := fingerprint.DecodeImage(data)
	if err != nil {
		return err
	}
	embeddings, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return fingerprint.ErrNoFaceDetected
	}
	return s.enrollments.Append(ctx, studentID, embeddings[0])
}

// Unenroll removes every embedding of the student and reloads the directory.
func (s *Service) Unenroll(ctx context.Context, studentID int64) error {
	if err := s.enrollments.Delete(ctx, studentID); err != nil {
		return err
	}
	if _, err := s.dir.Reload(ctx); err != nil {
		return fmt.Errorf("reload directory: %w", err)
	}
	return nil
}
