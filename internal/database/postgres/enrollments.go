package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository stores enrolled face embeddings as pgvector rows.
// Each Append is a single-row insert, so a set is never partially written.
// Embeddings of other face models are ignored.
type EnrollmentRepository struct {
	pool  *Pool
	model string
}

// NewEnrollmentRepository creates a repository scoped to one face model.
func NewEnrollmentRepository(pool *Pool, model string) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool, model: model}
}

// LoadAll returns all embeddings of the configured model, re-normalized.
func (r *EnrollmentRepository) LoadAll(ctx context.Context) (map[int64][]facematch.Vector, error) {
	query := `
		SELECT student_id, embedding
		FROM face_embeddings
		WHERE model = $1
		ORDER BY student_id, id
	`

	rows, err := r.pool.Query(ctx, query, r.model)
	if err != nil {
		return nil, &database.StorageError{Op: "load", Err: err}
	}
	defer rows.Close()

	result := make(map[int64][]facematch.Vector)
	for rows.Next() {
		var studentID int64
		var embedding pgvector.Vector
		if err := rows.Scan(&studentID, &embedding); err != nil {
			return nil, &database.StorageError{Op: "load", Err: fmt.Errorf("scan embedding: %w", err)}
		}
		result[studentID] = append(result[studentID], facematch.Normalize(embedding.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, &database.StorageError{Op: "load", Err: err}
	}
	return result, nil
}

// Append adds one embedding for the student.
func (r *EnrollmentRepository) Append(ctx context.Context, studentID int64, embedding facematch.Vector) error {
	if len(embedding) == 0 {
		return &database.StorageError{Op: "append", StudentID: studentID, Err: errors.New("empty embedding")}
	}

	query := `
		INSERT INTO face_embeddings (student_id, embedding, model, dim)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, studentID, pgvector.NewVector(embedding), r.model, len(embedding)); err != nil {
		return &database.StorageError{Op: "append", StudentID: studentID, Err: err}
	}
	return nil
}

// Delete removes every embedding of the student.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM face_embeddings WHERE student_id = $1", studentID); err != nil {
		return &database.StorageError{Op: "delete", StudentID: studentID, Err: err}
	}
	return nil
}
