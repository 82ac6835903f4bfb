package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendai/internal/database"
)

// StudentRepository provides PostgreSQL-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = "id, name, roll_no, class_name, email, created_at"

func scanStudent(row interface{ Scan(...any) error }) (*database.Student, error) {
	var s database.Student
	if err := row.Scan(&s.ID, &s.Name, &s.RollNo, &s.ClassName, &s.Email, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudent retrieves a student by id, nil if not found.
func (r *StudentRepository) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

// GetStudentByRollNo retrieves a student by roll number, nil if not found.
func (r *StudentRepository) GetStudentByRollNo(ctx context.Context, rollNo string) (*database.Student, error) {
	s, err := scanStudent(r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE roll_no = $1", rollNo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student by roll no: %w", err)
	}
	return s, nil
}

// ListStudents lists students of a class (all students when className is empty).
func (r *StudentRepository) ListStudents(ctx context.Context, className string) ([]database.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE ($1 = '' OR class_name = $1) ORDER BY roll_no"

	rows, err := r.pool.Query(ctx, query, className)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// ListClasses returns distinct class names in order.
func (r *StudentRepository) ListClasses(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT class_name FROM students ORDER BY class_name")
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}

// CreateStudent inserts a student and fills in ID and CreatedAt.
func (r *StudentRepository) CreateStudent(ctx context.Context, s *database.Student) error {
	query := `
		INSERT INTO students (name, roll_no, class_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, s.Name, s.RollNo, s.ClassName, s.Email).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err, "students_roll_no_key") {
		return database.ErrDuplicateRollNo
	}
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// DeleteStudent removes a student; attendance, login and embeddings cascade.
func (r *StudentRepository) DeleteStudent(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
