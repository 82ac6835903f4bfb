// Package accounts registers students and teachers and checks their passwords.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to passwords chosen by users.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RegisterStudent creates the student and a login whose username and initial
// password are the roll number. Name and class are normalized first.
// If the login cannot be created the student is removed again.
func RegisterStudent(ctx context.Context, students database.StudentWriter, users database.UserWriter, s *database.Student) error {
	s.Name = collapseSpaces(s.Name)
	s.RollNo = strings.TrimSpace(s.RollNo)
	s.ClassName = facematch.CanonicalClassName(s.ClassName)
	s.Email = strings.TrimSpace(s.Email)

	if err := students.CreateStudent(ctx, s); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	hash, err := HashPassword(s.RollNo)
	if err == nil {
		err = users.CreateUser(ctx, &database.User{
			Username:     s.RollNo,
			PasswordHash: hash,
			Role:         database.RoleStudent,
			Email:        s.Email,
			FullName:     s.Name,
			StudentID:    &s.ID,
		})
	}
	if err != nil {
		if delErr := students.DeleteStudent(ctx, s.ID); delErr != nil {
			log.Printf("Failed to roll back student %d: %v", s.ID, delErr)
		}
		return fmt.Errorf("create student login: %w", err)
	}
	return nil
}

// TeacherProfile holds the optional details of a teacher account.
type TeacherProfile struct {
	FullName   string
	Email      string
	Department string
	Subject    string
	Phone      string
}

// CreateTeacher creates a teacher account.
func CreateTeacher(ctx context.Context, users database.UserWriter, username, password string, profile TeacherProfile) (*database.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &database.User{
		Username:     username,
		PasswordHash: hash,
		Role:         database.RoleTeacher,
		FullName:     collapseSpaces(profile.FullName),
		Email:        strings.TrimSpace(profile.Email),
		Department:   collapseSpaces(profile.Department),
		Subject:      collapseSpaces(profile.Subject),
		Phone:        strings.TrimSpace(profile.Phone),
	}
	if err := users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create teacher: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when username and password match.
func Authenticate(ctx context.Context, users database.UserReader, username, password string) (*database.User, error) {
	u, err := users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
func ChangePassword(ctx context.Context, users database.UserWriter, userID int64, current, next string) error {
	u, err := users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil || !CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return users.UpdatePassword(ctx, userID, hash)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
