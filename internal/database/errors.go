package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRollNo is returned when a roll number is already registered.
	ErrDuplicateRollNo = errors.New("roll number already registered")
	// ErrDuplicateUsername is returned when a username is taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrStatusRegression is returned when a present record would become absent.
	ErrStatusRegression = errors.New("present attendance cannot be changed to absent")
	// ErrNotFound is returned by deletes and updates that matched nothing.
	ErrNotFound = errors.New("not found")
)

// StorageError is an I/O failure of the enrollment store.
type StorageError struct {
	Op        string
	StudentID int64
	Err       error
}

func (e *StorageError) Error() string {
	if e.StudentID != 0 {
		return fmt.Sprintf("enrollment storage: %s student %d: %v", e.Op, e.StudentID, e.Err)
	}
	return fmt.Sprintf("enrollment storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
