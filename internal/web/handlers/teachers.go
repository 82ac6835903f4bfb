package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/kozaktomas/attendai/internal/database"
)

// TeachersHandler manages teacher accounts
type TeachersHandler struct{}

// NewTeachersHandler creates a new teachers handler
func NewTeachersHandler() *TeachersHandler {
	return &TeachersHandler{}
}

type createTeacherRequest struct {
	Username   string `json:"username" validate:"notblank,max=128"`
	Password   string `json:"password" validate:"required,min=6"`
	FullName   string `json:"full_name" validate:"max=255"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department" validate:"max=128"`
	Subject    string `json:"subject" validate:"max=128"`
	Phone      string `json:"phone" validate:"max=32"`
}

// Create adds a teacher account. Only teachers can create other teachers.
func (h *TeachersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeacherRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	users, err := database.GetUserWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	u, err := accounts.CreateTeacher(r.Context(), users, req.Username, req.Password, accounts.TeacherProfile{
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
		Subject:    req.Subject,
		Phone:      req.Phone,
	})
	if err != nil {
		respondServiceError(w, err, "create teacher")
		return
	}
	respondJSON(w, http.StatusCreated, u)
}
