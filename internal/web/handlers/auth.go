package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/web/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{sessionManager: sm}
}

type loginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success bool                    `json:"success"`
	Token   string                  `json:"token,omitempty"`
	Session *middleware.SessionData `json:"session,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Login checks the credentials and issues a session cookie and token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	users, err := database.GetUserWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	user, err := accounts.Authenticate(r.Context(), users, req.Username, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		log.Printf("Failed login for %q", sanitizeForLog(req.Username))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: "invalid credentials"})
		return
	}
	if err != nil {
		respondServiceError(w, err, "authenticate")
		return
	}

	session, err := h.sessionManager.CreateSession(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	data := session.ToJSON()
	respondJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   session.Token,
		Session: &data,
	})
}

// Logout revokes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool                    `json:"authenticated"`
	Session       *middleware.SessionData `json:"session,omitempty"`
}

// Status reports whether the request carries a valid session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	data := session.ToJSON()
	respondJSON(w, http.StatusOK, StatusResponse{Authenticated: true, Session: &data})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,nefield=CurrentPassword"`
}

// ChangePassword replaces the password of the logged-in user.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	users, err := database.GetUserWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	err = accounts.ChangePassword(r.Context(), users, session.UserID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		respondError(w, http.StatusForbidden, "current password is incorrect")
		return
	}
	if err != nil {
		respondServiceError(w, err, "change password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
