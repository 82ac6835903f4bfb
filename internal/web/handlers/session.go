package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// SessionHandler drives the live attendance session
type SessionHandler struct {
	service *attendance.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *attendance.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

type startSessionRequest struct {
	ClassName string      `json:"class_name" validate:"notblank,max=32"`
	Period    periodValue `json:"period" validate:"required,gt=0"`
}

// Start opens a session for a class and period on today's date.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.service.Start(r.Context(), req.ClassName, int(req.Period))
	if err != nil {
		respondServiceError(w, err, "start session")
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

type frameRequest struct {
	Image string `json:"image" validate:"notblank"`
}

// FrameResponse lists one recognition per detected face.
type FrameResponse struct {
	Session string                   `json:"session"`
	Results []attendance.Recognition `json:"results"`
}

// Frame recognizes every face in a webcam frame and records attendance.
func (h *SessionHandler) Frame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	img, err := fingerprint.DecodeFrame(req.Image)
	if err != nil {
		respondServiceError(w, err, "decode frame")
		return
	}

	results, err := h.service.SubmitFrame(r.Context(), img)
	if err != nil {
		respondServiceError(w, err, "process frame")
		return
	}

	resp := FrameResponse{Results: results}
	if d := h.service.Status(); d != nil {
		resp.Session = d.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

// Stop ends the session and marks unseen enrolled students absent.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Stop(r.Context())
	if err != nil {
		respondServiceError(w, err, "stop session")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// SessionStatusResponse reports the active session, if any.
type SessionStatusResponse struct {
	Active    bool                   `json:"active"`
	Session   *attendance.Descriptor `json:"session,omitempty"`
	Threshold float64                `json:"threshold"`
	Enrolled  int                    `json:"enrolled"`
}

// Status returns the active session and the directory size.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	d := h.service.Status()
	respondJSON(w, http.StatusOK, SessionStatusResponse{
		Active:    d != nil,
		Session:   d,
		Threshold: h.service.Threshold(),
		Enrolled:  h.service.Directory().Len(),
	})
}
