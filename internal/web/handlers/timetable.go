package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
)

// TimetableHandler handles class timetables
type TimetableHandler struct{}

// NewTimetableHandler creates a new timetable handler
func NewTimetableHandler() *TimetableHandler {
	return &TimetableHandler{}
}

// TimetableResponse is a timetable entry with its period label.
type TimetableResponse struct {
	database.TimetableEntry
	Label string `json:"label"`
}

func toTimetableResponses(entries []database.TimetableEntry) []TimetableResponse {
	result := make([]TimetableResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, TimetableResponse{TimetableEntry: e, Label: attendance.PeriodLabel(e.Period)})
	}
	return result
}

// List returns the timetable of ?class=, optionally for one ?day=.
func (h *TimetableHandler) List(w http.ResponseWriter, r *http.Request) {
	className := facematch.CanonicalClassName(r.URL.Query().Get("class"))
	if className == "" {
		respondError(w, http.StatusBadRequest, "class is required")
		return
	}

	var day string
	if s := r.URL.Query().Get("day"); s != "" {
		var ok bool
		if day, ok = database.NormalizeWeekday(s); !ok {
			respondError(w, http.StatusBadRequest, "invalid day")
			return
		}
	}

	repo, err := database.GetTimetableWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	entries, err := repo.ListTimetable(r.Context(), className, day)
	if err != nil {
		respondServiceError(w, err, "list timetable")
		return
	}
	respondJSON(w, http.StatusOK, toTimetableResponses(entries))
}

type saveTimetableRequest struct {
	ClassName string      `json:"class_name" validate:"notblank,max=32"`
	DayOfWeek string      `json:"day_of_week" validate:"weekday"`
	Period    periodValue `json:"period" validate:"required,gt=0"`
	Subject   string      `json:"subject" validate:"notblank,max=100"`
	StartTime string      `json:"start_time" validate:"clock"`
	EndTime   string      `json:"end_time" validate:"clock"`
}

// Save creates or replaces the entry for (class, day, period).
func (h *TimetableHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveTimetableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartTime != "" && req.EndTime != "" && req.EndTime <= req.StartTime {
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: map[string]string{"end_time": "end_time must be after start_time"},
		})
		return
	}

	repo, err := database.GetTimetableWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	day, _ := database.NormalizeWeekday(req.DayOfWeek)
	entry := &database.TimetableEntry{
		ClassName: facematch.CanonicalClassName(req.ClassName),
		DayOfWeek: day,
		Period:    int(req.Period),
		Subject:   collapse(req.Subject),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := repo.SaveTimetableEntry(r.Context(), entry); err != nil {
		respondServiceError(w, err, "save timetable entry")
		return
	}
	respondJSON(w, http.StatusOK, TimetableResponse{TimetableEntry: *entry, Label: attendance.PeriodLabel(entry.Period)})
}
