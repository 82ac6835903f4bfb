package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/constants"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
)

// AttendanceHandler handles manual entry and attendance listings
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// AttendanceResponse is an attendance record with its date and period label.
type AttendanceResponse struct {
	database.AttendanceRecord
	Date  string `json:"date"`
	Label string `json:"label"`
}

func toAttendanceResponse(rec database.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		AttendanceRecord: rec,
		Date:             rec.DateString(),
		Label:            attendance.PeriodLabel(rec.Period),
	}
}

func toAttendanceResponses(records []database.AttendanceRecord) []AttendanceResponse {
	if len(records) > constants.DefaultAttendanceLimit {
		records = records[:constants.DefaultAttendanceLimit]
	}
	result := make([]AttendanceResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, toAttendanceResponse(rec))
	}
	return result
}

type markRequest struct {
	StudentID int64           `json:"student_id" validate:"required,gt=0"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Period    periodValue     `json:"period" validate:"required,gt=0"`
	Status    database.Status `json:"status" validate:"required,oneof=present absent"`
}

// Mark records attendance entered by a teacher. Present is never downgraded.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date := h.service.Today()
	if req.Date != "" {
		parsed, err := database.ParseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date")
			return
		}
		date = parsed
	}

	rec, err := h.service.MarkManual(r.Context(), req.StudentID, date, int(req.Period), req.Status)
	if err != nil {
		respondServiceError(w, err, "mark attendance")
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceResponse(*rec))
}

// List returns attendance filtered by ?class=, ?date=, ?period= and ?student_id=.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAttendanceFilter(w, r)
	if !ok {
		return
	}

	repo, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	records, err := repo.ListAttendance(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "list attendance")
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceResponses(records))
}

// Export returns attendance as a CSV download, with the same filters as List
// and without the listing cap.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAttendanceFilter(w, r)
	if !ok {
		return
	}

	repo, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	records, err := repo.ListAttendance(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "export attendance")
		return
	}

	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, records); err != nil {
		respondServiceError(w, err, "export attendance")
		return
	}

	filename := "attendance-" + h.service.Today().Format(database.DateLayout) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write attendance export: %v", err)
	}
}

func parseAttendanceFilter(w http.ResponseWriter, r *http.Request) (database.AttendanceFilter, bool) {
	q := r.URL.Query()
	var filter database.AttendanceFilter

	if class := q.Get("class"); class != "" {
		filter.ClassName = facematch.CanonicalClassName(class)
	}
	if s := q.Get("date"); s != "" {
		date, err := database.ParseDate(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected "+database.DateLayout)
			return filter, false
		}
		filter.Date = date
	}
	if s := q.Get("period"); s != "" {
		period, err := attendance.ParsePeriod(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, attendance.ErrInvalidPeriod.Error())
			return filter, false
		}
		filter.Period = period
	}
	if s := q.Get("student_id"); s != "" {
		id, err := parseStudentID(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return filter, false
		}
		filter.StudentID = id
	}
	return filter, true
}

// StatsHandler serves attendance statistics
type StatsHandler struct{}

// NewStatsHandler creates a new stats handler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// ClassStatsResponse wraps class summaries with the time they were computed.
type ClassStatsResponse struct {
	Classes     []database.ClassSummary `json:"classes"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Classes returns class-wise attendance percentages.
func (h *StatsHandler) Classes(w http.ResponseWriter, r *http.Request) {
	repo, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	summaries, err := repo.ClassSummaries(r.Context())
	if err != nil {
		respondServiceError(w, err, "load class statistics")
		return
	}
	if summaries == nil {
		summaries = []database.ClassSummary{}
	}
	respondJSON(w, http.StatusOK, ClassStatsResponse{Classes: summaries, GeneratedAt: time.Now().UTC()})
}
