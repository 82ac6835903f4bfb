package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/web/middleware"
)

// MeHandler serves the logged-in student's own data
type MeHandler struct {
	service *attendance.Service
}

// NewMeHandler creates a new student dashboard handler
func NewMeHandler(service *attendance.Service) *MeHandler {
	return &MeHandler{service: service}
}

// MyAttendanceResponse is the student's attendance history with totals.
type MyAttendanceResponse struct {
	Student    database.Student     `json:"student"`
	Records    []AttendanceResponse `json:"records"`
	Present    int                  `json:"present"`
	Absent     int                  `json:"absent"`
	Percentage float64              `json:"percentage"`
}

// currentStudent resolves the student behind the session. It writes the
// error response and returns nil when there is none.
func currentStudent(w http.ResponseWriter, r *http.Request) *database.Student {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil || session.StudentID == nil {
		respondError(w, http.StatusForbidden, "no student profile for this account")
		return nil
	}

	students, err := database.GetStudentWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return nil
	}
	student, err := students.GetStudent(r.Context(), *session.StudentID)
	if err != nil {
		respondServiceError(w, err, "load student")
		return nil
	}
	if student == nil {
		respondError(w, http.StatusNotFound, attendance.ErrUnknownStudent.Error())
		return nil
	}
	return student
}

// Attendance returns the student's records, newest first.
func (h *MeHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	student := currentStudent(w, r)
	if student == nil {
		return
	}

	repo, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}
	records, err := repo.ListAttendance(r.Context(), database.AttendanceFilter{StudentID: student.ID})
	if err != nil {
		respondServiceError(w, err, "list attendance")
		return
	}

	resp := MyAttendanceResponse{Student: *student, Records: toAttendanceResponses(records)}
	for _, rec := range records {
		switch rec.Status {
		case database.StatusPresent:
			resp.Present++
		case database.StatusAbsent:
			resp.Absent++
		}
	}
	resp.Percentage = database.Percentage(resp.Present, resp.Present+resp.Absent)
	respondJSON(w, http.StatusOK, resp)
}

// MyDayResponse is today's timetable of the student's class.
type MyDayResponse struct {
	Date    string                  `json:"date"`
	Day     string                  `json:"day"`
	Periods []attendance.TodayEntry `json:"periods"`
}

// Timetable returns today's periods with the student's status for each.
func (h *MeHandler) Timetable(w http.ResponseWriter, r *http.Request) {
	student := currentStudent(w, r)
	if student == nil {
		return
	}

	repo, err := database.GetTimetableWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}
	entries, err := h.service.StudentDay(r.Context(), student, repo)
	if err != nil {
		respondServiceError(w, err, "load timetable")
		return
	}

	today := h.service.Today()
	respondJSON(w, http.StatusOK, MyDayResponse{
		Date:    today.Format(database.DateLayout),
		Day:     database.WeekdayName(today),
		Periods: entries,
	})
}
