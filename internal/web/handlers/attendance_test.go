package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"strings"
	"time"

	"github.com/kozaktomas/attendai/internal/database"
)

func TestAttendanceHandler_Mark(t *testing.T) {
	e := setupEnv(t)
	handler := NewAttendanceHandler(e.service)
	alice := e.students.AddStudent(database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"})

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantValue  database.Status
	}{
		{"absent first", map[string]any{"student_id": alice.ID, "period": 1, "status": "absent"}, http.StatusOK, database.StatusAbsent},
		{"upgrade to present", map[string]any{"student_id": alice.ID, "period": "Period 1", "status": "present"}, http.StatusOK, database.StatusPresent},
		{"repeat present", map[string]any{"student_id": alice.ID, "period": 1, "status": "present"}, http.StatusOK, database.StatusPresent},
		{"downgrade refused", map[string]any{"student_id": alice.ID, "period": 1, "status": "absent"}, http.StatusConflict, ""},
		{"explicit date", map[string]any{"student_id": alice.ID, "date": "2026-03-13", "period": 4, "status": "present"}, http.StatusOK, database.StatusPresent},
		{"bad date", map[string]any{"student_id": alice.ID, "date": "13/03/2026", "period": 1, "status": "present"}, http.StatusBadRequest, ""},
		{"bad status", map[string]any{"student_id": alice.ID, "period": 1, "status": "late"}, http.StatusBadRequest, ""},
		{"unknown student", map[string]any{"student_id": 42, "period": 1, "status": "present"}, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Mark(recorder, jsonRequest(t, "POST", "/api/v1/attendance", tt.body))
			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp AttendanceResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Status != tt.wantValue || resp.Source != database.SourceManual {
				t.Errorf("unexpected record %+v", resp)
			}
			if date, ok := tt.body["date"]; ok && resp.Date != date {
				t.Errorf("date = %s, want %s", resp.Date, date)
			}
			if _, ok := tt.body["date"]; !ok && resp.Date != "2026-03-16" {
				t.Errorf("date = %s, want today", resp.Date)
			}
		})
	}
}

func TestAttendanceHandler_List(t *testing.T) {
	e := setupEnv(t)
	handler := NewAttendanceHandler(e.service)
	alice := e.students.AddStudent(database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"})
	carol := e.students.AddStudent(database.Student{Name: "Carol", RollNo: "R003", ClassName: "9-B"})

	monday := database.Day(testNow)
	friday := monday.Add(-72 * time.Hour)
	for _, rec := range []database.AttendanceRecord{
		{StudentID: alice.ID, Date: monday, Period: 1, Status: database.StatusPresent, Source: database.SourceFace},
		{StudentID: alice.ID, Date: friday, Period: 2, Status: database.StatusAbsent, Source: database.SourceSweep},
		{StudentID: carol.ID, Date: monday, Period: 1, Status: database.StatusAbsent, Source: database.SourceSweep},
	} {
		if _, err := e.attendance.InsertAttendance(t.Context(), &rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"all", "", http.StatusOK, 3},
		{"class", "?class=10-a", http.StatusOK, 2},
		{"date", "?date=2026-03-16", http.StatusOK, 2},
		{"class date period", "?class=10-A&date=2026-03-16&period=P1", http.StatusOK, 1},
		{"student", "?student_id=2", http.StatusOK, 1},
		{"bad date", "?date=yesterday", http.StatusBadRequest, 0},
		{"bad period", "?period=first", http.StatusBadRequest, 0},
		{"bad student", "?student_id=x", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance"+tt.query, nil))
			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []AttendanceResponse
			parseJSONResponse(t, recorder, &resp)
			if len(resp) != tt.wantCount {
				t.Errorf("got %d records, want %d", len(resp), tt.wantCount)
			}
			for _, r := range resp {
				if r.Date == "" || r.Label == "" || r.StudentName == "" {
					t.Errorf("incomplete record %+v", r)
				}
			}
		})
	}
}

func TestAttendanceHandler_Export(t *testing.T) {
	e := setupEnv(t)
	handler := NewAttendanceHandler(e.service)
	alice := e.students.AddStudent(database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"})
	carol := e.students.AddStudent(database.Student{Name: "Carol", RollNo: "R003", ClassName: "9-B"})

	day := database.Day(testNow)
	for _, rec := range []database.AttendanceRecord{
		{StudentID: alice.ID, Date: day, Period: 1, Status: database.StatusPresent, Source: database.SourceFace},
		{StudentID: carol.ID, Date: day, Period: 1, Status: database.StatusAbsent, Source: database.SourceSweep},
	} {
		if _, err := e.attendance.InsertAttendance(t.Context(), &rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRows   int
	}{
		{"all", "", http.StatusOK, 3},
		{"class", "?class=9-b", http.StatusOK, 2},
		{"no match", "?period=5", http.StatusOK, 1},
		{"bad date", "?date=yesterday", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Export(recorder, httptest.NewRequest("GET", "/api/v1/attendance/export"+tt.query, nil))
			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}

			if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
				t.Errorf("Content-Type = %q, want text/csv", ct)
			}
			if cd := recorder.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance-2026-03-16.csv") {
				t.Errorf("Content-Disposition = %q", cd)
			}
			rows, err := csv.NewReader(recorder.Body).ReadAll()
			if err != nil {
				t.Fatalf("reading csv: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.wantRows)
			}
			if rows[0][0] != "date" {
				t.Errorf("missing header row: %v", rows[0])
			}
		})
	}

	t.Run("row content", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Export(recorder, httptest.NewRequest("GET", "/api/v1/attendance/export?class=10-A", nil))
		rows, err := csv.NewReader(recorder.Body).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"2026-03-16", "1", "Period 1", "10-A", "R001", "Alice", "present", "face"}
		if len(rows) != 2 || strings.Join(rows[1], ",") != strings.Join(want, ",") {
			t.Errorf("rows = %v, want header and %v", rows, want)
		}
	})
}

func TestStatsHandler_Classes(t *testing.T) {
	e := setupEnv(t)
	handler := NewStatsHandler()
	alice := e.students.AddStudent(database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"})
	bob := e.students.AddStudent(database.Student{Name: "Bob", RollNo: "R002", ClassName: "10-A"})

	day := database.Day(testNow)
	for _, rec := range []database.AttendanceRecord{
		{StudentID: alice.ID, Date: day, Period: 1, Status: database.StatusPresent},
		{StudentID: bob.ID, Date: day, Period: 1, Status: database.StatusAbsent},
	} {
		if _, err := e.attendance.InsertAttendance(t.Context(), &rec); err != nil {
			t.Fatal(err)
		}
	}

	recorder := httptest.NewRecorder()
	handler.Classes(recorder, httptest.NewRequest("GET", "/api/v1/stats/classes", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp ClassStatsResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Classes) != 1 {
		t.Fatalf("expected one class, got %+v", resp.Classes)
	}
	c := resp.Classes[0]
	if c.ClassName != "10-A" || c.Present != 1 || c.Absent != 1 || c.Percentage != 50 {
		t.Errorf("unexpected summary %+v", c)
	}
}

func TestStatsHandler_NoBackend(t *testing.T) {
	database.ResetForTesting()
	handler := NewStatsHandler()

	recorder := httptest.NewRecorder()
	handler.Classes(recorder, httptest.NewRequest("GET", "/api/v1/stats/classes", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}
