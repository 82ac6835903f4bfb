package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/config"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/database/mock"
	"github.com/kozaktomas/attendai/internal/facematch"
)

func newTestServer(t *testing.T) (*Server, *mock.MockStudentWriter) {
	t.Helper()

	backend, students, att := mock.NewBackend()
	enrollments := mock.NewMockEnrollmentWriter()
	database.RegisterBackend(backend)
	database.RegisterEnrollmentStore(enrollments)
	t.Cleanup(database.ResetForTesting)

	ctx := context.Background()
	if _, err := accounts.CreateTeacher(ctx, backend.Users, "admin", "secret123", accounts.TeacherProfile{FullName: "Admin"}); err != nil {
		t.Fatal(err)
	}
	student := &database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"}
	if err := accounts.RegisterStudent(ctx, students, backend.Users, student); err != nil {
		t.Fatal(err)
	}

	svc := attendance.NewService(attendance.Config{
		Directory:   facematch.NewDirectoryCache(enrollments),
		Students:    students,
		Attendance:  att,
		Enrollments: enrollments,
		Threshold:   0.4,
		Location:    time.UTC,
	})

	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "test-secret"}}
	return NewServer(cfg, svc), students
}

func login(t *testing.T, s *Server, username, password string) string {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, recorder.Code, recorder.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func TestRoutes_RoleEnforcement(t *testing.T) {
	s, _ := newTestServer(t)
	teacher := login(t, s, "admin", "secret123")
	student := login(t, s, "R001", "R001")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"health is public", "GET", "/api/v1/health", "", http.StatusOK},
		{"auth status is public", "GET", "/api/v1/auth/status", "", http.StatusOK},
		{"anonymous students", "GET", "/api/v1/students", "", http.StatusUnauthorized},
		{"teacher students", "GET", "/api/v1/students", teacher, http.StatusOK},
		{"student students", "GET", "/api/v1/students", student, http.StatusForbidden},
		{"teacher session", "GET", "/api/v1/session", teacher, http.StatusOK},
		{"student session", "GET", "/api/v1/session", student, http.StatusForbidden},
		{"student own attendance", "GET", "/api/v1/me/attendance", student, http.StatusOK},
		{"student own timetable", "GET", "/api/v1/me/timetable", student, http.StatusOK},
		{"teacher has no student dashboard", "GET", "/api/v1/me/attendance", teacher, http.StatusForbidden},
		{"stats for teacher", "GET", "/api/v1/stats/classes", teacher, http.StatusOK},
		{"teacher export", "GET", "/api/v1/attendance/export", teacher, http.StatusOK},
		{"student export", "GET", "/api/v1/attendance/export", student, http.StatusForbidden},
		{"anonymous teacher registration", "POST", "/api/v1/teachers", "", http.StatusUnauthorized},
		{"student teacher registration", "POST", "/api/v1/teachers", student, http.StatusForbidden},
		{"webcam page", "GET", "/", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)
			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", recorder.Code, tt.wantStatus, recorder.Body.String())
			}
		})
	}
}

func TestRoutes_LogoutRevokesToken(t *testing.T) {
	s, _ := newTestServer(t)
	token := login(t, s, "admin", "secret123")

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.Router().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/api/v1/students", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 after logout", recorder.Code)
	}
}

func TestRoutes_SecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}
