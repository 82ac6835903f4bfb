package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/database/mock"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/kozaktomas/attendai/internal/web/middleware"
)

var testNow = time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC) // Monday

const testThreshold = 0.5

// fakeExtractor returns the configured embeddings for every image.
type fakeExtractor struct {
	mu    sync.Mutex
	faces []facematch.Vector
	err   error
}

func (f *fakeExtractor) set(faces []facematch.Vector, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces = faces
	f.err = err
}

func (f *fakeExtractor) Extract(ctx context.Context, img image.Image) ([]facematch.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faces, f.err
}

type testEnv struct {
	service     *attendance.Service
	students    *mock.MockStudentWriter
	attendance  *mock.MockAttendanceWriter
	users       *mock.MockUserWriter
	timetable   *mock.MockTimetableWriter
	enrollments *mock.MockEnrollmentWriter
	extractor   *fakeExtractor
	dir         *facematch.DirectoryCache
	sessions    *middleware.SessionManager
}

// setupEnv registers a mock backend and builds a service on top of it.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	backend, students, att := mock.NewBackend()
	enrollments := mock.NewMockEnrollmentWriter()
	database.RegisterBackend(backend)
	database.RegisterEnrollmentStore(enrollments)
	t.Cleanup(database.ResetForTesting)

	extractor := &fakeExtractor{}
	dir := facematch.NewDirectoryCache(enrollments)
	svc := attendance.NewService(attendance.Config{
		Directory:   dir,
		Extractor:   extractor,
		Students:    students,
		Attendance:  att,
		Enrollments: enrollments,
		Threshold:   testThreshold,
		Location:    time.UTC,
		Now:         func() time.Time { return testNow },
	})

	return &testEnv{
		service:     svc,
		students:    students,
		attendance:  att,
		users:       backend.Users.(*mock.MockUserWriter),
		timetable:   backend.Timetable.(*mock.MockTimetableWriter),
		enrollments: enrollments,
		extractor:   extractor,
		dir:         dir,
		sessions:    middleware.NewSessionManager("test-secret"),
	}
}

// enroll stores an embedding for a student and reloads the directory.
func (e *testEnv) enroll(t *testing.T, studentID int64, v facematch.Vector) {
	t.Helper()
	if err := e.enrollments.Append(context.Background(), studentID, v); err != nil {
		t.Fatalf("append embedding: %v", err)
	}
	if _, err := e.dir.Reload(context.Background()); err != nil {
		t.Fatalf("reload directory: %v", err)
	}
}

// unit returns the i-th basis vector.
func unit(i int) facematch.Vector {
	v := make(facematch.Vector, 4)
	v[i] = 1
	return v
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withSession puts a session for user into the request context.
func withSession(t *testing.T, e *testEnv, r *http.Request, u *database.User) *http.Request {
	t.Helper()
	session, err := e.sessions.CreateSession(u)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// pngBase64 returns a small PNG as a data URL.
func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

var teacherUser = &database.User{ID: 1, Username: "admin", Role: database.RoleTeacher}
