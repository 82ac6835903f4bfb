package handlers

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/constants"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// StudentsHandler handles student registration and face enrollment
type StudentsHandler struct {
	service *attendance.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(service *attendance.Service) *StudentsHandler {
	return &StudentsHandler{service: service}
}

// StudentResponse is a student with its enrollment state.
type StudentResponse struct {
	database.Student
	Enrolled   bool `json:"enrolled"`
	Embeddings int  `json:"embeddings"`
}

func (h *StudentsHandler) toResponse(dir *facematch.Directory, s database.Student) StudentResponse {
	n := len(dir.Vectors(s.ID))
	return StudentResponse{Student: s, Enrolled: n > 0, Embeddings: n}
}

type createStudentRequest struct {
	Name      string `json:"name" validate:"notblank,max=100"`
	RollNo    string `json:"roll_no" validate:"notblank,max=32"`
	ClassName string `json:"class_name" validate:"notblank,max=32"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// Create registers a student together with their login.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	students, err := database.GetStudentWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}
	users, err := database.GetUserWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	student := &database.Student{
		Name:      req.Name,
		RollNo:    req.RollNo,
		ClassName: req.ClassName,
		Email:     req.Email,
	}
	if err := accounts.RegisterStudent(r.Context(), students, users, student); err != nil {
		respondServiceError(w, err, "create student")
		return
	}

	respondJSON(w, http.StatusCreated, h.toResponse(h.service.Directory(), *student))
}

// List returns students, optionally filtered by ?class= and a name query ?q=.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := database.GetStudentWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	className := r.URL.Query().Get("class")
	if className != "" {
		className = facematch.CanonicalClassName(className)
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	list, err := students.ListStudents(r.Context(), className)
	if err != nil {
		respondServiceError(w, err, "list students")
		return
	}

	dir := h.service.Directory()
	result := make([]StudentResponse, 0, len(list))
	for _, s := range list {
		if query != "" && !facematch.NameMatches(s.Name, query) && !strings.EqualFold(s.RollNo, query) {
			continue
		}
		result = append(result, h.toResponse(dir, s))
	}
	respondJSON(w, http.StatusOK, result)
}

// Delete removes a student, their attendance, login and enrolled faces.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := studentIDParam(w, r)
	if !ok {
		return
	}

	students, err := database.GetStudentWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database not available")
		return
	}

	if err := students.DeleteStudent(r.Context(), id); err != nil {
		respondServiceError(w, err, "delete student")
		return
	}
	if err := h.service.Unenroll(r.Context(), id); err != nil {
		log.Printf("Failed to remove enrolled faces of student %d: %v", id, err)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type enrollRequest struct {
	Images []string `json:"images" validate:"required,min=1,max=20,dive,notblank"`
}

// Enroll adds face embeddings from multipart "images" files or a JSON list
// of base64 images.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, ok := studentIDParam(w, r)
	if !ok {
		return
	}

	var images [][]byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		images, ok = readMultipartImages(w, r)
	} else {
		images, ok = readJSONImages(w, r)
	}
	if !ok {
		return
	}

	result, err := h.service.Enroll(r.Context(), id, images)
	if err != nil {
		respondServiceError(w, err, "enroll student")
		return
	}

	status := http.StatusOK
	if result.Added == 0 {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, result)
}

func readMultipartImages(w http.ResponseWriter, r *http.Request) ([][]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no images provided")
		return nil, false
	}
	if len(files) > constants.MaxEnrollImages {
		respondError(w, http.StatusBadRequest, "too many images (max "+strconv.Itoa(constants.MaxEnrollImages)+")")
		return nil, false
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return nil, false
		}
		images = append(images, data)
	}
	return images, true
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func readJSONImages(w http.ResponseWriter, r *http.Request) ([][]byte, bool) {
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}

	images := make([][]byte, 0, len(req.Images))
	for i, frame := range req.Images {
		data, err := fingerprint.DecodeBase64(frame)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image "+strconv.Itoa(i+1)+": "+err.Error())
			return nil, false
		}
		images = append(images, data)
	}
	return images, true
}

var errInvalidStudentID = errors.New("invalid student id")

func parseStudentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidStudentID
	}
	return id, nil
}

func studentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}
