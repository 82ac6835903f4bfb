package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/web/handlers"
	"github.com/kozaktomas/attendai/internal/web/middleware"
	"github.com/kozaktomas/attendai/internal/web/static"
)

func (s *Server) setupRoutes() {
	sm := s.sessionManager

	authHandler := handlers.NewAuthHandler(sm)
	studentsHandler := handlers.NewStudentsHandler(s.service)
	sessionHandler := handlers.NewSessionHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	statsHandler := handlers.NewStatsHandler()
	timetableHandler := handlers.NewTimetableHandler()
	meHandler := handlers.NewMeHandler(s.service)
	teachersHandler := handlers.NewTeachersHandler()

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sm))

			// Any logged-in user
			r.Post("/me/password", authHandler.ChangePassword)

			// Teachers
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(database.RoleTeacher))

				r.Post("/teachers", teachersHandler.Create)

				r.Post("/students", studentsHandler.Create)
				r.Get("/students", studentsHandler.List)
				r.Delete("/students/{id}", studentsHandler.Delete)
				r.Post("/students/{id}/enroll", studentsHandler.Enroll)

				r.Get("/session", sessionHandler.Status)
				r.Post("/session/start", sessionHandler.Start)
				r.Post("/session/frame", sessionHandler.Frame)
				r.Post("/session/stop", sessionHandler.Stop)

				r.Post("/attendance", attendanceHandler.Mark)
				r.Get("/attendance", attendanceHandler.List)
				r.Get("/attendance/export", attendanceHandler.Export)
				r.Get("/stats/classes", statsHandler.Classes)

				r.Get("/timetable", timetableHandler.List)
				r.Post("/timetable", timetableHandler.Save)
			})

			// Students
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(database.RoleStudent))

				r.Get("/me/attendance", meHandler.Attendance)
				r.Get("/me/timetable", meHandler.Timetable)
			})
		})
	})

	// Webcam page
	s.router.Handle("/*", http.FileServer(static.FileSystem()))
}
