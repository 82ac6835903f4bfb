package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/config"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/database/postgres"
	"github.com/kozaktomas/attendai/internal/database/sqlite"
	"github.com/kozaktomas/attendai/internal/enrollment"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// app holds the storage a command works with.
type app struct {
	cfg         *config.Config
	backend     *database.Backend
	enrollments database.EnrollmentWriter
	directory   *facematch.DirectoryCache
	closeFn     func() error
}

// openApp loads configuration, opens the configured backend and registers it.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	a := &app{cfg: cfg}
	switch cfg.Database.Driver() {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Database.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		a.backend = store.Backend()
		a.closeFn = store.Close
	default:
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		a.backend = pool.Backend()
		a.closeFn = pool.Close
		if cfg.Enrollment.Backend == config.EnrollmentBackendPostgres {
			a.enrollments = postgres.NewEnrollmentRepository(pool, cfg.Embedding.Model)
		}
	}
	if a.enrollments == nil {
		a.enrollments = enrollment.NewFileStore(cfg.Enrollment.Dir)
	}

	database.RegisterBackend(a.backend)
	database.RegisterEnrollmentStore(a.enrollments)
	a.directory = facematch.NewDirectoryCache(a.enrollments)
	return a, nil
}

// loadDirectory reads the enrolled embeddings into memory.
func (a *app) loadDirectory(ctx context.Context) (*facematch.Directory, error) {
	dir, err := a.directory.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled faces: %w", err)
	}
	return dir, nil
}

func (a *app) extractor() *fingerprint.FaceExtractor {
	client := fingerprint.NewEmbeddingClient(a.cfg.Embedding.URL, a.cfg.Embedding.Model, a.cfg.Embedding.Detector, a.cfg.Embedding.RequestTimeout)
	return fingerprint.NewFaceExtractor(client, a.cfg.Embedding.EnforceFaces)
}

func (a *app) service() *attendance.Service {
	return attendance.NewService(attendance.Config{
		Directory:   a.directory,
		Extractor:   a.extractor(),
		Students:    a.backend.Students,
		Attendance:  a.backend.Attendance,
		Enrollments: a.enrollments,
		Threshold:   a.cfg.Recognition.Threshold,
		Location:    a.cfg.School.Location,
	})
}

func (a *app) Close() {
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil {
			fmt.Printf("Warning: failed to close database: %v\n", err)
		}
	}
}
