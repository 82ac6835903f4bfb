//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/attendai/internal/config"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

var testDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestAttendanceLifecycle(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	b := pool.Backend()

	alice := &database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"}
	bob := &database.Student{Name: "Bob", RollNo: "R002", ClassName: "10-A"}
	for _, s := range []*database.Student{alice, bob} {
		if err := b.Students.CreateStudent(ctx, s); err != nil {
			t.Fatalf("Failed to create student: %v", err)
		}
	}

	t.Run("DuplicateRollNo", func(t *testing.T) {
		err := b.Students.CreateStudent(ctx, &database.Student{Name: "Eve", RollNo: "R001", ClassName: "10-A"})
		if !errors.Is(err, database.ErrDuplicateRollNo) {
			t.Errorf("Expected ErrDuplicateRollNo, got %v", err)
		}
	})

	t.Run("InsertIsUnique", func(t *testing.T) {
		rec := &database.AttendanceRecord{StudentID: bob.ID, Date: testDate, Period: 1, Status: database.StatusAbsent, Source: database.SourceSweep}
		inserted, err := b.Attendance.InsertAttendance(ctx, rec)
		if err != nil || !inserted {
			t.Fatalf("Expected insert, got %v, %v", inserted, err)
		}

		dup := &database.AttendanceRecord{StudentID: bob.ID, Date: testDate, Period: 1, Status: database.StatusPresent, Source: database.SourceFace}
		inserted, err = b.Attendance.InsertAttendance(ctx, dup)
		if err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
		if inserted {
			t.Error("Expected duplicate insert to be skipped")
		}
	})

	t.Run("MarkPresent", func(t *testing.T) {
		updated, err := b.Attendance.MarkPresent(ctx, bob.ID, testDate, 1, database.SourceFace)
		if err != nil || !updated {
			t.Fatalf("Expected update, got %v, %v", updated, err)
		}
		updated, err = b.Attendance.MarkPresent(ctx, bob.ID, testDate, 1, database.SourceFace)
		if err != nil || updated {
			t.Errorf("Expected no update for a present record, got %v, %v", updated, err)
		}

		rec, err := b.Attendance.GetAttendance(ctx, bob.ID, testDate, 1)
		if err != nil || rec == nil {
			t.Fatalf("Failed to get attendance: %+v, %v", rec, err)
		}
		if rec.Status != database.StatusPresent || rec.DateString() != "2026-03-14" {
			t.Errorf("Unexpected record %+v", rec)
		}
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := &database.AttendanceRecord{StudentID: alice.ID, Date: testDate, Period: 2, Status: database.StatusPresent, Source: database.SourceFace}
				inserted, err := b.Attendance.InsertAttendance(ctx, rec)
				if err != nil {
					t.Errorf("Failed to insert: %v", err)
					return
				}
				if inserted {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("Expected exactly one insert, got %d", wins)
		}
	})

	t.Run("ListAndSummaries", func(t *testing.T) {
		records, err := b.Attendance.ListAttendance(ctx, database.AttendanceFilter{ClassName: "10-A", Date: testDate})
		if err != nil {
			t.Fatalf("Failed to list attendance: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].Period != 2 || records[0].StudentName != "Alice" {
			t.Errorf("Expected newest period first with names, got %+v", records[0])
		}

		summaries, err := b.Attendance.ClassSummaries(ctx)
		if err != nil {
			t.Fatalf("Failed to get summaries: %v", err)
		}
		if len(summaries) != 1 || summaries[0].Present != 2 || summaries[0].Percentage != 100 {
			t.Errorf("Unexpected summaries %+v", summaries)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		if err := b.Students.DeleteStudent(ctx, bob.ID); err != nil {
			t.Fatalf("Failed to delete student: %v", err)
		}
		rec, err := b.Attendance.GetAttendance(ctx, bob.ID, testDate, 1)
		if err != nil {
			t.Fatalf("Failed to get attendance: %v", err)
		}
		if rec != nil {
			t.Error("Expected attendance to be deleted with the student")
		}
		if err := b.Students.DeleteStudent(ctx, bob.ID); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserAndTimetableRepositories(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	b := pool.Backend()

	t.Run("Users", func(t *testing.T) {
		u := &database.User{Username: "admin", PasswordHash: "hash", Role: database.RoleTeacher, Department: "Science", Subject: "Physics", Phone: "555-0100"}
		if err := b.Users.CreateUser(ctx, u); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
		if err := b.Users.CreateUser(ctx, &database.User{Username: "admin", PasswordHash: "x", Role: database.RoleTeacher}); !errors.Is(err, database.ErrDuplicateUsername) {
			t.Errorf("Expected ErrDuplicateUsername, got %v", err)
		}
		if err := b.Users.UpdatePassword(ctx, u.ID, "new"); err != nil {
			t.Fatalf("Failed to update password: %v", err)
		}
		got, err := b.Users.GetUserByUsername(ctx, "admin")
		if err != nil || got == nil || got.PasswordHash != "new" {
			t.Errorf("Unexpected user %+v, %v", got, err)
		}
		if got != nil && (got.Department != "Science" || got.Subject != "Physics" || got.Phone != "555-0100") {
			t.Errorf("Profile not stored: %+v", got)
		}
	})

	t.Run("Timetable", func(t *testing.T) {
		for _, e := range []*database.TimetableEntry{
			{ClassName: "10-A", DayOfWeek: "Monday", Period: 2, Subject: "Math"},
			{ClassName: "10-A", DayOfWeek: "Monday", Period: 1, Subject: "Physics"},
			{ClassName: "10-A", DayOfWeek: "Monday", Period: 1, Subject: "Chemistry"},
		} {
			if err := b.Timetable.SaveTimetableEntry(ctx, e); err != nil {
				t.Fatalf("Failed to save entry: %v", err)
			}
		}
		entries, err := b.Timetable.ListTimetable(ctx, "10-A", "Monday")
		if err != nil {
			t.Fatalf("Failed to list timetable: %v", err)
		}
		if len(entries) != 2 || entries[0].Subject != "Chemistry" {
			t.Errorf("Unexpected entries %+v", entries)
		}
	})
}

func TestEnrollmentRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	b := pool.Backend()
	s := &database.Student{Name: "Alice", RollNo: "R001", ClassName: "10-A"}
	if err := b.Students.CreateStudent(ctx, s); err != nil {
		t.Fatalf("Failed to create student: %v", err)
	}

	repo := NewEnrollmentRepository(pool, "VGG-Face")
	other := NewEnrollmentRepository(pool, "Facenet")

	t.Run("EmptyStore", func(t *testing.T) {
		all, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("Expected empty map, got %d entries", len(all))
		}
	})

	t.Run("AppendAndLoad", func(t *testing.T) {
		if err := repo.Append(ctx, s.ID, facematch.Vector{3, 4, 0}); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		if err := repo.Append(ctx, s.ID, facematch.Vector{0, 0, 2}); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		if err := other.Append(ctx, s.ID, facematch.Vector{1, 0}); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}

		all, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		vecs := all[s.ID]
		if len(vecs) != 2 {
			t.Fatalf("Expected 2 embeddings for this model, got %d", len(vecs))
		}
		if n := facematch.Norm(vecs[0]); n < 0.999 || n > 1.001 {
			t.Errorf("Expected unit vector, got norm %f", n)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, s.ID); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		all, _ := repo.LoadAll(ctx)
		if len(all[s.ID]) != 0 {
			t.Error("Expected embeddings to be deleted")
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	// A second run applies nothing.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}

	var count int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 applied migration, got %d", count)
	}
}
