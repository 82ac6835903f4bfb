package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/attendai/internal/facematch"
)

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.6)
	alice := f.addStudent(t, "Alice", "R001", "10A")

	f.extractor.push([]facematch.Vector{{3, 4, 0, 0, 0, 0}, unit(1)}, nil)
	f.extractor.push(nil, nil)
	f.extractor.push([]facematch.Vector{{0, 0, 2, 0, 0, 0}}, nil)

	var progress []int
	result, err := f.svc.Enroll(ctx, alice.ID, [][]byte{pngImage(t), pngImage(t), pngImage(t)},
		WithProgress(func(done, total int) {
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			progress = append(progress, done)
		}))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if result.Added != 2 || result.Failed != 1 || len(result.Errors) != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Embeddings != 2 {
		t.Errorf("Embeddings = %d, want 2", result.Embeddings)
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("unexpected progress %v", progress)
	}

	sets, err := f.enrollments.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	vecs := sets[alice.ID]
	if len(vecs) != 2 {
		t.Fatalf("expected 2 stored vectors, got %d", len(vecs))
	}
	// Only the first face of an image is enrolled.
	if vecs[0][0] < 0.59 || vecs[0][0] > 0.61 || vecs[0][1] < 0.79 {
		t.Errorf("unexpected first vector %v", vecs[0])
	}

	// The directory was reloaded, so the new embeddings match right away.
	f.start(t, "10A", 1)
	r, err := f.svc.Recognize(ctx, unit(2))
	if err != nil {
		t.Fatal(err)
	}
	if r.Outcome != OutcomeNewlyMarked || r.StudentID != alice.ID {
		t.Errorf("unexpected recognition %+v", r)
	}
}

func TestService_EnrollUnknownStudent(t *testing.T) {
	f := newFixture(t, 0.6)
	if _, err := f.svc.Enroll(context.Background(), 42, [][]byte{pngImage(t)}); !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("expected ErrUnknownStudent, got %v", err)
	}
}

func TestService_EnrollToleratesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.6)
	alice := f.addStudent(t, "Alice", "R001", "10A")

	t.Run("undecodable image", func(t *testing.T) {
		f.extractor.push([]facematch.Vector{unit(0)}, nil)
		result, err := f.svc.Enroll(ctx, alice.ID, [][]byte{[]byte("not an image"), pngImage(t)})
		if err != nil {
			t.Fatalf("Enroll() error = %v", err)
		}
		if result.Added != 1 || result.Failed != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		f.enrollments.AppendError = errors.New("read-only file system")
		defer func() { f.enrollments.AppendError = nil }()

		before := f.svc.Directory().VectorCount()
		result, err := f.svc.Enroll(ctx, alice.ID, [][]byte{pngImage(t), pngImage(t)})
		if err != nil {
			t.Fatalf("Enroll() error = %v", err)
		}
		if result.Added != 0 || result.Failed != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Embeddings != before {
			t.Errorf("Embeddings = %d, want %d", result.Embeddings, before)
		}
	})
}

func TestService_EnrollReloadFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.6)
	alice := f.addStudent(t, "Alice", "R001", "10A")
	f.extractor.push([]facematch.Vector{unit(0)}, nil)

	f.enrollments.LoadError = errors.New("permission denied")
	result, err := f.svc.Enroll(ctx, alice.ID, [][]byte{pngImage(t)})
	if err == nil {
		t.Fatal("expected reload error")
	}
	if result == nil || result.Added != 1 {
		t.Errorf("expected the append to be reported, got %+v", result)
	}
	if f.svc.Directory().Has(alice.ID) {
		t.Error("previous snapshot should stay in place")
	}
}

func TestService_Unenroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0.6)
	alice := f.addStudent(t, "Alice", "R001", "10A", unit(0))

	if err := f.svc.Unenroll(ctx, alice.ID); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if f.svc.Directory().Has(alice.ID) {
		t.Error("expected student to leave the directory")
	}
	if f.enrollments.Count(alice.ID) != 0 {
		t.Error("expected embeddings to be deleted")
	}
}
