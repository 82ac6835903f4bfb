package facematch

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubLoader struct {
	mu   sync.Mutex
	sets map[int64][]Vector
	err  error
}

func (l *stubLoader) LoadAll(ctx context.Context) (map[int64][]Vector, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[int64][]Vector, len(l.sets))
	for id, vecs := range l.sets {
		out[id] = vecs
	}
	return out, nil
}

func (l *stubLoader) set(id int64, vecs ...Vector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets[id] = vecs
}

func TestDirectoryCache_StartsEmpty(t *testing.T) {
	cache := NewDirectoryCache(&stubLoader{})
	if cache.Snapshot().Len() != 0 {
		t.Error("expected empty directory before first reload")
	}
}

func TestDirectoryCache_Reload(t *testing.T) {
	loader := &stubLoader{sets: map[int64][]Vector{}}
	cache := NewDirectoryCache(loader)

	loader.set(1, unitAt(3, 0))
	dir, err := cache.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if dir != cache.Snapshot() {
		t.Error("Reload should publish the returned snapshot")
	}
	if !cache.Snapshot().Has(1) {
		t.Error("expected student 1 after reload")
	}

	old := cache.Snapshot()
	loader.set(2, unitAt(3, 1))
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if old.Has(2) {
		t.Error("old snapshot must not change after reload")
	}
	if !cache.Snapshot().Has(2) {
		t.Error("expected student 2 in new snapshot")
	}
}

func TestDirectoryCache_ReloadErrorKeepsSnapshot(t *testing.T) {
	loader := &stubLoader{sets: map[int64][]Vector{1: {unitAt(2, 0)}}}
	cache := NewDirectoryCache(loader)
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	loader.err = errors.New("disk gone")
	if _, err := cache.Reload(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !cache.Snapshot().Has(1) {
		t.Error("previous snapshot should survive a failed reload")
	}
}

func TestDirectoryCache_ConcurrentReadsDuringReload(t *testing.T) {
	loader := &stubLoader{sets: map[int64][]Vector{1: {unitAt(4, 0)}}}
	cache := NewDirectoryCache(loader)
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			loader.set(int64(10+i), unitAt(4, i%4))
			if _, err := cache.Reload(context.Background()); err != nil {
				t.Errorf("Reload() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				result := Match(unitAt(4, 0), cache.Snapshot(), 0.4)
				if !result.Matched {
					t.Error("student 1 must stay matchable in every snapshot")
					return
				}
			}
		}()
	}
	wg.Wait()
}
