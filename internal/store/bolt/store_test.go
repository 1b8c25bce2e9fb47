package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tidemark.db"), logger.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAssignsRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "One"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if stored.Rev() == "" {
		t.Error("Put() should assign a fresh revision")
	}

	got, err := s.Get(ctx, domain.Bookmarks, "b1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Rev() != stored.Rev() {
		t.Errorf("stored rev = %q, want %q", got.Rev(), stored.Rev())
	}
}

func TestPutStaleRevisionConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "One"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Concurrent writer bumps the revision.
	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "Two", "_rev": first.Rev()}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	// Writing with the now-stale first revision must conflict.
	_, err = s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "Three", "_rev": first.Rev()})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Put() with stale rev error = %v, want ErrConflict", err)
	}
}

func TestPutWithoutRevisionReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "One"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "Two"}); err != nil {
		t.Fatalf("revision-less Put() error = %v, want insert-or-replace", err)
	}

	got, err := s.Get(ctx, domain.Bookmarks, "b1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["title"] != "Two" {
		t.Errorf("title = %v, want Two", got["title"])
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), domain.Tags, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, domain.Tags, domain.Document{"id": "t1", "name": "Work"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Remove(ctx, domain.Tags, "t1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(ctx, domain.Tags, "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Remove() of absent doc error = %v, want ErrNotFound", err)
	}
}

func TestBulkPutBypassIgnoresStaleRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "Old"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	results, err := s.BulkPut(ctx, domain.Bookmarks, []domain.Document{
		{"id": "b1", "title": "New", "_rev": "bogus"},
		{"id": "b2", "title": "Fresh"},
	}, true)
	if err != nil {
		t.Fatalf("BulkPut() error = %v", err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("BulkPut() result for %s = %v, want nil with bypass", r.ID, r.Err)
		}
	}

	got, err := s.Get(ctx, domain.Bookmarks, "b1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["title"] != "New" {
		t.Errorf("title = %v, want the incoming document to win", got["title"])
	}
}

func TestBulkPutReportsConflictsAsData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1", "title": "Old"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	results, err := s.BulkPut(ctx, domain.Bookmarks, []domain.Document{
		{"id": "b1", "title": "Stale", "_rev": "bogus"},
		{"id": "b2", "title": "Fine"},
	}, false)
	if err != nil {
		t.Fatalf("BulkPut() error = %v", err)
	}
	if !errors.Is(results[0].Err, domain.ErrConflict) {
		t.Errorf("first result = %v, want ErrConflict", results[0].Err)
	}
	if results[1].Err != nil {
		t.Errorf("second result = %v, want nil; the batch must continue past conflicts", results[1].Err)
	}
}

func TestOnChangeFiresForLocalMutationsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var changes []domain.Collection
	s.SetOnChange(func(col domain.Collection) { changes = append(changes, col) })

	if _, err := s.Put(ctx, domain.Bookmarks, domain.Document{"id": "b1"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.BulkPut(ctx, domain.Bookmarks, []domain.Document{{"id": "b2"}}, true); err != nil {
		t.Fatalf("BulkPut() error = %v", err)
	}

	if len(changes) != 1 {
		t.Errorf("onChange fired %d times, want 1 (bypass bulk writes are silent)", len(changes))
	}
}

func TestGetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Put(ctx, domain.Tags, domain.Document{"id": id, "name": id}); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	docs, err := s.GetAll(ctx, domain.Tags)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("GetAll() returned %d docs, want 3", len(docs))
	}
}
