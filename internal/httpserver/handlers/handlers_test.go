package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/httpserver/routes"
	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/porter"
	"github.com/tidemark/tidemark/internal/store/bolt"
)

func newTestServer(t *testing.T) (*httptest.Server, deps.Deps) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), logger.Nop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d := deps.Deps{
		Logger:    logger.Nop(),
		StartTime: time.Now(),
		TimeNow:   time.Now,
		Store:     store,
		Porter:    porter.New(store, logger.Nop()),
	}

	r := chi.NewRouter()
	routes.RegisterAll(r, d)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, d
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeDoc(t *testing.T, resp *http.Response) domain.Document {
	t.Helper()
	defer resp.Body.Close()
	var doc domain.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return doc
}

func TestCreateAndGetBookmark(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{
		"title": "Example",
		"url":   "https://example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decodeDoc(t, resp)
	if created.ID() == "" {
		t.Fatal("created bookmark has no id")
	}
	if created.Rev() == "" {
		t.Error("created bookmark has no revision")
	}
	if created.UpdatedAt() == 0 {
		t.Error("created bookmark has no updatedAt")
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/bookmarks/"+created.ID(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	got := decodeDoc(t, resp)
	if got["title"] != "Example" {
		t.Errorf("title = %v, want Example", got["title"])
	}
}

func TestCreateBookmarkWithoutURL(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{"title": "NoURL"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateBookmarkEscapesReservedID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{
		"id":  "_private",
		"url": "https://example.com",
	})
	created := decodeDoc(t, resp)
	if created.ID() != "%5Fprivate" {
		t.Errorf("id = %q, want the reserved prefix escaped", created.ID())
	}
}

func TestUpdateBookmarkStaleRevisionConflicts(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{
		"url": "https://example.com", "title": "v1",
	})
	created := decodeDoc(t, resp)

	// First update with the current revision succeeds.
	resp = doJSON(t, http.MethodPut, srv.URL+"/bookmarks/"+created.ID(), map[string]any{
		"_rev": created.Rev(), "url": "https://example.com", "title": "v2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first update status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Replaying the original revision must be rejected.
	resp = doJSON(t, http.MethodPut, srv.URL+"/bookmarks/"+created.ID(), map[string]any{
		"_rev": created.Rev(), "url": "https://example.com", "title": "v3",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stale update status = %d, want 409", resp.StatusCode)
	}
}

func TestDeleteBookmark(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{"url": "https://x.example"})
	created := decodeDoc(t, resp)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/bookmarks/"+created.ID(), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/bookmarks/"+created.ID(), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteTagDetachesFromBookmarks(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tags", map[string]any{"name": "Work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tag status = %d, want 201", resp.StatusCode)
	}
	tag := decodeDoc(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/bookmarks", map[string]any{
		"url":    "https://example.com",
		"tagIds": []string{tag.ID(), "other"},
	})
	bm := decodeDoc(t, resp)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/tags/"+tag.ID(), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete tag status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/bookmarks/"+bm.ID(), nil)
	got := decodeDoc(t, resp)
	ids := got.TagIDs()
	if len(ids) != 1 || ids[0] != "other" {
		t.Errorf("tagIds = %v, want the deleted tag detached", ids)
	}
}

func TestSyncWithoutBackends(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/sync", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("sync status = %d, want 503 without backends", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/sync/status", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("sync status endpoint = %d, want 200", resp.StatusCode)
	}
}

func TestImportExportEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/import", map[string]any{
		"bookmarks": []map[string]any{{"id": "b1", "title": "One", "url": "https://one.example"}},
		"tags":      []map[string]any{{"id": "t1", "name": "Work"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d, want 200", resp.StatusCode)
	}
	var report porter.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	resp.Body.Close()
	if report.Bookmarks != 1 || report.Tags != 1 {
		t.Errorf("report = %+v, want one of each", report)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/export", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want 200", resp.StatusCode)
	}
	var dump struct {
		Bookmarks []domain.Document `json:"bookmarks"`
		Tags      []domain.Document `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dump); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(dump.Bookmarks) != 1 || len(dump.Tags) != 1 {
		t.Errorf("export = %+v, want the imported data back", dump)
	}
}
