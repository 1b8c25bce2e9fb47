package webdav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidemark/tidemark/internal/remote"
)

func TestGetSendsBasicAuthAndAccept(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "alice", "secret")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	body, err := c.Get(context.Background(), "collection.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `[]` {
		t.Errorf("body = %q", body)
	}
	if gotAuth == "" {
		t.Error("no Authorization header sent")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestGetRawSkipsContentNegotiation(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", "")
	if _, err := c.GetRaw(context.Background(), "collection.json"); err != nil {
		t.Fatalf("GetRaw() error = %v", err)
	}
	if gotAccept == "application/json" {
		t.Error("raw request must not negotiate content type")
	}
}

func TestPutSetsOverwriteHeader(t *testing.T) {
	var gotMethod, gotOverwrite, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotOverwrite = r.Header.Get("Overwrite")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", "")
	if err := c.Put(context.Background(), "collection.json", []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotOverwrite != "T" || gotType != "application/json" {
		t.Errorf("method=%s overwrite=%s type=%s", gotMethod, gotOverwrite, gotType)
	}
}

func TestErrorsCarryStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusLocked)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", "")
	_, err := c.Get(context.Background(), "collection.json")
	if remote.StatusCode(err) != http.StatusLocked {
		t.Errorf("StatusCode = %d, want 423", remote.StatusCode(err))
	}
	if !remote.Retryable(err) {
		t.Error("423 must be retryable")
	}
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/present.json" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", "")
	ok, err := c.Exists(context.Background(), "present.json")
	if err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v, want true", ok, err)
	}
	ok, err = c.Exists(context.Background(), "absent.json")
	if err != nil || ok {
		t.Errorf("Exists(absent) = %v, %v, want false without error", ok, err)
	}
}

func TestBaseURLNormalization(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c, _ := New(srv.URL+"/dav///", "", "")
	_, _ = c.Get(context.Background(), "/collection.json")
	if gotPath != "/dav/collection.json" {
		t.Errorf("path = %q, want /dav/collection.json", gotPath)
	}
}
