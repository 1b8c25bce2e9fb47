package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tidemark/tidemark/internal/docid"
	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/httpserver/deps"
)

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := d.Store.GetAll(r.Context(), domain.Bookmarks)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if docs == nil {
			docs = []domain.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.Store.Get(r.Context(), domain.Bookmarks, pathID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		if doc["url"] == nil || doc["url"] == "" {
			writeError(w, http.StatusBadRequest, "bookmark needs a url")
			return
		}

		if id := doc.ID(); id == "" {
			doc.SetID(uuid.NewString())
		} else {
			doc.SetID(docid.Escape(id))
		}
		doc.ClearRev()
		doc.Touch(d.Now())

		stored, err := d.Store.Put(r.Context(), domain.Bookmarks, doc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		doc.SetID(pathID(r))
		doc.Touch(d.Now())

		stored, err := d.Store.Put(r.Context(), domain.Bookmarks, doc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Remove(r.Context(), domain.Bookmarks, pathID(r)); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeDocument parses the request body into a normalized document.
func decodeDocument(w http.ResponseWriter, r *http.Request) (domain.Document, bool) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json body")
		return nil, false
	}
	return domain.Normalize(raw), true
}

// pathID reads the id path parameter. The router hands it over
// percent-decoded, so the storable form is recovered by re-escaping.
func pathID(r *http.Request) string {
	return docid.Escape(chi.URLParam(r, "id"))
}
