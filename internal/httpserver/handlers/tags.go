package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tidemark/tidemark/internal/docid"
	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/logger"
)

func ListTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := d.Store.GetAll(r.Context(), domain.Tags)
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

func CreateTag(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		if doc["name"] == nil || doc["name"] == "" {
			writeError(w, http.StatusBadRequest, "tag needs a name")
			return
		}

		if id := doc.ID(); id == "" {
			doc.SetID(uuid.NewString())
		} else {
			doc.SetID(docid.Escape(id))
		}
		doc.ClearRev()
		doc.Touch(d.Now())

		stored, err := d.Store.Put(r.Context(), domain.Tags, doc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func UpdateTag(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		doc.SetID(pathID(r))
		doc.Touch(d.Now())

		stored, err := d.Store.Put(r.Context(), domain.Tags, doc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

// DeleteTag removes a tag and detaches it from every bookmark that
// references it.
func DeleteTag(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathID(r)
		if err := d.Store.Remove(r.Context(), domain.Tags, id); err != nil {
			writeDomainError(w, err)
			return
		}

		bookmarks, err := d.Store.GetAll(r.Context(), domain.Bookmarks)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		for _, bm := range bookmarks {
			tagIDs := bm.TagIDs()
			kept := make([]string, 0, len(tagIDs))
			for _, t := range tagIDs {
				if t != id {
					kept = append(kept, t)
				}
			}
			if len(kept) == len(tagIDs) {
				continue
			}
			bm[domain.FieldTagIDs] = kept
			bm.Touch(d.Now())
			if _, err := d.Store.Put(r.Context(), domain.Bookmarks, bm); err != nil {
				d.Logger.Warn("failed to detach tag from bookmark",
					logger.String("tag", id),
					logger.String("bookmark", bm.ID()),
					logger.Error(err))
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
