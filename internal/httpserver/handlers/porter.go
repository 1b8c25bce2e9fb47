package handlers

import (
	"io"
	"net/http"

	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/logger"
)

// maxImportBytes caps import payloads at 32 MiB.
const maxImportBytes = 32 << 20

// Import merges an uploaded JSON dump into the local store.
func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		report, err := d.Porter.Import(r.Context(), payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		d.Logger.Info("import via endpoint",
			logger.Int("bookmarks", report.Bookmarks),
			logger.Int("tags", report.Tags))
		writeJSON(w, http.StatusOK, report)
	}
}

// Export streams the full dataset as a JSON dump.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Porter.Export(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="tidemark-export.json"`)
		if _, err := w.Write(out); err != nil {
			d.Logger.Debug("failed to write export", logger.Error(err))
		}
	}
}
