package handlers

import (
	"net/http"

	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/logger"
)

// TriggerSync queues an immediate sync pass against every backend.
func TriggerSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Orchestrator == nil {
			writeError(w, http.StatusServiceUnavailable, "no sync backends configured")
			return
		}

		if d.Orchestrator.TriggerNow() {
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync triggered"})
			return
		}

		d.Logger.Warn("sync already queued",
			logger.String("remote_ip", r.RemoteAddr))
		writeError(w, http.StatusTooManyRequests, "sync already queued, please wait")
	}
}

// SyncStatus reports the per-backend sync state.
func SyncStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Orchestrator == nil {
			writeJSON(w, http.StatusOK, map[string]any{"backends": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"backends": d.Orchestrator.StatusAll()})
	}
}
