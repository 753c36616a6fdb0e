package api

import (
	"net/http"

	"github.com/sydlexius/autotagger/internal/logging"
)

func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}
	writeJSON(w, http.StatusOK, r.logManager.Config())
}

// handleUpdateLogging applies a partial logging config at runtime and
// persists it. Omitted fields keep their current value.
func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}

	var body struct {
		Level          string  `json:"level"`
		Format         string  `json:"format"`
		FilePath       *string `json:"file_path"`
		FileMaxSizeMB  int     `json:"file_max_size_mb"`
		FileMaxFiles   int     `json:"file_max_files"`
		FileMaxAgeDays int     `json:"file_max_age_days"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Level != "" && !logging.ValidLevel(body.Level) {
		writeError(w, http.StatusBadRequest, "invalid level; must be debug, info, warn, or error")
		return
	}
	if body.Format != "" && !logging.ValidFormat(body.Format) {
		writeError(w, http.StatusBadRequest, "invalid format; must be text or json")
		return
	}
	if body.FileMaxSizeMB < 0 || body.FileMaxFiles < 0 || body.FileMaxAgeDays < 0 {
		writeError(w, http.StatusBadRequest, "file limits must not be negative")
		return
	}

	cfg := r.logManager.Config()
	if body.Level != "" {
		cfg.Level = body.Level
	}
	if body.Format != "" {
		cfg.Format = body.Format
	}
	if body.FilePath != nil {
		cfg.FilePath = *body.FilePath
	}
	if body.FileMaxSizeMB > 0 {
		cfg.FileMaxSizeMB = body.FileMaxSizeMB
	}
	if body.FileMaxFiles > 0 {
		cfg.FileMaxFiles = body.FileMaxFiles
	}
	if body.FileMaxAgeDays > 0 {
		cfg.FileMaxAgeDays = body.FileMaxAgeDays
	}

	if r.db != nil {
		if err := logging.Save(req.Context(), r.db, cfg); err != nil {
			r.logger.Error("persisting logging settings", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to persist setting")
			return
		}
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured", "config", cfg.String())
	writeJSON(w, http.StatusOK, r.logManager.Config())
}
