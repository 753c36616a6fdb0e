package api

import (
	"net/http"
	"strconv"
)

func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.logger.Error("reading maintenance status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read database status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleOptimize runs an optimize pass now. ?vacuum=true also rebuilds the file.
func (r *Router) handleOptimize(w http.ResponseWriter, req *http.Request) {
	vacuum := false
	if v := req.URL.Query().Get("vacuum"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "vacuum must be a boolean")
			return
		}
		vacuum = b
	}

	if err := r.maintenance.Optimize(req.Context()); err != nil {
		r.logger.Error("optimizing database", "error", err)
		writeError(w, http.StatusInternalServerError, "optimize failed")
		return
	}
	if vacuum {
		if err := r.maintenance.Vacuum(req.Context()); err != nil {
			r.logger.Error("vacuuming database", "error", err)
			writeError(w, http.StatusInternalServerError, "vacuum failed")
			return
		}
	}
	r.handleMaintenanceStatus(w, req)
}
