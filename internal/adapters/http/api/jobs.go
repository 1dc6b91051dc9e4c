package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// JobsHandler handles job status polling.
type JobsHandler struct {
	deps JobsDependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobsDependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandleGetJob handles GET /jobs/{jobID}.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.PollStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
