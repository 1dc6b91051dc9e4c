package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/cinematch/internal/domain/model"
)

const maxRatingsBody = 1 << 20

type ratingsRequest struct {
	Ratings []model.Rating `json:"ratings"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// RatingsHandler handles rating submissions.
type RatingsHandler struct {
	deps RatingsDependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// HandlePostRatings handles POST /users/{userID}/ratings. The response
// carries the job id to poll.
func (h *RatingsHandler) HandlePostRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req ratingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRatingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeServiceError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	jobID, err := h.deps.SubmitRatings(r.Context(), userID, req.Ratings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", ErrBadRequest, raw)
	}
	return id, nil
}
