package api

import (
	"net/http"
	"strings"
)

// RecommendationsHandler serves computed recommendations and genre facets.
type RecommendationsHandler struct {
	deps RecommendationsDependencies
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps RecommendationsDependencies) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps}
}

// HandleGetRecommendations handles GET /users/{userID}/recommendations.
// The optional genres query is a comma separated list of facet keys.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var facets []string
	if raw := r.URL.Query().Get("genres"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				facets = append(facets, f)
			}
		}
	}

	views, err := h.deps.GetRecommendations(r.Context(), userID, facets)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetGenres handles GET /genres.
func (h *RecommendationsHandler) HandleGetGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.deps.Genres(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}
