package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
)

type ProfileHandler struct {
	profile *profile.Profile
	epsilon float64
}

func NewProfileHandler(p *profile.Profile, epsilon float64) *ProfileHandler {
	return &ProfileHandler{profile: p, epsilon: epsilon}
}

// ProfileResponse is everything a dashboard needs to lay out its sliders.
type ProfileResponse struct {
	Groups     []probability.Group                      `json:"groups"`
	Ungrouped  []string                                 `json:"ungrouped"`
	Labels     map[string]string                        `json:"labels"`
	Sections   []profile.Section                        `json:"sections"`
	Categories []profile.Category                       `json:"categories"`
	Baselines  map[profile.Archetype]probability.Vector `json:"baselines"`
	Epsilon    float64                                  `json:"epsilon"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	baselines := make(map[profile.Archetype]probability.Vector)
	for _, a := range profile.Archetypes() {
		if base, ok := h.profile.Baseline(a); ok {
			baselines[a] = base
		}
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		Groups:     h.profile.Partition.Groups(),
		Ungrouped:  profile.UngroupedKeys(),
		Labels:     h.profile.Labels,
		Sections:   h.profile.Sections,
		Categories: h.profile.Categories,
		Baselines:  baselines,
		Epsilon:    h.epsilon,
	})
}
