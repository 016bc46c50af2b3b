package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Strokes/internal/markov"
	"github.com/MikeSquared-Agency/Strokes/internal/metrics"
	"github.com/MikeSquared-Agency/Strokes/internal/simulator"
)

// EngineHandler serves expected-score calculations from the hole model.
type EngineHandler struct {
	logger *slog.Logger
}

func NewEngineHandler(logger *slog.Logger) *EngineHandler {
	return &EngineHandler{logger: logger}
}

func (h *EngineHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req simulator.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.Calculations.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Stats) == 0 {
		metrics.Calculations.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "stats required"})
		return
	}

	score, err := markov.ExpectedScore(req.Stats)
	if err != nil {
		metrics.Calculations.WithLabelValues("invalid").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, markov.ErrMissingStat) || errors.Is(err, markov.ErrInvalidStat) {
			status = http.StatusUnprocessableEntity
		} else {
			h.logger.Error("calculation failed", "error", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	metrics.Calculations.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, simulator.CalculateResponse{
		ExpectedScore: score,
		States:        markov.HoleStates(),
	})
}

func (h *EngineHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
