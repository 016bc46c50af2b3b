package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Strokes/internal/analysis"
	"github.com/MikeSquared-Agency/Strokes/internal/hermes"
	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
	"github.com/MikeSquared-Agency/Strokes/internal/session"
)

type SessionsHandler struct {
	manager          *session.Manager
	analyzer         *analysis.Analyzer
	events           *hermes.Emitter
	defaultArchetype profile.Archetype
	logger           *slog.Logger
}

func NewSessionsHandler(m *session.Manager, a *analysis.Analyzer, events *hermes.Emitter, defaultArchetype profile.Archetype, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{manager: m, analyzer: a, events: events, defaultArchetype: defaultArchetype, logger: logger}
}

type CreateSessionRequest struct {
	Archetype profile.Archetype `json:"archetype,omitempty"`
}

type SetValueRequest struct {
	Value *float64 `json:"value"`
}

type PresetRequest struct {
	Archetype profile.Archetype `json:"archetype"`
}

type AnalysisResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	analysis.Report
}

func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.Archetype == "" {
		req.Archetype = h.defaultArchetype
	}

	snap, err := h.manager.Create(r.Context(), req.Archetype)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "session_id": id.String()})
}

func (h *SessionsHandler) SetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value required"})
		return
	}

	res, err := h.manager.SetValue(r.Context(), id, chi.URLParam(r, "key"), *req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionsHandler) LoadPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Archetype == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "archetype required"})
		return
	}

	snap, err := h.manager.LoadPreset(r.Context(), id, req.Archetype)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionsHandler) Score(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Score())
}

// Analyze runs synchronously against the engine; it is the one endpoint that
// waits on engine calls.
func (h *SessionsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), s.Values())
	if err != nil {
		h.logger.Warn("analysis failed", "session_id", s.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "score engine unavailable: " + err.Error()})
		return
	}

	h.events.Emit(r.Context(), hermes.SubjectSessionAnalyzed(s.ID.String()), hermes.SessionAnalyzedEvent{
		SessionID:     s.ID.String(),
		StrokesGained: report.StrokesGained,
		BiggestGap:    report.Summary.BiggestOpportunity,
		StrongestArea: report.Summary.StrongestArea,
	})
	writeJSON(w, http.StatusOK, AnalysisResponse{SessionID: s.ID, Report: report})
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	s, err := h.manager.Get(id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, probability.ErrUnknownKey):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrUnknownArchetype):
		status = http.StatusBadRequest
	case errors.Is(err, probability.ErrInvalidValue):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
