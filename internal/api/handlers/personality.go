package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PersonalityHandler struct {
	engine *service.Engine
}

func NewPersonalityHandler(engine *service.Engine) *PersonalityHandler {
	return &PersonalityHandler{engine: engine}
}

// Get returns the agent's projected personality state.
func (h *PersonalityHandler) Get(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	writeJSON(w, http.StatusOK, h.engine.Pipeline(agentID).Personality())
}

// ListPatterns returns the agent's behavior patterns.
func (h *PersonalityHandler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	patterns := h.engine.Pipeline(agentID).Patterns()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": agentID,
		"count":    len(patterns),
		"patterns": patterns,
	})
}

type registerPatternRequest struct {
	TriggerID  string   `json:"trigger_id"`
	ResponseID string   `json:"response_id"`
	DependsOn  []string `json:"depends_on"`
}

// RegisterPattern attaches a trigger-response pattern whose confidence
// will track its dependency beliefs.
func (h *PersonalityHandler) RegisterPattern(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req registerPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TriggerID == "" || req.ResponseID == "" {
		writeError(w, http.StatusBadRequest, "trigger_id and response_id are required")
		return
	}

	pattern := domain.BehaviorPattern{
		TriggerID:  req.TriggerID,
		ResponseID: req.ResponseID,
	}
	for _, raw := range req.DependsOn {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid belief id in depends_on")
			return
		}
		pattern.DependsOn = append(pattern.DependsOn, id)
	}

	h.engine.Pipeline(agentID).RegisterPattern(pattern)
	writeJSON(w, http.StatusCreated, pattern)
}
