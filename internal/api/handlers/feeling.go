package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type FeelingHandler struct {
	engine *service.Engine
}

func NewFeelingHandler(engine *service.Engine) *FeelingHandler {
	return &FeelingHandler{engine: engine}
}

type submitFeelingRequest struct {
	Content   string                `json:"content"`
	Weight    float64               `json:"weight"`
	Valence   float64               `json:"valence"`
	Arousal   float64               `json:"arousal"`
	SourceID  string                `json:"source_id"`
	Context   domain.FeelingContext `json:"context"`
	CreatedAt time.Time             `json:"created_at,omitempty"`
}

// Submit accepts one raw feeling for the agent in the URL.
func (h *FeelingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req submitFeelingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw := domain.RawFeeling{
		Content:   req.Content,
		Weight:    req.Weight,
		Valence:   req.Valence,
		Arousal:   req.Arousal,
		SourceID:  req.SourceID,
		Context:   req.Context,
		CreatedAt: req.CreatedAt,
	}
	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = time.Now().UTC()
	}

	feeling, err := h.engine.Pipeline(agentID).Submit(raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent),
			errors.Is(err, service.ErrEmptySource),
			errors.Is(err, service.ErrInvalidTimestamp):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to accept feeling")
		}
		return
	}

	writeJSON(w, http.StatusCreated, feeling)
}

// Step runs one pipeline pass for the agent and reports what changed.
func (h *FeelingHandler) Step(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	result, err := h.engine.Pipeline(agentID).Step(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "pipeline step failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
