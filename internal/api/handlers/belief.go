package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/service"
	"github.com/convictionlabs/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BeliefArchive reads persisted belief snapshots. A nil archive means
// the deployment runs without a database and archive routes 503.
type BeliefArchive interface {
	Latest(ctx context.Context, beliefID uuid.UUID) (*domain.BeliefSnapshot, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.BeliefSnapshot, error)
}

type BeliefHandler struct {
	engine  *service.Engine
	archive BeliefArchive
}

func NewBeliefHandler(engine *service.Engine, archive BeliefArchive) *BeliefHandler {
	return &BeliefHandler{engine: engine, archive: archive}
}

// List returns the agent's beliefs with decay applied at read time.
// ?include_superseded=true adds retired records for audit.
func (h *BeliefHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	includeSuperseded, _ := strconv.ParseBool(r.URL.Query().Get("include_superseded"))

	beliefs := h.engine.Pipeline(agentID).Beliefs(includeSuperseded, time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": agentID,
		"count":    len(beliefs),
		"beliefs":  beliefs,
	})
}

// Archive returns the newest persisted version of every belief the
// agent has ever formed, superseded records included. ?limit caps the
// result set.
func (h *BeliefHandler) Archive(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "belief archive not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snapshots, err := h.archive.ListByAgent(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read belief archive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":  agentID,
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

// ArchivedBelief returns the newest persisted version of one belief.
func (h *BeliefHandler) ArchivedBelief(w http.ResponseWriter, r *http.Request) {
	beliefID, err := uuid.Parse(chi.URLParam(r, "beliefID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "belief archive not configured")
		return
	}

	snapshot, err := h.archive.Latest(r.Context(), beliefID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "belief not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read belief archive")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
