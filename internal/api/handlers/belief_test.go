package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// stubArchive serves canned snapshots keyed by belief id.
type stubArchive struct {
	snapshots map[uuid.UUID]domain.BeliefSnapshot
}

func (a *stubArchive) Latest(_ context.Context, beliefID uuid.UUID) (*domain.BeliefSnapshot, error) {
	snap, ok := a.snapshots[beliefID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &snap, nil
}

func (a *stubArchive) ListByAgent(_ context.Context, agentID uuid.UUID, _ int) ([]domain.BeliefSnapshot, error) {
	var out []domain.BeliefSnapshot
	for _, snap := range a.snapshots {
		if snap.AgentID == agentID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func archiveRouter(archive BeliefArchive) *chi.Mux {
	h := NewBeliefHandler(nil, archive)
	r := chi.NewRouter()
	r.Get("/agents/{agentID}/beliefs/archive", h.Archive)
	r.Get("/agents/{agentID}/beliefs/{beliefID}", h.ArchivedBelief)
	return r
}

func TestBeliefHandler_ArchiveListsAgentSnapshots(t *testing.T) {
	agentID := uuid.New()
	beliefID := uuid.New()
	archive := &stubArchive{snapshots: map[uuid.UUID]domain.BeliefSnapshot{
		beliefID: {
			BeliefID:   beliefID,
			AgentID:    agentID,
			Content:    "strangers cannot be trusted",
			Confidence: 0.7,
			Superseded: true,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
			Version:    2,
		},
	}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/agents/"+agentID.String()+"/beliefs/archive", nil)
	archiveRouter(archive).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Count     int                     `json:"count"`
		Snapshots []domain.BeliefSnapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}
	if body.Snapshots[0].BeliefID != beliefID {
		t.Errorf("belief id = %s, want %s", body.Snapshots[0].BeliefID, beliefID)
	}
	if !body.Snapshots[0].Superseded {
		t.Error("superseded record should survive in the archive listing")
	}
}

func TestBeliefHandler_ArchivedBelief(t *testing.T) {
	agentID := uuid.New()
	beliefID := uuid.New()
	archive := &stubArchive{snapshots: map[uuid.UUID]domain.BeliefSnapshot{
		beliefID: {BeliefID: beliefID, AgentID: agentID, Content: "crowds feel draining", Version: 3},
	}}
	router := archiveRouter(archive)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/agents/"+agentID.String()+"/beliefs/"+beliefID.String(), nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var snap domain.BeliefSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.Version != 3 {
		t.Errorf("version = %d, want 3", snap.Version)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/agents/"+agentID.String()+"/beliefs/"+uuid.New().String(), nil)
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing belief status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestBeliefHandler_ArchiveUnavailableWithoutDatabase(t *testing.T) {
	router := archiveRouter(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/agents/"+uuid.New().String()+"/beliefs/archive", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
