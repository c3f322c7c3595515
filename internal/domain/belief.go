package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmotionalSignature is the (valence, arousal) pair a belief or an
// agent baseline carries.
type EmotionalSignature struct {
	Valence float64 `json:"valence"` // [-1,1]
	Arousal float64 `json:"arousal"` // [0,1]
}

// BeliefSources tracks which sources contributed to a belief. Both sets
// are order-insensitive; they are kept sorted so equal sets compare equal.
type BeliefSources struct {
	Primary    []string `json:"primary"`
	Supporting []string `json:"supporting,omitempty"`
}

// BeliefEvidence is the audit trail of a belief: the feeling ids that
// formed it (ordered by contribution weight descending at formation,
// then by evolution order) and the context ids they carried.
type BeliefEvidence struct {
	FeelingIDs []int64  `json:"feeling_ids"`
	ContextIDs []string `json:"context_ids,omitempty"`
}

// Belief is a consolidated, durable record. It is owned by the agent's
// belief network; the persistence hook only ever receives immutable
// snapshot copies.
//
// A superseded belief is retained for audit but excluded from
// propagation and projection. Supersession is terminal.
type Belief struct {
	ID           uuid.UUID          `json:"id"`
	AgentID      uuid.UUID          `json:"agent_id"`
	Content      string             `json:"content"`
	Confidence   float64            `json:"confidence"` // [0,1]
	Signature    EmotionalSignature `json:"signature"`
	Sources      BeliefSources      `json:"sources"`
	Evidence     BeliefEvidence     `json:"evidence"`
	Adaptability float64            `json:"adaptability"` // [0,1]
	TrustScore   float64            `json:"trust_score"`  // >= 0
	Superseded   bool               `json:"superseded"`
	Embedding    []float32          `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Version      int                `json:"version"`
}

// Clone returns a deep copy so pure operations can return new state
// without aliasing the caller's slices.
func (b *Belief) Clone() *Belief {
	c := *b
	c.Sources.Primary = append([]string(nil), b.Sources.Primary...)
	c.Sources.Supporting = append([]string(nil), b.Sources.Supporting...)
	c.Evidence.FeelingIDs = append([]int64(nil), b.Evidence.FeelingIDs...)
	c.Evidence.ContextIDs = append([]string(nil), b.Evidence.ContextIDs...)
	c.Embedding = append([]float32(nil), b.Embedding...)
	return &c
}

// BeliefSnapshot is the immutable copy handed to the persistence hook
// whenever a belief is created, evolved or superseded. Persistence is
// idempotent keyed by (BeliefID, Version).
type BeliefSnapshot struct {
	BeliefID     uuid.UUID          `json:"belief_id"`
	AgentID      uuid.UUID          `json:"agent_id"`
	Content      string             `json:"content"`
	Confidence   float64            `json:"confidence"`
	Signature    EmotionalSignature `json:"signature"`
	Sources      BeliefSources      `json:"sources"`
	Evidence     BeliefEvidence     `json:"evidence"`
	Adaptability float64            `json:"adaptability"`
	TrustScore   float64            `json:"trust_score"`
	Superseded   bool               `json:"superseded"`
	Embedding    []float32          `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Version      int                `json:"version"`
}

// Snapshot copies the belief into a detached snapshot value.
func (b *Belief) Snapshot() BeliefSnapshot {
	c := b.Clone()
	return BeliefSnapshot{
		BeliefID:     c.ID,
		AgentID:      c.AgentID,
		Content:      c.Content,
		Confidence:   c.Confidence,
		Signature:    c.Signature,
		Sources:      c.Sources,
		Evidence:     c.Evidence,
		Adaptability: c.Adaptability,
		TrustScore:   c.TrustScore,
		Superseded:   c.Superseded,
		Embedding:    c.Embedding,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Version:      c.Version,
	}
}
