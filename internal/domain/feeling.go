package domain

import (
	"math"
	"time"
)

// FeelingContext carries the situational ids attached to a raw signal.
// RelationshipIDs keep submission order; duplicates are allowed and count
// multiplicatively during context weighting.
type FeelingContext struct {
	EnvironmentID   string   `json:"environment_id,omitempty"`
	TriggerID       string   `json:"trigger_id,omitempty"`
	RelationshipIDs []string `json:"relationship_ids,omitempty"`
}

// RawFeeling is the unvalidated signal as submitted at the ingestion
// boundary. Weight, valence and arousal may be any finite value; the
// normalizer squashes them into canonical ranges.
type RawFeeling struct {
	Content   string         `json:"content"`
	Weight    float64        `json:"weight"`
	Valence   float64        `json:"valence"`
	Arousal   float64        `json:"arousal"`
	SourceID  string         `json:"source_id"`
	Context   FeelingContext `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// Feeling is a validated, normalized transient signal. It lives in an
// agent's working set until it decays below the pruning epsilon or is
// absorbed as evidence into a belief.
//
// IDs are snowflake ids: time-ordered int64s, so ascending id order is
// also submission order, which the cluster builder relies on for
// deterministic tie-breaks.
type Feeling struct {
	ID        int64          `json:"id"`
	Content   string         `json:"content"`
	Weight    float64        `json:"weight"`  // [0,1], context weighting applied
	Valence   float64        `json:"valence"` // [-1,1]
	Arousal   float64        `json:"arousal"` // [0,1]
	SourceID  string         `json:"source_id"`
	Context   FeelingContext `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// DecayedWeight returns the feeling's weight after exponential temporal
// decay at the given rate. Pure; the stored weight is never mutated.
func (f *Feeling) DecayedWeight(now time.Time, decayRate float64) float64 {
	age := now.Sub(f.CreatedAt)
	if age <= 0 {
		return f.Weight
	}
	return f.Weight * math.Exp(-decayRate*age.Hours())
}
