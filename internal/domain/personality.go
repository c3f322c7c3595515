package domain

import "github.com/google/uuid"

// PersonalityState is the agent-level state derived from the belief
// set. It is mutated only by the projector, which returns new snapshots
// rather than editing in place.
type PersonalityState struct {
	AgentID  uuid.UUID          `json:"agent_id"`
	Traits   map[string]float64 `json:"traits"` // each in [-1,1]
	Baseline EmotionalSignature `json:"baseline"`
}

func NewPersonalityState(agentID uuid.UUID) *PersonalityState {
	return &PersonalityState{
		AgentID: agentID,
		Traits:  make(map[string]float64),
	}
}

// Clone copies the state so projection can be pure.
func (s *PersonalityState) Clone() *PersonalityState {
	c := &PersonalityState{
		AgentID:  s.AgentID,
		Traits:   make(map[string]float64, len(s.Traits)),
		Baseline: s.Baseline,
	}
	for k, v := range s.Traits {
		c.Traits[k] = v
	}
	return c
}

// BehaviorPattern is a trigger-response rule whose confidence tracks
// the current confidences of its dependency beliefs.
type BehaviorPattern struct {
	TriggerID  string      `json:"trigger_id"`
	ResponseID string      `json:"response_id"`
	Confidence float64     `json:"confidence"` // [0,1]
	DependsOn  []uuid.UUID `json:"depends_on"`
}

// ClonePatterns copies a pattern list, dependency slices included.
func ClonePatterns(patterns []BehaviorPattern) []BehaviorPattern {
	out := make([]BehaviorPattern, len(patterns))
	for i, p := range patterns {
		out[i] = p
		out[i].DependsOn = append([]uuid.UUID(nil), p.DependsOn...)
	}
	return out
}
