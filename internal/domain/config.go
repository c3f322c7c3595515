package domain

// TraitAffinity maps a belief's emotional signature onto one trait:
// affinity = Valence*signature.valence + Arousal*signature.arousal.
type TraitAffinity struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// PipelineConfig is the immutable per-agent (or per-deployment)
// configuration object. Lookup tables fall back to documented neutral
// defaults for unknown keys; they never fail a call.
type PipelineConfig struct {
	// DecayRate is the exponential decay constant, per hour, applied to
	// feeling weights and (lazily) to belief confidence.
	DecayRate float64

	// PruneEpsilon is the decayed weight below which a feeling is
	// silently removed from the working set.
	PruneEpsilon float64

	// SimilarityThreshold gates cluster membership and belief
	// reinforcement matching.
	SimilarityThreshold float64

	// MinClusterSize is the minimum member count for a cluster to be
	// emitted. Smaller clusters keep their feelings active.
	MinClusterSize int

	// BeliefThreshold is the minimum cluster potential for
	// consolidation to fire.
	BeliefThreshold float64

	// ResolutionEpsilon is the strength difference below which two
	// conflicting beliefs are synthesized instead of one superseding
	// the other.
	ResolutionEpsilon float64

	// Damping attenuates propagated confidence deltas per hop.
	// Strictly inside (0,1).
	Damping float64

	// MaxHops bounds propagation walks regardless of cycles.
	MaxHops int

	// DefaultAdaptability seeds new beliefs; volatile clusters raise it
	// by VolatilityGain times the member weight variance.
	DefaultAdaptability float64
	VolatilityGain      float64

	// BaselineRate scales the emotional-baseline moving average; the
	// effective step is BaselineRate times the belief's confidence.
	BaselineRate float64

	// EnvironmentWeights multiplies feeling weight by environment.
	// Unknown environment ids use 1.0.
	EnvironmentWeights map[string]float64

	// RelationshipTrust multiplies feeling weight per relationship id
	// in the feeling's context. Unknown ids use 1.0.
	RelationshipTrust map[string]float64

	// SourceTrust feeds belief trust scores. Unknown sources use 1.0.
	SourceTrust map[string]float64

	// TraitAffinities declares the personality traits the projector
	// maintains and how each responds to a belief's signature.
	TraitAffinities map[string]TraitAffinity
}

// DefaultPipelineConfig returns the documented defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DecayRate:           0.05,
		PruneEpsilon:        0.01,
		SimilarityThreshold: 0.85,
		MinClusterSize:      3,
		BeliefThreshold:     0.3,
		ResolutionEpsilon:   0.1,
		Damping:             0.7,
		MaxHops:             3,
		DefaultAdaptability: 0.3,
		VolatilityGain:      2.0,
		BaselineRate:        0.2,
		TraitAffinities: map[string]TraitAffinity{
			"optimism":     {Valence: 1.0, Arousal: 0.0},
			"excitability": {Valence: 0.0, Arousal: 1.0},
			"caution":      {Valence: -0.8, Arousal: 0.4},
		},
	}
}

// EnvironmentWeight returns the factor for an environment id and
// whether the id was known.
func (c PipelineConfig) EnvironmentWeight(id string) (float64, bool) {
	if id == "" {
		return 1.0, true
	}
	if w, ok := c.EnvironmentWeights[id]; ok {
		return w, true
	}
	return 1.0, false
}

// RelationshipFactor returns the trust factor for a relationship id and
// whether the id was known.
func (c PipelineConfig) RelationshipFactor(id string) (float64, bool) {
	if w, ok := c.RelationshipTrust[id]; ok {
		return w, true
	}
	return 1.0, false
}

// SourceTrustFactor returns the trust value for a source id, defaulting
// to 1.0 for unknown sources.
func (c PipelineConfig) SourceTrustFactor(id string) float64 {
	if t, ok := c.SourceTrust[id]; ok {
		return t
	}
	return 1.0
}
