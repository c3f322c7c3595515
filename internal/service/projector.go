package service

import (
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Projector folds belief changes into trait values, the emotional
// baseline, and behavior-pattern confidences. Project is pure: it
// returns new state and never mutates the caller's snapshots.
type Projector struct {
	cfg     domain.PipelineConfig
	evolver *Evolver
	logger  *zap.Logger
}

func NewProjector(cfg domain.PipelineConfig, evolver *Evolver, logger *zap.Logger) *Projector {
	return &Projector{cfg: cfg, evolver: evolver, logger: logger}
}

// Project applies one belief change to the personality state and the
// behavior patterns that depend on it. Superseded beliefs carry no
// influence and pass through unchanged.
func (p *Projector) Project(
	state *domain.PersonalityState,
	patterns []domain.BehaviorPattern,
	network *domain.BeliefNetwork,
	belief *domain.Belief,
	now time.Time,
) (*domain.PersonalityState, []domain.BehaviorPattern) {
	next := state.Clone()
	nextPatterns := domain.ClonePatterns(patterns)
	if belief.Superseded {
		return next, nextPatterns
	}

	contribution := belief.Confidence * belief.TrustScore
	for name, affinity := range p.cfg.TraitAffinities {
		a := affinity.Valence*belief.Signature.Valence + affinity.Arousal*belief.Signature.Arousal
		next.Traits[name] = clampSigned(next.Traits[name] + a*contribution)
	}

	// Baseline drifts toward the belief's signature, faster for
	// confident beliefs.
	alpha := clamp01(p.cfg.BaselineRate * belief.Confidence)
	next.Baseline.Valence += (belief.Signature.Valence - next.Baseline.Valence) * alpha
	next.Baseline.Arousal += (belief.Signature.Arousal - next.Baseline.Arousal) * alpha

	for i := range nextPatterns {
		if !dependsOn(nextPatterns[i], belief.ID) {
			continue
		}
		nextPatterns[i].Confidence = p.patternConfidence(nextPatterns[i], network, now)
	}

	p.logger.Debug("personality projected",
		zap.String("belief_id", belief.ID.String()),
		zap.Float64("contribution", contribution),
		zap.Float64("baseline_valence", next.Baseline.Valence))

	return next, nextPatterns
}

// patternConfidence is the trust-weighted mean of the dependency
// beliefs' current (lazily decayed) confidences. Missing or superseded
// dependencies contribute nothing.
func (p *Projector) patternConfidence(pattern domain.BehaviorPattern, network *domain.BeliefNetwork, now time.Time) float64 {
	var weighted, total float64
	for _, depID := range pattern.DependsOn {
		dep, ok := network.Nodes[depID]
		if !ok || dep.Superseded {
			continue
		}
		trust := dep.TrustScore
		if trust <= 0 {
			continue
		}
		weighted += p.evolver.DecayedConfidence(dep, now) * trust
		total += trust
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

func dependsOn(pattern domain.BehaviorPattern, id uuid.UUID) bool {
	for _, dep := range pattern.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}
