package service

import (
	"math"
	"sort"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"go.uber.org/zap"
)

// Evidence is the reinforcement a belief receives from a new feeling:
// the contributing feeling id and its weighted strength in [0,1].
type Evidence struct {
	FeelingID  int64
	ContextIDs []string
	Strength   float64
}

// ConflictResult is the outcome of resolving two competing beliefs.
// There is always a result: either a synthesized merge or a selection
// with the loser marked superseded.
type ConflictResult struct {
	Belief     *domain.Belief
	Superseded *domain.Belief
	Merged     bool
}

// Evolver updates belief confidence from new evidence, applies lazy
// passive decay, and resolves conflicts between competing beliefs.
type Evolver struct {
	cfg    domain.PipelineConfig
	logger *zap.Logger
}

func NewEvolver(cfg domain.PipelineConfig, logger *zap.Logger) *Evolver {
	return &Evolver{cfg: cfg, logger: logger}
}

// DecayedConfidence returns the belief's confidence eroded by passive
// decay since its last update, floored at zero. Evaluated lazily at
// read or evolve time; there is no background timer.
func (e *Evolver) DecayedConfidence(b *domain.Belief, now time.Time) float64 {
	elapsed := now.Sub(b.UpdatedAt)
	if elapsed <= 0 {
		return b.Confidence
	}
	return b.Confidence * math.Exp(-e.cfg.DecayRate*elapsed.Hours())
}

// Evolve folds new evidence into a belief and returns the updated copy.
// The prior snapshot is never mutated.
func (e *Evolver) Evolve(b *domain.Belief, ev Evidence, now time.Time) *domain.Belief {
	next := b.Clone()
	prior := e.DecayedConfidence(b, now)
	next.Confidence = clamp01(prior*(1-b.Adaptability) + ev.Strength*b.Adaptability)
	next.Evidence.FeelingIDs = append(next.Evidence.FeelingIDs, ev.FeelingID)
	next.Evidence.ContextIDs = mergeContextIDs(next.Evidence.ContextIDs, ev.ContextIDs)
	next.Version++
	next.UpdatedAt = now

	e.logger.Debug("belief evolved",
		zap.String("belief_id", next.ID.String()),
		zap.Float64("prior_confidence", prior),
		zap.Float64("new_confidence", next.Confidence),
		zap.Int("version", next.Version))

	return next
}

// ResolveConflict resolves two competing beliefs. It is a pure function
// of two immutable snapshots and order-symmetric on content:
// ResolveConflict(a, b) and ResolveConflict(b, a) yield
// content-equivalent results.
func (e *Evolver) ResolveConflict(a, b *domain.Belief, now time.Time) ConflictResult {
	strengthA := e.DecayedConfidence(a, now) * a.TrustScore
	strengthB := e.DecayedConfidence(b, now) * b.TrustScore

	if math.Abs(strengthA-strengthB) < e.cfg.ResolutionEpsilon {
		return ConflictResult{Belief: e.synthesize(a, b, strengthA, strengthB, now), Merged: true}
	}

	winner, loser := a, b
	if strengthB > strengthA {
		winner, loser = b, a
	}
	superseded := loser.Clone()
	superseded.Superseded = true
	superseded.Version++
	superseded.UpdatedAt = now

	e.logger.Info("belief superseded",
		zap.String("winner_id", winner.ID.String()),
		zap.String("superseded_id", superseded.ID.String()))

	return ConflictResult{Belief: winner.Clone(), Superseded: superseded}
}

// synthesize merges two beliefs of near-equal strength. The primary
// side is chosen by strength, then lexicographically by content, so the
// merge is symmetric in its arguments.
func (e *Evolver) synthesize(a, b *domain.Belief, strengthA, strengthB float64, now time.Time) *domain.Belief {
	primary, other := a, b
	if strengthB > strengthA || (strengthA == strengthB && b.Content < a.Content) {
		primary, other = b, a
	}

	merged := primary.Clone()
	merged.ID = primary.ID
	merged.Content = primary.Content
	merged.Confidence = math.Max(a.Confidence, b.Confidence)
	merged.Adaptability = math.Max(a.Adaptability, b.Adaptability)
	merged.Version = maxInt(a.Version, b.Version) + 1
	merged.UpdatedAt = now
	merged.Evidence.FeelingIDs = mergeFeelingIDs(primary.Evidence.FeelingIDs, other.Evidence.FeelingIDs)
	merged.Evidence.ContextIDs = mergeContextIDs(primary.Evidence.ContextIDs, other.Evidence.ContextIDs)
	merged.Sources.Primary = unionSorted(a.Sources.Primary, b.Sources.Primary)
	merged.Sources.Supporting = unionSorted(a.Sources.Supporting, b.Sources.Supporting)

	// Trust and signature blend by confidence so the stronger record
	// dominates the merged emotional character.
	total := a.Confidence + b.Confidence
	if total > 0 {
		merged.TrustScore = (a.TrustScore*a.Confidence + b.TrustScore*b.Confidence) / total
		merged.Signature.Valence = (a.Signature.Valence*a.Confidence + b.Signature.Valence*b.Confidence) / total
		merged.Signature.Arousal = (a.Signature.Arousal*a.Confidence + b.Signature.Arousal*b.Confidence) / total
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		merged.CreatedAt = a.CreatedAt
	} else {
		merged.CreatedAt = b.CreatedAt
	}

	e.logger.Info("beliefs synthesized",
		zap.String("primary_id", primary.ID.String()),
		zap.String("other_id", other.ID.String()),
		zap.Float64("confidence", merged.Confidence))

	return merged
}

// mergeFeelingIDs appends the ids from extra that primary does not
// already hold, preserving both orders.
func mergeFeelingIDs(primary, extra []int64) []int64 {
	seen := make(map[int64]struct{}, len(primary))
	out := append([]int64(nil), primary...)
	for _, id := range primary {
		seen[id] = struct{}{}
	}
	for _, id := range extra {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mergeContextIDs(primary, extra []string) []string {
	seen := make(map[string]struct{}, len(primary))
	out := append([]string(nil), primary...)
	for _, id := range primary {
		seen[id] = struct{}{}
	}
	for _, id := range extra {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
