package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StepResult summarizes one pipeline pass.
type StepResult struct {
	FeelingsPruned    int `json:"feelings_pruned"`
	FeelingsAbsorbed  int `json:"feelings_absorbed"`
	FeelingsActive    int `json:"feelings_active"`
	ClustersFormed    int `json:"clusters_formed"`
	BeliefsCreated    int `json:"beliefs_created"`
	BeliefsEvolved    int `json:"beliefs_evolved"`
	BeliefsMerged     int `json:"beliefs_merged"`
	BeliefsSuperseded int `json:"beliefs_superseded"`
}

// Pipeline is one agent's belief-formation pipeline. A single logical
// owner processes it; the mutex only guards against the HTTP surface
// and the background scheduler arriving at the same time. Pipelines for
// different agents share nothing mutable.
type Pipeline struct {
	agentID      uuid.UUID
	cfg          domain.PipelineConfig
	normalizer   *Normalizer
	clusterer    *ClusterBuilder
	consolidator *Consolidator
	evolver      *Evolver
	networkSvc   *NetworkService
	projector    *Projector
	sim          domain.Similarity
	embedder     domain.EmbeddingClient
	emit         func(domain.BeliefSnapshot)
	logger       *zap.Logger

	mu       sync.Mutex
	feelings map[int64]*domain.Feeling
	network  *domain.BeliefNetwork
	state    *domain.PersonalityState
	patterns []domain.BehaviorPattern
}

// Submit validates, squashes and context-weights one raw feeling and
// adds it to the working set. The caller must already have passed the
// upstream authentication boundary.
func (p *Pipeline) Submit(raw domain.RawFeeling) (*domain.Feeling, error) {
	f, err := p.normalizer.Ingest(raw)
	if err != nil {
		return nil, err
	}
	p.normalizer.ApplyContextWeight(f)

	p.mu.Lock()
	p.feelings[f.ID] = f
	p.mu.Unlock()

	p.logger.Debug("feeling accepted",
		zap.Int64("feeling_id", f.ID),
		zap.String("agent_id", p.agentID.String()),
		zap.Float64("weight", f.Weight))
	return f, nil
}

// RegisterPattern adds a behavior pattern whose confidence will track
// its dependency beliefs.
func (p *Pipeline) RegisterPattern(pattern domain.BehaviorPattern) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = append(p.patterns, pattern)
}

// Step runs the strictly ordered stage sequence once:
// prune -> cluster -> consolidate -> evolve/resolve -> propagate ->
// project. No stage observes a partially updated network from a later
// stage.
func (p *Pipeline) Step(ctx context.Context, now time.Time) (StepResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result StepResult

	// Prune silently: decay below epsilon is a feeling's normal end.
	for id, f := range p.feelings {
		if p.normalizer.ShouldPrune(f, now) {
			delete(p.feelings, id)
			result.FeelingsPruned++
		}
	}

	active := make([]*domain.Feeling, 0, len(p.feelings))
	for _, f := range p.feelings {
		active = append(active, f)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	clusters, err := p.clusterer.BuildClusters(ctx, active, now)
	if err != nil {
		return result, err
	}
	result.ClustersFormed = len(clusters)

	for _, cluster := range clusters {
		if err := p.processCluster(ctx, cluster, now, &result); err != nil {
			return result, err
		}
	}

	result.FeelingsActive = len(p.feelings)
	return result, nil
}

// processCluster either reinforces a matching active belief or
// consolidates a new one, then runs conflict resolution, propagation
// and projection for whatever changed.
func (p *Pipeline) processCluster(ctx context.Context, cluster domain.FeelingCluster, now time.Time, result *StepResult) error {
	existing, err := p.matchActiveBelief(ctx, cluster.Centroid)
	if err != nil {
		return err
	}

	if existing != nil {
		return p.reinforce(ctx, existing, cluster, now, result)
	}

	belief := p.consolidator.Consolidate(cluster, p.agentID, now)
	if belief == nil {
		// Below threshold: normal non-formation, feelings stay active.
		return nil
	}
	result.BeliefsCreated++

	p.attachEmbedding(ctx, belief)
	p.absorb(cluster, result)

	network, err := p.networkSvc.Integrate(ctx, p.network, belief)
	if err != nil {
		return err
	}
	p.network = network
	p.emitSnapshot(belief)

	belief, err = p.resolveConflicts(ctx, belief, now, result)
	if err != nil {
		return err
	}
	p.finishChange(belief, belief.Confidence, now)
	return nil
}

// reinforce folds a cluster's members into an existing belief as new
// evidence instead of minting a near-duplicate record.
func (p *Pipeline) reinforce(ctx context.Context, belief *domain.Belief, cluster domain.FeelingCluster, now time.Time, result *StepResult) error {
	prior := p.evolver.DecayedConfidence(belief, now)
	updated := belief
	for _, m := range orderedMembers(cluster.Members) {
		updated = p.evolver.Evolve(updated, Evidence{
			FeelingID:  m.FeelingID,
			ContextIDs: memberContextIDs(m),
			Strength:   m.Weight,
		}, now)
	}
	result.BeliefsEvolved++

	p.absorb(cluster, result)

	network, err := p.networkSvc.Integrate(ctx, p.network, updated)
	if err != nil {
		return err
	}
	p.network = network
	p.emitSnapshot(updated)

	updated, err = p.resolveConflicts(ctx, updated, now, result)
	if err != nil {
		return err
	}
	p.finishChange(updated, updated.Confidence-prior, now)
	return nil
}

// resolveConflicts resolves the changed belief against every active
// belief its edges mark as contradicting. Resolution always yields a
// result; the only failure mode is re-integration of a merged belief,
// in which case no state changes and no snapshot is emitted.
func (p *Pipeline) resolveConflicts(ctx context.Context, belief *domain.Belief, now time.Time, result *StepResult) (*domain.Belief, error) {
	current := belief
	for _, edge := range p.network.OutgoingEdges(current.ID) {
		if edge.Kind != domain.RelationContradicts {
			continue
		}
		target, ok := p.network.Nodes[edge.Target]
		if !ok || target.Superseded {
			continue
		}

		res := p.evolver.ResolveConflict(current, target, now)
		if res.Merged {
			absorbed := target
			if res.Belief.ID == target.ID {
				absorbed = current
			}
			loser := absorbed.Clone()
			loser.Superseded = true
			loser.Version++
			loser.UpdatedAt = now

			merged, err := p.networkSvc.Integrate(ctx, p.network, res.Belief)
			if err != nil {
				return nil, err
			}
			p.network = p.networkSvc.MarkSuperseded(merged, loser)
			p.emitSnapshot(loser)
			p.emitSnapshot(res.Belief)
			result.BeliefsMerged++
			current = res.Belief
			continue
		}

		p.network = p.networkSvc.MarkSuperseded(p.network, res.Superseded)
		p.emitSnapshot(res.Superseded)
		result.BeliefsSuperseded++
		if res.Superseded.ID == current.ID {
			// The changed belief lost; the winner stays untouched.
			return res.Superseded, nil
		}
		current = res.Belief
	}
	return current, nil
}

// finishChange propagates the confidence delta through the network and
// projects the change into personality state.
func (p *Pipeline) finishChange(belief *domain.Belief, delta float64, now time.Time) {
	if belief.Superseded {
		return
	}
	p.network = p.networkSvc.Propagate(p.network, belief.ID, delta)
	p.state, p.patterns = p.projector.Project(p.state, p.patterns, p.network, belief, now)
}

// matchActiveBelief finds the active belief most similar to the cluster
// centroid at or above the similarity threshold, lowest belief id on
// ties.
func (p *Pipeline) matchActiveBelief(ctx context.Context, centroid string) (*domain.Belief, error) {
	var best *domain.Belief
	bestScore := 0.0
	for _, b := range p.network.ActiveBeliefs() {
		score, err := p.sim.Score(ctx, centroid, b.Content)
		if err != nil {
			return nil, err
		}
		if score >= p.cfg.SimilarityThreshold && score > bestScore {
			best, bestScore = b, score
		}
	}
	return best, nil
}

// absorb removes consolidated members from the working set; their ids
// live on as belief evidence.
func (p *Pipeline) absorb(cluster domain.FeelingCluster, result *StepResult) {
	for _, m := range cluster.Members {
		if _, ok := p.feelings[m.FeelingID]; ok {
			delete(p.feelings, m.FeelingID)
			result.FeelingsAbsorbed++
		}
	}
}

func (p *Pipeline) attachEmbedding(ctx context.Context, belief *domain.Belief) {
	if p.embedder == nil {
		return
	}
	emb, err := p.embedder.Embed(ctx, belief.Content)
	if err != nil {
		p.logger.Warn("belief embedding failed",
			zap.String("belief_id", belief.ID.String()),
			zap.Error(err))
		return
	}
	belief.Embedding = emb
}

func (p *Pipeline) emitSnapshot(belief *domain.Belief) {
	if p.emit == nil {
		return
	}
	p.emit(belief.Snapshot())
}

// Personality returns a read-only copy of the current state.
func (p *Pipeline) Personality() *domain.PersonalityState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Patterns returns the behavior patterns with confidences current as of
// their last projection.
func (p *Pipeline) Patterns() []domain.BehaviorPattern {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.ClonePatterns(p.patterns)
}

// Beliefs returns snapshot copies with passive decay applied at read
// time. Superseded records are included only on request, for audit.
func (p *Pipeline) Beliefs(includeSuperseded bool, now time.Time) []domain.Belief {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.Belief
	for _, b := range p.network.Nodes {
		if b.Superseded && !includeSuperseded {
			continue
		}
		c := b.Clone()
		c.Confidence = p.evolver.DecayedConfidence(b, now)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ActiveFeelingCount reports the size of the working set.
func (p *Pipeline) ActiveFeelingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.feelings)
}

func orderedMembers(members []domain.ClusterMember) []domain.ClusterMember {
	sorted := make([]domain.ClusterMember, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].FeelingID < sorted[j].FeelingID
	})
	return sorted
}

func memberContextIDs(m domain.ClusterMember) []string {
	var out []string
	if m.EnvironmentID != "" {
		out = append(out, m.EnvironmentID)
	}
	if m.TriggerID != "" {
		out = append(out, m.TriggerID)
	}
	return out
}
