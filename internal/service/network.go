package service

import (
	"context"
	"fmt"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NetworkService maintains the directed belief graph and propagates
// confidence changes along its edges. All operations return a new
// network; the caller's snapshot is never mutated.
type NetworkService struct {
	cfg        domain.PipelineConfig
	discoverer domain.RelationDiscoverer
	logger     *zap.Logger
}

func NewNetworkService(cfg domain.PipelineConfig, discoverer domain.RelationDiscoverer, logger *zap.Logger) *NetworkService {
	return &NetworkService{cfg: cfg, discoverer: discoverer, logger: logger}
}

// Integrate inserts (or overwrites) the belief and discovers
// relationships against every active node. Each proposal yields at most
// one directed edge per ordered pair; re-integration overwrites rather
// than accumulates.
func (s *NetworkService) Integrate(ctx context.Context, network *domain.BeliefNetwork, belief *domain.Belief) (*domain.BeliefNetwork, error) {
	next := network.Clone()
	next.Nodes[belief.ID] = belief.Clone()

	for _, other := range next.ActiveBeliefs() {
		if other.ID == belief.ID {
			continue
		}
		edges, err := s.discoverer.Propose(ctx, belief, other)
		if err != nil {
			return nil, fmt.Errorf("relation discovery %s -> %s: %w", belief.ID, other.ID, err)
		}
		for _, e := range edges {
			next.SetEdge(e)
		}
	}

	return next, nil
}

// MarkSuperseded replaces the node with its superseded copy. The record
// is retained for audit; it is simply excluded from active influence.
func (s *NetworkService) MarkSuperseded(network *domain.BeliefNetwork, superseded *domain.Belief) *domain.BeliefNetwork {
	next := network.Clone()
	next.Nodes[superseded.ID] = superseded.Clone()
	return next
}

// Propagate walks breadth-first outward from the changed belief,
// adjusting each reached belief's confidence by
// edge.strength * delta * damping^hop. The walk is bounded to MaxHops
// regardless of cycles; the hop bound is the termination guarantee, so
// cycle detection is unnecessary. Superseded beliefs are never touched.
func (s *NetworkService) Propagate(network *domain.BeliefNetwork, changedID uuid.UUID, delta float64) *domain.BeliefNetwork {
	next := network.Clone()
	if _, ok := next.Nodes[changedID]; !ok || delta == 0 {
		return next
	}

	visited := map[uuid.UUID]bool{changedID: true}
	frontier := []uuid.UUID{changedID}
	damping := 1.0
	adjusted := 0

	for hop := 1; hop <= s.cfg.MaxHops && len(frontier) > 0; hop++ {
		damping *= s.cfg.Damping
		var nextFrontier []uuid.UUID

		for _, id := range frontier {
			for _, edge := range next.OutgoingEdges(id) {
				if visited[edge.Target] {
					continue
				}
				visited[edge.Target] = true

				target, ok := next.Nodes[edge.Target]
				if !ok || target.Superseded {
					continue
				}

				target.Confidence = clamp01(target.Confidence + edge.Strength*delta*damping)
				adjusted++
				nextFrontier = append(nextFrontier, edge.Target)
			}
		}
		frontier = nextFrontier
	}

	if adjusted > 0 {
		s.logger.Debug("propagation complete",
			zap.String("changed_id", changedID.String()),
			zap.Float64("delta", delta),
			zap.Int("adjusted", adjusted))
	}
	return next
}
