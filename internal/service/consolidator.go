package service

import (
	"math"
	"sort"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Consolidator scores cluster potential and, on threshold crossing,
// emits an immutable belief record. Consolidation is idempotent:
// re-running on an unchanged cluster snapshot yields a content-identical
// belief.
type Consolidator struct {
	cfg    domain.PipelineConfig
	logger *zap.Logger
}

func NewConsolidator(cfg domain.PipelineConfig, logger *zap.Logger) *Consolidator {
	return &Consolidator{cfg: cfg, logger: logger}
}

// Evaluate computes a cluster's belief potential.
func (c *Consolidator) Evaluate(cluster domain.FeelingCluster) float64 {
	return cluster.TotalWeight * cluster.Coherence * math.Abs(cluster.AvgValence) * cluster.AvgArousal
}

// Consolidate returns a new belief when the cluster's potential crosses
// the threshold, or nil on the normal non-formation path.
func (c *Consolidator) Consolidate(cluster domain.FeelingCluster, agentID uuid.UUID, now time.Time) *domain.Belief {
	potential := c.Evaluate(cluster)
	if potential < c.cfg.BeliefThreshold {
		return nil
	}

	belief := &domain.Belief{
		ID:         uuid.New(),
		AgentID:    agentID,
		Content:    cluster.Centroid,
		Confidence: squash01(potential),
		Signature: domain.EmotionalSignature{
			Valence: cluster.AvgValence,
			Arousal: cluster.AvgArousal,
		},
		Sources: domain.BeliefSources{
			Primary:    primarySources(cluster.Members),
			Supporting: nil,
		},
		Evidence: domain.BeliefEvidence{
			FeelingIDs: evidenceOrder(cluster.Members),
			ContextIDs: contextIDs(cluster.Members),
		},
		Adaptability: c.adaptability(cluster.Members),
		TrustScore:   c.trustScore(cluster.Members),
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	c.logger.Info("belief consolidated",
		zap.String("belief_id", belief.ID.String()),
		zap.String("agent_id", agentID.String()),
		zap.Float64("potential", potential),
		zap.Float64("confidence", belief.Confidence),
		zap.Int("evidence", len(belief.Evidence.FeelingIDs)))

	return belief
}

// primarySources collects the distinct source ids of the members,
// sorted so equal sets always serialize identically.
func primarySources(members []domain.ClusterMember) []string {
	seen := make(map[string]struct{}, len(members))
	var out []string
	for _, m := range members {
		if _, ok := seen[m.SourceID]; ok {
			continue
		}
		seen[m.SourceID] = struct{}{}
		out = append(out, m.SourceID)
	}
	sort.Strings(out)
	return out
}

// evidenceOrder lists member feeling ids by contribution weight
// descending, id ascending on ties.
func evidenceOrder(members []domain.ClusterMember) []int64 {
	sorted := make([]domain.ClusterMember, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].FeelingID < sorted[j].FeelingID
	})
	ids := make([]int64, len(sorted))
	for i, m := range sorted {
		ids[i] = m.FeelingID
	}
	return ids
}

// contextIDs collects distinct environment and trigger ids in member
// order.
func contextIDs(members []domain.ClusterMember) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, m := range members {
		add(m.EnvironmentID)
		add(m.TriggerID)
	}
	return out
}

// adaptability starts from the configured default and rises with the
// cluster's internal weight variance: volatile evidence produces a
// belief more sensitive to new evidence.
func (c *Consolidator) adaptability(members []domain.ClusterMember) float64 {
	if len(members) == 0 {
		return clamp01(c.cfg.DefaultAdaptability)
	}
	var sum float64
	for _, m := range members {
		sum += m.Weight
	}
	mean := sum / float64(len(members))
	var variance float64
	for _, m := range members {
		d := m.Weight - mean
		variance += d * d
	}
	variance /= float64(len(members))
	return clamp01(c.cfg.DefaultAdaptability + c.cfg.VolatilityGain*variance)
}

// trustScore is the weight-weighted mean of per-source trust values.
func (c *Consolidator) trustScore(members []domain.ClusterMember) float64 {
	var weighted, total float64
	for _, m := range members {
		weighted += c.cfg.SourceTrustFactor(m.SourceID) * m.Weight
		total += m.Weight
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
