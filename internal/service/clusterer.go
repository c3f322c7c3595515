package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"go.uber.org/zap"
)

// maxSimilarityStddev is the largest possible population stddev of
// values in [0,1]; it normalizes dispersion into [0,1] for coherence.
const maxSimilarityStddev = 0.5

// ClusterBuilder groups live, decayed feelings into coherent clusters
// using a pluggable similarity capability. The procedure is fully
// deterministic: identical input set and config always produce
// identical membership and ordering.
type ClusterBuilder struct {
	cfg    domain.PipelineConfig
	sim    domain.Similarity
	logger *zap.Logger
}

func NewClusterBuilder(cfg domain.PipelineConfig, sim domain.Similarity, logger *zap.Logger) *ClusterBuilder {
	return &ClusterBuilder{cfg: cfg, sim: sim, logger: logger}
}

// workingCluster accumulates members before aggregates are computed.
type workingCluster struct {
	centroid string
	members  []*domain.Feeling
	weights  []float64 // decayed weights aligned with members
}

// BuildClusters runs one clustering pass over the active working set.
// Clusters under MinClusterSize are discarded, not emitted; their
// feelings stay active for the next pass.
func (b *ClusterBuilder) BuildClusters(ctx context.Context, feelings []*domain.Feeling, now time.Time) ([]domain.FeelingCluster, error) {
	if len(feelings) == 0 {
		return nil, nil
	}

	// Sort by decayed strength descending, feeling id ascending on ties.
	sorted := make([]*domain.Feeling, len(feelings))
	copy(sorted, feelings)
	decayed := make(map[int64]float64, len(sorted))
	for _, f := range sorted {
		decayed[f.ID] = f.DecayedWeight(now, b.cfg.DecayRate)
	}
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := decayed[sorted[i].ID], decayed[sorted[j].ID]
		if si != sj {
			return si > sj
		}
		return sorted[i].ID < sorted[j].ID
	})

	var clusters []*workingCluster
	for _, f := range sorted {
		idx, err := b.bestCluster(ctx, clusters, f)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			clusters = append(clusters, &workingCluster{
				centroid: f.Content,
				members:  []*domain.Feeling{f},
				weights:  []float64{decayed[f.ID]},
			})
			continue
		}
		clusters[idx].members = append(clusters[idx].members, f)
		clusters[idx].weights = append(clusters[idx].weights, decayed[f.ID])
	}

	var out []domain.FeelingCluster
	for _, wc := range clusters {
		if len(wc.members) < b.cfg.MinClusterSize {
			continue
		}
		cluster, err := b.finalize(ctx, wc)
		if err != nil {
			return nil, err
		}
		out = append(out, cluster)
	}

	if len(out) > 0 {
		b.logger.Debug("clustering pass complete",
			zap.Int("active_feelings", len(feelings)),
			zap.Int("clusters", len(out)))
	}
	return out, nil
}

// bestCluster returns the index of the existing cluster with the
// highest centroid similarity at or above the threshold, preferring the
// lowest index on ties, or -1 when the feeling starts a new cluster.
func (b *ClusterBuilder) bestCluster(ctx context.Context, clusters []*workingCluster, f *domain.Feeling) (int, error) {
	best, bestScore := -1, 0.0
	for i, wc := range clusters {
		score, err := b.sim.Score(ctx, wc.centroid, f.Content)
		if err != nil {
			return -1, fmt.Errorf("score feeling %d against cluster %d: %w", f.ID, i, err)
		}
		if score >= b.cfg.SimilarityThreshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, nil
}

// finalize recomputes the centroid as the similarity-weighted
// representative of the members and fills in the weight-weighted
// aggregates and the coherence score.
func (b *ClusterBuilder) finalize(ctx context.Context, wc *workingCluster) (domain.FeelingCluster, error) {
	centroid, err := b.electCentroid(ctx, wc)
	if err != nil {
		return domain.FeelingCluster{}, err
	}

	cluster := domain.FeelingCluster{Centroid: centroid}
	var weightSum, valenceSum, arousalSum float64
	sims := make([]float64, len(wc.members))
	for i, f := range wc.members {
		score, err := b.sim.Score(ctx, centroid, f.Content)
		if err != nil {
			return domain.FeelingCluster{}, fmt.Errorf("score member %d against centroid: %w", f.ID, err)
		}
		sims[i] = score
		w := wc.weights[i]
		weightSum += w
		valenceSum += f.Valence * w
		arousalSum += f.Arousal * w
		cluster.Members = append(cluster.Members, domain.ClusterMember{
			FeelingID:     f.ID,
			SourceID:      f.SourceID,
			Weight:        w,
			Valence:       f.Valence,
			Arousal:       f.Arousal,
			Similarity:    score,
			EnvironmentID: f.Context.EnvironmentID,
			TriggerID:     f.Context.TriggerID,
		})
	}

	cluster.TotalWeight = weightSum
	if weightSum > 0 {
		cluster.AvgValence = valenceSum / weightSum
		cluster.AvgArousal = arousalSum / weightSum
	}
	cluster.Coherence = coherence(sims)
	return cluster, nil
}

// electCentroid picks the member whose weighted similarity to the rest
// of the cluster is greatest; the lowest feeling id wins ties.
func (b *ClusterBuilder) electCentroid(ctx context.Context, wc *workingCluster) (string, error) {
	if len(wc.members) == 1 {
		return wc.members[0].Content, nil
	}

	bestIdx, bestScore := 0, math.Inf(-1)
	for i, cand := range wc.members {
		var total float64
		for j, other := range wc.members {
			if i == j {
				continue
			}
			score, err := b.sim.Score(ctx, cand.Content, other.Content)
			if err != nil {
				return "", fmt.Errorf("centroid election: %w", err)
			}
			total += score * wc.weights[j]
		}
		if total > bestScore || (total == bestScore && wc.members[i].ID < wc.members[bestIdx].ID) {
			bestIdx, bestScore = i, total
		}
	}
	return wc.members[bestIdx].Content, nil
}

// coherence is one minus the normalized dispersion of member
// similarities to the centroid: tighter clusters score higher.
func coherence(sims []float64) float64 {
	if len(sims) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sims {
		sum += s
	}
	mean := sum / float64(len(sims))

	var variance float64
	for _, s := range sims {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(sims))

	return clamp01(1 - math.Sqrt(variance)/maxSimilarityStddev)
}
