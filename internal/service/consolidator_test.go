package service

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func strongCluster() domain.FeelingCluster {
	return domain.FeelingCluster{
		Centroid: "strangers cannot be trusted",
		Members: []domain.ClusterMember{
			{FeelingID: 1, SourceID: "s1", Weight: 0.9, Valence: 0.8, Arousal: 0.7, Similarity: 1},
			{FeelingID: 2, SourceID: "s2", Weight: 0.9, Valence: 0.8, Arousal: 0.7, Similarity: 1},
			{FeelingID: 3, SourceID: "s3", Weight: 0.9, Valence: 0.8, Arousal: 0.7, Similarity: 1},
		},
		TotalWeight: 2.7,
		AvgValence:  0.8,
		AvgArousal:  0.7,
		Coherence:   1.0,
	}
}

func TestConsolidator_Evaluate(t *testing.T) {
	c := NewConsolidator(domain.DefaultPipelineConfig(), zap.NewNop())

	got := c.Evaluate(strongCluster())
	want := 2.7 * 1.0 * 0.8 * 0.7
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("potential = %f, want %f", got, want)
	}
}

func TestConsolidator_BelowThresholdReturnsNil(t *testing.T) {
	c := NewConsolidator(domain.DefaultPipelineConfig(), zap.NewNop())

	weak := strongCluster()
	weak.TotalWeight = 0.3
	weak.AvgArousal = 0.2
	weak.AvgValence = 0.1

	if b := c.Consolidate(weak, uuid.New(), time.Now()); b != nil {
		t.Errorf("expected nil belief for weak cluster, got confidence %f", b.Confidence)
	}
}

func TestConsolidator_ThreeFeelingScenario(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	now := time.Now()
	agentID := uuid.New()
	builder := NewClusterBuilder(cfg, NewLexicalSimilarity(), zap.NewNop())
	c := NewConsolidator(cfg, zap.NewNop())

	feelings := []*domain.Feeling{
		testFeeling(1, "strangers cannot be trusted", "s1", 0.9, 0.8, 0.7, now),
		testFeeling(2, "strangers cannot be trusted", "s2", 0.9, 0.8, 0.7, now),
		testFeeling(3, "strangers cannot be trusted", "s3", 0.9, 0.8, 0.7, now),
	}

	clusters, err := builder.BuildClusters(context.Background(), feelings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 || len(clusters[0].Members) != 3 {
		t.Fatalf("expected one cluster of 3, got %+v", clusters)
	}

	belief := c.Consolidate(clusters[0], agentID, now)
	if belief == nil {
		t.Fatal("expected belief, potential should exceed threshold 0.3")
	}
	if belief.Confidence <= 0 || belief.Confidence >= 1 {
		t.Errorf("confidence = %f, want in (0,1)", belief.Confidence)
	}
	if len(belief.Evidence.FeelingIDs) != 3 {
		t.Fatalf("evidence ids = %v, want all three", belief.Evidence.FeelingIDs)
	}
	seen := map[int64]bool{}
	for _, id := range belief.Evidence.FeelingIDs {
		seen[id] = true
	}
	for id := int64(1); id <= 3; id++ {
		if !seen[id] {
			t.Errorf("evidence missing feeling %d", id)
		}
	}
	if !reflect.DeepEqual(belief.Sources.Primary, []string{"s1", "s2", "s3"}) {
		t.Errorf("primary sources = %v", belief.Sources.Primary)
	}
	if belief.Version != 1 {
		t.Errorf("version = %d, want 1", belief.Version)
	}
}

func TestConsolidator_IdempotentOnSnapshot(t *testing.T) {
	c := NewConsolidator(domain.DefaultPipelineConfig(), zap.NewNop())
	agentID := uuid.New()
	now := time.Now()

	first := c.Consolidate(strongCluster(), agentID, now)
	second := c.Consolidate(strongCluster(), agentID, now)
	if first == nil || second == nil {
		t.Fatal("expected beliefs from both runs")
	}

	// Record ids differ; everything derived from the cluster must not.
	first.ID = uuid.Nil
	second.ID = uuid.Nil
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-consolidation diverged:\n%+v\n%+v", first, second)
	}
}

func TestConsolidator_AdaptabilityRisesWithVolatility(t *testing.T) {
	c := NewConsolidator(domain.DefaultPipelineConfig(), zap.NewNop())

	steady := strongCluster()
	volatile := strongCluster()
	volatile.Members[0].Weight = 0.2
	volatile.Members[2].Weight = 1.0

	steadyBelief := c.Consolidate(steady, uuid.New(), time.Now())
	volatileBelief := c.Consolidate(volatile, uuid.New(), time.Now())
	if steadyBelief == nil || volatileBelief == nil {
		t.Fatal("expected beliefs from both clusters")
	}

	if volatileBelief.Adaptability <= steadyBelief.Adaptability {
		t.Errorf("volatile adaptability %f not above steady %f",
			volatileBelief.Adaptability, steadyBelief.Adaptability)
	}
	if volatileBelief.Adaptability > 1 {
		t.Errorf("adaptability %f exceeds 1", volatileBelief.Adaptability)
	}
}

func TestConsolidator_TrustScoreWeightsBySource(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	cfg.SourceTrust = map[string]float64{"s1": 0.5, "s2": 1.0, "s3": 1.0}
	c := NewConsolidator(cfg, zap.NewNop())

	belief := c.Consolidate(strongCluster(), uuid.New(), time.Now())
	if belief == nil {
		t.Fatal("expected belief")
	}

	want := (0.5*0.9 + 1.0*0.9 + 1.0*0.9) / 2.7
	if math.Abs(belief.TrustScore-want) > 1e-9 {
		t.Errorf("trust score = %f, want %f", belief.TrustScore, want)
	}
}
