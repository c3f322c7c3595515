package service

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
	"go.uber.org/zap"
)

func testFeeling(id int64, content, source string, weight, valence, arousal float64, createdAt time.Time) *domain.Feeling {
	return &domain.Feeling{
		ID:        id,
		Content:   content,
		Weight:    weight,
		Valence:   valence,
		Arousal:   arousal,
		SourceID:  source,
		CreatedAt: createdAt,
	}
}

func TestClusterBuilder_GroupsSimilarFeelings(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	b := NewClusterBuilder(cfg, NewLexicalSimilarity(), zap.NewNop())
	now := time.Now()

	feelings := []*domain.Feeling{
		testFeeling(1, "the market crashed today", "s1", 0.9, -0.8, 0.7, now),
		testFeeling(2, "the market crashed today", "s2", 0.8, -0.7, 0.6, now),
		testFeeling(3, "the market crashed today", "s3", 0.7, -0.9, 0.8, now),
		testFeeling(4, "sunny walk in the park", "s4", 0.9, 0.9, 0.4, now),
	}

	clusters, err := b.BuildClusters(context.Background(), feelings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	if len(clusters[0].Members) != 3 {
		t.Fatalf("cluster size = %d, want 3", len(clusters[0].Members))
	}
	if clusters[0].Centroid != "the market crashed today" {
		t.Errorf("centroid = %q", clusters[0].Centroid)
	}
	// Identical contents give identical similarities, so dispersion is
	// zero and coherence is maximal.
	if math.Abs(clusters[0].Coherence-1.0) > 1e-9 {
		t.Errorf("coherence = %f, want 1.0", clusters[0].Coherence)
	}
}

func TestClusterBuilder_Deterministic(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	b := NewClusterBuilder(cfg, NewLexicalSimilarity(), zap.NewNop())
	now := time.Now()

	mk := func() []*domain.Feeling {
		return []*domain.Feeling{
			testFeeling(10, "storm damaged the roof", "s1", 0.6, -0.5, 0.6, now.Add(-time.Hour)),
			testFeeling(11, "storm damaged the roof", "s2", 0.6, -0.6, 0.5, now.Add(-2*time.Hour)),
			testFeeling(12, "storm damaged the roof", "s3", 0.6, -0.4, 0.7, now.Add(-time.Minute)),
			testFeeling(13, "quiet dinner with friends", "s4", 0.7, 0.8, 0.3, now),
			testFeeling(14, "quiet dinner with friends", "s5", 0.7, 0.7, 0.2, now),
			testFeeling(15, "quiet dinner with friends", "s6", 0.7, 0.9, 0.4, now),
		}
	}

	first, err := b.BuildClusters(context.Background(), mk(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := b.BuildClusters(context.Background(), mk(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical input produced different cluster output")
	}
	if len(first) != 2 {
		t.Fatalf("clusters = %d, want 2", len(first))
	}
}

func TestClusterBuilder_DiscardsBelowMinSize(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	b := NewClusterBuilder(cfg, NewLexicalSimilarity(), zap.NewNop())
	now := time.Now()

	feelings := []*domain.Feeling{
		testFeeling(1, "late train again", "s1", 0.9, -0.4, 0.5, now),
		testFeeling(2, "late train again", "s2", 0.9, -0.4, 0.5, now),
	}

	clusters, err := b.BuildClusters(context.Background(), feelings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("clusters = %d, want 0 for undersized groups", len(clusters))
	}
}

func TestClusterBuilder_EmptyInput(t *testing.T) {
	b := NewClusterBuilder(domain.DefaultPipelineConfig(), NewLexicalSimilarity(), zap.NewNop())

	clusters, err := b.BuildClusters(context.Background(), nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clusters != nil {
		t.Errorf("clusters = %v, want nil", clusters)
	}
}

func TestClusterBuilder_AggregatesAreWeighted(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	b := NewClusterBuilder(cfg, NewLexicalSimilarity(), zap.NewNop())
	now := time.Now()

	feelings := []*domain.Feeling{
		testFeeling(1, "deadline pressure at work", "s1", 0.9, -0.6, 0.9, now),
		testFeeling(2, "deadline pressure at work", "s2", 0.3, -0.2, 0.3, now),
		testFeeling(3, "deadline pressure at work", "s3", 0.6, -0.4, 0.6, now),
	}

	clusters, err := b.BuildClusters(context.Background(), feelings, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}

	c := clusters[0]
	wantTotal := 0.9 + 0.3 + 0.6
	if math.Abs(c.TotalWeight-wantTotal) > 1e-9 {
		t.Errorf("total weight = %f, want %f", c.TotalWeight, wantTotal)
	}
	wantValence := (-0.6*0.9 + -0.2*0.3 + -0.4*0.6) / wantTotal
	if math.Abs(c.AvgValence-wantValence) > 1e-9 {
		t.Errorf("avg valence = %f, want %f", c.AvgValence, wantValence)
	}
	wantArousal := (0.9*0.9 + 0.3*0.3 + 0.6*0.6) / wantTotal
	if math.Abs(c.AvgArousal-wantArousal) > 1e-9 {
		t.Errorf("avg arousal = %f, want %f", c.AvgArousal, wantArousal)
	}
}
