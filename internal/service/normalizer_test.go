package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/convictionlabs/credence/internal/domain"
	"go.uber.org/zap"
)

func newTestNormalizer(t *testing.T, cfg domain.PipelineConfig) *Normalizer {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return NewNormalizer(cfg, node, zap.NewNop())
}

func TestNormalizer_Ingest_Validation(t *testing.T) {
	n := newTestNormalizer(t, domain.DefaultPipelineConfig())
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name string
		raw  domain.RawFeeling
		want error
	}{
		{"empty content", domain.RawFeeling{Content: "  ", SourceID: "s1", CreatedAt: past}, ErrEmptyContent},
		{"empty source", domain.RawFeeling{Content: "ok", SourceID: "", CreatedAt: past}, ErrEmptySource},
		{"zero timestamp", domain.RawFeeling{Content: "ok", SourceID: "s1"}, ErrInvalidTimestamp},
		{"future timestamp", domain.RawFeeling{Content: "ok", SourceID: "s1", CreatedAt: time.Now().Add(time.Hour)}, ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Ingest(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Ingest() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalizer_Ingest_SquashesIntoRange(t *testing.T) {
	n := newTestNormalizer(t, domain.DefaultPipelineConfig())
	past := time.Now().Add(-time.Minute)

	rawValues := []float64{-1e9, -42, -1, -0.5, 0, 0.5, 1, 42, 1e9}
	for _, v := range rawValues {
		f, err := n.Ingest(domain.RawFeeling{
			Content:   "range check",
			SourceID:  "s1",
			Weight:    v,
			Valence:   v,
			Arousal:   v,
			CreatedAt: past,
		})
		if err != nil {
			t.Fatalf("unexpected error for raw value %f: %v", v, err)
		}
		if f.Weight < 0 || f.Weight > 1 {
			t.Errorf("weight for raw %f = %f, want within [0,1]", v, f.Weight)
		}
		if f.Arousal < 0 || f.Arousal > 1 {
			t.Errorf("arousal for raw %f = %f, want within [0,1]", v, f.Arousal)
		}
		if f.Valence < -1 || f.Valence > 1 {
			t.Errorf("valence for raw %f = %f, want within [-1,1]", v, f.Valence)
		}
	}
}

func TestNormalizer_Ingest_AssignsAscendingIDs(t *testing.T) {
	n := newTestNormalizer(t, domain.DefaultPipelineConfig())
	past := time.Now().Add(-time.Minute)

	var prev int64
	for i := 0; i < 5; i++ {
		f, err := n.Ingest(domain.RawFeeling{Content: "id order", SourceID: "s1", Weight: 0.5, CreatedAt: past})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", f.ID, prev)
		}
		prev = f.ID
	}
}

func TestNormalizer_ApplyContextWeight(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	cfg.EnvironmentWeights = map[string]float64{"office": 0.5}
	cfg.RelationshipTrust = map[string]float64{"ally": 0.9}
	n := newTestNormalizer(t, cfg)

	f := &domain.Feeling{
		ID:     1,
		Weight: 0.8,
		Context: domain.FeelingContext{
			EnvironmentID:   "office",
			RelationshipIDs: []string{"ally", "ally"},
		},
	}
	n.ApplyContextWeight(f)

	want := 0.8 * 0.5 * 0.9 * 0.9
	if math.Abs(f.Weight-want) > 1e-9 {
		t.Errorf("weight = %f, want %f", f.Weight, want)
	}
}

func TestNormalizer_ApplyContextWeight_UnknownIDsAreNeutral(t *testing.T) {
	n := newTestNormalizer(t, domain.DefaultPipelineConfig())

	f := &domain.Feeling{
		ID:     2,
		Weight: 0.6,
		Context: domain.FeelingContext{
			EnvironmentID:   "nowhere",
			RelationshipIDs: []string{"stranger"},
		},
	}
	n.ApplyContextWeight(f)

	if math.Abs(f.Weight-0.6) > 1e-9 {
		t.Errorf("weight = %f, want unchanged 0.6", f.Weight)
	}
}

func TestNormalizer_DecayIsMonotonic(t *testing.T) {
	n := newTestNormalizer(t, domain.DefaultPipelineConfig())
	created := time.Now()
	f := &domain.Feeling{ID: 3, Weight: 0.9, CreatedAt: created}

	prev := f.Weight
	for hours := 1; hours <= 48; hours *= 2 {
		got := n.ApplyDecay(f, created.Add(time.Duration(hours)*time.Hour))
		if got > prev {
			t.Fatalf("decayed weight %f at %dh exceeds earlier value %f", got, hours, prev)
		}
		if got < 0 {
			t.Fatalf("decayed weight %f below zero", got)
		}
		prev = got
	}
	if f.Weight != 0.9 {
		t.Errorf("stored weight mutated to %f", f.Weight)
	}
}

func TestNormalizer_ShouldPrune(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	n := newTestNormalizer(t, cfg)
	created := time.Now()
	f := &domain.Feeling{ID: 4, Weight: 0.9, CreatedAt: created}

	if n.ShouldPrune(f, created.Add(time.Hour)) {
		t.Error("fresh feeling should not be pruned")
	}

	// 0.9 * exp(-0.05 * t) < 0.01 once t exceeds ~90 hours.
	if !n.ShouldPrune(f, created.Add(200*time.Hour)) {
		t.Error("fully decayed feeling should be pruned")
	}
}
