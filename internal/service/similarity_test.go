package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/convictionlabs/credence/internal/domain"
)

func TestLexicalSimilarity_Score(t *testing.T) {
	sim := NewLexicalSimilarity()
	ctx := context.Background()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the market crashed", "the market crashed", 1.0},
		{"case and punctuation ignored", "The market crashed!", "the market crashed", 1.0},
		{"disjoint", "sunny day", "market crash", 0.0},
		{"partial", "the market crashed", "the market recovered", 0.5},
		{"both empty", "", "", 1.0},
		{"one empty", "something", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sim.Score(ctx, tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSignatureRelationDiscoverer_Kinds(t *testing.T) {
	d := NewSignatureRelationDiscoverer(NewLexicalSimilarity())
	ctx := context.Background()
	now := time.Now()

	t.Run("opposing valence contradicts", func(t *testing.T) {
		a := testBelief("city traffic is stressful", 0.7, 1.0, now)
		a.Signature.Valence = -0.7
		b := testBelief("city traffic is stressful", 0.7, 1.0, now)
		b.Signature.Valence = 0.7

		edges, err := d.Propose(ctx, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 2 {
			t.Fatalf("edges = %d, want mirrored pair", len(edges))
		}
		for _, e := range edges {
			if e.Kind != domain.RelationContradicts {
				t.Errorf("kind = %s, want contradicts", e.Kind)
			}
		}
	})

	t.Run("matching valence supports", func(t *testing.T) {
		a := testBelief("city traffic is stressful", 0.7, 1.0, now)
		a.Signature.Valence = -0.7
		b := testBelief("city traffic is stressful", 0.7, 1.0, now)
		b.Signature.Valence = -0.4

		edges, err := d.Propose(ctx, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 2 || edges[0].Kind != domain.RelationSupports {
			t.Errorf("expected mirrored supports edges, got %+v", edges)
		}
	})

	t.Run("neutral valence never contradicts", func(t *testing.T) {
		a := testBelief("city traffic is stressful", 0.7, 1.0, now)
		a.Signature.Valence = 0.05
		b := testBelief("city traffic is stressful", 0.7, 1.0, now)
		b.Signature.Valence = -0.9

		edges, err := d.Propose(ctx, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 2 || edges[0].Kind != domain.RelationSupports {
			t.Errorf("expected supports for near-neutral valence, got %+v", edges)
		}
	})

	t.Run("weak similarity is thematic", func(t *testing.T) {
		a := testBelief("the market crashed hard today", 0.7, 1.0, now)
		b := testBelief("the market recovered slightly today", 0.7, 1.0, now)

		edges, err := d.Propose(ctx, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 2 || edges[0].Kind != domain.RelationThematic {
			t.Errorf("expected thematic edges, got %+v", edges)
		}
	})

	t.Run("unrelated content proposes nothing", func(t *testing.T) {
		a := testBelief("sunny walks help", 0.7, 1.0, now)
		b := testBelief("the market crashed", 0.7, 1.0, now)

		edges, err := d.Propose(ctx, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 0 {
			t.Errorf("expected no edges, got %+v", edges)
		}
	})
}
