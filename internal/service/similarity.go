package service

import (
	"context"
	"strings"

	"github.com/convictionlabs/credence/internal/domain"
)

// LexicalSimilarity is a deterministic token-Jaccard similarity. It
// needs no network and is the default capability for tests and
// air-gapped deployments; the embedding-backed capability lives in
// internal/embedding.
type LexicalSimilarity struct{}

func NewLexicalSimilarity() *LexicalSimilarity {
	return &LexicalSimilarity{}
}

func (l *LexicalSimilarity) Score(_ context.Context, a, b string) (float64, error) {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0, nil
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0, nil
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union), nil
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// SignatureRelationDiscoverer proposes belief relationships from
// content similarity and the sign of emotional valence: similar content
// with matching valence supports, similar content with opposing valence
// contradicts, and moderately similar content is thematically linked.
// Symmetric kinds produce mirrored edges, one per ordered pair.
type SignatureRelationDiscoverer struct {
	sim domain.Similarity

	// SupportThreshold gates supports/contradicts proposals;
	// ThematicThreshold gates the weaker thematic link.
	SupportThreshold  float64
	ThematicThreshold float64
}

func NewSignatureRelationDiscoverer(sim domain.Similarity) *SignatureRelationDiscoverer {
	return &SignatureRelationDiscoverer{
		sim:               sim,
		SupportThreshold:  0.6,
		ThematicThreshold: 0.3,
	}
}

func (d *SignatureRelationDiscoverer) Propose(ctx context.Context, a, b *domain.Belief) ([]domain.BeliefEdge, error) {
	score, err := d.sim.Score(ctx, a.Content, b.Content)
	if err != nil {
		return nil, err
	}
	if score < d.ThematicThreshold {
		return nil, nil
	}

	kind := domain.RelationThematic
	if score >= d.SupportThreshold {
		if opposedValence(a.Signature.Valence, b.Signature.Valence) {
			kind = domain.RelationContradicts
		} else {
			kind = domain.RelationSupports
		}
	}

	return []domain.BeliefEdge{
		{Source: a.ID, Target: b.ID, Kind: kind, Strength: clamp01(score)},
		{Source: b.ID, Target: a.ID, Kind: kind, Strength: clamp01(score)},
	}, nil
}

// opposedValence reports whether two valences point in clearly opposite
// emotional directions. Near-neutral valence opposes nothing.
func opposedValence(a, b float64) bool {
	const neutralBand = 0.1
	if a > -neutralBand && a < neutralBand {
		return false
	}
	if b > -neutralBand && b < neutralBand {
		return false
	}
	return (a > 0) != (b > 0)
}
