package service

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/convictionlabs/credence/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrEmptyContent     = errors.New("feeling content is required")
	ErrEmptySource      = errors.New("feeling source is required")
	ErrInvalidTimestamp = errors.New("feeling timestamp must be a valid past or present instant")
)

// Normalizer validates raw signals and squashes their fields into
// canonical ranges. It is the only component that mints feeling ids.
type Normalizer struct {
	cfg    domain.PipelineConfig
	node   *snowflake.Node
	logger *zap.Logger
	now    func() time.Time
}

func NewNormalizer(cfg domain.PipelineConfig, node *snowflake.Node, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		cfg:    cfg,
		node:   node,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest validates a raw feeling and returns its normalized form.
// Rejection is local and descriptive; it never takes the agent down.
func (n *Normalizer) Ingest(raw domain.RawFeeling) (*domain.Feeling, error) {
	if strings.TrimSpace(raw.Content) == "" {
		return nil, ErrEmptyContent
	}
	if strings.TrimSpace(raw.SourceID) == "" {
		return nil, ErrEmptySource
	}
	if raw.CreatedAt.IsZero() || raw.CreatedAt.After(n.now()) {
		return nil, ErrInvalidTimestamp
	}

	return &domain.Feeling{
		ID:        n.node.Generate().Int64(),
		Content:   strings.TrimSpace(raw.Content),
		Weight:    squash01(raw.Weight),
		Valence:   squashSigned(raw.Valence),
		Arousal:   squash01(raw.Arousal),
		SourceID:  raw.SourceID,
		Context:   raw.Context,
		CreatedAt: raw.CreatedAt,
	}, nil
}

// ApplyContextWeight multiplies the feeling's weight by its environment
// factor and the product of its relationship trust factors. Unknown ids
// degrade to 1.0 with a warning; they are never an error.
func (n *Normalizer) ApplyContextWeight(f *domain.Feeling) {
	factor, known := n.cfg.EnvironmentWeight(f.Context.EnvironmentID)
	if !known {
		n.logger.Warn("unknown environment id, using neutral weight",
			zap.String("environment_id", f.Context.EnvironmentID),
			zap.Int64("feeling_id", f.ID))
	}

	for _, relID := range f.Context.RelationshipIDs {
		trust, known := n.cfg.RelationshipFactor(relID)
		if !known {
			n.logger.Warn("unknown relationship id, using neutral trust",
				zap.String("relationship_id", relID),
				zap.Int64("feeling_id", f.ID))
		}
		factor *= trust
	}

	f.Weight = clamp01(f.Weight * factor)
}

// ApplyDecay returns the feeling's current decayed weight. Pure; decay
// is recomputed on demand, never scheduled.
func (n *Normalizer) ApplyDecay(f *domain.Feeling, now time.Time) float64 {
	return f.DecayedWeight(now, n.cfg.DecayRate)
}

// ShouldPrune reports whether the feeling has decayed below the working
// set epsilon. Pruning is the normal end of an unconsolidated feeling's
// lifecycle, not an error.
func (n *Normalizer) ShouldPrune(f *domain.Feeling, now time.Time) bool {
	return n.ApplyDecay(f, now) < n.cfg.PruneEpsilon
}
