package domain

import "context"

// Similarity scores how close two pieces of content are, in [0,1].
// Implementations must be deterministic for a given input pair within
// one clustering pass; the cluster builder's determinism guarantee
// depends on it.
type Similarity interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// RelationDiscoverer proposes relationships between a newly integrated
// belief and an existing one. Returning no proposals is the normal
// "unrelated" outcome, not an error.
type RelationDiscoverer interface {
	Propose(ctx context.Context, a, b *Belief) ([]BeliefEdge, error)
}

// EmbeddingClient produces a vector embedding for a piece of content.
// Dimensions reports the fixed width of every vector the client emits;
// archive schemas size their vector columns from it.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// PersistenceHook receives immutable belief snapshots whenever a belief
// is created, evolved or superseded. Implementations must be idempotent
// keyed by (BeliefID, Version): re-invoking with the same snapshot is
// always safe.
type PersistenceHook interface {
	Persist(ctx context.Context, snap BeliefSnapshot) error
}
