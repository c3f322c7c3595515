package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/convictionlabs/credence/internal/domain"
)

// Similarity scores text pairs by cosine distance of their embeddings.
// Vectors are cached per text so a clustering pass embeds each feeling
// once. Scores are mapped from [-1,1] into [0,1].
type Similarity struct {
	client domain.EmbeddingClient

	mu    sync.Mutex
	cache map[string][]float32
}

func NewSimilarity(client domain.EmbeddingClient) *Similarity {
	return &Similarity{
		client: client,
		cache:  make(map[string][]float32),
	}
}

func (s *Similarity) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := s.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.vector(ctx, b)
	if err != nil {
		return 0, err
	}

	cos, err := cosine(va, vb)
	if err != nil {
		return 0, err
	}
	return (cos + 1) / 2, nil
}

func (s *Similarity) vector(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	v, ok := s.cache[text]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", text, err)
	}

	s.mu.Lock()
	s.cache[text] = v
	s.mu.Unlock()
	return v, nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
