package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

const mockDimensions = 64

// MockClient produces deterministic pseudo-embeddings seeded from the
// input text. Identical text always yields an identical vector, which
// keeps cluster and relation discovery reproducible in tests and local
// runs.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, mockDimensions)
	var norm float64
	for i := range vec {
		// xorshift keeps the stream stable across platforms.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2001)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (c *MockClient) Dimensions() int {
	return mockDimensions
}
