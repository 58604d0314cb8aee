package store

import "context"

// MockEngine is an injectable embedding engine for tests.
type MockEngine struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	DimensionsFunc func() int
}

func (m *MockEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0, 0, 0, 0}, nil
}

func (m *MockEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *MockEngine) Dimensions() int {
	if m.DimensionsFunc != nil {
		return m.DimensionsFunc()
	}
	return 4
}

func (m *MockEngine) Name() string { return "mock" }
