package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{name: "identical", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "dimension mismatch", a: []float32{1}, b: []float32{1, 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindTopK(t *testing.T) {
	query := []float32{1, 0, 0}
	corpus := [][]float32{
		{0, 1, 0},       // orthogonal
		{1, 0, 0},       // identical
		{0.9, 0.1, 0},   // close
		{1, 2},          // wrong dimensions, skipped
		{-1, 0, 0},      // opposite
	}

	results := FindTopK(query, corpus, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("best match index = %d, want 1", results[0].Index)
	}
	if results[1].Index != 2 {
		t.Errorf("second match index = %d, want 2", results[1].Index)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered by similarity")
	}
}

func TestNewEngineRejectsUnknownProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "duckdb"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
