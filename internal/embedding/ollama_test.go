package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fake Ollama server returning a vector derived from the prompt length.
func newFakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := []float32{float32(len(req.Prompt)), 1, 0}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vec})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbed(t *testing.T) {
	srv := newFakeOllama(t)
	engine, err := NewOllamaEngine(srv.URL, "test-model")
	if err != nil {
		t.Fatal(err)
	}

	vec, err := engine.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 5 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestOllamaEmbedBatchPreservesOrder(t *testing.T) {
	srv := newFakeOllama(t)
	engine, err := NewOllamaEngine(srv.URL, "test-model")
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "ggggggg"}
	vecs, err := engine.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("batch embed failed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: got %v for %q", i, vecs[i], text)
		}
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	engine, err := NewOllamaEngine(srv.URL, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from failing server")
	}
}
