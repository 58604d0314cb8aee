package embedding

import "testing"

func TestNewGenAIEngineRequiresAPIKey(t *testing.T) {
	_, err := NewGenAIEngine("", "gemini-embedding-001", "")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewGenAIEngineTaskType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "RETRIEVAL_DOCUMENT", want: "RETRIEVAL_DOCUMENT"},
		{in: "RETRIEVAL_QUERY", want: "RETRIEVAL_QUERY"},
		{in: "CLASSIFICATION", want: "CLASSIFICATION"},
		{in: "CLUSTERING", want: "CLUSTERING"},
		{in: "", want: "SEMANTIC_SIMILARITY"},
		{in: "bogus", want: "SEMANTIC_SIMILARITY"},
	}

	for _, tt := range tests {
		eng, err := NewGenAIEngine("test-key", "", tt.in)
		if err != nil {
			t.Fatalf("NewGenAIEngine(%q): %v", tt.in, err)
		}
		if eng.taskType != tt.want {
			t.Errorf("task type for %q = %q, want %q", tt.in, eng.taskType, tt.want)
		}
		if eng.model != "gemini-embedding-001" {
			t.Errorf("default model = %q", eng.model)
		}
	}
}
