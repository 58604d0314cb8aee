package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient scripts completion responses by matching a substring of the
// system prompt, so each pipeline step can be scripted independently.
type MockClient struct {
	mu        sync.Mutex
	responses map[string]string // system prompt substring -> response
	errors    map[string]error
	calls     []string
}

func newMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

// on registers a response for calls whose system prompt contains key.
func (m *MockClient) on(key, response string) *MockClient {
	m.responses[key] = response
	return m
}

// fail registers an error for calls whose system prompt contains key.
func (m *MockClient) fail(key string, err error) *MockClient {
	m.errors[key] = err
	return m
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, systemPrompt)

	for key, err := range m.errors {
		if strings.Contains(systemPrompt, key) {
			return "", err
		}
	}
	for key, resp := range m.responses {
		if strings.Contains(systemPrompt, key) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted response for system prompt %q", systemPrompt)
}

// callCount returns how many calls matched the given system prompt key.
func (m *MockClient) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c, key) {
			n++
		}
	}
	return n
}

// System prompt substrings used as scripting keys.
const (
	keyClassify = "classify user prompts"
	keyRank     = "best existing artifact"
	keyRerank   = "short candidate list"
	keySynth    = "design one data visualization"
	keyMulti    = "set of data visualizations"
	keyValidate = "adjust an existing visualization"
)
