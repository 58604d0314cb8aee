package session

import (
	"context"
	"sync"

	"vizard/internal/credentials"
	"vizard/internal/executor"
	"vizard/internal/store"
	"vizard/internal/types"
)

type mockResolver struct {
	ResolveFunc func(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error)
}

func (m *mockResolver) Resolve(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error) {
	return m.ResolveFunc(ctx, prompt, catalog)
}

type mockExecutor struct {
	ExecuteFunc func(ctx context.Context, query string) (executor.Result, error)
}

func (m *mockExecutor) Execute(ctx context.Context, query string) (executor.Result, error) {
	return m.ExecuteFunc(ctx, query)
}

// mockCandidates records sync activity and signals synced after each upsert.
type mockCandidates struct {
	mu      sync.Mutex
	deletes []string
	upserts [][]store.Item
	synced  chan struct{}
}

func newMockCandidates() *mockCandidates {
	return &mockCandidates{synced: make(chan struct{}, 8)}
}

func (m *mockCandidates) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, name)
	return nil
}

func (m *mockCandidates) Upsert(ctx context.Context, name string, items []store.Item) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, items)
	m.mu.Unlock()
	m.synced <- struct{}{}
	return nil
}

type mockCreds struct {
	mu       sync.Mutex
	users    map[string]credentials.User
	recorded map[string]string
}

func newMockCreds(users ...credentials.User) *mockCreds {
	m := &mockCreds{users: make(map[string]credentials.User), recorded: make(map[string]string)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockCreds) FindByUsername(name string) (credentials.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	return u, ok
}

func (m *mockCreds) RecordSessionID(username, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[username]
	u.SessionID = id
	m.users[username] = u
	m.recorded[username] = id
	return nil
}
