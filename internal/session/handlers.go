package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"vizard/internal/executor"
	"vizard/internal/logging"
	"vizard/internal/types"
)

type queryPayload struct {
	Query string `json:"query"`
}

type promptPayload struct {
	Prompt string `json:"prompt"`
}

type catalogPayload struct {
	Artifacts []types.Artifact `json:"artifacts"`
	Force     bool             `json:"force,omitempty"`
}

type catalogResult struct {
	Success bool   `json:"success"`
	Version uint64 `json:"version"`
	Count   int    `json:"count"`
}

type promptResult struct {
	Success    bool             `json:"success"`
	Resolution types.Resolution `json:"resolution"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

type verifyPayload struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type verifyResult struct {
	Valid bool `json:"valid"`
}

type errorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handle dispatches one inbound envelope to its handler and sends the reply.
// Handler failures become structured error payloads on the same id; nothing
// escapes into the read loop.
func (m *Manager) handle(env *types.Envelope) {
	m.mu.Lock()
	ctx := m.baseCtx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	var payload any
	var err error

	switch env.Type {
	case types.TypeDataReq:
		payload, err = m.handleData(ctx, env, m.rowExec)
	case types.TypeWarehouseReq:
		payload, err = m.handleData(ctx, env, m.warehouseExec)
	case types.TypePromptReq:
		payload, err = m.handlePrompt(ctx, env)
	case types.TypeCatalogUpdate:
		payload, err = m.handleCatalogUpdate(env)
	case types.TypeLoginReq:
		payload, err = m.handleLogin(env)
	case types.TypeVerifyReq:
		payload, err = m.handleVerifyToken(env)
	default:
		logging.Session("ignoring envelope with unknown type %q id=%s", env.Type, env.ID)
		return
	}

	if err != nil {
		logging.Session("handler for %s id=%s failed: %v", env.Type, env.ID, err)
		payload = errorResult{Error: err.Error()}
	}

	reply, err := env.Reply(payload)
	if err != nil {
		logging.Session("failed to build reply for id=%s: %v", env.ID, err)
		return
	}
	if err := m.Send(reply); err != nil {
		logging.Session("failed to send reply for id=%s: %v", env.ID, err)
	}
}

func (m *Manager) handleData(ctx context.Context, env *types.Envelope, exec executor.Executor) (any, error) {
	if exec == nil {
		return nil, fmt.Errorf("no executor configured for %s", env.Type)
	}
	var p queryPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid query payload: %w", err)
	}
	if p.Query == "" {
		return nil, fmt.Errorf("empty query")
	}

	// Raw fetches run as sent; only resolver-generated queries are bounded.
	res, err := exec.Execute(ctx, p.Query)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) handlePrompt(ctx context.Context, env *types.Envelope) (any, error) {
	if m.resolver == nil {
		return nil, fmt.Errorf("no resolver configured")
	}
	var p promptPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid prompt payload: %w", err)
	}

	res, err := m.resolver.Resolve(ctx, p.Prompt, m.Catalog())
	if err != nil {
		return nil, err
	}
	return promptResult{Success: true, Resolution: res}, nil
}

func (m *Manager) handleCatalogUpdate(env *types.Envelope) (any, error) {
	var p catalogPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid catalog payload: %w", err)
	}

	snapshot := m.UpdateCatalog(p.Artifacts, p.Force)
	return catalogResult{Success: true, Version: snapshot.Version, Count: len(snapshot.Artifacts)}, nil
}

func (m *Manager) handleLogin(env *types.Envelope) (any, error) {
	if m.creds == nil {
		return nil, fmt.Errorf("no credential store configured")
	}
	var p loginPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid login payload: %w", err)
	}
	if p.Username == "" || p.Password == "" {
		return loginResult{Error: "missing credentials"}, nil
	}

	user, ok := m.creds.FindByUsername(p.Username)
	if !ok || !user.Matches(p.Password) {
		logging.Credentials("login rejected for %q", p.Username)
		return loginResult{Error: "invalid credentials"}, nil
	}

	token := uuid.NewString()
	if err := m.creds.RecordSessionID(p.Username, token); err != nil {
		return nil, fmt.Errorf("failed to record session id: %w", err)
	}
	logging.Credentials("login accepted for %q", p.Username)
	return loginResult{Success: true, Token: token}, nil
}

func (m *Manager) handleVerifyToken(env *types.Envelope) (any, error) {
	if m.creds == nil {
		return nil, fmt.Errorf("no credential store configured")
	}
	var p verifyPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid verify payload: %w", err)
	}

	user, ok := m.creds.FindByUsername(p.Username)
	valid := ok && user.SessionID != "" && user.SessionID == p.Token
	return verifyResult{Valid: valid}, nil
}
