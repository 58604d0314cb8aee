// Package session owns the duplex websocket channel to the runtime: connect
// and reconnect, envelope dispatch, request correlation, size-guarded sends,
// and the in-memory artifact catalog snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vizard/internal/credentials"
	"vizard/internal/executor"
	"vizard/internal/logging"
	"vizard/internal/safety"
	"vizard/internal/store"
	"vizard/internal/types"
)

var (
	// ErrDisconnected is returned for requests issued or pending after the
	// session has been closed.
	ErrDisconnected = errors.New("session disconnected")

	// ErrTimeout is returned when a correlated request's deadline elapses
	// before a reply arrives.
	ErrTimeout = errors.New("request timed out")
)

// PromptResolver resolves a user prompt against a catalog snapshot.
type PromptResolver interface {
	Resolve(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error)
}

// CandidateStore is the slice of the vector store the catalog sync uses.
type CandidateStore interface {
	Delete(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, items []store.Item) error
}

// CredentialStore is the login/verify contract over the user file.
type CredentialStore interface {
	FindByUsername(name string) (credentials.User, bool)
	RecordSessionID(username, id string) error
}

// Config holds session manager settings.
type Config struct {
	Endpoint             string
	UserID               string
	ProjectID            string
	Role                 types.Role
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	RequestTimeout       time.Duration
	MaxMessageBytes      int
	SyncCatalog          bool
	Collection           string
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		Role:                 types.RoleDataAgent,
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 10,
		RequestTimeout:       30 * time.Second,
		MaxMessageBytes:      safety.DefaultMaxMessageBytes,
		SyncCatalog:          true,
		Collection:           "artifacts",
	}
}

// Manager drives the websocket session. One Manager owns one logical
// connection; reconnection replaces the underlying conn transparently.
type Manager struct {
	cfg Config

	resolver      PromptResolver
	candidates    CandidateStore
	creds         CredentialStore
	rowExec       executor.Executor
	warehouseExec executor.Executor

	mu        sync.Mutex
	conn      *websocket.Conn
	attempts  int
	reconnect bool
	baseCtx   context.Context

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *types.Envelope

	catalogMu sync.RWMutex
	catalog   types.Catalog

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures optional collaborators on a Manager.
type Option func(*Manager)

// WithResolver wires the prompt resolver.
func WithResolver(r PromptResolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithCandidateStore wires the vector store used for catalog sync.
func WithCandidateStore(s CandidateStore) Option {
	return func(m *Manager) { m.candidates = s }
}

// WithCredentialStore wires the login/verify backend.
func WithCredentialStore(s CredentialStore) Option {
	return func(m *Manager) { m.creds = s }
}

// WithRowExecutor wires the row-store query executor.
func WithRowExecutor(e executor.Executor) Option {
	return func(m *Manager) { m.rowExec = e }
}

// WithWarehouseExecutor wires the warehouse query executor.
func WithWarehouseExecutor(e executor.Executor) Option {
	return func(m *Manager) { m.warehouseExec = e }
}

// New builds a Manager. Zero-valued config fields fall back to defaults.
func New(cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.Role == "" {
		cfg.Role = def.Role
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = def.MaxMessageBytes
	}
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}

	m := &Manager{
		cfg:       cfg,
		pending:   make(map[string]chan *types.Envelope),
		reconnect: true,
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Closed is signalled when the session reaches a terminal state: explicit
// disconnect or reconnect attempts exhausted.
func (m *Manager) Closed() <-chan struct{} {
	return m.closed
}

// Connect dials the runtime endpoint and starts the read loop. A later
// unexpected closure schedules reconnection per the configured policy.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
	return m.dial(ctx)
}

func (m *Manager) dial(ctx context.Context) error {
	u, err := url.Parse(m.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid session endpoint: %w", err)
	}
	q := u.Query()
	q.Set("userId", m.cfg.UserID)
	q.Set("projectId", m.cfg.ProjectID)
	q.Set("role", string(m.cfg.Role))
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", m.cfg.Endpoint, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.attempts = 0
	m.mu.Unlock()

	logging.Session("connected to %s as %s", m.cfg.Endpoint, m.cfg.Role)
	go m.readLoop(conn)
	return nil
}

// Disconnect closes the session for good: reconnection is disabled, the
// connection closed, and every pending request rejected. Safe to call twice.
func (m *Manager) Disconnect() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.reconnect = false
		conn := m.conn
		m.conn = nil
		m.mu.Unlock()

		if conn != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}
		m.failAllPending(ErrDisconnected)
		close(m.closed)
		logging.Session("disconnected")
	})
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Session("connection closed by peer")
			} else {
				logging.Session("read error: %v", err)
			}
			conn.Close()
			m.failAllPending(ErrDisconnected)
			m.scheduleReconnect()
			return
		}

		env, err := safety.DecodeEnvelope(data)
		if err != nil {
			// No trustworthy id to answer on, so the frame is dropped.
			logging.Session("dropping malformed frame: %v", err)
			continue
		}

		if m.resolvePending(env) {
			continue
		}
		go m.handle(env)
	}
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if !m.reconnect {
		m.mu.Unlock()
		return
	}
	m.attempts++
	attempt := m.attempts
	if attempt > m.cfg.MaxReconnectAttempts {
		m.reconnect = false
		m.mu.Unlock()
		logging.Session("reconnect attempts exhausted after %d tries", m.cfg.MaxReconnectAttempts)
		m.Disconnect()
		return
	}
	ctx := m.baseCtx
	m.mu.Unlock()

	logging.Session("reconnect attempt %d/%d in %s", attempt, m.cfg.MaxReconnectAttempts, m.cfg.ReconnectDelay)
	time.AfterFunc(m.cfg.ReconnectDelay, func() {
		select {
		case <-m.closed:
			return
		default:
		}
		if err := m.dial(ctx); err != nil {
			logging.Session("reconnect failed: %v", err)
			m.scheduleReconnect()
		}
	})
}

// Send marshals and transmits env. A frame over the size ceiling is replaced
// with a diagnostic payload on the same id and type rather than dropped.
func (m *Manager) Send(env *types.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if check := safety.ValidateMessageSize(data, m.cfg.MaxMessageBytes); !check.OK {
		logging.Session("oversize frame for id=%s type=%s (%d > %d), substituting diagnostic",
			env.ID, env.Type, check.Size, check.Max)
		diag := map[string]any{
			"error": fmt.Sprintf("response size %d exceeds maximum %d bytes", check.Size, check.Max),
			"size":  check.Size,
			"max":   check.Max,
		}
		raw, err := json.Marshal(diag)
		if err != nil {
			return err
		}
		sub := &types.Envelope{ID: env.ID, Type: env.Type, From: env.From, To: env.To, Payload: raw}
		if data, err = json.Marshal(sub); err != nil {
			return err
		}
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send envelope: %w", err)
	}
	return nil
}
