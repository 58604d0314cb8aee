package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vizard/internal/logging"
	"vizard/internal/types"
)

// Request sends env and waits for the reply envelope carrying the same id.
// The deadline is timeout when positive, the configured default otherwise.
// A reply arriving after the deadline is dropped, not double-delivered.
func (m *Manager) Request(ctx context.Context, env *types.Envelope, timeout time.Duration) (*types.Envelope, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if timeout <= 0 {
		timeout = m.cfg.RequestTimeout
	}

	ch := make(chan *types.Envelope, 1)
	m.pendingMu.Lock()
	m.pending[env.ID] = ch
	m.pendingMu.Unlock()

	if err := m.Send(env); err != nil {
		m.unregister(env.ID)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply == nil {
			// Channel closed underneath the request.
			return nil, ErrDisconnected
		}
		return reply, nil
	case <-timer.C:
		m.unregister(env.ID)
		logging.Session("request %s timed out after %s", env.ID, timeout)
		return nil, ErrTimeout
	case <-ctx.Done():
		m.unregister(env.ID)
		return nil, ctx.Err()
	case <-m.closed:
		m.unregister(env.ID)
		return nil, ErrDisconnected
	}
}

// resolvePending completes the pending request correlated with env.ID, if
// any. Returns true when the envelope was consumed as a reply; such frames
// are never also dispatched to handlers.
func (m *Manager) resolvePending(env *types.Envelope) bool {
	m.pendingMu.Lock()
	ch, ok := m.pending[env.ID]
	if ok {
		delete(m.pending, env.ID)
	}
	m.pendingMu.Unlock()
	if !ok {
		return false
	}
	ch <- env
	return true
}

func (m *Manager) unregister(id string) {
	m.pendingMu.Lock()
	delete(m.pending, id)
	m.pendingMu.Unlock()
}

func (m *Manager) failAllPending(err error) {
	m.pendingMu.Lock()
	orphaned := m.pending
	m.pending = make(map[string]chan *types.Envelope)
	m.pendingMu.Unlock()

	for _, ch := range orphaned {
		close(ch)
	}
	if len(orphaned) > 0 {
		logging.Session("rejecting %d pending requests: %v", len(orphaned), err)
	}
}
