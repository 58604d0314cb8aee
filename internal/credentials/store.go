// Package credentials provides the file-backed user store consumed by the
// session login and token-verification handlers.
package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"vizard/internal/logging"
)

// User is one credential record. Password holds the stored secret;
// SessionID is the last session id recorded for the user.
type User struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Matches reports whether supplied equals the hex SHA-256 digest of the
// stored password. Clients send the digest over the wire, not the plaintext.
func (u User) Matches(supplied string) bool {
	sum := sha256.Sum256([]byte(u.Password))
	return hex.EncodeToString(sum[:]) == supplied
}

// Store is a JSON-file credential store. Records are indexed by username;
// session-id updates rewrite the backing file.
type Store struct {
	mu    sync.RWMutex
	path  string
	users map[string]User

	watcher *fileWatcher
}

// Open loads the credential file at path. A missing file yields an empty
// store; the file is created on the first session-id write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, users: make(map[string]User)}
	if err := s.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
		logging.Credentials("credential file %s not found, starting empty", path)
	}
	return s, nil
}

// OpenWatched loads the credential file and starts a watcher that reloads
// it whenever the file changes on disk.
func OpenWatched(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	w, err := newFileWatcher(path, func() {
		if err := s.reload(); err != nil {
			logging.Credentials("reload after file change failed: %v", err)
			return
		}
		logging.Credentials("credential file %s reloaded", path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch credential file: %w", err)
	}
	s.watcher = w
	return s, nil
}

// FindByUsername returns the record for name, if present.
func (s *Store) FindByUsername(name string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[name]
	return u, ok
}

// Count returns the number of loaded records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// RecordSessionID stores id on the named user and rewrites the file.
func (s *Store) RecordSessionID(username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("unknown user %q", username)
	}
	u.SessionID = id
	s.users[username] = u

	if err := s.flushLocked(); err != nil {
		return fmt.Errorf("failed to persist session id: %w", err)
	}
	return nil
}

// Close stops the file watcher if one is running.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.stop()
	}
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("failed to parse credential file: %w", err)
	}

	indexed := make(map[string]User, len(users))
	for _, u := range users {
		if u.Username == "" {
			continue
		}
		indexed[u.Username] = u
	}

	s.mu.Lock()
	s.users = indexed
	s.mu.Unlock()
	return nil
}

func (s *Store) flushLocked() error {
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
