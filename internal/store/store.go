// Package store implements the candidate store: named collections of
// artifact descriptions indexed by vector embedding, backed by SQLite.
// Retrieval embeds the query text and reranks stored vectors by cosine
// similarity.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"vizard/internal/embedding"
	"vizard/internal/logging"
)

// Item is one stored candidate. Embedding may be precomputed by the caller;
// Upsert fills in missing vectors via the embedding engine.
type Item struct {
	ID         string
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	Similarity float64 // set on query results
}

// Store is a named-collection vector index over SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	engine embedding.Engine
	path   string
}

// Open initializes the store at path (":memory:" for tests). The embedding
// engine may be nil, in which case Upsert requires precomputed embeddings
// and Query fails.
func Open(path string, engine embedding.Engine) (*Store, error) {
	logging.Candidates("Opening candidate store at %s", path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.CandidatesDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.CandidatesDebug("failed to set journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candidates (
			collection  TEXT NOT NULL,
			artifact_id TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   BLOB,
			metadata    TEXT,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, artifact_id)
		);
		CREATE INDEX IF NOT EXISTS idx_candidates_collection ON candidates(collection);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, engine: engine, path: path}, nil
}

// SetEngine configures the embedding engine after open.
func (s *Store) SetEngine(engine embedding.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = engine
}

// Exists reports whether the named collection holds any candidates.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.Count(ctx, name)
	return n > 0, err
}

// Count returns the number of candidates in the named collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM candidates WHERE collection = ?", name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %q: %w", name, err)
	}
	return n, nil
}

// Delete removes the named collection entirely.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM candidates WHERE collection = ?", name); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", name, err)
	}
	logging.Candidates("Deleted collection %q", name)
	return nil
}

// Upsert inserts or replaces items by id. Items without a precomputed
// embedding are batch-embedded first.
func (s *Store) Upsert(ctx context.Context, name string, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	// Embed outside the lock; capability calls can be slow.
	var missing []int
	for i := range items {
		if len(items[i].Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		s.mu.RLock()
		engine := s.engine
		s.mu.RUnlock()
		if engine == nil {
			return fmt.Errorf("no embedding engine configured and %d items lack embeddings", len(missing))
		}

		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = items[i].Content
		}
		vecs, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed %d items: %w", len(missing), err)
		}
		for j, i := range missing {
			items[i].Embedding = vecs[j]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candidates (collection, artifact_id, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		meta, _ := json.Marshal(item.Metadata)
		if _, err := stmt.ExecContext(ctx, name, item.ID, item.Content,
			encodeVector(item.Embedding), string(meta)); err != nil {
			return fmt.Errorf("failed to upsert item %q: %w", item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	logging.Candidates("Upserted %d items into collection %q", len(items), name)
	return nil
}

// Query embeds the text and returns the k nearest candidates in the named
// collection, best first, with Similarity populated.
func (s *Store) Query(ctx context.Context, name, text string, k int) ([]Item, error) {
	if k <= 0 {
		k = 5
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil, fmt.Errorf("no embedding engine configured")
	}

	queryVec, err := engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact_id, content, embedding, metadata
		FROM candidates WHERE collection = ? AND embedding IS NOT NULL`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", name, err)
	}
	defer rows.Close()

	var items []Item
	var vectors [][]float32
	for rows.Next() {
		var item Item
		var blob []byte
		var meta string
		if err := rows.Scan(&item.ID, &item.Content, &blob, &meta); err != nil {
			continue
		}
		vec, err := decodeVector(blob)
		if err != nil {
			logging.CandidatesDebug("skipping %q: %v", item.ID, err)
			continue
		}
		if meta != "" {
			_ = json.Unmarshal([]byte(meta), &item.Metadata)
		}
		item.Embedding = vec
		items = append(items, item)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading collection %q: %w", name, err)
	}

	top := embedding.FindTopK(queryVec, vectors, k)
	results := make([]Item, 0, len(top))
	for _, r := range top {
		item := items[r.Index]
		item.Similarity = r.Similarity
		results = append(results, item)
	}
	return results, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
