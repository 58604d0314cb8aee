package session

import (
	"context"
	"fmt"

	"vizard/internal/logging"
	"vizard/internal/store"
	"vizard/internal/types"
)

// Catalog returns the current catalog snapshot. Resolutions in flight keep
// the snapshot they started with; a concurrent replace is only visible to
// later calls.
func (m *Manager) Catalog() types.Catalog {
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()
	return m.catalog
}

// UpdateCatalog replaces the catalog wholesale with a new versioned snapshot.
// Partial merges are not supported; the runtime always sends the full set.
// When catalog sync is enabled the candidate store is refreshed by a detached
// task whose failures are logged, never surfaced to the caller.
func (m *Manager) UpdateCatalog(artifacts []types.Artifact, force bool) types.Catalog {
	m.catalogMu.Lock()
	snapshot := types.Catalog{
		Version:   m.catalog.Version + 1,
		Artifacts: artifacts,
	}
	m.catalog = snapshot
	m.catalogMu.Unlock()

	logging.Session("catalog replaced: version=%d artifacts=%d force=%v",
		snapshot.Version, len(snapshot.Artifacts), force)

	if m.cfg.SyncCatalog && m.candidates != nil {
		go func() {
			if err := m.syncCandidates(context.Background(), snapshot, force); err != nil {
				logging.Candidates("catalog sync failed: %v", err)
			}
		}()
	}
	return snapshot
}

// syncCandidates mirrors the snapshot into the vector store so the vector
// matching strategy searches current artifacts. Under force the collection
// is dropped and rebuilt; otherwise items are upserted in place.
func (m *Manager) syncCandidates(ctx context.Context, snapshot types.Catalog, force bool) error {
	if force {
		if err := m.candidates.Delete(ctx, m.cfg.Collection); err != nil {
			return fmt.Errorf("failed to recreate collection: %w", err)
		}
	}

	items := make([]store.Item, 0, len(snapshot.Artifacts))
	for _, a := range snapshot.Artifacts {
		items = append(items, store.Item{
			ID:      a.ID,
			Content: a.SearchText(),
			Metadata: map[string]any{
				"type":     a.Type,
				"title":    a.Props.Title,
				"category": a.Category,
			},
		})
	}
	if len(items) == 0 {
		return nil
	}

	if err := m.candidates.Upsert(ctx, m.cfg.Collection, items); err != nil {
		return fmt.Errorf("failed to upsert %d candidates: %w", len(items), err)
	}
	logging.Candidates("synced %d candidates at catalog version %d", len(items), snapshot.Version)
	return nil
}
