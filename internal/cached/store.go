// Package cached wraps the store with a read-through query cache. Reads are
// keyed by a fixed grammar and grouped into TTL classes; every successful
// mutation invalidates all keys derived from the touched scenario plus the
// listing key. Failed mutations invalidate nothing.
package cached

import (
	"context"
	"fmt"
	"time"

	"github.com/itinvault/itinvault/internal/cache"
	"github.com/itinvault/itinvault/internal/config"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
	"github.com/itinvault/itinvault/internal/store"
)

// Store is a caching facade over store.Store. All store semantics pass
// through unchanged; only read latency and staleness windows differ.
type Store struct {
	store *store.Store
	cache *cache.QueryCache
	cfg   *config.Config
}

// New wraps a store with a query cache configured from cfg.
func New(s *store.Store, cfg *config.Config) *Store {
	opts := []cache.Option{cache.WithDefaultTTL(cfg.DocumentTTL())}
	if cfg.CacheDisabled {
		opts = append(opts, cache.WithDisabled())
	}
	return &Store{
		store: s,
		cache: cache.New(opts...),
		cfg:   cfg,
	}
}

// Cache exposes the underlying query cache for stats and admin surfaces.
func (s *Store) Cache() *cache.QueryCache {
	return s.cache
}

// Unwrap returns the underlying store.
func (s *Store) Unwrap() *store.Store {
	return s.store
}

func getTyped[T any](ctx context.Context, c *cache.QueryCache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, cache.FetchOptions{TTL: ttl})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, errors.NewInternal(fmt.Errorf("cache entry %q holds %T", key, v))
	}
	return typed, nil
}

// invalidateScenario drops every cached key derived from the scenario and
// the listing key. Called after each successful mutation.
func (s *Store) invalidateScenario(scenarioID string) {
	s.cache.InvalidatePattern(scenarioPattern(scenarioID))
	s.cache.Invalidate(listKey)
}

// GetScenario returns scenario metadata, cached at the document TTL.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*scenario.Scenario, error) {
	return getTyped(ctx, s.cache, scenarioKey(scenarioID), s.cfg.DocumentTTL(), func(ctx context.Context) (*scenario.Scenario, error) {
		return s.store.GetScenario(ctx, scenarioID)
	})
}

// ListScenarios returns all scenarios, cached at the short list TTL.
func (s *Store) ListScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	return getTyped(ctx, s.cache, listKey, s.cfg.ListTTL(), func(ctx context.Context) ([]scenario.Scenario, error) {
		return s.store.ListScenarios(ctx)
	})
}

// GetLatestVersion returns the newest version, cached at the document TTL.
func (s *Store) GetLatestVersion(ctx context.Context, scenarioID string) (*scenario.Version, error) {
	return getTyped(ctx, s.cache, latestKey(scenarioID), s.cfg.DocumentTTL(), func(ctx context.Context) (*scenario.Version, error) {
		return s.store.GetLatestVersion(ctx, scenarioID)
	})
}

// GetVersion returns one version. A version's content never changes once
// written, so these entries use the long stable TTL.
func (s *Store) GetVersion(ctx context.Context, scenarioID string, versionNumber int) (*scenario.Version, error) {
	return getTyped(ctx, s.cache, versionKey(scenarioID, versionNumber), s.cfg.StableTTL(), func(ctx context.Context) (*scenario.Version, error) {
		return s.store.GetVersion(ctx, scenarioID, versionNumber)
	})
}

// GetVersionHistory returns versions newest-first, capped at limit. The
// cache holds one full-depth history per scenario and slices it per call,
// so different limits share an entry.
func (s *Store) GetVersionHistory(ctx context.Context, scenarioID string, limit int) ([]scenario.Version, error) {
	full, err := getTyped(ctx, s.cache, historyKey(scenarioID), s.cfg.ListTTL(), func(ctx context.Context) ([]scenario.Version, error) {
		return s.store.GetVersionHistory(ctx, scenarioID, store.MaxHistoryLimit)
	})
	if err != nil {
		return nil, err
	}
	limit = store.ClampHistoryLimit(limit)
	if len(full) > limit {
		full = full[:limit]
	}
	return full, nil
}

// GetLatestVersions returns the latest version per scenario id, batching
// the store query for ids not already cached.
func (s *Store) GetLatestVersions(ctx context.Context, scenarioIDs []string) (map[string]*scenario.Version, error) {
	keys := make([]string, len(scenarioIDs))
	idByKey := make(map[string]string, len(scenarioIDs))
	for i, id := range scenarioIDs {
		keys[i] = latestKey(id)
		idByKey[keys[i]] = id
	}

	values, err := s.cache.GetBatch(ctx, keys, func(ctx context.Context, missing []string) (map[string]any, error) {
		ids := make([]string, 0, len(missing))
		for _, key := range missing {
			ids = append(ids, idByKey[key])
		}
		latest, err := s.store.GetLatestVersions(ctx, ids)
		if err != nil {
			return nil, err
		}
		filled := make(map[string]any, len(missing))
		for _, key := range missing {
			// Scenarios without versions cache an explicit nil so the
			// store is not re-queried for them on every batch.
			filled[key] = latest[idByKey[key]]
		}
		return filled, nil
	}, cache.FetchOptions{TTL: s.cfg.DocumentTTL()})
	if err != nil {
		return nil, err
	}

	result := make(map[string]*scenario.Version, len(values))
	for key, v := range values {
		version, ok := v.(*scenario.Version)
		if !ok {
			return nil, errors.NewInternal(fmt.Errorf("cache entry %q holds %T", key, v))
		}
		if version != nil {
			result[idByKey[key]] = version
		}
	}
	return result, nil
}

// GetSummary returns the stored summary when it was generated for the given
// version, nil otherwise. Summaries are immutable per version so entries
// use the stable TTL.
func (s *Store) GetSummary(ctx context.Context, scenarioID string, versionNumber int) (*scenario.Summary, error) {
	return getTyped(ctx, s.cache, summaryKey(scenarioID, versionNumber), s.cfg.StableTTL(), func(ctx context.Context) (*scenario.Summary, error) {
		summary, err := s.store.GetSummary(ctx, scenarioID)
		if err != nil {
			return nil, err
		}
		if summary == nil || summary.GeneratedForVersion != versionNumber {
			return nil, nil
		}
		return summary, nil
	})
}

// GetOrCreateScenario passes through to the store. Creation invalidates the
// listing; a plain fetch leaves the cache untouched.
func (s *Store) GetOrCreateScenario(ctx context.Context, name, description string) (*scenario.Scenario, bool, error) {
	sc, created, err := s.store.GetOrCreateScenario(ctx, name, description)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.invalidateScenario(sc.ID)
	}
	return sc, created, nil
}

// SaveVersion appends a snapshot and invalidates the scenario's keys. A
// skipped autosave still refreshed scenario timestamps, so it invalidates
// too.
func (s *Store) SaveVersion(ctx context.Context, input store.SaveVersionInput) (*store.SaveVersionResult, error) {
	result, err := s.store.SaveVersion(ctx, input)
	if err != nil {
		return nil, err
	}
	s.invalidateScenario(input.ScenarioID)
	return result, nil
}

// UpdateSegment merges segment fields into the latest version and autosaves.
func (s *Store) UpdateSegment(ctx context.Context, scenarioID, segmentID string, fields map[string]any) (*store.SaveVersionResult, error) {
	result, err := s.store.UpdateSegment(ctx, scenarioID, segmentID, fields)
	if err != nil {
		return nil, err
	}
	s.invalidateScenario(scenarioID)
	return result, nil
}

// RenameScenario renames a scenario.
func (s *Store) RenameScenario(ctx context.Context, scenarioID, newName string) error {
	if err := s.store.RenameScenario(ctx, scenarioID, newName); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}

// DeleteScenario removes a scenario and all its versions.
func (s *Store) DeleteScenario(ctx context.Context, scenarioID string) error {
	if err := s.store.DeleteScenario(ctx, scenarioID); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}

// DeleteVersion removes one version.
func (s *Store) DeleteVersion(ctx context.Context, scenarioID string, versionNumber int) error {
	if err := s.store.DeleteVersion(ctx, scenarioID, versionNumber); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}

// DeleteUnlabeledVersions prunes unnamed versions, optionally sparing the
// newest one.
func (s *Store) DeleteUnlabeledVersions(ctx context.Context, scenarioID string, keepLatest bool) (int, error) {
	deleted, err := s.store.DeleteUnlabeledVersions(ctx, scenarioID, keepLatest)
	if err != nil {
		return deleted, err
	}
	if deleted > 0 {
		s.invalidateScenario(scenarioID)
	}
	return deleted, nil
}

// RevertToVersion appends a named version restoring an earlier state.
func (s *Store) RevertToVersion(ctx context.Context, scenarioID string, versionNumber int) (*scenario.Version, error) {
	v, err := s.store.RevertToVersion(ctx, scenarioID, versionNumber)
	if err != nil {
		return nil, err
	}
	s.invalidateScenario(scenarioID)
	return v, nil
}

// NameVersion promotes an autosave to a named version.
func (s *Store) NameVersion(ctx context.Context, scenarioID string, versionNumber int, name string) error {
	if err := s.store.NameVersion(ctx, scenarioID, versionNumber, name); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}

// SaveSummary stores a generated summary for a version.
func (s *Store) SaveSummary(ctx context.Context, scenarioID, markdown string, forVersion int) error {
	if err := s.store.SaveSummary(ctx, scenarioID, markdown, forVersion); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}

// DeleteSummary clears a scenario's stored summary.
func (s *Store) DeleteSummary(ctx context.Context, scenarioID string) error {
	if err := s.store.DeleteSummary(ctx, scenarioID); err != nil {
		return err
	}
	s.invalidateScenario(scenarioID)
	return nil
}
