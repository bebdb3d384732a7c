package store

import (
	"context"
	"strings"

	"github.com/itinvault/itinvault/internal/db"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
	"github.com/itinvault/itinvault/internal/stablehash"
)

// SaveVersionInput contains parameters for the SaveVersion operation.
type SaveVersionInput struct {
	ScenarioID  string
	Data        *scenario.Itinerary
	Named       bool
	VersionName string // required when Named
}

// SaveVersionResult contains the result of the SaveVersion operation.
type SaveVersionResult struct {
	// Skipped is true when an autosave matched the latest version's
	// content hash and no new version was written.
	Skipped bool `json:"skipped"`

	// Version is the newly created version, or the existing latest
	// version when Skipped.
	Version *scenario.Version `json:"version"`

	// Pruned is the number of unnamed versions removed by retention
	// cleanup after this save.
	Pruned int `json:"pruned,omitempty"`
}

// SaveVersion appends a snapshot to a scenario's history. Autosaves are
// deduplicated against the latest version by stable content hash: an
// identical autosave only refreshes the scenario's bookkeeping timestamps.
// Named saves are never skipped. After each successful autosave, retention
// cleanup prunes unnamed versions beyond the configured count.
//
// Version numbers are allocated as CurrentVersion+1 read from the scenario
// row. Two overlapping saves can race on that read; the store's primary key
// turns the loser into a CONFLICT rather than silently corrupting history.
func (s *Store) SaveVersion(ctx context.Context, input SaveVersionInput) (*SaveVersionResult, error) {
	if input.ScenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if input.Data == nil {
		return nil, errors.NewInvalidRequest("itinerary data is required")
	}
	if input.Named && strings.TrimSpace(input.VersionName) == "" {
		return nil, errors.NewInvalidRequest("version name is required for a named save")
	}

	sc, err := db.GetScenarioByID(ctx, s.db, input.ScenarioID)
	if err != nil {
		return nil, err
	}

	now := nowMillis()

	var hash string
	if !input.Named {
		hash = stablehash.Hash(input.Data)

		latest, err := db.GetLatestVersion(ctx, s.db, input.ScenarioID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			latestHash := latest.DataHash
			if latestHash == "" {
				// Named versions don't store a hash; compute on the fly.
				latestHash = stablehash.Hash(latest.Data)
			}
			if latestHash == hash {
				if err := db.TouchAutosave(ctx, s.db, input.ScenarioID, now); err != nil {
					return nil, err
				}
				return &SaveVersionResult{Skipped: true, Version: latest}, nil
			}
		}
	}

	version := &scenario.Version{
		ScenarioID:    input.ScenarioID,
		VersionNumber: sc.CurrentVersion + 1,
		Data:          input.Data.Clone(),
		IsNamed:       input.Named,
		VersionName:   strings.TrimSpace(input.VersionName),
		DataHash:      hash,
		CreatedAt:     now,
	}

	if err := db.InsertVersion(ctx, s.db, version); err != nil {
		return nil, err
	}
	if err := db.FinishVersionSave(ctx, s.db, input.ScenarioID, version.VersionNumber, now, !input.Named); err != nil {
		return nil, err
	}

	result := &SaveVersionResult{Version: version}

	if !input.Named {
		pruned, err := db.DeleteUnnamedVersions(ctx, s.db, input.ScenarioID, s.cfg.RetentionCount)
		if err != nil {
			return nil, err
		}
		result.Pruned = pruned
	}

	return result, nil
}

// GetLatestVersion returns the scenario's highest-numbered version, or nil
// if the scenario has no versions yet.
func (s *Store) GetLatestVersion(ctx context.Context, scenarioID string) (*scenario.Version, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if _, err := db.GetScenarioByID(ctx, s.db, scenarioID); err != nil {
		return nil, err
	}
	return db.GetLatestVersion(ctx, s.db, scenarioID)
}

// GetLatestVersions returns the latest version for each scenario id in one
// store query. Scenarios without versions are absent from the map.
func (s *Store) GetLatestVersions(ctx context.Context, scenarioIDs []string) (map[string]*scenario.Version, error) {
	return db.GetLatestVersions(ctx, s.db, scenarioIDs)
}

// GetVersion returns one version by number.
func (s *Store) GetVersion(ctx context.Context, scenarioID string, versionNumber int) (*scenario.Version, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if versionNumber < 1 {
		return nil, errors.NewInvalidRequest("version_number must be positive")
	}
	return db.GetVersion(ctx, s.db, scenarioID, versionNumber)
}

// GetVersionHistory returns versions ordered by version number descending,
// capped at limit.
func (s *Store) GetVersionHistory(ctx context.Context, scenarioID string, limit int) ([]scenario.Version, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if _, err := db.GetScenarioByID(ctx, s.db, scenarioID); err != nil {
		return nil, err
	}

	versions, err := db.ListVersions(ctx, s.db, scenarioID, ClampHistoryLimit(limit))
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []scenario.Version{}
	}
	return versions, nil
}

// UpdateSegment merges a plain field map into one segment of the latest
// itinerary and autosaves the merged document. This is the partial-update
// path presentation code calls with named form fields.
func (s *Store) UpdateSegment(ctx context.Context, scenarioID, segmentID string, fields map[string]any) (*SaveVersionResult, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if segmentID == "" {
		return nil, errors.NewInvalidRequest("segment_id is required")
	}

	latest, err := db.GetLatestVersion(ctx, s.db, scenarioID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, errors.NewInvalidRequest("scenario has no versions to update")
	}

	merged := latest.Data.Clone()
	if err := merged.MergeSegment(segmentID, fields); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	return s.SaveVersion(ctx, SaveVersionInput{
		ScenarioID: scenarioID,
		Data:       merged,
	})
}
