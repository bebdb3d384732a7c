package store

import (
	"context"

	"github.com/itinvault/itinvault/internal/db"
	"github.com/itinvault/itinvault/internal/errors"
)

// DeleteVersion removes one version from a scenario's history. When the
// deleted version was the scenario's current version, current_version is
// recomputed as the highest remaining number.
func (s *Store) DeleteVersion(ctx context.Context, scenarioID string, versionNumber int) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	if versionNumber < 1 {
		return errors.NewInvalidRequest("version_number must be positive")
	}

	sc, err := db.GetScenarioByID(ctx, s.db, scenarioID)
	if err != nil {
		return err
	}

	deleted, err := db.DeleteVersion(ctx, s.db, scenarioID, versionNumber)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.NewVersionNotFound(scenarioID, versionNumber)
	}

	now := nowMillis()
	if versionNumber == sc.CurrentVersion {
		max, err := db.MaxVersionNumber(ctx, s.db, scenarioID)
		if err != nil {
			return err
		}
		return db.SetCurrentVersion(ctx, s.db, scenarioID, max, now)
	}
	return db.TouchScenario(ctx, s.db, scenarioID, now)
}

// DeleteUnlabeledVersions removes unnamed versions from a scenario's
// history, keeping every named one. When keepLatest is set the single
// highest-numbered unnamed version also survives. Returns the number removed.
func (s *Store) DeleteUnlabeledVersions(ctx context.Context, scenarioID string, keepLatest bool) (int, error) {
	if scenarioID == "" {
		return 0, errors.NewInvalidRequest("scenario_id is required")
	}

	sc, err := db.GetScenarioByID(ctx, s.db, scenarioID)
	if err != nil {
		return 0, err
	}

	keep := 0
	if keepLatest {
		keep = 1
	}
	deleted, err := db.DeleteUnnamedVersions(ctx, s.db, scenarioID, keep)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, nil
	}

	now := nowMillis()
	max, err := db.MaxVersionNumber(ctx, s.db, scenarioID)
	if err != nil {
		return deleted, err
	}
	if max != sc.CurrentVersion {
		if err := db.SetCurrentVersion(ctx, s.db, scenarioID, max, now); err != nil {
			return deleted, err
		}
		return deleted, nil
	}
	if err := db.TouchScenario(ctx, s.db, scenarioID, now); err != nil {
		return deleted, err
	}
	return deleted, nil
}
