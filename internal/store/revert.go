package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/itinvault/itinvault/internal/db"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
)

// RevertToVersion restores a scenario to the state of an earlier version by
// appending a new named version carrying a copy of that version's data.
// History is never rewritten; the revert itself becomes part of it.
func (s *Store) RevertToVersion(ctx context.Context, scenarioID string, versionNumber int) (*scenario.Version, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if versionNumber < 1 {
		return nil, errors.NewInvalidRequest("version_number must be positive")
	}

	target, err := db.GetVersion(ctx, s.db, scenarioID, versionNumber)
	if err != nil {
		return nil, err
	}

	result, err := s.SaveVersion(ctx, SaveVersionInput{
		ScenarioID:  scenarioID,
		Data:        target.Data.Clone(),
		Named:       true,
		VersionName: fmt.Sprintf("Revert to version %d", versionNumber),
	})
	if err != nil {
		return nil, err
	}
	return result.Version, nil
}

// NameVersion names (or renames) an existing version, promoting an autosave
// to a named version. Named versions are exempt from retention cleanup.
func (s *Store) NameVersion(ctx context.Context, scenarioID string, versionNumber int, name string) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	if versionNumber < 1 {
		return errors.NewInvalidRequest("version_number must be positive")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewInvalidRequest("version name is required")
	}

	if _, err := db.GetScenarioByID(ctx, s.db, scenarioID); err != nil {
		return err
	}

	named, err := db.SetVersionName(ctx, s.db, scenarioID, versionNumber, name)
	if err != nil {
		return err
	}
	if !named {
		return errors.NewVersionNotFound(scenarioID, versionNumber)
	}
	return db.TouchScenario(ctx, s.db, scenarioID, nowMillis())
}
