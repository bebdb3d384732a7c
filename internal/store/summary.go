package store

import (
	"context"
	"strings"

	"github.com/itinvault/itinvault/internal/db"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
)

// SaveSummary stores a generated markdown summary on a scenario, recording
// which version it was generated for.
func (s *Store) SaveSummary(ctx context.Context, scenarioID, markdown string, forVersion int) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	if strings.TrimSpace(markdown) == "" {
		return errors.NewInvalidRequest("summary markdown is required")
	}
	if forVersion < 1 {
		return errors.NewInvalidRequest("generated_for_version must be positive")
	}

	if _, err := db.GetVersion(ctx, s.db, scenarioID, forVersion); err != nil {
		return err
	}
	return db.SaveSummary(ctx, s.db, scenarioID, markdown, nowMillis(), forVersion)
}

// GetSummary returns the scenario's stored summary, or nil when none exists.
func (s *Store) GetSummary(ctx context.Context, scenarioID string) (*scenario.Summary, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	if _, err := db.GetScenarioByID(ctx, s.db, scenarioID); err != nil {
		return nil, err
	}
	return db.GetSummary(ctx, s.db, scenarioID)
}

// DeleteSummary clears the scenario's stored summary. Deleting an absent
// summary is not an error.
func (s *Store) DeleteSummary(ctx context.Context, scenarioID string) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	if _, err := db.GetScenarioByID(ctx, s.db, scenarioID); err != nil {
		return err
	}
	return db.DeleteSummary(ctx, s.db, scenarioID, nowMillis())
}
