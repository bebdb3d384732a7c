package store

import (
	"context"
	"strings"

	"github.com/itinvault/itinvault/internal/db"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
)

// GetOrCreateScenario looks up a scenario by name for the configured owner,
// creating it with zero versions if absent. The bool reports whether a new
// scenario was created. Two callers racing on the same name are resolved by
// the store's unique index: the loser re-reads the winner's row.
func (s *Store) GetOrCreateScenario(ctx context.Context, name, description string) (*scenario.Scenario, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errors.NewInvalidRequest("scenario name is required")
	}

	existing, err := db.GetScenarioByOwnerName(ctx, s.db, s.cfg.OwnerID, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, false, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}

	now := nowMillis()
	created := &scenario.Scenario{
		ID:          id,
		OwnerID:     s.cfg.OwnerID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := db.InsertScenario(ctx, s.db, created); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			// Lost the creation race; the winner's row is authoritative.
			winner, lookupErr := db.GetScenarioByOwnerName(ctx, s.db, s.cfg.OwnerID, name)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	return created, true, nil
}

// GetScenario retrieves one scenario by id.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*scenario.Scenario, error) {
	if scenarioID == "" {
		return nil, errors.NewInvalidRequest("scenario_id is required")
	}
	return db.GetScenarioByID(ctx, s.db, scenarioID)
}

// ListScenarios returns the owner's scenarios, most recently updated first.
func (s *Store) ListScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	list, err := db.ListScenarios(ctx, s.db, s.cfg.OwnerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []scenario.Scenario{}
	}
	return list, nil
}

// RenameScenario changes a scenario's name.
func (s *Store) RenameScenario(ctx context.Context, scenarioID, newName string) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.NewInvalidRequest("new scenario name is required")
	}
	return db.RenameScenario(ctx, s.db, scenarioID, newName, nowMillis())
}

// DeleteScenario removes a scenario and every version it owns.
func (s *Store) DeleteScenario(ctx context.Context, scenarioID string) error {
	if scenarioID == "" {
		return errors.NewInvalidRequest("scenario_id is required")
	}
	return db.DeleteScenario(ctx, s.db, scenarioID)
}
