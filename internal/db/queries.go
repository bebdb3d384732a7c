package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// InsertScenario stores a new scenario row.
func InsertScenario(ctx context.Context, db *sql.DB, s *scenario.Scenario) error {
	query := `
		INSERT INTO scenarios (
			id, owner_id, name, description, current_version,
			created_at, updated_at, last_autosave_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.Name, s.Description, s.CurrentVersion,
		s.CreatedAt, s.UpdatedAt, s.LastAutosaveAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("scenario name already exists for this owner: " + s.Name)
		}
		return errors.NewRemoteFailure(err)
	}
	return nil
}

// GetScenarioByID retrieves a scenario by its ULID.
func GetScenarioByID(ctx context.Context, db *sql.DB, id string) (*scenario.Scenario, error) {
	query := scenarioSelect + ` WHERE id = ?`

	row := db.QueryRowContext(ctx, query, id)
	s, err := scanScenario(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewScenarioNotFound(id)
	}
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return s, nil
}

// GetScenarioByOwnerName retrieves a scenario by (owner, name).
func GetScenarioByOwnerName(ctx context.Context, db *sql.DB, ownerID, name string) (*scenario.Scenario, error) {
	query := scenarioSelect + ` WHERE owner_id = ? AND name = ?`

	row := db.QueryRowContext(ctx, query, ownerID, name)
	s, err := scanScenario(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewScenarioNotFound(name)
	}
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return s, nil
}

// ListScenarios returns all scenarios for an owner, most recently updated
// first.
func ListScenarios(ctx context.Context, db *sql.DB, ownerID string) ([]scenario.Scenario, error) {
	query := scenarioSelect + ` WHERE owner_id = ? ORDER BY updated_at DESC`

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	defer rows.Close()

	var result []scenario.Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, errors.NewRemoteFailure(err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return result, nil
}

// RenameScenario updates the scenario's name and updated_at.
func RenameScenario(ctx context.Context, db *sql.DB, id, name string, updatedAt int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios SET name = ?, updated_at = ? WHERE id = ?`,
		name, updatedAt, id,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("scenario name already exists for this owner: " + name)
		}
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// SetCurrentVersion persists a recomputed current_version and updated_at.
func SetCurrentVersion(ctx context.Context, db *sql.DB, id string, currentVersion int, updatedAt int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios SET current_version = ?, updated_at = ? WHERE id = ?`,
		currentVersion, updatedAt, id,
	)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// TouchAutosave refreshes bookkeeping timestamps without writing a version
// (the skipped-autosave path).
func TouchAutosave(ctx context.Context, db *sql.DB, id string, now int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios SET updated_at = ?, last_autosave_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// TouchScenario refreshes updated_at only.
func TouchScenario(ctx context.Context, db *sql.DB, id string, now int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios SET updated_at = ? WHERE id = ?`,
		now, id,
	)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// FinishVersionSave records a successful version write on the scenario row:
// new current_version, updated_at, and (for autosaves) last_autosave_at.
func FinishVersionSave(ctx context.Context, db *sql.DB, id string, currentVersion int, now int64, autosave bool) error {
	query := `UPDATE scenarios SET current_version = ?, updated_at = ? WHERE id = ?`
	args := []any{currentVersion, now, id}
	if autosave {
		query = `UPDATE scenarios SET current_version = ?, updated_at = ?, last_autosave_at = ? WHERE id = ?`
		args = []any{currentVersion, now, now, id}
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// DeleteScenario removes a scenario and all of its versions.
func DeleteScenario(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE scenario_id = ?`, id); err != nil {
		return errors.NewRemoteFailure(err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	if affected == 0 {
		return errors.NewScenarioNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewRemoteFailure(err)
	}
	return nil
}

// SaveSummary attaches a summary blob to a scenario.
func SaveSummary(ctx context.Context, db *sql.DB, id, markdown string, generatedAt int64, forVersion int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios
		 SET summary_markdown = ?, summary_generated_at = ?, summary_version = ?, updated_at = ?
		 WHERE id = ?`,
		markdown, generatedAt, forVersion, generatedAt, id,
	)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// GetSummary returns the scenario's summary, or nil if none is attached.
func GetSummary(ctx context.Context, db *sql.DB, id string) (*scenario.Summary, error) {
	query := `
		SELECT summary_markdown, summary_generated_at, summary_version
		FROM scenarios WHERE id = ?
	`
	var markdown sql.NullString
	var generatedAt, forVersion sql.NullInt64

	err := db.QueryRowContext(ctx, query, id).Scan(&markdown, &generatedAt, &forVersion)
	if err == sql.ErrNoRows {
		return nil, errors.NewScenarioNotFound(id)
	}
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	if !markdown.Valid {
		return nil, nil
	}

	return &scenario.Summary{
		ScenarioID:          id,
		Markdown:            markdown.String,
		GeneratedAt:         generatedAt.Int64,
		GeneratedForVersion: int(forVersion.Int64),
	}, nil
}

// DeleteSummary detaches the summary. Deleting an absent summary is a no-op.
func DeleteSummary(ctx context.Context, db *sql.DB, id string, updatedAt int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE scenarios
		 SET summary_markdown = NULL, summary_generated_at = NULL, summary_version = NULL, updated_at = ?
		 WHERE id = ?`,
		updatedAt, id,
	)
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	return requireRowAffected(result, id)
}

// InsertVersion stores a new version snapshot.
func InsertVersion(ctx context.Context, db *sql.DB, v *scenario.Version) error {
	data, err := json.Marshal(v.Data)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO versions (
			scenario_id, version_number, itinerary_json,
			is_named, version_name, data_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		v.ScenarioID, v.VersionNumber, string(data),
		boolToInt(v.IsNamed), v.VersionName, v.DataHash, v.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("version number already exists: concurrent save detected")
		}
		return errors.NewRemoteFailure(err)
	}
	return nil
}

// GetVersion retrieves one version of a scenario.
func GetVersion(ctx context.Context, db *sql.DB, scenarioID string, versionNumber int) (*scenario.Version, error) {
	query := versionSelect + ` WHERE scenario_id = ? AND version_number = ?`

	row := db.QueryRowContext(ctx, query, scenarioID, versionNumber)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewVersionNotFound(scenarioID, versionNumber)
	}
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return v, nil
}

// GetLatestVersion retrieves the highest-numbered version, or nil if the
// scenario has no versions.
func GetLatestVersion(ctx context.Context, db *sql.DB, scenarioID string) (*scenario.Version, error) {
	query := versionSelect + `
		WHERE scenario_id = ?
		ORDER BY version_number DESC
		LIMIT 1`

	row := db.QueryRowContext(ctx, query, scenarioID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return v, nil
}

// GetLatestVersions retrieves the highest-numbered version for each of the
// given scenarios in one query. Scenarios without versions are absent from
// the result map.
func GetLatestVersions(ctx context.Context, db *sql.DB, scenarioIDs []string) (map[string]*scenario.Version, error) {
	if len(scenarioIDs) == 0 {
		return map[string]*scenario.Version{}, nil
	}

	placeholders := strings.Repeat("?,", len(scenarioIDs)-1) + "?"
	query := versionSelect + `
		WHERE (scenario_id, version_number) IN (
			SELECT scenario_id, MAX(version_number)
			FROM versions
			WHERE scenario_id IN (` + placeholders + `)
			GROUP BY scenario_id
		)`

	args := make([]any, len(scenarioIDs))
	for i, id := range scenarioIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	defer rows.Close()

	result := make(map[string]*scenario.Version, len(scenarioIDs))
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.NewRemoteFailure(err)
		}
		result[v.ScenarioID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return result, nil
}

// ListVersions returns versions ordered by version_number descending,
// capped at limit (0 means no cap).
func ListVersions(ctx context.Context, db *sql.DB, scenarioID string, limit int) ([]scenario.Version, error) {
	query := versionSelect + `
		WHERE scenario_id = ?
		ORDER BY version_number DESC`
	args := []any{scenarioID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	defer rows.Close()

	var result []scenario.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.NewRemoteFailure(err)
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	return result, nil
}

// DeleteVersion removes one version row. Returns false if it did not exist.
func DeleteVersion(ctx context.Context, db *sql.DB, scenarioID string, versionNumber int) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM versions WHERE scenario_id = ? AND version_number = ?`,
		scenarioID, versionNumber,
	)
	if err != nil {
		return false, errors.NewRemoteFailure(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewRemoteFailure(err)
	}
	return affected > 0, nil
}

// DeleteUnnamedVersions bulk-deletes unnamed versions, keeping the newest
// `keep` of them (0 keeps none). Named versions are never touched.
// Returns the number of rows deleted.
func DeleteUnnamedVersions(ctx context.Context, db *sql.DB, scenarioID string, keep int) (int, error) {
	query := `
		DELETE FROM versions
		WHERE scenario_id = ? AND is_named = 0 AND version_number NOT IN (
			SELECT version_number FROM versions
			WHERE scenario_id = ? AND is_named = 0
			ORDER BY version_number DESC
			LIMIT ?
		)
	`
	result, err := db.ExecContext(ctx, query, scenarioID, scenarioID, keep)
	if err != nil {
		return 0, errors.NewRemoteFailure(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewRemoteFailure(err)
	}
	return int(affected), nil
}

// MaxVersionNumber returns the highest version number for a scenario, or 0
// if none exist.
func MaxVersionNumber(ctx context.Context, db *sql.DB, scenarioID string) (int, error) {
	var maxVersion int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM versions WHERE scenario_id = ?`,
		scenarioID,
	).Scan(&maxVersion)
	if err != nil {
		return 0, errors.NewRemoteFailure(err)
	}
	return maxVersion, nil
}

// SetVersionName marks a version as named. Returns false if the version
// does not exist.
func SetVersionName(ctx context.Context, db *sql.DB, scenarioID string, versionNumber int, name string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE versions SET is_named = 1, version_name = ? WHERE scenario_id = ? AND version_number = ?`,
		name, scenarioID, versionNumber,
	)
	if err != nil {
		return false, errors.NewRemoteFailure(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewRemoteFailure(err)
	}
	return affected > 0, nil
}

const scenarioSelect = `
	SELECT id, owner_id, name, description, current_version,
		created_at, updated_at, last_autosave_at
	FROM scenarios`

const versionSelect = `
	SELECT scenario_id, version_number, itinerary_json,
		is_named, version_name, data_hash, created_at
	FROM versions`

func scanScenario(row rowScanner) (*scenario.Scenario, error) {
	s := &scenario.Scenario{}
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CurrentVersion,
		&s.CreatedAt, &s.UpdatedAt, &s.LastAutosaveAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanVersion(row rowScanner) (*scenario.Version, error) {
	v := &scenario.Version{}
	var itineraryJSON string
	var isNamed int

	err := row.Scan(
		&v.ScenarioID, &v.VersionNumber, &itineraryJSON,
		&isNamed, &v.VersionName, &v.DataHash, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.IsNamed = isNamed != 0

	data := &scenario.Itinerary{}
	if err := json.Unmarshal([]byte(itineraryJSON), data); err != nil {
		return nil, err
	}
	v.Data = data

	return v, nil
}

// requireRowAffected converts a zero-row UPDATE into NotFound.
func requireRowAffected(result sql.Result, scenarioID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewRemoteFailure(err)
	}
	if affected == 0 {
		return errors.NewScenarioNotFound(scenarioID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
