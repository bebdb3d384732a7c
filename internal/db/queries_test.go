package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testScenario(id, name string) *scenario.Scenario {
	now := time.Now().UnixMilli()
	return &scenario.Scenario{
		ID:        id,
		OwnerID:   "local",
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testVersion(scenarioID string, number int, cost float64) *scenario.Version {
	return &scenario.Version{
		ScenarioID:    scenarioID,
		VersionNumber: number,
		Data:          &scenario.Itinerary{Destination: "Lisbon", Cost: cost},
		CreatedAt:     time.Now().UnixMilli(),
	}
}

func TestInsertScenario_AndGet(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	s := testScenario("01A", "Trip A")
	s.Description = "summer trip"
	require.NoError(t, InsertScenario(ctx, database, s))

	got, err := GetScenarioByID(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, "Trip A", got.Name)
	require.Equal(t, "summer trip", got.Description)
	require.Equal(t, 0, got.CurrentVersion)

	got, err = GetScenarioByOwnerName(ctx, database, "local", "Trip A")
	require.NoError(t, err)
	require.Equal(t, "01A", got.ID)
}

func TestInsertScenario_DuplicateNameConflicts(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))

	err := InsertScenario(ctx, database, testScenario("01B", "Trip A"))
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrConflict))
}

func TestGetScenario_NotFound(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	_, err := GetScenarioByID(ctx, database, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = GetScenarioByOwnerName(ctx, database, "local", "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListScenarios_OrderedByUpdatedAt(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	older := testScenario("01A", "Older")
	older.UpdatedAt = 1000
	newer := testScenario("01B", "Newer")
	newer.UpdatedAt = 2000
	require.NoError(t, InsertScenario(ctx, database, older))
	require.NoError(t, InsertScenario(ctx, database, newer))

	list, err := ListScenarios(ctx, database, "local")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Newer", list[0].Name)
	require.Equal(t, "Older", list[1].Name)
}

func TestRenameScenario(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Old Name")))
	require.NoError(t, RenameScenario(ctx, database, "01A", "New Name", 5000))

	got, err := GetScenarioByID(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, "New Name", got.Name)
	require.Equal(t, int64(5000), got.UpdatedAt)

	err = RenameScenario(ctx, database, "missing", "x", 1)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestInsertVersion_AndGet(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))

	v := testVersion("01A", 1, 100)
	v.DataHash = "abc123"
	require.NoError(t, InsertVersion(ctx, database, v))

	got, err := GetVersion(ctx, database, "01A", 1)
	require.NoError(t, err)
	require.Equal(t, 1, got.VersionNumber)
	require.Equal(t, "abc123", got.DataHash)
	require.Equal(t, "Lisbon", got.Data.Destination)
	require.Equal(t, 100.0, got.Data.Cost)
	require.False(t, got.IsNamed)

	_, err = GetVersion(ctx, database, "01A", 99)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestInsertVersion_DuplicateNumberConflicts(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))

	err := InsertVersion(ctx, database, testVersion("01A", 1, 150))
	require.True(t, errors.Is(err, errors.ErrConflict))
}

func TestGetLatestVersion(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))

	// No versions yet: nil, not an error.
	latest, err := GetLatestVersion(ctx, database, "01A")
	require.NoError(t, err)
	require.Nil(t, latest)

	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 2, 150)))

	latest, err = GetLatestVersion(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, 2, latest.VersionNumber)
	require.Equal(t, 150.0, latest.Data.Cost)
}

func TestGetLatestVersions_Batch(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "A")))
	require.NoError(t, InsertScenario(ctx, database, testScenario("01B", "B")))
	require.NoError(t, InsertScenario(ctx, database, testScenario("01C", "C")))

	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 2, 120)))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01B", 1, 300)))
	// 01C has no versions.

	latest, err := GetLatestVersions(ctx, database, []string{"01A", "01B", "01C"})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, 2, latest["01A"].VersionNumber)
	require.Equal(t, 1, latest["01B"].VersionNumber)
	require.NotContains(t, latest, "01C")

	empty, err := GetLatestVersions(ctx, database, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestListVersions_DescWithLimit(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	for i := 1; i <= 5; i++ {
		require.NoError(t, InsertVersion(ctx, database, testVersion("01A", i, float64(i*100))))
	}

	versions, err := ListVersions(ctx, database, "01A", 3)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, 5, versions[0].VersionNumber)
	require.Equal(t, 3, versions[2].VersionNumber)

	all, err := ListVersions(ctx, database, "01A", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestDeleteVersion(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))

	deleted, err := DeleteVersion(ctx, database, "01A", 1)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = DeleteVersion(ctx, database, "01A", 1)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestDeleteUnnamedVersions_KeepsNamedAndNewest(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	for i := 1; i <= 6; i++ {
		v := testVersion("01A", i, float64(i))
		if i == 2 {
			v.IsNamed = true
			v.VersionName = "keeper"
		}
		require.NoError(t, InsertVersion(ctx, database, v))
	}

	// Keep the 2 newest unnamed: 6 and 5. Unnamed 1, 3, 4 go.
	deleted, err := DeleteUnnamedVersions(ctx, database, "01A", 2)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)

	remaining, err := ListVersions(ctx, database, "01A", 0)
	require.NoError(t, err)
	numbers := make([]int, len(remaining))
	for i, v := range remaining {
		numbers[i] = v.VersionNumber
	}
	require.Equal(t, []int{6, 5, 2}, numbers)
}

func TestMaxVersionNumber(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))

	maxVersion, err := MaxVersionNumber(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, 0, maxVersion)

	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 3, 100)))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 7, 100)))

	maxVersion, err = MaxVersionNumber(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, 7, maxVersion)
}

func TestSetVersionName(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))

	ok, err := SetVersionName(ctx, database, "01A", 1, "before big change")
	require.NoError(t, err)
	require.True(t, ok)

	v, err := GetVersion(ctx, database, "01A", 1)
	require.NoError(t, err)
	require.True(t, v.IsNamed)
	require.Equal(t, "before big change", v.VersionName)

	ok, err = SetVersionName(ctx, database, "01A", 9, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteScenario_Cascades(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 1, 100)))
	require.NoError(t, InsertVersion(ctx, database, testVersion("01A", 2, 150)))

	require.NoError(t, DeleteScenario(ctx, database, "01A"))

	_, err := GetScenarioByID(ctx, database, "01A")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	versions, err := ListVersions(ctx, database, "01A", 0)
	require.NoError(t, err)
	require.Empty(t, versions)

	err = DeleteScenario(ctx, database, "01A")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSummaryLifecycle(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))

	// Absent summary is nil, not an error.
	summary, err := GetSummary(ctx, database, "01A")
	require.NoError(t, err)
	require.Nil(t, summary)

	require.NoError(t, SaveSummary(ctx, database, "01A", "## Overview\nA week in Lisbon.", 9000, 3))

	summary, err = GetSummary(ctx, database, "01A")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Contains(t, summary.Markdown, "Lisbon")
	require.Equal(t, int64(9000), summary.GeneratedAt)
	require.Equal(t, 3, summary.GeneratedForVersion)

	require.NoError(t, DeleteSummary(ctx, database, "01A", 9500))
	summary, err = GetSummary(ctx, database, "01A")
	require.NoError(t, err)
	require.Nil(t, summary)

	// Summary on a missing scenario is NotFound.
	_, err = GetSummary(ctx, database, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTouchAutosave(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	s := testScenario("01A", "Trip A")
	s.UpdatedAt = 1000
	require.NoError(t, InsertScenario(ctx, database, s))

	require.NoError(t, TouchAutosave(ctx, database, "01A", 2000))

	got, err := GetScenarioByID(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.UpdatedAt)
	require.Equal(t, int64(2000), got.LastAutosaveAt)
}

func TestSetCurrentVersion(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, InsertScenario(ctx, database, testScenario("01A", "Trip A")))
	require.NoError(t, SetCurrentVersion(ctx, database, "01A", 4, 3000))

	got, err := GetScenarioByID(ctx, database, "01A")
	require.NoError(t, err)
	require.Equal(t, 4, got.CurrentVersion)
	require.Equal(t, int64(3000), got.UpdatedAt)
}
