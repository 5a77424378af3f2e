package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"district-realign/internal/database"
	"district-realign/internal/models"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := New(filepath.Join(dir, database.SQLiteDBFileName))
	require.NoError(t, err)
	return store
}

func TestStore_ArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := openStore(t, dir)
	require.NoError(t, store.HealthCheck(ctx))

	miss, err := store.Artifacts().Load(ctx, models.StageAreas)
	require.NoError(t, err)
	assert.Nil(t, miss)

	artifact := &models.Artifact{
		Stage:     models.StageAreas,
		Metric:    "euclidean",
		Points:    []models.Coordinates{{Lat: 41.1, Lng: -87.2}, {Lat: 41.3, Lng: -87.0}},
		Distances: [][]float64{{0, 0.28284271247461906}, {0.28284271247461906, 0}},
	}
	require.NoError(t, store.Artifacts().Store(ctx, artifact))

	// Replacing keeps a single row per stage
	require.NoError(t, store.Artifacts().Store(ctx, artifact))
	require.NoError(t, store.Close())

	reopened := openStore(t, dir)
	defer reopened.Close()

	got, err := reopened.Artifacts().Load(ctx, models.StageAreas)
	require.NoError(t, err)
	assert.Equal(t, artifact, got)

	require.NoError(t, reopened.Artifacts().Clear(ctx))
	got, err = reopened.Artifacts().Load(ctx, models.StageAreas)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, t.TempDir())
	defer store.Close()

	_, err := store.Runs().Latest(ctx, models.StageDivisions)
	assert.ErrorIs(t, err, database.ErrNotFound)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Runs().Save(ctx, &models.RunRecord{ID: "old", Stage: models.StageDivisions, Cost: 4.5, Genome: []int{2, 0, 1, 3}, CreatedAt: base}))
	require.NoError(t, store.Runs().Save(ctx, &models.RunRecord{ID: "new", Stage: models.StageDivisions, Cost: 3.5, Genome: []int{0, 1, 2, 3}, CreatedAt: base.Add(time.Hour)}))

	latest, err := store.Runs().Latest(ctx, models.StageDivisions)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
	assert.Equal(t, 3.5, latest.Cost)
	assert.Equal(t, []int{0, 1, 2, 3}, latest.Genome)
	assert.True(t, base.Add(time.Hour).Equal(latest.CreatedAt))

	runs, err := store.Runs().List(ctx, models.StageDivisions)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "old", runs[1].ID)

	none, err := store.Runs().List(ctx, models.StageAreas)
	require.NoError(t, err)
	assert.Empty(t, none)
}
