package pipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"district-realign/internal/database"
	"district-realign/internal/models"
	"district-realign/internal/partition"
	"district-realign/internal/search"
	"district-realign/internal/testutil"
)

func quickConfig(seed uint64) search.Config {
	cfg := search.DefaultConfig()
	cfg.PopulationSize = 40
	cfg.Generations = 60
	cfg.Seed = seed
	cfg.ReportEvery = 0
	return cfg
}

func newTestPipeline(store database.DataStore) *Pipeline {
	return New(Options{Store: store, Areas: quickConfig(1), Divisions: quickConfig(2)})
}

func TestRun_FullAlignment(t *testing.T) {
	store := database.NewMemoryStore()
	p := newTestPipeline(store)

	clubs := testutil.Clubs(testutil.ClusteredPoints(5, 5, 5, 5, 4, 4, 4, 4), 100)
	res, err := p.Run(context.Background(), clubs)
	require.NoError(t, err)

	// 36 clubs give 8 areas, which give two divisions of four
	areas := map[int]int{}
	for _, c := range res.Areas.Clubs {
		areas[c.Area]++
	}
	assert.Len(t, areas, 8)
	for area, size := range areas {
		assert.GreaterOrEqual(t, size, partition.MinGroupSize, "area %d", area)
		assert.LessOrEqual(t, size, partition.MaxGroupSize, "area %d", area)
	}
	assert.Len(t, res.Areas.Centroids, 8)

	require.Len(t, res.Divisions.Alignment, 36)
	byDivision := map[int]map[int]bool{}
	for _, a := range res.Divisions.Alignment {
		assert.Equal(t, a.Division, a.Area/10, "area %d must carry its division", a.Area)
		if byDivision[a.Division] == nil {
			byDivision[a.Division] = map[int]bool{}
		}
		byDivision[a.Division][a.Area] = true
	}
	require.Len(t, byDivision, 2)
	for d, set := range byDivision {
		got := make([]int, 0, len(set))
		for a := range set {
			got = append(got, a)
		}
		sort.Ints(got)
		assert.Equal(t, []int{d * 10, d*10 + 1, d*10 + 2, d*10 + 3}, got)
	}

	// Every club keeps its number and position
	for i, a := range res.Divisions.Alignment {
		assert.Equal(t, clubs[i].Number, a.ClubNumber)
		assert.Equal(t, clubs[i].Lat, a.Lat)
	}
}

func TestRun_RecordsRunsAndCachesMatrices(t *testing.T) {
	store := database.NewMemoryStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	clubs := testutil.Clubs(testutil.GridPoints(20, 5, 1), 1)
	res, err := p.Run(ctx, clubs)
	require.NoError(t, err)

	for _, stage := range []models.Stage{models.StageAreas, models.StageDivisions} {
		run, err := store.Runs().Latest(ctx, stage)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)

		artifact, err := store.Artifacts().Load(ctx, stage)
		require.NoError(t, err)
		require.NotNil(t, artifact)
	}

	latest, err := store.Runs().Latest(ctx, models.StageAreas)
	require.NoError(t, err)
	assert.Equal(t, res.Areas.Level.Run.ID, latest.ID)
	assert.Equal(t, res.Areas.Level.Cost, latest.Cost)

	// 20 clubs, 4 areas, a single division
	assert.Equal(t, map[int]int{1: 10, 2: 11, 3: 12, 4: 13}, res.Divisions.Remap)
}

func TestAreas_TooFewClubs(t *testing.T) {
	p := newTestPipeline(nil)

	_, err := p.Areas(context.Background(), testutil.Clubs(testutil.GridPoints(7, 7, 1), 1))
	assert.ErrorIs(t, err, partition.ErrProblemTooSmall)
}

func TestDivisions_TooFewAreas(t *testing.T) {
	p := newTestPipeline(nil)

	// Three areas cannot form a division
	clubs := []models.AreaClub{
		{ClubNumber: 1, Area: 1, Lat: 0, Lng: 0},
		{ClubNumber: 2, Area: 2, Lat: 1, Lng: 1},
		{ClubNumber: 3, Area: 3, Lat: 2, Lng: 2},
	}
	_, err := p.Divisions(context.Background(), clubs)
	assert.ErrorIs(t, err, partition.ErrProblemTooSmall)
}

func TestDivisions_FromEditedAreas(t *testing.T) {
	p := newTestPipeline(nil)

	var clubs []models.AreaClub
	for i, pt := range testutil.ClusteredPoints(4, 4, 4, 4) {
		clubs = append(clubs, models.AreaClub{ClubNumber: int64(i + 1), Area: i/4 + 1, Lat: pt.Lat, Lng: pt.Lng})
	}

	res, err := p.Divisions(context.Background(), clubs)
	require.NoError(t, err)

	require.Len(t, res.Centroids, 4)
	assert.InDelta(t, 0.005, res.Centroids[0].Coords.Lat, 1e-9)
	for _, a := range res.Alignment {
		assert.Equal(t, 1, a.Division)
		assert.Equal(t, 10+(int(a.ClubNumber)-1)/4, a.Area)
	}
}

func TestRun_Cancelled(t *testing.T) {
	p := newTestPipeline(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testutil.Clubs(testutil.GridPoints(20, 5, 1), 1))
	assert.ErrorIs(t, err, context.Canceled)
}
