package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"district-realign/internal/models"
)

func TestGroupCost_ClosesTheLoop(t *testing.T) {
	m, err := Build(line(4), MetricEuclidean)
	require.NoError(t, err)

	// 0→1→2→3 is 3, plus 3 back to 0
	assert.InDelta(t, 6.0, GroupCost([]int{0, 1, 2, 3}, m), 1e-12)

	// Order matters: the evaluator does not reorder the group
	assert.InDelta(t, 8.0, GroupCost([]int{0, 2, 1, 3}, m), 1e-12)
}

func TestGroupCost_ZeroOnlyForIdenticalPoints(t *testing.T) {
	same := []models.Coordinates{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}}
	m, err := Build(same, MetricEuclidean)
	require.NoError(t, err)
	assert.Zero(t, GroupCost([]int{0, 1, 2, 3}, m))

	same[2] = models.Coordinates{Lat: 1, Lng: 1.0001}
	m, err = Build(same, MetricEuclidean)
	require.NoError(t, err)
	assert.Greater(t, GroupCost([]int{0, 1, 2, 3}, m), 0.0)
}

func TestPartitionCost_Mean(t *testing.T) {
	m, err := Build(line(9), MetricEuclidean)
	require.NoError(t, err)

	groups := [][]int{{0, 1, 2, 3, 4}, {5, 6, 7, 8}}
	// 4+4 for the first loop, 3+3 for the second
	assert.InDelta(t, 7.0, PartitionCost(groups, m), 1e-12)

	assert.Zero(t, PartitionCost(nil, m))
}
