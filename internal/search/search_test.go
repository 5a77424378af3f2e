package search

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"district-realign/internal/metrics"
	"district-realign/internal/models"
)

// sortedness scores a genome by how far each value sits from its index
type sortedness struct {
	n     int
	calls atomic.Int64
}

func (s *sortedness) Size() int { return s.n }

func (s *sortedness) Evaluate(genome []int) (models.Fitness, error) {
	s.calls.Add(1)
	cost := 0.0
	for i, v := range genome {
		d := float64(i - v)
		cost += d * d
	}
	return models.Fitness{cost}, nil
}

func isPermutation(genome []int) bool {
	sorted := slices.Clone(genome)
	slices.Sort(sorted)
	for i, v := range sorted {
		if v != i {
			return false
		}
	}
	return true
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 40
	cfg.Generations = 150
	cfg.Seed = 42
	cfg.Workers = 4
	cfg.ReportEvery = 0
	return cfg
}

func TestRun_Improves(t *testing.T) {
	p := &sortedness{n: 12}
	res, err := New(smallConfig()).Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, res.Logbook, 151)
	assert.Equal(t, 150, res.Generations)
	assert.True(t, isPermutation(res.Best.Genome))

	initial := res.Logbook[0].Min
	assert.Less(t, res.Best.Fitness.Cost(), initial)

	// The reported best is the genome's real fitness
	fit, err := p.Evaluate(res.Best.Genome)
	require.NoError(t, err)
	assert.Equal(t, fit, res.Best.Fitness)
}

func TestRun_HallOfFameSortedAndDistinct(t *testing.T) {
	res, err := New(smallConfig()).Run(context.Background(), &sortedness{n: 10})
	require.NoError(t, err)

	require.LessOrEqual(t, len(res.HallOfFame), 10)
	for i := 1; i < len(res.HallOfFame); i++ {
		assert.LessOrEqual(t, res.HallOfFame[i-1].Fitness.Cost(), res.HallOfFame[i].Fitness.Cost())
		for j := 0; j < i; j++ {
			assert.False(t, slices.Equal(res.HallOfFame[i].Genome, res.HallOfFame[j].Genome))
		}
	}
	assert.Equal(t, res.HallOfFame[0], res.Best)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := smallConfig()
	a, err := New(cfg).Run(context.Background(), &sortedness{n: 10})
	require.NoError(t, err)
	b, err := New(cfg).Run(context.Background(), &sortedness{n: 10})
	require.NoError(t, err)

	assert.Equal(t, a.Best.Genome, b.Best.Genome)
	assert.Equal(t, a.Logbook, b.Logbook)
}

func TestRun_OnlyInvalidatedAreReevaluated(t *testing.T) {
	cfg := smallConfig()
	cfg.CrossoverProb = 0
	cfg.MutationProb = 0
	cfg.Generations = 5

	p := &sortedness{n: 8}
	res, err := New(cfg).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, int64(cfg.PopulationSize), p.calls.Load())
	for _, line := range res.Logbook[1:] {
		assert.Zero(t, line.Evaluations)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(smallConfig()).Run(ctx, &sortedness{n: 8})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.Generations)
	assert.True(t, isPermutation(res.Best.Genome))
}

type failing struct{}

func (failing) Size() int { return 6 }
func (failing) Evaluate([]int) (models.Fitness, error) {
	return models.Fitness{}, errors.New("boom")
}

func TestRun_EvaluationError(t *testing.T) {
	_, err := New(smallConfig()).Run(context.Background(), failing{})
	assert.Error(t, err)
}

func TestRun_TooShort(t *testing.T) {
	_, err := New(smallConfig()).Run(context.Background(), &sortedness{n: 1})
	assert.ErrorIs(t, err, ErrGenomeTooShort)
}

func TestRun_Metrics(t *testing.T) {
	c := metrics.New()
	cfg := smallConfig()
	cfg.Generations = 10

	res, err := New(cfg, WithMetrics(c, "areas")).Run(context.Background(), &sortedness{n: 8})
	require.NoError(t, err)

	total := 0
	for _, line := range res.Logbook {
		total += line.Evaluations
	}
	assert.Equal(t, float64(total), testutil.ToFloat64(c.EvaluationsTotal.WithLabelValues("areas")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.GenerationsTotal.WithLabelValues("areas")))
	assert.Equal(t, res.Best.Fitness.Cost(), testutil.ToFloat64(c.BestCost.WithLabelValues("areas")))
}

func TestOperators_KeepPermutations(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 500; i++ {
		a, b := rng.Perm(15), rng.Perm(15)
		crossoverUniformPMX(rng, a, b, 0.5)
		assert.True(t, isPermutation(a))
		assert.True(t, isPermutation(b))

		mutateShuffleIndexes(rng, a, 0.3)
		assert.True(t, isPermutation(a))
	}
}

func TestSelectTournament_PicksBetter(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	population := []*Individual{
		{Genome: []int{0, 1}, Fitness: models.Fitness{1}, valid: true},
		{Genome: []int{1, 0}, Fitness: models.Fitness{9}, valid: true},
	}

	chosen := selectTournament(rng, population, 200, 2)
	better := 0
	for _, ind := range chosen {
		if ind.Fitness.Cost() == 1 {
			better++
		}
	}
	// Best of two draws wins three times in four
	assert.Greater(t, better, 120)

	// Winners are copies
	chosen[0].Genome[0] = 7
	assert.NotEqual(t, 7, population[0].Genome[0])
	assert.NotEqual(t, 7, population[1].Genome[0])
}
