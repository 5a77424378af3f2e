// Package search is a permutation genetic algorithm used to minimize a
// Problem's fitness. The grouping code only depends on the Problem
// interface, so any other optimizer can stand in for it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"district-realign/internal/metrics"
	"district-realign/internal/models"
)

// Problem is what the optimizer needs from a grouping model
type Problem interface {
	Size() int
	Evaluate(genome []int) (models.Fitness, error)
}

// Config holds the genetic algorithm parameters
type Config struct {
	PopulationSize int     `yaml:"population" validate:"min=2"`
	CrossoverProb  float64 `yaml:"crossover" validate:"min=0,max=1"`
	MutationProb   float64 `yaml:"mutation" validate:"min=0,max=1"`
	Generations    int     `yaml:"generations" validate:"min=0"`
	HallOfFameSize int     `yaml:"hall_of_fame" validate:"min=1"`
	TournamentSize int     `yaml:"tournament" validate:"min=1"`
	Workers        int     `yaml:"workers" validate:"min=0"` // 0 = unbounded
	Seed           uint64  `yaml:"seed"`                     // 0 = random
	ReportEvery    int     `yaml:"report_every" validate:"min=0"`
}

// DefaultConfig returns the parameters the district runs were tuned with
func DefaultConfig() Config {
	return Config{
		PopulationSize: 100,
		CrossoverProb:  0.9,
		MutationProb:   0.15,
		Generations:    15000,
		HallOfFameSize: 10,
		TournamentSize: 2,
		Workers:        0,
		ReportEvery:    500,
	}
}

var ErrGenomeTooShort = errors.New("genome too short to search")

// Individual is a genome and its fitness
type Individual struct {
	Genome  []int
	Fitness models.Fitness
	valid   bool
}

func (ind *Individual) clone() *Individual {
	return &Individual{
		Genome:  append([]int(nil), ind.Genome...),
		Fitness: ind.Fitness,
		valid:   ind.valid,
	}
}

// GenerationStats is one logbook line
type GenerationStats struct {
	Generation  int
	Evaluations int
	Min         float64
	Avg         float64
}

// Result is the outcome of a run
type Result struct {
	Best        Individual
	HallOfFame  []Individual
	Logbook     []GenerationStats
	Generations int
	Seed        uint64
	Duration    time.Duration
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithMetrics reports progress to the collector under the stage label
func WithMetrics(c *metrics.Collector, stage string) Option {
	return func(o *Optimizer) {
		o.metrics = c
		o.stage = stage
	}
}

// Optimizer runs the genetic algorithm
type Optimizer struct {
	cfg     Config
	metrics *metrics.Collector
	stage   string
}

// New creates an optimizer
func New(cfg Config, opts ...Option) *Optimizer {
	o := &Optimizer{cfg: cfg, stage: "default"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run searches for the permutation of p with the lowest cost. The context
// is checked between generations; on cancellation the best result so far is
// returned along with the context error.
func (o *Optimizer) Run(ctx context.Context, p Problem) (*Result, error) {
	start := time.Now()
	n := p.Size()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d", ErrGenomeTooShort, n)
	}
	if o.cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be at least 2, got %d", o.cfg.PopulationSize)
	}

	seed := o.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	log.Printf("[SEARCH] stage=%s genome=%d population=%d generations=%d seed=%d",
		o.stage, n, o.cfg.PopulationSize, o.cfg.Generations, seed)

	population := make([]*Individual, o.cfg.PopulationSize)
	for i := range population {
		population[i] = &Individual{Genome: rng.Perm(n)}
	}

	hof := newHallOfFame(max(o.cfg.HallOfFameSize, 1))
	result := &Result{Seed: seed}

	evals, err := o.evaluate(p, population)
	if err != nil {
		return nil, err
	}
	hof.update(population)
	result.Logbook = append(result.Logbook, o.record(0, evals, population))

	indpbCx := 2.0 / float64(n)
	indpbMut := 1.0 / float64(n)

	var runErr error
	gen := 1
	for ; gen <= o.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		genStart := time.Now()

		offspring := selectTournament(rng, population, len(population), o.cfg.TournamentSize)

		for i := 1; i < len(offspring); i += 2 {
			if rng.Float64() < o.cfg.CrossoverProb {
				crossoverUniformPMX(rng, offspring[i-1].Genome, offspring[i].Genome, indpbCx)
				offspring[i-1].valid = false
				offspring[i].valid = false
			}
		}
		for _, ind := range offspring {
			if rng.Float64() < o.cfg.MutationProb {
				mutateShuffleIndexes(rng, ind.Genome, indpbMut)
				ind.valid = false
			}
		}

		evals, err := o.evaluate(p, offspring)
		if err != nil {
			return nil, err
		}
		population = offspring
		hof.update(population)

		stats := o.record(gen, evals, population)
		result.Logbook = append(result.Logbook, stats)

		if o.metrics != nil {
			o.metrics.GenerationsTotal.WithLabelValues(o.stage).Inc()
			o.metrics.BestCost.WithLabelValues(o.stage).Set(hof.best().Fitness.Cost())
			o.metrics.GenerationMs.WithLabelValues(o.stage).Observe(float64(time.Since(genStart).Microseconds()) / 1000)
		}
		if o.cfg.ReportEvery > 0 && gen%o.cfg.ReportEvery == 0 {
			log.Printf("[SEARCH] stage=%s gen=%d evals=%d min=%.6f avg=%.6f best=%.6f",
				o.stage, gen, stats.Evaluations, stats.Min, stats.Avg, hof.best().Fitness.Cost())
		}
	}

	result.Generations = gen - 1
	result.HallOfFame = hof.items()
	result.Best = result.HallOfFame[0]
	result.Duration = time.Since(start)

	log.Printf("[SEARCH] stage=%s done: generations=%d best=%.6f duration=%v",
		o.stage, result.Generations, result.Best.Fitness.Cost(), result.Duration)

	return result, runErr
}

// evaluate scores every invalidated individual in parallel and returns how
// many evaluations were made
func (o *Optimizer) evaluate(p Problem, population []*Individual) (int, error) {
	var g errgroup.Group
	if o.cfg.Workers > 0 {
		g.SetLimit(o.cfg.Workers)
	}

	count := 0
	for _, ind := range population {
		if ind.valid {
			continue
		}
		count++
		g.Go(func() error {
			fit, err := p.Evaluate(ind.Genome)
			if err != nil {
				return fmt.Errorf("failed to evaluate genome: %w", err)
			}
			ind.Fitness = fit
			ind.valid = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	if o.metrics != nil {
		o.metrics.EvaluationsTotal.WithLabelValues(o.stage).Add(float64(count))
	}
	return count, nil
}

func (o *Optimizer) record(gen, evals int, population []*Individual) GenerationStats {
	stats := GenerationStats{Generation: gen, Evaluations: evals, Min: population[0].Fitness.Cost()}
	sum := 0.0
	for _, ind := range population {
		c := ind.Fitness.Cost()
		sum += c
		if c < stats.Min {
			stats.Min = c
		}
	}
	stats.Avg = sum / float64(len(population))
	return stats
}
