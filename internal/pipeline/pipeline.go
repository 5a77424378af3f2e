// Package pipeline runs the grouping model twice: clubs are grouped into
// areas, then the area centroids are grouped into divisions and the areas
// are renumbered after the division they landed in.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"district-realign/internal/database"
	"district-realign/internal/distance"
	"district-realign/internal/grouping"
	"district-realign/internal/hierarchy"
	"district-realign/internal/metrics"
	"district-realign/internal/models"
	"district-realign/internal/partition"
	"district-realign/internal/search"
)

// Options configures a Pipeline
type Options struct {
	Store     database.DataStore // nil keeps everything in memory
	Metric    distance.Metric
	Areas     search.Config
	Divisions search.Config
	Metrics   *metrics.Collector // optional
}

// Pipeline owns the per-stage search settings and the store that caches
// distance matrices and records runs
type Pipeline struct {
	store   database.DataStore
	metric  distance.Metric
	configs map[models.Stage]search.Config
	metrics *metrics.Collector
}

// Level is the outcome of grouping one level of the hierarchy
type Level struct {
	Stage  models.Stage
	Labels []int // 1-based group label per input item
	Cost   float64
	Run    *models.RunRecord
	Search *search.Result
}

// AreasResult is the outcome of the first stage
type AreasResult struct {
	Level     *Level
	Clubs     []models.AreaClub
	Centroids []models.AreaCentroid
}

// DivisionsResult is the outcome of the second stage
type DivisionsResult struct {
	Level     *Level
	Centroids []models.AreaCentroid
	Remap     map[int]int // stage one area label -> final area label
	Alignment []models.Alignment
}

// Result is the outcome of both stages
type Result struct {
	Areas     *AreasResult
	Divisions *DivisionsResult
}

func New(opts Options) *Pipeline {
	store := opts.Store
	if store == nil {
		store = database.NewMemoryStore()
	}
	metric := opts.Metric
	if metric == "" {
		metric = distance.MetricEuclidean
	}
	return &Pipeline{
		store:  store,
		metric: metric,
		configs: map[models.Stage]search.Config{
			models.StageAreas:     opts.Areas,
			models.StageDivisions: opts.Divisions,
		},
		metrics: opts.Metrics,
	}
}

// Run groups clubs into areas and areas into divisions
func (p *Pipeline) Run(ctx context.Context, clubs []models.Club) (*Result, error) {
	areas, err := p.Areas(ctx, clubs)
	if err != nil {
		return nil, err
	}

	divisions, err := p.Divisions(ctx, areas.Clubs)
	if err != nil {
		return nil, err
	}

	return &Result{Areas: areas, Divisions: divisions}, nil
}

// Areas groups clubs into areas of four or five clubs
func (p *Pipeline) Areas(ctx context.Context, clubs []models.Club) (*AreasResult, error) {
	log.Printf("[STAGE] With %d clubs, there will be %d areas", len(clubs), (len(clubs)+partition.MaxGroupSize-1)/partition.MaxGroupSize)

	points := make([]models.Coordinates, len(clubs))
	for i := range clubs {
		points[i] = clubs[i].GetCoords()
	}

	level, err := p.group(ctx, models.StageAreas, points)
	if err != nil {
		return nil, err
	}

	areaClubs := make([]models.AreaClub, len(clubs))
	for i, c := range clubs {
		areaClubs[i] = models.AreaClub{
			ClubNumber: c.Number,
			Area:       level.Labels[i],
			Lat:        c.Lat,
			Lng:        c.Lng,
		}
	}

	centroids, err := hierarchy.AreaCentroids(areaClubs)
	if err != nil {
		return nil, fmt.Errorf("failed to locate areas: %w", err)
	}

	return &AreasResult{Level: level, Clubs: areaClubs, Centroids: centroids}, nil
}

// Divisions groups the areas of clubs into divisions and renumbers every
// area after its division
func (p *Pipeline) Divisions(ctx context.Context, clubs []models.AreaClub) (*DivisionsResult, error) {
	centroids, err := hierarchy.AreaCentroids(clubs)
	if err != nil {
		return nil, fmt.Errorf("failed to locate areas: %w", err)
	}
	log.Printf("[STAGE] With %d areas, there will be %d divisions", len(centroids), (len(centroids)+partition.MaxGroupSize-1)/partition.MaxGroupSize)

	points := make([]models.Coordinates, len(centroids))
	for i := range centroids {
		points[i] = centroids[i].Coords
	}

	level, err := p.group(ctx, models.StageDivisions, points)
	if err != nil {
		return nil, err
	}

	pairs := make([]hierarchy.AreaDivision, len(centroids))
	divisionOf := make(map[int]int, len(centroids))
	for i, c := range centroids {
		pairs[i] = hierarchy.AreaDivision{Area: c.Area, Division: level.Labels[i]}
		divisionOf[c.Area] = level.Labels[i]
	}

	remap, err := hierarchy.Remap(pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to renumber areas: %w", err)
	}

	alignment := make([]models.Alignment, len(clubs))
	for i, c := range clubs {
		alignment[i] = models.Alignment{
			ClubNumber: c.ClubNumber,
			Area:       remap[c.Area],
			Division:   divisionOf[c.Area],
			Lat:        c.Lat,
			Lng:        c.Lng,
		}
	}

	return &DivisionsResult{Level: level, Centroids: centroids, Remap: remap, Alignment: alignment}, nil
}

// group searches for the best grouping of points and records the run
func (p *Pipeline) group(ctx context.Context, stage models.Stage, points []models.Coordinates) (*Level, error) {
	start := time.Now()

	model, err := grouping.Load(ctx, grouping.Options{
		Stage:  stage,
		Metric: p.metric,
		Cache:  p.store.Artifacts(),
	}, points)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s: %w", stage, err)
	}
	log.Printf("[TIMING] stage=%s model ready: %v", stage, time.Since(start))

	var opts []search.Option
	if p.metrics != nil {
		opts = append(opts, search.WithMetrics(p.metrics, string(stage)))
	}
	res, err := search.New(p.configs[stage], opts...).Run(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", stage, err)
	}

	labels, err := model.Labels(res.Best.Genome)
	if err != nil {
		return nil, fmt.Errorf("failed to label %s: %w", stage, err)
	}

	run := &models.RunRecord{
		ID:        uuid.NewString(),
		Stage:     stage,
		Cost:      res.Best.Fitness.Cost(),
		Genome:    append([]int(nil), res.Best.Genome...),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.Runs().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save %s run: %w", stage, err)
	}

	log.Printf("[STAGE] stage=%s groups=%d cost=%.6f run=%s", stage, model.GroupCount(), run.Cost, run.ID)
	log.Printf("[TIMING] stage=%s total: %v", stage, time.Since(start))

	return &Level{Stage: stage, Labels: labels, Cost: run.Cost, Run: run, Search: res}, nil
}
