// Package grouping wires a distance matrix to a partitioner and exposes the
// result as an optimization problem over item permutations. The same Model
// serves every level of the hierarchy.
package grouping

import (
	"context"
	"fmt"
	"log"

	"district-realign/internal/database"
	"district-realign/internal/distance"
	"district-realign/internal/models"
	"district-realign/internal/partition"
)

// Model is the grouping problem for one level of the hierarchy. It is
// immutable after construction, so Evaluate may be called concurrently.
type Model struct {
	stage       models.Stage
	matrix      *distance.Matrix
	partitioner *partition.Partitioner
}

// Options controls how a Model is built from raw points
type Options struct {
	Stage  models.Stage
	Metric distance.Metric
	Cache  database.ArtifactCache // optional
}

// New wraps an existing distance matrix covering count items.
func New(stage models.Stage, matrix *distance.Matrix, count int) (*Model, error) {
	if matrix == nil {
		return nil, distance.ErrEmptyInput
	}
	if matrix.Len() != count {
		return nil, fmt.Errorf("%w: matrix covers %d items, expected %d", distance.ErrDimensionMismatch, matrix.Len(), count)
	}

	p, err := partition.New(count)
	if err != nil {
		return nil, err
	}

	return &Model{stage: stage, matrix: matrix, partitioner: p}, nil
}

// Load builds the Model for points, reusing the cached distance matrix of
// the stage when it matches the points, and regenerating it otherwise.
func Load(ctx context.Context, opts Options, points []models.Coordinates) (*Model, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("stage %s: %w", opts.Stage, distance.ErrEmptyInput)
	}
	metric := opts.Metric
	if metric == "" {
		metric = distance.MetricEuclidean
	}

	// Fail on sizes that cannot be partitioned before doing any O(n²) work
	if _, err := partition.New(len(points)); err != nil {
		return nil, fmt.Errorf("stage %s: %w", opts.Stage, err)
	}

	matrix, err := cachedMatrix(ctx, opts.Cache, opts.Stage, metric, points)
	if err != nil {
		return nil, err
	}

	if matrix == nil {
		log.Printf("[CACHE] stage=%s no usable cached distances, building: points=%d metric=%s", opts.Stage, len(points), metric)
		matrix, err = distance.Build(points, metric)
		if err != nil {
			return nil, fmt.Errorf("failed to build distance matrix: %w", err)
		}

		if opts.Cache != nil {
			artifact := &models.Artifact{
				Stage:     opts.Stage,
				Metric:    string(metric),
				Points:    points,
				Distances: matrix.Rows(),
			}
			if err := opts.Cache.Store(ctx, artifact); err != nil {
				return nil, fmt.Errorf("failed to cache distance matrix: %w", err)
			}
		}
	}

	return New(opts.Stage, matrix, len(points))
}

// cachedMatrix returns the cached matrix when it was built for the same
// points and metric, or nil when it must be regenerated.
func cachedMatrix(ctx context.Context, cache database.ArtifactCache, stage models.Stage, metric distance.Metric, points []models.Coordinates) (*distance.Matrix, error) {
	if cache == nil {
		return nil, nil
	}

	artifact, err := cache.Load(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached artifact: %w", err)
	}
	if artifact == nil {
		return nil, nil
	}

	if artifact.Metric != string(metric) || len(artifact.Points) != len(points) || len(artifact.Distances) != len(points) {
		log.Printf("[CACHE] stage=%s cached artifact does not match input (points=%d cached=%d metric=%s cached=%s)",
			stage, len(points), len(artifact.Points), metric, artifact.Metric)
		return nil, nil
	}
	for i := range points {
		if !sameCoords(points[i], artifact.Points[i]) {
			log.Printf("[CACHE] stage=%s cached point %d differs from input", stage, i)
			return nil, nil
		}
	}

	matrix, err := distance.FromRows(artifact.Distances)
	if err != nil {
		log.Printf("[CACHE] stage=%s discarding cached matrix: %v", stage, err)
		return nil, nil
	}

	log.Printf("[CACHE] stage=%s reusing cached distances: points=%d", stage, len(points))
	return matrix, nil
}

func sameCoords(a, b models.Coordinates) bool {
	return models.RoundCoordinate(a.Lat) == models.RoundCoordinate(b.Lat) &&
		models.RoundCoordinate(a.Lng) == models.RoundCoordinate(b.Lng)
}

// Stage returns the hierarchy level the model groups
func (m *Model) Stage() models.Stage { return m.stage }

// Size returns the genome length: the number of items, not groups
func (m *Model) Size() int { return m.partitioner.Len() }

// GroupCount returns the number of groups every decoded permutation has
func (m *Model) GroupCount() int { return m.partitioner.GroupCount() }

// Matrix returns the read-only distance matrix
func (m *Model) Matrix() *distance.Matrix { return m.matrix }

// Decode splits a permutation into its groups.
func (m *Model) Decode(perm []int) ([][]int, error) {
	return m.partitioner.Decode(perm)
}

// Evaluate decodes perm and scores the groups: the mean circular distance
// of the groups, lower is better.
func (m *Model) Evaluate(perm []int) (models.Fitness, error) {
	groups, err := m.partitioner.Decode(perm)
	if err != nil {
		return models.Fitness{}, err
	}
	return models.Fitness{distance.PartitionCost(groups, m.matrix)}, nil
}

// Labels returns the 1-based group label of every item, indexed by item.
func (m *Model) Labels(perm []int) ([]int, error) {
	if err := m.partitioner.ValidatePermutation(perm); err != nil {
		return nil, err
	}

	labels := make([]int, len(perm))
	for pos, item := range perm {
		labels[item] = m.partitioner.Label(pos)
	}
	return labels, nil
}
