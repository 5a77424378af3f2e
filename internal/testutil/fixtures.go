package testutil

import (
	"context"
	"sync"

	"district-realign/internal/database"
	"district-realign/internal/models"
)

// GridPoints lays out n points row by row, cols per row, spacing apart
func GridPoints(n, cols int, spacing float64) []models.Coordinates {
	points := make([]models.Coordinates, n)
	for i := range points {
		points[i] = models.Coordinates{
			Lat: float64(i/cols) * spacing,
			Lng: float64(i%cols) * spacing,
		}
	}
	return points
}

// ClusteredPoints places sizes[c] points tightly around a centre per cluster.
// Cluster centres are 10 units apart so the best grouping is obvious.
func ClusteredPoints(sizes ...int) []models.Coordinates {
	var points []models.Coordinates
	for c, size := range sizes {
		centre := float64(c) * 10
		for i := 0; i < size; i++ {
			points = append(points, models.Coordinates{
				Lat: centre + float64(i%2)*0.01,
				Lng: centre + float64(i/2)*0.01,
			})
		}
	}
	return points
}

// Clubs turns points into clubs numbered from firstNumber
func Clubs(points []models.Coordinates, firstNumber int64) []models.Club {
	clubs := make([]models.Club, len(points))
	for i, p := range points {
		clubs[i] = models.Club{Number: firstNumber + int64(i), Lat: p.Lat, Lng: p.Lng}
	}
	return clubs
}

// Identity returns the permutation 0..n-1
func Identity(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// CountingCache is an in-memory ArtifactCache that records how it was used
type CountingCache struct {
	inner *database.MemoryStore

	mu     sync.Mutex
	Loads  int
	Stores int
}

func NewCountingCache() *CountingCache {
	return &CountingCache{inner: database.NewMemoryStore()}
}

func (c *CountingCache) Load(ctx context.Context, stage models.Stage) (*models.Artifact, error) {
	c.mu.Lock()
	c.Loads++
	c.mu.Unlock()
	return c.inner.Load(ctx, stage)
}

func (c *CountingCache) Store(ctx context.Context, artifact *models.Artifact) error {
	c.mu.Lock()
	c.Stores++
	c.mu.Unlock()
	return c.inner.Store(ctx, artifact)
}

func (c *CountingCache) Clear(ctx context.Context) error {
	return c.inner.Clear(ctx)
}

// ResetCalls clears the recorded calls
func (c *CountingCache) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Loads, c.Stores = 0, 0
}
