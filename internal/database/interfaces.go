package database

import (
	"context"

	"district-realign/internal/models"
)

// DataStore is the interface for persisting stage artifacts and run results
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Artifacts() ArtifactCache
	Runs() RunRepository
}

// ArtifactCache holds the points and distance matrix of each stage.
// Load returns (nil, nil) when nothing is cached for the stage.
type ArtifactCache interface {
	Load(ctx context.Context, stage models.Stage) (*models.Artifact, error)
	Store(ctx context.Context, artifact *models.Artifact) error
	Clear(ctx context.Context) error
}

// RunRepository records the best genome found by each optimization run
type RunRepository interface {
	Save(ctx context.Context, run *models.RunRecord) error
	Latest(ctx context.Context, stage models.Stage) (*models.RunRecord, error)
	List(ctx context.Context, stage models.Stage) ([]models.RunRecord, error)
}
