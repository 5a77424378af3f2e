package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"district-realign/internal/models"
)

type artifactRepository struct {
	store *Store
}

func (r *artifactRepository) Load(ctx context.Context, stage models.Stage) (*models.Artifact, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT metric, point_count, points, distances FROM artifacts WHERE stage = ?`

	var metric, pointsJSON, distancesJSON string
	var count int
	err := r.store.db.QueryRowContext(ctx, query, string(stage)).Scan(&metric, &count, &pointsJSON, &distancesJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	artifact := &models.Artifact{Stage: stage, Metric: metric}
	if err := json.Unmarshal([]byte(pointsJSON), &artifact.Points); err != nil {
		return nil, fmt.Errorf("failed to decode artifact points: %w", err)
	}
	if err := json.Unmarshal([]byte(distancesJSON), &artifact.Distances); err != nil {
		return nil, fmt.Errorf("failed to decode artifact distances: %w", err)
	}
	if len(artifact.Points) != count {
		return nil, fmt.Errorf("artifact %s has %d points, header says %d", stage, len(artifact.Points), count)
	}

	return artifact, nil
}

func (r *artifactRepository) Store(ctx context.Context, artifact *models.Artifact) error {
	pointsJSON, err := json.Marshal(artifact.Points)
	if err != nil {
		return fmt.Errorf("failed to encode artifact points: %w", err)
	}
	distancesJSON, err := json.Marshal(artifact.Distances)
	if err != nil {
		return fmt.Errorf("failed to encode artifact distances: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT OR REPLACE INTO artifacts (stage, metric, point_count, points, distances, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.store.db.ExecContext(ctx, query,
		string(artifact.Stage), artifact.Metric, len(artifact.Points), string(pointsJSON), string(distancesJSON), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set artifact: %w", err)
	}

	return nil
}

func (r *artifactRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.ExecContext(ctx, "DELETE FROM artifacts")
	if err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}

	return nil
}
