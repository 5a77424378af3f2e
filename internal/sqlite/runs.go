package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"district-realign/internal/database"
	"district-realign/internal/models"
)

type runRepository struct {
	store *Store
}

func (r *runRepository) Save(ctx context.Context, run *models.RunRecord) error {
	genomeJSON, err := json.Marshal(run.Genome)
	if err != nil {
		return fmt.Errorf("failed to encode genome: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT INTO runs (id, stage, cost, genome, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err = r.store.db.ExecContext(ctx, query,
		run.ID, string(run.Stage), run.Cost, string(genomeJSON), run.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

func (r *runRepository) Latest(ctx context.Context, stage models.Stage) (*models.RunRecord, error) {
	runs, err := r.query(ctx, stage, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, database.ErrNotFound
	}
	return &runs[0], nil
}

func (r *runRepository) List(ctx context.Context, stage models.Stage) ([]models.RunRecord, error) {
	return r.query(ctx, stage, -1)
}

func (r *runRepository) query(ctx context.Context, stage models.Stage, limit int) ([]models.RunRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, stage, cost, genome, created_at FROM runs
	          WHERE stage = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.store.db.QueryContext(ctx, query, string(stage), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var run models.RunRecord
		var stageStr, genomeJSON string
		var createdAt int64
		if err := rows.Scan(&run.ID, &stageStr, &run.Cost, &genomeJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(genomeJSON), &run.Genome); err != nil {
			return nil, fmt.Errorf("failed to decode genome: %w", err)
		}
		run.Stage = models.Stage(stageStr)
		run.CreatedAt = time.Unix(0, createdAt).UTC()
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
