package database

import (
	"context"
	"sort"
	"sync"

	"district-realign/internal/models"
)

// MemoryStore keeps artifacts and runs for the lifetime of the process only
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[models.Stage]models.Artifact
	runs      []models.RunRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: map[models.Stage]models.Artifact{}}
}

func (s *MemoryStore) Close() error                          { return nil }
func (s *MemoryStore) HealthCheck(ctx context.Context) error { return nil }
func (s *MemoryStore) Artifacts() ArtifactCache              { return s }
func (s *MemoryStore) Runs() RunRepository                   { return memoryRuns{s} }

func (s *MemoryStore) Load(ctx context.Context, stage models.Stage) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[stage]
	if !ok {
		return nil, nil
	}
	return copyArtifact(&a), nil
}

func (s *MemoryStore) Store(ctx context.Context, artifact *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts[artifact.Stage] = *copyArtifact(artifact)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts = map[models.Stage]models.Artifact{}
	return nil
}

type memoryRuns struct {
	s *MemoryStore
}

func (r memoryRuns) Save(ctx context.Context, run *models.RunRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry := *run
	entry.Genome = append([]int(nil), run.Genome...)
	r.s.runs = append(r.s.runs, entry)
	return nil
}

func (r memoryRuns) Latest(ctx context.Context, stage models.Stage) (*models.RunRecord, error) {
	runs, _ := r.List(ctx, stage)
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return &runs[0], nil
}

func (r memoryRuns) List(ctx context.Context, stage models.Stage) ([]models.RunRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var runs []models.RunRecord
	for i := len(r.s.runs) - 1; i >= 0; i-- {
		if r.s.runs[i].Stage == stage {
			runs = append(runs, r.s.runs[i])
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}
