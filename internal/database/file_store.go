package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"district-realign/internal/models"
)

// FileArtifactData represents the structure of the artifacts file
type FileArtifactData struct {
	Artifacts map[models.Stage]models.Artifact `json:"artifacts"`
}

// FileRunData represents the structure of the runs file
type FileRunData struct {
	Runs []models.RunRecord `json:"runs"`
}

// FileStore is a JSON file implementation of DataStore
type FileStore struct {
	artifacts *FileArtifactCache
	runs      *FileRunLog
}

// NewFileStore opens (or creates) the JSON files under dir
func NewFileStore(dir string) (*FileStore, error) {
	dir, err := GetCacheDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %w", err)
	}
	log.Printf("[CACHE] Using file store: %s", dir)

	artifacts := &FileArtifactCache{
		filePath: filepath.Join(dir, ArtifactsFile),
		data:     &FileArtifactData{Artifacts: map[models.Stage]models.Artifact{}},
	}
	if err := artifacts.load(); err != nil {
		return nil, err
	}

	runs := &FileRunLog{
		filePath: filepath.Join(dir, RunsFile),
		data:     &FileRunData{Runs: []models.RunRecord{}},
	}
	if err := runs.load(); err != nil {
		return nil, err
	}

	return &FileStore{artifacts: artifacts, runs: runs}, nil
}

var (
	_ DataStore = (*FileStore)(nil)
	_ DataStore = (*MemoryStore)(nil)
)

func (s *FileStore) Close() error                          { return nil }
func (s *FileStore) HealthCheck(ctx context.Context) error { return nil }
func (s *FileStore) Artifacts() ArtifactCache              { return s.artifacts }
func (s *FileStore) Runs() RunRepository                   { return s.runs }

// FileArtifactCache is a file-based implementation of ArtifactCache
type FileArtifactCache struct {
	filePath string
	data     *FileArtifactData
	mu       sync.RWMutex
}

func (c *FileArtifactCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, err := readJSON(c.filePath, c.data)
	if err != nil {
		return err
	}
	if !found {
		return writeJSON(c.filePath, c.data)
	}
	if c.data.Artifacts == nil {
		c.data.Artifacts = map[models.Stage]models.Artifact{}
	}

	log.Printf("[CACHE] Loaded artifacts: %d stages", len(c.data.Artifacts))
	return nil
}

func (c *FileArtifactCache) Load(ctx context.Context, stage models.Stage) (*models.Artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.data.Artifacts[stage]
	if !ok {
		return nil, nil
	}
	// Return a copy so callers cannot modify cache data without locks
	return copyArtifact(&a), nil
}

func (c *FileArtifactCache) Store(ctx context.Context, artifact *models.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Artifacts[artifact.Stage] = *copyArtifact(artifact)
	return writeJSON(c.filePath, c.data)
}

func (c *FileArtifactCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Artifacts = map[models.Stage]models.Artifact{}
	return writeJSON(c.filePath, c.data)
}

// FileRunLog is a file-based implementation of RunRepository
type FileRunLog struct {
	filePath string
	data     *FileRunData
	mu       sync.RWMutex
}

func (r *FileRunLog) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, err := readJSON(r.filePath, r.data)
	if err != nil {
		return err
	}
	if !found {
		return writeJSON(r.filePath, r.data)
	}
	if r.data.Runs == nil {
		r.data.Runs = []models.RunRecord{}
	}
	return nil
}

func (r *FileRunLog) Save(ctx context.Context, run *models.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := *run
	entry.Genome = append([]int(nil), run.Genome...)
	r.data.Runs = append(r.data.Runs, entry)
	return writeJSON(r.filePath, r.data)
}

func (r *FileRunLog) Latest(ctx context.Context, stage models.Stage) (*models.RunRecord, error) {
	runs, err := r.List(ctx, stage)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return &runs[0], nil
}

// List returns the runs of a stage, newest first
func (r *FileRunLog) List(ctx context.Context, stage models.Stage) ([]models.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var runs []models.RunRecord
	for _, run := range r.data.Runs {
		if run.Stage == stage {
			run.Genome = append([]int(nil), run.Genome...)
			runs = append(runs, run)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// readJSON decodes path into v. It reports false when the file does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return true, nil
}

// writeJSON writes v to a temp file and renames it over path
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

func copyArtifact(a *models.Artifact) *models.Artifact {
	out := &models.Artifact{
		Stage:     a.Stage,
		Metric:    a.Metric,
		Points:    append([]models.Coordinates(nil), a.Points...),
		Distances: make([][]float64, len(a.Distances)),
	}
	for i, row := range a.Distances {
		out.Distances[i] = append([]float64(nil), row...)
	}
	return out
}
