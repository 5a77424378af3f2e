package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName       = ".district-realign"
	CacheDirName     = "cache"
	ArtifactsFile    = "artifacts.json"
	RunsFile         = "runs.json"
	SQLiteDBFileName = "data.db"
)

// GetAppDir returns ~/.district-realign, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetCacheDir returns dir, or ~/.district-realign/cache when dir is empty,
// creating it if needed
func GetCacheDir(dir string) (string, error) {
	if dir == "" {
		appDir, err := GetAppDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(appDir, CacheDirName)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	return dir, nil
}
