// Package local archives page snapshots on the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
	"github.com/readyrobots/leadengine/internal/snapshot"
)

// Store writes snapshots under a base directory.
type Store struct {
	baseDir string
}

// New validates the base directory, creating it if absent.
func New(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("creating base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes the page body and returns a file:// URI.
func (s *Store) Save(_ context.Context, target leads.ScrapeTarget, page scrape.FetchResponse, at time.Time) (string, error) {
	rel := snapshot.ObjectPath(target, at)
	full := filepath.Join(s.baseDir, filepath.FromSlash(rel))

	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(full), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(full, page.Body, 0o600); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return "file://" + full, nil
}
