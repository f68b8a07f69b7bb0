// Package blob implements image byte storage on the local filesystem.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes image bytes under a name and returns the stored path.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Local writes images into a directory rooted at the configured
// paintings path.
type Local struct {
	baseDir string
}

// NewLocal creates the base directory if needed and verifies it is
// writable, failing fast on a misconfigured storage path.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("paintings directory is required")
	}

	info, err := os.Stat(baseDir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("paintings path is not a directory")
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create paintings directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat paintings directory: %w", err)
	}

	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("paintings directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up writability probe: %w", err)
	}

	return &Local{baseDir: baseDir}, nil
}

// Put writes data to a file under the base directory and returns the
// full path. The name must stay inside the base directory.
func (s *Local) Put(_ context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("blob name is required")
	}

	fullPath := filepath.Join(s.baseDir, name)

	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("blob name escapes base directory")
	}

	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return fullPath, nil
}
