// Package workspace manages staging directories for pipeline output.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Ace1928/docforge/internal/logfields"
)

// Manager handles workspace operations (both temporary and persistent).
type Manager struct {
	baseDir    string
	tempDir    string
	persistent bool // if true, use a fixed directory and skip cleanup
}

// NewManager creates a workspace manager with ephemeral timestamped directories.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistentManager creates a workspace manager using a fixed directory
// (baseDir/subdirName) that survives Cleanup.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "staging"
	}
	return &Manager{
		baseDir:    baseDir,
		tempDir:    filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the workspace directory: a timestamped directory in
// ephemeral mode, the fixed directory in persistent mode.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.tempDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.tempDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	tempDir := filepath.Join(m.baseDir, fmt.Sprintf("docforge-%s", timestamp))
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Info("Created workspace", logfields.Path(tempDir))
	return nil
}

// Path returns the workspace directory.
func (m *Manager) Path() string {
	return m.tempDir
}

// Cleanup removes the workspace directory in ephemeral mode and is a no-op
// for persistent workspaces.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}
	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.tempDir))
		return nil
	}
	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Info("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}

// CreateSubdir creates a subdirectory within the workspace.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.tempDir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	subdir := filepath.Join(m.tempDir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}

// Commit atomically publishes a workspace subtree to target: the previous
// target (if any) is moved aside, the staged tree renamed into place, and the
// old tree removed only after the rename succeeds.
func (m *Manager) Commit(staged, target string) error {
	if m.tempDir == "" {
		return fmt.Errorf("workspace not created")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create target parent: %w", err)
	}

	backup := target + ".old"
	_ = os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(target); err == nil {
		hadPrevious = true
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("failed to move previous output aside: %w", err)
		}
	}

	if err := os.Rename(staged, target); err != nil {
		if hadPrevious {
			// Best effort restore; the original error is the one that matters.
			_ = os.Rename(backup, target)
		}
		return fmt.Errorf("failed to commit staged output: %w", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(backup); err != nil {
			slog.Warn("Failed to remove previous output", logfields.Path(backup), logfields.Error(err))
		}
	}
	slog.Info("Committed staged output", logfields.Path(target))
	return nil
}
