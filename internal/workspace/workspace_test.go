package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_EphemeralMode(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.Path()
	if wsPath == "" {
		t.Fatal("Path() returned empty string")
	}
	if !strings.Contains(filepath.Base(wsPath), "docforge-") {
		t.Errorf("Expected timestamped directory, got: %s", wsPath)
	}
	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		t.Errorf("Workspace directory does not exist: %s", wsPath)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("Workspace directory still exists after cleanup: %s", wsPath)
	}
}

func TestManager_PersistentMode(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewPersistentManager(tempBase, "staging")

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	expectedPath := filepath.Join(tempBase, "staging")
	if mgr.Path() != expectedPath {
		t.Errorf("Expected path %s, got: %s", expectedPath, mgr.Path())
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Error("Persistent workspace must survive Cleanup()")
	}
}

func TestCreateSubdir(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if _, err := mgr.CreateSubdir("x"); err == nil {
		t.Error("CreateSubdir before Create must fail")
	}

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer func() { _ = mgr.Cleanup() }()

	sub, err := mgr.CreateSubdir("staging")
	if err != nil {
		t.Fatalf("CreateSubdir failed: %v", err)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Errorf("subdirectory missing: %v", err)
	}
}

func TestCommit(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer func() { _ = mgr.Cleanup() }()

	staged, err := mgr.CreateSubdir("staged")
	if err != nil {
		t.Fatalf("CreateSubdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staged, "new.md"), []byte("new"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	target := filepath.Join(t.TempDir(), "out")

	// First commit: no previous output.
	if err := mgr.Commit(staged, target); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "new.md")); err != nil {
		t.Errorf("committed file missing: %v", err)
	}

	// Second commit replaces the previous tree and leaves no backup residue.
	staged2, err := mgr.CreateSubdir("staged2")
	if err != nil {
		t.Fatalf("CreateSubdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staged2, "next.md"), []byte("next"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mgr.Commit(staged2, target); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "new.md")); !os.IsNotExist(err) {
		t.Error("previous output should be replaced")
	}
	if _, err := os.Stat(target + ".old"); !os.IsNotExist(err) {
		t.Error("backup directory should be removed after successful commit")
	}
}
