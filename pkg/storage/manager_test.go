package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "airgapintel/pkg/errors"
)

func TestPersist(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.WrittenCount() != 0 {
		t.Error("Expected initial written count to be 0")
	}

	testData := []byte("1.2.3.4\n")
	path, err := manager.Persist("CIRCL Feeds", "feed.json", testData)
	if err != nil {
		t.Fatalf("Failed to persist feed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "CIRCL Feeds", "feed.json")
	if path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, path)
	}

	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if manager.WrittenCount() != 1 {
		t.Errorf("Expected written count to be 1, got %d", manager.WrittenCount())
	}
}

func TestPersistSanitizesPathComponents(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path, err := manager.Persist("abuse.ch/misp", "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("Failed to persist feed: %v", err)
	}

	rel, err := filepath.Rel(tempDir, path)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 {
		t.Fatalf("Expected exactly one directory level, got %s", rel)
	}
	if parts[0] != "abuse.ch_misp" {
		t.Errorf("Unexpected category directory %q", parts[0])
	}
	if strings.Contains(parts[1], "/") || strings.HasPrefix(parts[1], ".") {
		t.Errorf("Unexpected file name %q", parts[1])
	}
}

func TestPersistOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// two distinct names that sanitize to the same file
	first, err := manager.Persist("Others", "ip:list", []byte("first"))
	if err != nil {
		t.Fatalf("First persist failed: %v", err)
	}
	second, err := manager.Persist("Others", "ip?list", []byte("second"))
	if err != nil {
		t.Fatalf("Second persist failed: %v", err)
	}

	if first != second {
		t.Fatalf("Expected both names to map to one path, got %s and %s", first, second)
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "Others"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected one file after overwrite, found %d", len(entries))
	}

	content, _ := os.ReadFile(second)
	if string(content) != "second" {
		t.Errorf("Expected second write to win, got %q", content)
	}
	if manager.WrittenCount() != 1 {
		t.Errorf("Expected one distinct path, got %d", manager.WrittenCount())
	}
}

func TestPersistNoTempFilesLeft(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := manager.Persist("Cat", "feed.txt", []byte("data")); err != nil {
			t.Fatal(err)
		}
	}

	entries, _ := os.ReadDir(filepath.Join(tempDir, "Cat"))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Temporary file left behind: %s", e.Name())
		}
	}
}

func TestPersistErrorKind(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// a regular file where the category directory should be
	if err := os.WriteFile(filepath.Join(tempDir, "Blocked"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = manager.Persist("Blocked", "feed.txt", []byte("data"))
	if err == nil {
		t.Fatal("Expected persist error")
	}
	if errs.KindOf(err) != errs.KindPersist {
		t.Errorf("Expected persist kind, got %q", errs.KindOf(err))
	}
}

func TestNewManagerRootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(file); err == nil {
		t.Error("Expected error when root is a regular file")
	}
}

func TestWriteArtifact(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path, err := manager.WriteArtifact("manifest.json", []byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(tempDir, "manifest.json") {
		t.Errorf("Unexpected artifact path %s", path)
	}
	if manager.WrittenCount() != 0 {
		t.Error("Artifacts should not count as feeds")
	}
}

func TestEnsureRecreatesRemovedRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "feeds")
	manager, err := NewManager(root)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("Failed to remove root: %v", err)
	}
	if err := manager.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("Expected root directory to exist again, err=%v", err)
	}
}
