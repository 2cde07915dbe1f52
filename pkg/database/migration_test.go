package database

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestCollectMigrations_SortsAndSkipsInvalid(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"003_create_visits.sql",
		"001_create_users.sql",
		"002_create_clinic.sql",
		"README.md",
		"broken.sql",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "004_dir.sql"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := collectMigrations(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(files))
	}

	expected := []string{"001", "002", "003"}
	for i, file := range files {
		if file.Version != expected[i] {
			t.Errorf("position %d: expected version %s, got %s", i, expected[i], file.Version)
		}
	}
	if files[2].Name != "create_visits" {
		t.Errorf("expected name create_visits, got %s", files[2].Name)
	}
}

func TestCollectMigrations_MissingDir(t *testing.T) {
	if _, err := collectMigrations(filepath.Join(t.TempDir(), "missing"), zap.NewNop()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
