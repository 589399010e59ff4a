package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peerflow/peerflow/internal/blind"
)

func TestInitAndLoad(t *testing.T) {
	root := t.TempDir()

	cfg, err := Init(root)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !IsRepository(root) {
		t.Fatal("Init should create the .peerflow directory")
	}
	if cfg.DefaultDueDays != 14 {
		t.Errorf("default due days = %d, want 14", cfg.DefaultDueDays)
	}

	key, err := cfg.BlindKeyBytes()
	if err != nil {
		t.Fatalf("BlindKeyBytes failed: %v", err)
	}
	if len(key) != blind.KeySize {
		t.Errorf("blind key length = %d, want %d", len(key), blind.KeySize)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BlindKey != cfg.BlindKey {
		t.Error("loaded config does not round-trip the blind key")
	}
}

func TestInit_AlreadyExists(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(root); err == nil {
		t.Error("second Init should fail")
	}
}

func TestFindRepository(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindRepository(nested)
	if err != nil {
		t.Fatalf("FindRepository failed: %v", err)
	}
	if found != root {
		t.Errorf("found %q, want %q", found, root)
	}
}

func TestFindRepository_NotFound(t *testing.T) {
	if _, err := FindRepository(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestSaveAndReload(t *testing.T) {
	root := t.TempDir()
	cfg, err := Init(root)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Venue = "conf-systems-2026"
	cfg.NotifyWebhook = "https://hooks.example.com/peerflow"
	if err := Save(root, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Venue != "conf-systems-2026" || loaded.NotifyWebhook != "https://hooks.example.com/peerflow" {
		t.Errorf("reloaded config mismatch: %+v", loaded)
	}
}
