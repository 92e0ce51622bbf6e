package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := []byte("chunk_footprint: 64\nroad:\n  width: 3.5\n  tile_length: 4\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tn, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.ChunkFootprint != 64 {
		t.Fatalf("chunk_footprint = %v, want 64", tn.ChunkFootprint)
	}
	if tn.Road.Width != 3.5 || tn.Road.TileLength != 4 {
		t.Fatalf("road overrides not applied: %+v", tn.Road)
	}
	// Untouched fields keep their defaults.
	if tn.UpdateThrottleMs != 120 || tn.PhysicsTTLMs != 1500 {
		t.Fatalf("defaults lost: %+v", tn)
	}
	if tn.Road.MaxBodies != Defaults().Road.MaxBodies {
		t.Fatalf("road max_bodies = %d, want default", tn.Road.MaxBodies)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("chunk_footprint: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
