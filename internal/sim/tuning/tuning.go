package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"groundforge/internal/sim/road"
)

type Tuning struct {
	ChunkFootprint   float64 `yaml:"chunk_footprint"`
	UpdateThrottleMs int     `yaml:"update_throttle_ms"`
	PhysicsTTLMs     int     `yaml:"physics_ttl_ms"`
	StreamRadius     float64 `yaml:"stream_radius"`
	MaxChunks        int     `yaml:"max_chunks"`

	Road road.Tuning `yaml:"road"`

	SnapshotDir        string `yaml:"snapshot_dir"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`
}

// Defaults returns the stock tuning used when no config file is present.
func Defaults() Tuning {
	return Tuning{
		ChunkFootprint:     100,
		UpdateThrottleMs:   120,
		PhysicsTTLMs:       1500,
		StreamRadius:       220,
		MaxChunks:          4096,
		Road:               road.DefaultTuning(),
		SnapshotDir:        "data",
		SnapshotEveryTicks: 600,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Road = t.Road.Normalize()
	return t, nil
}
