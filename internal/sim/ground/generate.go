package ground

import (
	"log"
	"math"

	"groundforge/internal/sim/ground/noise"
)

// Generation modes.
const (
	ModeFlat    = "flat"
	ModeSimple  = "simple"
	ModePerlin  = "perlin"
	ModeRidge   = "ridge"
	ModeVoronoi = "voronoi"
)

// Settings drives a procedural bake. Identical (grid dimensions, Settings)
// always produce a byte-identical sparse map.
type Settings struct {
	Seed           int64   `yaml:"seed" json:"seed"`
	Mode           string  `yaml:"mode" json:"mode"`
	NoiseScale     float64 `yaml:"noise_scale" json:"noise_scale"`
	NoiseAmplitude float64 `yaml:"noise_amplitude" json:"noise_amplitude"`
	NoiseStrength  float64 `yaml:"noise_strength" json:"noise_strength"`

	DetailScale     float64 `yaml:"detail_scale,omitempty" json:"detail_scale,omitempty"`
	DetailAmplitude float64 `yaml:"detail_amplitude,omitempty" json:"detail_amplitude,omitempty"`

	EdgeFalloff float64 `yaml:"edge_falloff,omitempty" json:"edge_falloff,omitempty"`
}

// Normalize sanitizes malformed numeric input to safe values. Malformed
// settings never fail a bake; they degrade to the defaults below.
func (s Settings) Normalize() Settings {
	out := s
	switch out.Mode {
	case ModeFlat, ModeSimple, ModePerlin, ModeRidge, ModeVoronoi:
	default:
		out.Mode = ModeFlat
	}
	if !(out.NoiseScale > 0) || !isFinite(out.NoiseScale) {
		out.NoiseScale = 40
	}
	if !(out.NoiseAmplitude >= 0) || !isFinite(out.NoiseAmplitude) {
		out.NoiseAmplitude = 0
	}
	if !isFinite(out.NoiseStrength) {
		out.NoiseStrength = 1
	}
	out.NoiseStrength = clamp(out.NoiseStrength, 0, 10)
	if !(out.DetailScale > 0) || !isFinite(out.DetailScale) {
		out.DetailScale = 0
	}
	if !(out.DetailAmplitude > 0) || !isFinite(out.DetailAmplitude) {
		out.DetailAmplitude = 0
	}
	if !(out.EdgeFalloff >= 0) || !isFinite(out.EdgeFalloff) {
		out.EdgeFalloff = 0
	}
	return out
}

// Generate replaces the entire sparse map of hf from settings and clears the
// manual-edit flag. Returns the normalized settings actually applied.
func Generate(hf *HeightField, s Settings, logger *log.Logger) Settings {
	norm := s.Normalize()
	if hf == nil {
		return norm
	}

	base := baseSampler(norm)
	var detail *noise.Perlin
	if norm.DetailScale > 0 && norm.DetailAmplitude > 0 {
		detail = noise.NewPerlin(norm.Seed)
	}

	heights := make(map[Key]float64)
	for row := 0; row <= hf.Rows; row++ {
		z := hf.LocalZ(row)
		for col := 0; col <= hf.Columns; col++ {
			x := hf.LocalX(col)

			h := base(x, z) * norm.NoiseAmplitude
			if detail != nil {
				// Second octave sampled off the base plane so it does not
				// correlate with a perlin/ridge base at the same seed.
				h += detail.Sample(x/norm.DetailScale, 17.0, z/norm.DetailScale) * norm.DetailAmplitude
			}
			h *= norm.NoiseStrength

			if norm.EdgeFalloff > 0 {
				nx := float64(col)/float64(hf.Columns)*2 - 1
				nz := float64(row)/float64(hf.Rows)*2 - 1
				edge := math.Max(math.Abs(nx), math.Abs(nz))
				h *= math.Pow(1-math.Min(1, edge), norm.EdgeFalloff)
			}

			rounded := math.Round(h*100) / 100
			if rounded != 0 {
				heights[Key{Row: row, Col: col}] = rounded
			}
		}
	}

	hf.Heights = heights
	hf.HasManualEdits = false
	cp := norm
	hf.Generation = &cp

	if logger != nil {
		logger.Printf("ground: baked %s %dx%d (%d stored samples)", norm.Mode, hf.Rows, hf.Columns, len(heights))
	}
	return norm
}

// baseSampler returns the mode's base height function over local (x,z),
// range roughly [-1,1].
func baseSampler(s Settings) func(x, z float64) float64 {
	switch s.Mode {
	case ModeSimple:
		// Two phase-shifted sinusoids; the seed only perturbs phase.
		phase := float64(s.Seed%628) / 100
		return func(x, z float64) float64 {
			a := math.Sin(x/s.NoiseScale*2 + phase)
			b := math.Sin(z/s.NoiseScale*3 - phase*0.5)
			return 0.6*a + 0.4*b
		}
	case ModePerlin:
		p := noise.NewPerlin(s.Seed)
		return func(x, z float64) float64 {
			return p.Sample(x/s.NoiseScale, 0, z/s.NoiseScale)
		}
	case ModeRidge:
		p := noise.NewPerlin(s.Seed)
		return func(x, z float64) float64 {
			r := 1 - math.Abs(p.Sample(x/s.NoiseScale, 0, z/s.NoiseScale))
			return r*r*2 - 1
		}
	case ModeVoronoi:
		v := noise.NewVoronoi(s.Seed)
		return func(x, z float64) float64 {
			return v.Sample(x/s.NoiseScale, z/s.NoiseScale)*2 - 1
		}
	default: // flat
		return func(x, z float64) float64 { return 0 }
	}
}
