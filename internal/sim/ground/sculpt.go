package ground

import (
	"log"
	"math"

	"groundforge/internal/sim/ground/noise"
)

// Brush shapes.
const (
	BrushCircle = "circle"
	BrushSquare = "square"
	BrushStar   = "star"
)

// Brush operations.
const (
	OpRaise   = "raise"
	OpDepress = "depress"
	OpSmooth  = "smooth"
	OpFlatten = "flatten"
)

// Brush describes one local sculpt application in terrain-local coordinates.
type Brush struct {
	CenterX  float64  `json:"center_x"`
	CenterZ  float64  `json:"center_z"`
	Radius   float64  `json:"radius"`
	Strength float64  `json:"strength"`
	Shape    string   `json:"shape"`
	Op       string   `json:"op"`
	Target   *float64 `json:"target_height,omitempty"`
}

// sculptJitter perturbs brush influence so edits do not leave perfectly
// circular rims. Fixed seed keeps sculpting deterministic.
var sculptJitter = noise.NewPerlin(1931)

// Sculpt applies one brush to hf. Reports whether any vertex changed; a
// malformed brush (non-finite center, radius, strength; unknown op) is a
// no-op returning false. Never panics, never errors.
func Sculpt(hf *HeightField, b Brush, logger *log.Logger) bool {
	if hf == nil {
		return false
	}
	if !isFinite(b.CenterX) || !isFinite(b.CenterZ) || !isFinite(b.Radius) || !isFinite(b.Strength) {
		return false
	}
	if !(b.Radius > 0) {
		return false
	}
	switch b.Op {
	case OpRaise, OpDepress, OpSmooth, OpFlatten:
	default:
		return false
	}

	rowMin := int(math.Ceil((b.CenterZ - b.Radius + hf.Depth/2) / hf.CellSize))
	rowMax := int(math.Floor((b.CenterZ + b.Radius + hf.Depth/2) / hf.CellSize))
	colMin := int(math.Ceil((b.CenterX - b.Radius + hf.Width/2) / hf.CellSize))
	colMax := int(math.Floor((b.CenterX + b.Radius + hf.Width/2) / hf.CellSize))
	if rowMin < 0 {
		rowMin = 0
	}
	if colMin < 0 {
		colMin = 0
	}
	if rowMax > hf.Rows {
		rowMax = hf.Rows
	}
	if colMax > hf.Columns {
		colMax = hf.Columns
	}
	if rowMin > rowMax || colMin > colMax {
		if logger != nil {
			logger.Printf("warn: sculpt brush at (%.2f, %.2f) r=%.2f is outside the grid", b.CenterX, b.CenterZ, b.Radius)
		}
		return false
	}

	type write struct {
		row, col int
		height   float64
	}
	var writes []write

	for row := rowMin; row <= rowMax; row++ {
		z := hf.LocalZ(row)
		for col := colMin; col <= colMax; col++ {
			x := hf.LocalX(col)
			dx := x - b.CenterX
			dz := z - b.CenterZ

			d, inside := brushDistance(b, dx, dz)
			if !inside {
				continue
			}

			influence := math.Cos(d / b.Radius * math.Pi / 2)
			influence *= 1 + 0.1*sculptJitter.Sample(x*0.37, 0, z*0.37)
			if influence <= 0 {
				continue
			}

			h := hf.HeightAt(row, col)
			switch b.Op {
			case OpRaise:
				h += b.Strength * influence * 0.3
			case OpDepress:
				h -= b.Strength * influence * 0.3
			case OpSmooth:
				avg := neighborAverage(hf, row, col)
				h += (avg - h) * math.Min(1, b.Strength*0.25) * influence
			case OpFlatten:
				target := h
				if b.Target != nil && isFinite(*b.Target) {
					target = *b.Target
				}
				h += (target - h) * math.Min(1, b.Strength*0.4) * influence
			}
			writes = append(writes, write{row: row, col: col, height: h})
		}
	}

	// Apply after the scan so smooth reads a consistent neighborhood.
	changed := false
	for _, w := range writes {
		if hf.SetHeight(w.row, w.col, w.height) {
			changed = true
		}
	}
	if changed {
		hf.HasManualEdits = true
	}
	return changed
}

// brushDistance runs the shape inside-test and returns the distance
// normalized into [0,radius].
func brushDistance(b Brush, dx, dz float64) (float64, bool) {
	switch b.Shape {
	case BrushSquare:
		d := math.Max(math.Abs(dx), math.Abs(dz))
		return d, d <= b.Radius
	case BrushStar:
		dist := math.Hypot(dx, dz)
		theta := math.Atan2(dz, dx)
		// 5-fold radial limit: full radius at the points, 40% in the notches.
		k := 0.5 + 0.5*math.Cos(5*theta)
		limit := b.Radius * (0.4 + 0.6*k)
		if dist > limit || limit <= 0 {
			return dist, false
		}
		return dist / limit * b.Radius, true
	default: // circle
		d := math.Hypot(dx, dz)
		return d, d <= b.Radius
	}
}

// neighborAverage is the 3x3 mean around a vertex, clipped at the border.
func neighborAverage(hf *HeightField, row, col int) float64 {
	sum := 0.0
	n := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			r := row + dr
			c := col + dc
			if r < 0 || c < 0 || r > hf.Rows || c > hf.Columns {
				continue
			}
			sum += hf.HeightAt(r, c)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
