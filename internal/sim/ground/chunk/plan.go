// Package chunk partitions a height field into rectangular streaming units
// and keeps their render meshes and physics shapes resident around a moving
// viewpoint.
package chunk

import (
	"fmt"
	"math"

	"groundforge/internal/sim/ground"
)

// Plan derives the chunk tiling for one height field. Two plans with equal
// Signature and ChunkCells are interchangeable.
type Plan struct {
	ChunkCells int
	Signature  string
}

// Chunk edge targets this many world units before clamping.
const targetChunkFootprint = 100.0

const (
	minChunkCells = 4
	maxChunkCells = 512
)

func NewPlan(hf *ground.HeightField, footprint float64) Plan {
	if !(footprint > 0) {
		footprint = targetChunkFootprint
	}
	cells := int(math.Round(footprint / hf.CellSize))
	if cells < minChunkCells {
		cells = minChunkCells
	}
	if cells > maxChunkCells {
		cells = maxChunkCells
	}
	return Plan{ChunkCells: cells, Signature: hf.StructuralSignature()}
}

// Key addresses one chunk in the plan.
type Key struct {
	Row int
	Col int
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Row, k.Col)
}

// Spec is the rectangular cell sub-region a chunk covers.
type Spec struct {
	StartRow int
	StartCol int
	Rows     int
	Cols     int
}

func (p Plan) ChunkRows(hf *ground.HeightField) int {
	return (hf.Rows + p.ChunkCells - 1) / p.ChunkCells
}

func (p Plan) ChunkCols(hf *ground.HeightField) int {
	return (hf.Columns + p.ChunkCells - 1) / p.ChunkCells
}

// SpecAt returns the region of chunk (row,col); boundary chunks shrink to
// the grid remainder.
func (p Plan) SpecAt(hf *ground.HeightField, row, col int) (Spec, bool) {
	if row < 0 || col < 0 || row >= p.ChunkRows(hf) || col >= p.ChunkCols(hf) {
		return Spec{}, false
	}
	s := Spec{
		StartRow: row * p.ChunkCells,
		StartCol: col * p.ChunkCells,
		Rows:     p.ChunkCells,
		Cols:     p.ChunkCells,
	}
	if s.StartRow+s.Rows > hf.Rows {
		s.Rows = hf.Rows - s.StartRow
	}
	if s.StartCol+s.Cols > hf.Columns {
		s.Cols = hf.Columns - s.StartCol
	}
	return s, true
}

// Specs tiles the whole grid: zero gaps, zero overlaps.
func (p Plan) Specs(hf *ground.HeightField) []Spec {
	rows := p.ChunkRows(hf)
	cols := p.ChunkCols(hf)
	out := make([]Spec, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s, _ := p.SpecAt(hf, r, c)
			out = append(out, s)
		}
	}
	return out
}
