// Package ground holds the sparse terrain height surface and the engines
// that write it: procedural generation and brush sculpting. Chunking and
// road building read it through Sampler and the signature/hash helpers.
package ground

import (
	"fmt"
	"math"
)

// Key addresses one grid vertex. Rows and columns count cells, so vertex
// indices run [0,rows] x [0,columns] inclusive.
type Key struct {
	Row int
	Col int
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Row, k.Col)
}

// HeightField is the sparse height grid. An absent key means height 0 and a
// stored value is never 0, which keeps memory proportional to non-flat area.
type HeightField struct {
	Rows     int
	Columns  int
	CellSize float64
	Width    float64
	Depth    float64

	Heights        map[Key]float64
	HasManualEdits bool

	// Generation keeps the settings of the last procedural bake so a field
	// can be reproduced without persisting every sample.
	Generation *Settings
}

func NewHeightField(rows, columns int, cellSize float64) *HeightField {
	if rows < 1 || !isFinite(float64(rows)) {
		rows = 1
	}
	if columns < 1 {
		columns = 1
	}
	if !(cellSize > 0) || !isFinite(cellSize) {
		cellSize = 1
	}
	return &HeightField{
		Rows:     rows,
		Columns:  columns,
		CellSize: cellSize,
		Width:    float64(columns) * cellSize,
		Depth:    float64(rows) * cellSize,
		Heights:  make(map[Key]float64),
	}
}

// HeightAt returns the stored height of a vertex, 0 when absent or out of grid.
func (hf *HeightField) HeightAt(row, col int) float64 {
	if hf == nil || row < 0 || col < 0 || row > hf.Rows || col > hf.Columns {
		return 0
	}
	return hf.Heights[Key{Row: row, Col: col}]
}

// SetHeight writes one vertex through the sparse invariant: values round to
// 2 decimals and entries rounding to 0 are deleted. Reports whether the
// stored value changed.
func (hf *HeightField) SetHeight(row, col int, h float64) bool {
	if hf == nil || row < 0 || col < 0 || row > hf.Rows || col > hf.Columns {
		return false
	}
	if !isFinite(h) {
		return false
	}
	key := Key{Row: row, Col: col}
	rounded := math.Round(h*100) / 100
	prev, ok := hf.Heights[key]
	if rounded == 0 {
		if !ok {
			return false
		}
		delete(hf.Heights, key)
		return true
	}
	if ok && prev == rounded {
		return false
	}
	hf.Heights[key] = rounded
	return true
}

// LocalX returns the terrain-local x of a column index (grid centered on origin).
func (hf *HeightField) LocalX(col int) float64 {
	return float64(col)*hf.CellSize - hf.Width/2
}

// LocalZ returns the terrain-local z of a row index.
func (hf *HeightField) LocalZ(row int) float64 {
	return float64(row)*hf.CellSize - hf.Depth/2
}

// StructuralSignature identifies the grid shape; two fields with equal
// structural signatures are chunked identically.
func (hf *HeightField) StructuralSignature() string {
	if hf == nil {
		return ""
	}
	return fmt.Sprintf("g%dx%d@%g", hf.Rows, hf.Columns, hf.CellSize)
}

// ContentHash is a rolling 32-bit hash of quantized heights over the whole
// grid in row-major order.
func (hf *HeightField) ContentHash() uint32 {
	if hf == nil {
		return 0
	}
	return hf.RegionHash(0, 0, hf.Rows, hf.Columns)
}

// RegionHash hashes the vertex samples of a rectangular cell region,
// including the far row/column of vertices shared with neighbors.
func (hf *HeightField) RegionHash(startRow, startCol, rows, cols int) uint32 {
	var h uint32
	for r := startRow; r <= startRow+rows; r++ {
		for c := startCol; c <= startCol+cols; c++ {
			q := int32(math.Round(hf.HeightAt(r, c) * 1000))
			h = h*31 + uint32(q)
		}
	}
	return h
}

// Signature combines structure and content; used for cache admission only.
func (hf *HeightField) Signature() string {
	if hf == nil {
		return ""
	}
	return fmt.Sprintf("%s#%08x", hf.StructuralSignature(), hf.ContentHash())
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
