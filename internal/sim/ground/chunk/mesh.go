package chunk

import (
	"github.com/go-gl/mathgl/mgl64"

	"groundforge/internal/sim/ground"
)

// Mesh is a CPU-side renderable chunk surface. Positions are relative to
// Offset (the chunk origin in terrain-local space) so a chunk can be
// re-placed without rebuilding. Rebuilds produce a new Mesh and swap;
// buffers are never mutated in place.
type Mesh struct {
	Positions []float32 // xyz triples
	Normals   []float32 // xyz triples
	UVs       []float32 // uv pairs, continuous across chunk seams
	Indices   []uint32

	Offset mgl64.Vec3
}

// BuildMesh is a pure function of (spec, field); it never mutates the field.
func BuildMesh(spec Spec, hf *ground.HeightField) *Mesh {
	vRows := spec.Rows + 1
	vCols := spec.Cols + 1
	cell := hf.CellSize

	m := &Mesh{
		Positions: make([]float32, 0, vRows*vCols*3),
		Normals:   make([]float32, 0, vRows*vCols*3),
		UVs:       make([]float32, 0, vRows*vCols*2),
		Indices:   make([]uint32, 0, spec.Rows*spec.Cols*6),
		Offset:    mgl64.Vec3{hf.LocalX(spec.StartCol), 0, hf.LocalZ(spec.StartRow)},
	}

	for r := 0; r < vRows; r++ {
		gr := spec.StartRow + r
		for c := 0; c < vCols; c++ {
			gc := spec.StartCol + c
			h := hf.HeightAt(gr, gc)
			m.Positions = append(m.Positions,
				float32(float64(c)*cell),
				float32(h),
				float32(float64(r)*cell),
			)

			nx, ny, nz := vertexNormal(hf, gr, gc)
			m.Normals = append(m.Normals, nx, ny, nz)

			m.UVs = append(m.UVs,
				float32(float64(gc)/float64(hf.Columns)),
				float32(float64(gr)/float64(hf.Rows)),
			)
		}
	}

	for r := 0; r < spec.Rows; r++ {
		for c := 0; c < spec.Cols; c++ {
			i0 := uint32(r*vCols + c)
			i1 := i0 + 1
			i2 := i0 + uint32(vCols)
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return m
}

// vertexNormal uses central differences over the global grid so normals are
// continuous across chunk seams.
func vertexNormal(hf *ground.HeightField, row, col int) (float32, float32, float32) {
	hl := hf.HeightAt(row, col-1)
	hr := hf.HeightAt(row, col+1)
	hd := hf.HeightAt(row-1, col)
	hu := hf.HeightAt(row+1, col)

	// Clamp neighbors at the border to the vertex itself.
	if col-1 < 0 {
		hl = hf.HeightAt(row, col)
	}
	if col+1 > hf.Columns {
		hr = hf.HeightAt(row, col)
	}
	if row-1 < 0 {
		hd = hf.HeightAt(row, col)
	}
	if row+1 > hf.Rows {
		hu = hf.HeightAt(row, col)
	}

	n := mgl64.Vec3{(hl - hr) / (2 * hf.CellSize), 1, (hd - hu) / (2 * hf.CellSize)}.Normalize()
	return float32(n.X()), float32(n.Y()), float32(n.Z())
}

// BuildHeightMatrix extracts the chunk's vertex heights row-major, the
// payload of a physics heightfield shape.
func BuildHeightMatrix(spec Spec, hf *ground.HeightField) [][]float64 {
	matrix := make([][]float64, spec.Rows+1)
	for r := range matrix {
		rowVals := make([]float64, spec.Cols+1)
		for c := range rowVals {
			rowVals[c] = hf.HeightAt(spec.StartRow+r, spec.StartCol+c)
		}
		matrix[r] = rowVals
	}
	return matrix
}
