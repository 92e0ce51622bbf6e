package chunk

import (
	"testing"

	"groundforge/internal/sim/ground"
)

func TestPlanChunkCellsClamped(t *testing.T) {
	// Tiny cells would exceed the max cell count per chunk.
	small := ground.NewHeightField(10, 10, 0.05)
	if p := NewPlan(small, 100); p.ChunkCells != 512 {
		t.Fatalf("expected clamp to 512, got %d", p.ChunkCells)
	}
	// Huge cells clamp at the minimum.
	big := ground.NewHeightField(10, 10, 100)
	if p := NewPlan(big, 100); p.ChunkCells != 4 {
		t.Fatalf("expected clamp to 4, got %d", p.ChunkCells)
	}
	// Unit cells hit the 100-unit footprint exactly.
	unit := ground.NewHeightField(250, 250, 1)
	if p := NewPlan(unit, 100); p.ChunkCells != 100 {
		t.Fatalf("expected 100 cells, got %d", p.ChunkCells)
	}
}

func TestPlanRemainderChunks(t *testing.T) {
	hf := ground.NewHeightField(250, 250, 1)
	p := NewPlan(hf, 100)

	if p.ChunkRows(hf) != 3 || p.ChunkCols(hf) != 3 {
		t.Fatalf("expected 3x3 chunk grid, got %dx%d", p.ChunkRows(hf), p.ChunkCols(hf))
	}
	s, ok := p.SpecAt(hf, 2, 2)
	if !ok {
		t.Fatalf("missing corner chunk")
	}
	if s.Rows != 50 || s.Cols != 50 {
		t.Fatalf("remainder chunk is %dx%d, want 50x50", s.Rows, s.Cols)
	}
}

func TestPlanSpecsTileExactly(t *testing.T) {
	cases := []struct {
		rows, cols int
		cellSize   float64
	}{
		{250, 250, 1},
		{7, 13, 1},
		{100, 100, 3.3},
		{512, 1, 1},
	}
	for _, tc := range cases {
		hf := ground.NewHeightField(tc.rows, tc.cols, tc.cellSize)
		p := NewPlan(hf, 100)

		covered := make(map[[2]int]int)
		for _, s := range p.Specs(hf) {
			if s.Rows <= 0 || s.Cols <= 0 {
				t.Fatalf("%dx%d: degenerate spec %+v", tc.rows, tc.cols, s)
			}
			for r := s.StartRow; r < s.StartRow+s.Rows; r++ {
				for c := s.StartCol; c < s.StartCol+s.Cols; c++ {
					covered[[2]int{r, c}]++
				}
			}
		}
		if len(covered) != tc.rows*tc.cols {
			t.Fatalf("%dx%d: covered %d cells, want %d", tc.rows, tc.cols, len(covered), tc.rows*tc.cols)
		}
		for cell, n := range covered {
			if n != 1 {
				t.Fatalf("%dx%d: cell %v covered %d times", tc.rows, tc.cols, cell, n)
			}
		}
	}
}

func TestBuildMeshShape(t *testing.T) {
	hf := ground.NewHeightField(8, 8, 2)
	hf.SetHeight(1, 1, 3)
	spec := Spec{StartRow: 0, StartCol: 0, Rows: 4, Cols: 4}

	m := BuildMesh(spec, hf)
	wantVerts := 5 * 5
	if len(m.Positions) != wantVerts*3 || len(m.Normals) != wantVerts*3 || len(m.UVs) != wantVerts*2 {
		t.Fatalf("bad buffer sizes: %d/%d/%d", len(m.Positions), len(m.Normals), len(m.UVs))
	}
	if len(m.Indices) != 4*4*6 {
		t.Fatalf("bad index count: %d", len(m.Indices))
	}
	// Vertex (1,1) carries the raised height.
	if m.Positions[(1*5+1)*3+1] != 3 {
		t.Fatalf("raised vertex not in mesh: %v", m.Positions[(1*5+1)*3+1])
	}
	// Pure function: the field is untouched.
	if len(hf.Heights) != 1 {
		t.Fatalf("mesh build mutated the field")
	}
}

func TestBuildHeightMatrix(t *testing.T) {
	hf := ground.NewHeightField(4, 4, 1)
	hf.SetHeight(2, 3, 7)
	m := BuildHeightMatrix(Spec{StartRow: 0, StartCol: 0, Rows: 4, Cols: 4}, hf)
	if len(m) != 5 || len(m[0]) != 5 {
		t.Fatalf("bad matrix shape %dx%d", len(m), len(m[0]))
	}
	if m[2][3] != 7 {
		t.Fatalf("matrix missed raised sample: %v", m[2][3])
	}
}
