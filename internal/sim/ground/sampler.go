package ground

import "math"

// Sampler provides bilinear world-height lookup over a height field in
// terrain-local coordinates. Road building reads terrain exclusively through
// this interface surface, independent of chunking.
type Sampler struct {
	hf *HeightField
}

func NewSampler(hf *HeightField) *Sampler {
	return &Sampler{hf: hf}
}

// HeightAt returns the interpolated height at local (x,z). Positions outside
// the grid clamp to the border vertices.
func (s *Sampler) HeightAt(x, z float64) float64 {
	if s == nil || s.hf == nil {
		return 0
	}
	hf := s.hf

	fc := (x + hf.Width/2) / hf.CellSize
	fr := (z + hf.Depth/2) / hf.CellSize

	col := int(math.Floor(fc))
	row := int(math.Floor(fr))
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	if col > hf.Columns-1 {
		col = hf.Columns - 1
	}
	if row > hf.Rows-1 {
		row = hf.Rows - 1
	}

	fx := clamp(fc-float64(col), 0, 1)
	fz := clamp(fr-float64(row), 0, 1)

	h00 := hf.HeightAt(row, col)
	h01 := hf.HeightAt(row, col+1)
	h10 := hf.HeightAt(row+1, col)
	h11 := hf.HeightAt(row+1, col+1)

	south := h00*(1-fx) + h01*fx
	north := h10*(1-fx) + h11*fx
	return south*(1-fz) + north*fz
}
