package ground

import "testing"

func TestSetHeightSparseInvariant(t *testing.T) {
	hf := NewHeightField(4, 4, 1)

	if !hf.SetHeight(1, 2, 3.456) {
		t.Fatalf("expected change")
	}
	if got := hf.HeightAt(1, 2); got != 3.46 {
		t.Fatalf("expected rounded 3.46, got %v", got)
	}

	// Values rounding to zero delete the entry.
	if !hf.SetHeight(1, 2, 0.004) {
		t.Fatalf("expected change deleting entry")
	}
	if _, ok := hf.Heights[Key{Row: 1, Col: 2}]; ok {
		t.Fatalf("entry rounding to 0 was not deleted")
	}
	if hf.SetHeight(1, 2, 0) {
		t.Fatalf("writing 0 over absent entry reported a change")
	}

	for k, v := range hf.Heights {
		if v == 0 {
			t.Fatalf("stored zero at %v", k)
		}
	}
}

func TestSetHeightOutOfGrid(t *testing.T) {
	hf := NewHeightField(2, 2, 1)
	if hf.SetHeight(-1, 0, 1) || hf.SetHeight(0, 3, 1) {
		t.Fatalf("out-of-grid write reported a change")
	}
	if hf.HeightAt(5, 5) != 0 {
		t.Fatalf("out-of-grid read not zero")
	}
}

func TestNewHeightFieldSanitizesDimensions(t *testing.T) {
	hf := NewHeightField(0, -3, -2)
	if hf.Rows != 1 || hf.Columns != 1 || hf.CellSize != 1 {
		t.Fatalf("bad sanitized dims: %dx%d cell %v", hf.Rows, hf.Columns, hf.CellSize)
	}
	if hf.Width != 1 || hf.Depth != 1 {
		t.Fatalf("bad extents: %v x %v", hf.Width, hf.Depth)
	}
}

func TestSignatureStability(t *testing.T) {
	build := func() *HeightField {
		hf := NewHeightField(8, 8, 2)
		hf.SetHeight(3, 3, 5.5)
		hf.SetHeight(4, 1, -2.25)
		return hf
	}
	a := build()
	b := build()
	if a.Signature() != b.Signature() {
		t.Fatalf("signatures differ across identical builds: %s vs %s", a.Signature(), b.Signature())
	}

	b.SetHeight(0, 0, 1)
	if a.Signature() == b.Signature() {
		t.Fatalf("content change did not change signature")
	}

	c := NewHeightField(8, 9, 2)
	if a.StructuralSignature() == c.StructuralSignature() {
		t.Fatalf("structural signature ignored dimensions")
	}
}

func TestRegionHashLocality(t *testing.T) {
	hf := NewHeightField(16, 16, 1)
	hf.SetHeight(2, 2, 4)

	before := hf.RegionHash(8, 8, 8, 8)
	hf.SetHeight(1, 1, 9) // far corner, outside the region
	if hf.RegionHash(8, 8, 8, 8) != before {
		t.Fatalf("edit outside region changed region hash")
	}
	hf.SetHeight(12, 12, 9)
	if hf.RegionHash(8, 8, 8, 8) == before {
		t.Fatalf("edit inside region did not change region hash")
	}
}

func TestSamplerBilinear(t *testing.T) {
	hf := NewHeightField(2, 2, 1)
	// Raise a single vertex; the sampler should blend toward it.
	hf.SetHeight(1, 1, 4)
	s := NewSampler(hf)

	// Exactly on the raised vertex (grid center = local origin).
	if got := s.HeightAt(0, 0); got != 4 {
		t.Fatalf("on-vertex sample: got %v want 4", got)
	}
	// Halfway to a flat neighbor.
	if got := s.HeightAt(0.5, 0); got != 2 {
		t.Fatalf("midpoint sample: got %v want 2", got)
	}
	// Outside the grid clamps instead of failing.
	if got := s.HeightAt(100, 100); got != 0 {
		t.Fatalf("clamped sample: got %v want 0", got)
	}
}
