package ground

import (
	"math"
	"testing"
)

func TestSculptRaiseCircle(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	b := Brush{Radius: 2, Strength: 1, Shape: BrushCircle, Op: OpRaise}

	if !Sculpt(hf, b, nil) {
		t.Fatalf("raise on flat grid reported no change")
	}
	if !hf.HasManualEdits {
		t.Fatalf("manual-edit flag not set")
	}

	// Vertices well inside the radius become positive.
	center := hf.HeightAt(5, 5)
	if center <= 0 {
		t.Fatalf("center vertex not raised: %v", center)
	}
	// Far corner untouched.
	if hf.HeightAt(0, 0) != 0 {
		t.Fatalf("corner vertex modified")
	}
	for k, v := range hf.Heights {
		if v == 0 {
			t.Fatalf("stored zero at %v after sculpt", k)
		}
	}
}

func TestSculptDepressThenRaiseRoundTrips(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	down := Brush{Radius: 2, Strength: 1, Shape: BrushCircle, Op: OpDepress}
	up := down
	up.Op = OpRaise

	Sculpt(hf, down, nil)
	if hf.HeightAt(5, 5) >= 0 {
		t.Fatalf("depress did not lower center")
	}
	Sculpt(hf, up, nil)
	// Same influence field, so the pair cancels to within rounding.
	if got := hf.HeightAt(5, 5); math.Abs(got) > 0.011 {
		t.Fatalf("raise after depress left residue: %v", got)
	}
}

func TestSculptMalformedBrushIsNoop(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	cases := []Brush{
		{CenterX: math.NaN(), Radius: 2, Strength: 1, Shape: BrushCircle, Op: OpRaise},
		{Radius: math.Inf(1), Strength: 1, Shape: BrushCircle, Op: OpRaise},
		{Radius: -3, Strength: 1, Shape: BrushCircle, Op: OpRaise},
		{Radius: 0, Strength: 1, Shape: BrushCircle, Op: OpRaise},
		{Radius: 2, Strength: 1, Shape: BrushCircle, Op: "explode"},
	}
	for i, b := range cases {
		if Sculpt(hf, b, nil) {
			t.Fatalf("case %d: malformed brush reported a change", i)
		}
	}
	if len(hf.Heights) != 0 || hf.HasManualEdits {
		t.Fatalf("malformed brush mutated the field")
	}
}

func TestSculptOutsideGridIsNoop(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	b := Brush{CenterX: 500, CenterZ: 500, Radius: 2, Strength: 1, Shape: BrushCircle, Op: OpRaise}
	if Sculpt(hf, b, nil) {
		t.Fatalf("brush outside grid reported a change")
	}
}

func TestSculptSmoothReducesSpike(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	hf.SetHeight(5, 5, 10)
	spike := hf.HeightAt(5, 5)

	b := Brush{Radius: 3, Strength: 2, Shape: BrushCircle, Op: OpSmooth}
	if !Sculpt(hf, b, nil) {
		t.Fatalf("smooth reported no change")
	}
	after := hf.HeightAt(5, 5)
	if after >= spike || after <= 0 {
		t.Fatalf("spike not pulled toward neighborhood: %v -> %v", spike, after)
	}
	// Neighbors rise toward the spike.
	if hf.HeightAt(5, 6) <= 0 {
		t.Fatalf("neighbor not pulled up by smoothing")
	}
}

func TestSculptFlattenTowardTarget(t *testing.T) {
	hf := NewHeightField(10, 10, 1)
	hf.SetHeight(5, 5, 10)

	target := 2.0
	b := Brush{Radius: 2, Strength: 5, Shape: BrushSquare, Op: OpFlatten, Target: &target}
	if !Sculpt(hf, b, nil) {
		t.Fatalf("flatten reported no change")
	}
	// Influence jitter is at most ±10%, so the center lands within 10% of
	// the full 8-unit correction.
	after := hf.HeightAt(5, 5)
	if math.Abs(after-target) > 0.9 {
		t.Fatalf("flatten moved center to %v, want near %v", after, target)
	}
}

func TestSculptStarNotchedCorners(t *testing.T) {
	hf := NewHeightField(20, 20, 1)
	b := Brush{Radius: 6, Strength: 3, Shape: BrushStar, Op: OpRaise}
	if !Sculpt(hf, b, nil) {
		t.Fatalf("star raise reported no change")
	}
	// A star brush covers strictly fewer vertices than the circle of the
	// same radius.
	star := len(hf.Heights)

	hf2 := NewHeightField(20, 20, 1)
	b.Shape = BrushCircle
	Sculpt(hf2, b, nil)
	if star >= len(hf2.Heights) {
		t.Fatalf("star brush covered %d vertices, circle %d", star, len(hf2.Heights))
	}
}

func TestSculptDeterministic(t *testing.T) {
	run := func() *HeightField {
		hf := NewHeightField(12, 12, 1)
		Sculpt(hf, Brush{CenterX: 1, CenterZ: -1, Radius: 3, Strength: 2, Shape: BrushCircle, Op: OpRaise}, nil)
		return hf
	}
	a := run()
	b := run()
	if a.Signature() != b.Signature() {
		t.Fatalf("identical brushes produced different content")
	}
}
