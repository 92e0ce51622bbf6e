package world

import (
	"testing"

	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/physics"
	"groundforge/internal/sim/road"
)

// Two terrains driven by the same operation stream must agree on every
// intermediate state digest.
func TestDeterminism_FixedOpsSameDigest(t *testing.T) {
	build := func() *Terrain {
		tr, _ := newTestTerrain(t, physics.NewMemWorld(500))
		return tr
	}
	t1 := build()
	t2 := build()

	check := func(stage string) {
		t.Helper()
		d1, d2 := t1.StateDigest(), t2.StateDigest()
		if d1 != d2 {
			t.Fatalf("digest mismatch after %s: %s vs %s", stage, d1, d2)
		}
	}

	check("init")

	settings := ground.Settings{
		Seed:           42,
		Mode:           ground.ModePerlin,
		NoiseScale:     12,
		NoiseAmplitude: 6,
		NoiseStrength:  1,
	}
	t1.ApplyGroundGeneration(settings)
	t2.ApplyGroundGeneration(settings)
	check("generation")

	brushes := []ground.Brush{
		{CenterX: 2, CenterZ: -3, Radius: 4, Strength: 1, Shape: ground.BrushCircle, Op: ground.OpRaise},
		{CenterX: -5, CenterZ: 5, Radius: 3, Strength: 0.7, Shape: ground.BrushStar, Op: ground.OpDepress},
		{CenterX: 0, CenterZ: 0, Radius: 6, Strength: 1, Shape: ground.BrushSquare, Op: ground.OpSmooth},
	}
	for i, b := range brushes {
		r1 := t1.SculptGround(b)
		r2 := t2.SculptGround(b)
		if r1 != r2 {
			t.Fatalf("brush %d changed-flags differ: %v vs %v", i, r1, r2)
		}
	}
	check("sculpting")

	t1.EnsureAllChunks()
	t2.EnsureAllChunks()
	check("chunks")

	g := road.NewGraph(
		[]*road.Point{{X: -12, Z: -12}, {X: 0, Z: -12}, {X: 0, Z: 12}},
		[][2]int{{0, 1}, {1, 2}},
	)
	res1, _ := t1.BuildRoadCollisionTiles("r1", g, road.DefaultTuning())
	res2, _ := t2.BuildRoadCollisionTiles("r1", g, road.DefaultTuning())
	if res1.Signature != res2.Signature {
		t.Fatalf("road signatures differ: %s vs %s", res1.Signature, res2.Signature)
	}
	if len(res1.Tiles) != len(res2.Tiles) {
		t.Fatalf("tile counts differ: %d vs %d", len(res1.Tiles), len(res2.Tiles))
	}
	check("roads")
}

// Regeneration with the same settings must produce a byte-identical sparse
// map even after intervening edits.
func TestDeterminism_RegenerateResets(t *testing.T) {
	tr, _ := newTestTerrain(t, physics.NewMemWorld(500))
	settings := ground.Settings{
		Seed:           1337,
		Mode:           ground.ModeRidge,
		NoiseScale:     9,
		NoiseAmplitude: 4,
		NoiseStrength:  1,
	}
	tr.ApplyGroundGeneration(settings)
	first := tr.StateDigest()

	tr.SculptGround(ground.Brush{
		CenterX: 1, CenterZ: 1, Radius: 5, Strength: 2,
		Shape: ground.BrushCircle, Op: ground.OpRaise,
	})
	if tr.StateDigest() == first {
		t.Fatalf("sculpt left the digest unchanged")
	}

	tr.ApplyGroundGeneration(settings)
	if got := tr.StateDigest(); got != first {
		t.Fatalf("regeneration digest = %s, want %s", got, first)
	}
}
