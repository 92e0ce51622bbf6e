package chunk

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/physics"
)

// fakeClock drives the manager deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Footprint = 8 // small chunks on small grids
	cfg.Radius = 10
	return cfg
}

func newTestManager(world physics.World, clk *fakeClock) *Manager {
	return NewManager(testConfig(), world, "terrain", clk.now, nil)
}

func TestUpdateBuildsAroundViewpoint(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1) // 4x4 chunks of 8 cells
	world := physics.NewMemWorld(0)
	clk := newFakeClock()
	m := newTestManager(world, clk)

	// Viewpoint at the grid center with radius 5 touches the middle chunks.
	m.Update(hf, mgl64.Vec3{0, 0, 0}, 5)

	if len(m.ResidentRender()) == 0 {
		t.Fatalf("no chunks resident after update")
	}
	if got := world.CountKind(physics.ShapeHeightfield); got != len(m.ResidentPhysics()) {
		t.Fatalf("physics bodies %d != resident physics chunks %d", got, len(m.ResidentPhysics()))
	}
	// All of them must be near the center: chunk (1,1) .. (2,2).
	for _, k := range m.ResidentRender() {
		if k.Row < 1 || k.Row > 2 || k.Col < 1 || k.Col > 2 {
			t.Fatalf("unexpected resident chunk %v", k)
		}
	}
}

func TestUpdateThrottled(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1)
	clk := newFakeClock()
	m := newTestManager(physics.NewMemWorld(0), clk)

	m.Update(hf, mgl64.Vec3{-16, 0, -16}, 5)
	before := len(m.ResidentRender())

	// Within the throttle window a moved viewpoint is ignored.
	clk.advance(50 * time.Millisecond)
	m.Update(hf, mgl64.Vec3{16, 0, 16}, 5)
	if got := m.ResidentRender(); len(got) != before || got[0] != (Key{Row: 0, Col: 0}) {
		t.Fatalf("throttled update still restreamed: %v", got)
	}

	// Past the window it takes effect.
	clk.advance(100 * time.Millisecond)
	m.Update(hf, mgl64.Vec3{16, 0, 16}, 5)
	for _, k := range m.ResidentRender() {
		if k.Row < 2 || k.Col < 2 {
			t.Fatalf("stale chunk %v resident after restream", k)
		}
	}
}

func TestPhysicsTTLEviction(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1)
	world := physics.NewMemWorld(0)
	clk := newFakeClock()
	m := newTestManager(world, clk)

	m.Update(hf, mgl64.Vec3{-16, 0, -16}, 5) // corner chunk (0,0)
	if len(m.ResidentPhysics()) == 0 {
		t.Fatalf("no physics chunks after first update")
	}

	// Move away: render evicts immediately, physics lingers.
	clk.advance(200 * time.Millisecond)
	m.Update(hf, mgl64.Vec3{16, 0, 16}, 5)
	for _, k := range m.ResidentRender() {
		if k == (Key{Row: 0, Col: 0}) {
			t.Fatalf("render chunk not evicted immediately")
		}
	}
	stillThere := false
	for _, k := range m.ResidentPhysics() {
		if k == (Key{Row: 0, Col: 0}) {
			stillThere = true
		}
	}
	if !stillThere {
		t.Fatalf("physics chunk evicted before TTL")
	}

	// Under the TTL it still survives.
	clk.advance(1200 * time.Millisecond)
	m.Update(hf, mgl64.Vec3{16, 0, 16}, 5)
	stillThere = false
	for _, k := range m.ResidentPhysics() {
		if k == (Key{Row: 0, Col: 0}) {
			stillThere = true
		}
	}
	if !stillThere {
		t.Fatalf("physics chunk evicted at %v, before the 1500ms TTL", 1400*time.Millisecond)
	}

	// Past the TTL it goes, and the body is destroyed.
	clk.advance(400 * time.Millisecond)
	m.Update(hf, mgl64.Vec3{16, 0, 16}, 5)
	for _, k := range m.ResidentPhysics() {
		if k == (Key{Row: 0, Col: 0}) {
			t.Fatalf("physics chunk still resident after TTL")
		}
	}
	if world.Destroyed() == 0 {
		t.Fatalf("expired physics body was not destroyed")
	}
}

func TestContentHashSkipsRebuild(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1)
	world := physics.NewMemWorld(0)
	clk := newFakeClock()
	m := newTestManager(world, clk)

	m.EnsureAll(hf)
	created := world.Created()
	if created != 16 {
		t.Fatalf("expected 16 physics chunks, got %d", created)
	}

	// No content change: EnsureAll must not rebuild anything.
	m.EnsureAll(hf)
	if world.Created() != created {
		t.Fatalf("unchanged chunks were rebuilt")
	}

	// Sculpt one corner: only chunks touching it rebuild.
	ground.Sculpt(hf, ground.Brush{CenterX: -14, CenterZ: -14, Radius: 1.5, Strength: 3, Shape: ground.BrushCircle, Op: ground.OpRaise}, nil)
	m.EnsureAll(hf)
	rebuilt := world.Created() - created
	if rebuilt == 0 {
		t.Fatalf("edited chunk was not rebuilt")
	}
	if rebuilt > 2 {
		t.Fatalf("corner sculpt rebuilt %d chunks", rebuilt)
	}
}

func TestStructuralChangeDropsEverything(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1)
	world := physics.NewMemWorld(0)
	clk := newFakeClock()
	m := newTestManager(world, clk)

	m.EnsureAll(hf)
	if len(world.Bodies) == 0 {
		t.Fatalf("no bodies after EnsureAll")
	}

	// A different grid shape invalidates the whole plan.
	hf2 := ground.NewHeightField(40, 32, 1)
	m.EnsureAll(hf2)
	if world.Destroyed() == 0 {
		t.Fatalf("old bodies survived a structural change")
	}
	if len(m.ResidentPhysics()) != len(NewPlan(hf2, 8).Specs(hf2)) {
		t.Fatalf("new plan not fully built: %d resident", len(m.ResidentPhysics()))
	}
}

func TestRejectedBodyIsSkipped(t *testing.T) {
	hf := ground.NewHeightField(32, 32, 1)
	world := physics.NewMemWorld(3) // reject everything past 3 bodies
	clk := newFakeClock()
	m := newTestManager(world, clk)

	m.EnsureAll(hf) // 16 chunks, 3 accepted
	if got := world.CountKind(physics.ShapeHeightfield); got != 3 {
		t.Fatalf("expected 3 accepted bodies, got %d", got)
	}
	// Rejection is non-fatal: render side is fully resident.
	if len(m.ResidentRender()) != 16 {
		t.Fatalf("render chunks incomplete after physics rejections: %d", len(m.ResidentRender()))
	}
}
