package chunk

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/physics"
)

// Config tunes one streaming manager. The clock is injected so tests can
// drive throttling and TTL eviction deterministically.
type Config struct {
	Footprint      float64       // target world units per chunk edge
	UpdateThrottle time.Duration // min interval between Update passes
	PhysicsTTL     time.Duration // grace before evicting an unused physics shape
	Radius         float64       // default streaming radius around the viewpoint
	MaxChunks      int           // resident budget, 0 = unlimited
}

func DefaultConfig() Config {
	return Config{
		Footprint:      targetChunkFootprint,
		UpdateThrottle: 120 * time.Millisecond,
		PhysicsTTL:     1500 * time.Millisecond,
		Radius:         220,
	}
}

type renderEntry struct {
	mesh *Mesh
	hash uint32
}

type physicsEntry struct {
	body     *physics.Body
	hash     uint32
	lastUsed time.Time
}

// Manager owns the resident chunk set of a single terrain entity. It is an
// explicit cache object passed alongside the terrain, not process-wide
// state, so independent terrains stream independently and tear down cleanly.
// All methods run on the owning tick; no internal locking.
type Manager struct {
	cfg   Config
	log   *log.Logger
	now   func() time.Time
	world physics.World
	node  physics.NodeRef

	planSig    string
	chunkCells int
	render     map[Key]*renderEntry
	phys       map[Key]*physicsEntry

	lastUpdate time.Time
	updated    bool
}

func NewManager(cfg Config, world physics.World, node physics.NodeRef, now func() time.Time, logger *log.Logger) *Manager {
	if cfg.Footprint <= 0 {
		cfg.Footprint = targetChunkFootprint
	}
	if cfg.UpdateThrottle <= 0 {
		cfg.UpdateThrottle = 120 * time.Millisecond
	}
	if cfg.PhysicsTTL <= 0 {
		cfg.PhysicsTTL = 1500 * time.Millisecond
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 220
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:    cfg,
		log:    logger,
		now:    now,
		world:  world,
		node:   node,
		render: make(map[Key]*renderEntry),
		phys:   make(map[Key]*physicsEntry),
	}
}

// ensureRuntimeState recomputes the plan; a structural change is the only
// path that drops every resident chunk at once.
func (m *Manager) ensureRuntimeState(hf *ground.HeightField) Plan {
	plan := NewPlan(hf, m.cfg.Footprint)
	if plan.Signature != m.planSig || plan.ChunkCells != m.chunkCells {
		if m.planSig != "" && m.log != nil {
			m.log.Printf("chunks: plan changed (%s -> %s), dropping %d render / %d physics chunks",
				m.planSig, plan.Signature, len(m.render), len(m.phys))
		}
		m.disposeAll()
		m.planSig = plan.Signature
		m.chunkCells = plan.ChunkCells
	}
	return plan
}

// Update streams chunks around a viewpoint given in terrain-local
// coordinates. Runs at most once per UpdateThrottle; callers invoke it every
// tick and let the throttle decide.
func (m *Manager) Update(hf *ground.HeightField, viewLocal mgl64.Vec3, radius float64) {
	if m == nil || hf == nil {
		return
	}
	now := m.now()
	if m.updated && now.Sub(m.lastUpdate) < m.cfg.UpdateThrottle {
		return
	}
	m.lastUpdate = now
	m.updated = true

	plan := m.ensureRuntimeState(hf)
	if radius <= 0 {
		radius = m.cfg.Radius
	}

	keep := m.keepSet(hf, plan, viewLocal, radius)

	// Build or refresh everything in the keep-set.
	for key := range keep {
		if m.cfg.MaxChunks > 0 && len(m.render) >= m.cfg.MaxChunks {
			if _, resident := m.render[key]; !resident {
				continue // budget exhausted: keep what we have
			}
		}
		m.ensureChunk(hf, plan, key, now)
	}

	// Render chunks evict as soon as they leave the set.
	for key := range m.render {
		if _, ok := keep[key]; !ok {
			delete(m.render, key)
		}
	}

	// Physics shapes linger for the TTL to damp add/remove churn when the
	// viewpoint oscillates across a chunk boundary.
	for key, pe := range m.phys {
		if _, ok := keep[key]; ok {
			continue
		}
		if now.Sub(pe.lastUsed) >= m.cfg.PhysicsTTL {
			if m.world != nil {
				m.world.DestroyBody(pe.body)
			}
			delete(m.phys, key)
		}
	}
}

// EnsureAll builds every chunk in the plan, ignoring radius and throttle.
// Used when an operation needs whole-terrain coverage (full raycasts,
// export).
func (m *Manager) EnsureAll(hf *ground.HeightField) {
	if m == nil || hf == nil {
		return
	}
	now := m.now()
	plan := m.ensureRuntimeState(hf)
	for r := 0; r < plan.ChunkRows(hf); r++ {
		for c := 0; c < plan.ChunkCols(hf); c++ {
			m.ensureChunk(hf, plan, Key{Row: r, Col: c}, now)
		}
	}
}

// keepSet is the bounding box of chunk indices intersecting
// [viewpoint-radius, viewpoint+radius] on both axes.
func (m *Manager) keepSet(hf *ground.HeightField, plan Plan, view mgl64.Vec3, radius float64) map[Key]struct{} {
	chunkRows := plan.ChunkRows(hf)
	chunkCols := plan.ChunkCols(hf)

	cellMinCol := int(math.Floor((view.X() - radius + hf.Width/2) / hf.CellSize))
	cellMaxCol := int(math.Floor((view.X() + radius + hf.Width/2) / hf.CellSize))
	cellMinRow := int(math.Floor((view.Z() - radius + hf.Depth/2) / hf.CellSize))
	cellMaxRow := int(math.Floor((view.Z() + radius + hf.Depth/2) / hf.CellSize))

	minCol := clampInt(cellMinCol/plan.ChunkCells, 0, chunkCols-1)
	maxCol := clampInt(cellMaxCol/plan.ChunkCells, 0, chunkCols-1)
	minRow := clampInt(cellMinRow/plan.ChunkCells, 0, chunkRows-1)
	maxRow := clampInt(cellMaxRow/plan.ChunkCells, 0, chunkRows-1)

	keep := make(map[Key]struct{})
	if cellMaxCol < 0 || cellMaxRow < 0 || cellMinCol > hf.Columns || cellMinRow > hf.Rows {
		return keep // viewpoint box entirely off the grid
	}
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			keep[Key{Row: r, Col: c}] = struct{}{}
		}
	}
	return keep
}

// ensureChunk builds the chunk when missing and rebuilds it only when the
// region content hash moved; sculpting a corner of the terrain must not
// rebuild unaffected chunks.
func (m *Manager) ensureChunk(hf *ground.HeightField, plan Plan, key Key, now time.Time) {
	spec, ok := plan.SpecAt(hf, key.Row, key.Col)
	if !ok {
		return
	}
	hash := hf.RegionHash(spec.StartRow, spec.StartCol, spec.Rows, spec.Cols)

	re := m.render[key]
	if re == nil || re.hash != hash {
		m.render[key] = &renderEntry{mesh: BuildMesh(spec, hf), hash: hash}
	}

	pe := m.phys[key]
	if pe != nil && pe.hash == hash {
		pe.lastUsed = now
		return
	}
	if pe != nil && m.world != nil {
		m.world.DestroyBody(pe.body)
	}
	var body *physics.Body
	if m.world != nil {
		shape := physics.NewHeightfield(BuildHeightMatrix(spec, hf), hf.CellSize)
		placement := physics.Transform{
			Position: mgl64.Vec3{hf.LocalX(spec.StartCol), 0, hf.LocalZ(spec.StartRow)},
			Rotation: mgl64.QuatIdent(),
		}
		body = m.world.CreateBody(m.node, physics.BodyConfig{Static: true}, shape, placement)
		if body == nil && m.log != nil {
			m.log.Printf("warn: chunks: physics world rejected heightfield for chunk %s", key)
		}
	}
	m.phys[key] = &physicsEntry{body: body, hash: hash, lastUsed: now}
}

func (m *Manager) disposeAll() {
	for key, pe := range m.phys {
		if m.world != nil {
			m.world.DestroyBody(pe.body)
		}
		delete(m.phys, key)
	}
	for key := range m.render {
		delete(m.render, key)
	}
}

// Dispose drops every resident chunk; called when the terrain entity goes
// away.
func (m *Manager) Dispose() {
	if m == nil {
		return
	}
	m.disposeAll()
}

// RenderMesh returns the resident mesh for a chunk, nil when not resident.
func (m *Manager) RenderMesh(key Key) *Mesh {
	if e := m.render[key]; e != nil {
		return e.mesh
	}
	return nil
}

// ResidentRender lists resident render chunk keys in row-major order.
func (m *Manager) ResidentRender() []Key {
	return sortedKeys(mapKeysRender(m.render))
}

// ResidentPhysics lists resident physics chunk keys in row-major order.
func (m *Manager) ResidentPhysics() []Key {
	return sortedKeys(mapKeysPhysics(m.phys))
}

func mapKeysRender(m map[Key]*renderEntry) []Key {
	out := make([]Key, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func mapKeysPhysics(m map[Key]*physicsEntry) []Key {
	out := make([]Key, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedKeys(keys []Key) []Key {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Col < keys[j].Col
	})
	return keys
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
