package world

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/ground/chunk"
	"groundforge/internal/sim/physics"
	"groundforge/internal/sim/road"
	"groundforge/internal/sim/scene"
	"groundforge/internal/sim/tuning"
)

// TerrainConfig describes one terrain entity. A zero ID gets a fresh uuid.
type TerrainConfig struct {
	ID       string
	Rows     int
	Columns  int
	CellSize float64
	Tuning   tuning.Tuning
}

type roadState struct {
	inputSig string
	result   road.Result
}

// Terrain owns one height field plus the chunk and road caches derived
// from it. All methods run on the host tick; there is no internal locking.
type Terrain struct {
	ID string

	hf        *ground.HeightField
	chunks    *chunk.Manager
	roads     map[string]*roadState
	roadBuild *road.Builder
	phys      physics.World
	transform scene.Transform
	tn        tuning.Tuning
	log       *log.Logger
}

// NewTerrain builds a terrain entity. now is the clock used for chunk
// throttling and TTL eviction; pass nil for wall time.
func NewTerrain(cfg TerrainConfig, phys physics.World, logger *log.Logger, now func() time.Time) *Terrain {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Tuning.ChunkFootprint == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	hf := ground.NewHeightField(cfg.Rows, cfg.Columns, cfg.CellSize)
	chunkCfg := chunk.Config{
		Footprint:      cfg.Tuning.ChunkFootprint,
		UpdateThrottle: time.Duration(cfg.Tuning.UpdateThrottleMs) * time.Millisecond,
		PhysicsTTL:     time.Duration(cfg.Tuning.PhysicsTTLMs) * time.Millisecond,
		Radius:         cfg.Tuning.StreamRadius,
		MaxChunks:      cfg.Tuning.MaxChunks,
	}
	return &Terrain{
		ID:        cfg.ID,
		hf:        hf,
		chunks:    chunk.NewManager(chunkCfg, phys, physics.NodeRef(cfg.ID), now, logger),
		roads:     make(map[string]*roadState),
		roadBuild: road.NewBuilder(phys, logger),
		phys:      phys,
		transform: scene.Identity(),
		tn:        cfg.Tuning,
		log:       logger,
	}
}

// HeightField exposes the owned field for persistence; callers must not
// mutate it outside the generation and sculpt entry points.
func (t *Terrain) HeightField() *ground.HeightField { return t.hf }

func (t *Terrain) Chunks() *chunk.Manager { return t.chunks }

// SetTransform updates the terrain's world placement. Viewpoints passed to
// UpdateChunks are converted through it.
func (t *Terrain) SetTransform(tr scene.Transform) { t.transform = tr }

// ReplaceHeightField swaps in a restored field, e.g. after snapshot import.
// Chunk caches invalidate themselves on the next update via the structural
// signature.
func (t *Terrain) ReplaceHeightField(hf *ground.HeightField) {
	if hf == nil {
		return
	}
	t.hf = hf
}

// ApplyGroundGeneration regenerates the height map from settings and
// returns the normalized settings actually used.
func (t *Terrain) ApplyGroundGeneration(s ground.Settings) ground.Settings {
	return ground.Generate(t.hf, s, t.log)
}

// SculptGround applies one brush stroke. Reports whether any vertex
// changed.
func (t *Terrain) SculptGround(b ground.Brush) bool {
	return ground.Sculpt(t.hf, b, t.log)
}

// UpdateChunks streams chunks around a world-space viewpoint.
// radiusOverride <= 0 uses the tuned stream radius.
func (t *Terrain) UpdateChunks(viewWorld mgl64.Vec3, radiusOverride float64) {
	local := t.transform.ToLocal(viewWorld)
	t.chunks.Update(t.hf, local, radiusOverride)
}

// EnsureAllChunks builds every chunk regardless of radius and throttle.
func (t *Terrain) EnsureAllChunks() {
	t.chunks.EnsureAll(t.hf)
}

// BuildRoadCollisionTiles rebuilds the colliders for one road graph.
// The graph, tuning and ground signature fold into an input signature;
// when it matches the cached one the resident result is returned with
// rebuilt=false and no physics work happens. Otherwise old bodies are
// destroyed and replaced.
func (t *Terrain) BuildRoadCollisionTiles(roadID string, g *road.Graph, tn road.Tuning) (road.Result, bool) {
	inputSig := road.InputSignature(roadID, g, tn, t.hf.Signature())
	prev := t.roads[roadID]
	if prev != nil && prev.inputSig == inputSig {
		return prev.result, false
	}
	if prev != nil {
		t.destroyRoadBodies(prev)
	}

	sampler := ground.NewSampler(t.hf)
	res := t.roadBuild.Build(roadID, g, sampler, t.hf.Signature(), tn)
	t.roads[roadID] = &roadState{inputSig: inputSig, result: res}
	return res, true
}

// RemoveRoad destroys the bodies of one road and forgets its signature.
func (t *Terrain) RemoveRoad(roadID string) {
	st := t.roads[roadID]
	if st == nil {
		return
	}
	t.destroyRoadBodies(st)
	delete(t.roads, roadID)
}

func (t *Terrain) destroyRoadBodies(st *roadState) {
	if t.phys == nil {
		return
	}
	for _, b := range st.result.Bodies {
		t.phys.DestroyBody(b)
	}
}

// RoadSignature returns the cached result signature for a road, "" when
// unknown.
func (t *Terrain) RoadSignature(roadID string) string {
	if st := t.roads[roadID]; st != nil {
		return st.result.Signature
	}
	return ""
}

// Dispose releases every chunk and road body.
func (t *Terrain) Dispose() {
	t.chunks.Dispose()
	for id := range t.roads {
		t.RemoveRoad(id)
	}
}
