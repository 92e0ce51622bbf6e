package world

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"groundforge/internal/persistence/indexdb"
	"groundforge/internal/persistence/snapshot"
	"groundforge/internal/protocol"
	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/road"
	"groundforge/internal/sim/tuning"
)

// Service exposes the terrain operations to the transport layer. Sessions
// run on their own goroutines; the mutex keeps terrain mutation strictly
// serialized, matching the single-writer tick model.
type Service struct {
	mu      sync.Mutex
	terrain *Terrain
	tn      tuning.Tuning
	index   *indexdb.SQLiteIndex
	log     *log.Logger
	now     func() time.Time
}

// NewService wraps a terrain. index may be nil when no persistence index is
// configured.
func NewService(t *Terrain, tn tuning.Tuning, index *indexdb.SQLiteIndex, logger *log.Logger) *Service {
	return &Service{
		terrain: t,
		tn:      tn,
		index:   index,
		log:     logger,
		now:     time.Now,
	}
}

// Welcome builds the handshake reply for a fresh session.
func (s *Service) Welcome(sessionID string) protocol.WelcomeMsg {
	s.mu.Lock()
	defer s.mu.Unlock()

	hf := s.terrain.HeightField()
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		TerrainID:       s.terrain.ID,
		Grid: protocol.GridRef{
			Rows:     hf.Rows,
			Columns:  hf.Columns,
			CellSize: hf.CellSize,
		},
		Signature: hf.Signature(),
	}
	if hf.Generation != nil {
		gp := genToWire(*hf.Generation)
		msg.Generation = &gp
	}
	return msg
}

// HandleAct applies one editor operation and reports the outcome. Only
// protocol-level failures produce ok=false; degenerate geometry follows the
// sim conventions (no-op results, never errors).
func (s *Service) HandleAct(sessionID string, act protocol.ActMsg) protocol.ResultMsg {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              act.ID,
		Op:              act.Op,
		OK:              true,
	}
	fail := func(code, msg string) protocol.ResultMsg {
		res.OK = false
		res.Code = code
		res.Message = msg
		return res
	}

	switch act.Op {
	case protocol.OpGenerate:
		if act.Generation == nil {
			return fail(protocol.ErrBadRequest, "missing generation payload")
		}
		applied := s.terrain.ApplyGroundGeneration(genFromWire(*act.Generation))
		gp := genToWire(applied)
		res.Generation = &gp
		res.Signature = s.terrain.HeightField().Signature()

	case protocol.OpSculpt:
		if act.Brush == nil {
			return fail(protocol.ErrBadRequest, "missing brush payload")
		}
		brush := brushFromWire(*act.Brush)
		changed := s.terrain.SculptGround(brush)
		res.Changed = &changed
		res.Signature = s.terrain.HeightField().Signature()
		if s.index != nil {
			s.index.RecordEdit(indexdb.EditEntry{
				TerrainID: s.terrain.ID,
				Op:        brush.Op,
				Shape:     brush.Shape,
				CenterX:   brush.CenterX,
				CenterZ:   brush.CenterZ,
				Radius:    brush.Radius,
				Strength:  brush.Strength,
				Changed:   changed,
			})
		}

	case protocol.OpUpdateChunks:
		if act.View == nil {
			return fail(protocol.ErrBadRequest, "missing view payload")
		}
		p := act.View.Position
		s.terrain.UpdateChunks(mgl64.Vec3{p[0], p[1], p[2]}, act.View.Radius)

	case protocol.OpEnsureChunks:
		s.terrain.EnsureAllChunks()

	case protocol.OpBuildRoad:
		if act.Road == nil {
			return fail(protocol.ErrBadRequest, "missing road payload")
		}
		g := graphFromWire(*act.Road)
		built, rebuilt := s.terrain.BuildRoadCollisionTiles(act.Road.ID, g, s.tn.Road)
		res.Changed = &rebuilt
		res.Signature = built.Signature
		res.Bodies = len(built.Bodies)
		res.Tiles = len(built.Tiles)

	case protocol.OpRemoveRoad:
		if act.Road == nil || act.Road.ID == "" {
			return fail(protocol.ErrBadRequest, "missing road id")
		}
		if s.terrain.RoadSignature(act.Road.ID) == "" {
			return fail(protocol.ErrRoadNotFound, fmt.Sprintf("road %q unknown", act.Road.ID))
		}
		s.terrain.RemoveRoad(act.Road.ID)

	case protocol.OpSnapshot:
		path, err := s.writeSnapshot()
		if err != nil {
			if s.log != nil {
				s.log.Printf("snapshot failed: %v", err)
			}
			return fail(protocol.ErrInternal, "snapshot failed")
		}
		res.Message = path
		res.Signature = s.terrain.HeightField().Signature()

	default:
		return fail(protocol.ErrUnknownOp, fmt.Sprintf("unknown op %q", act.Op))
	}
	return res
}

// writeSnapshot persists the current height field under the tuned snapshot
// directory and indexes it. Caller holds the mutex.
func (s *Service) writeSnapshot() (string, error) {
	hf := s.terrain.HeightField()
	baked := s.now().Unix()
	snap := snapshot.Export(s.terrain.ID, baked, hf)
	path := filepath.Join(s.tn.SnapshotDir, fmt.Sprintf("%s-%d.snap", s.terrain.ID, baked))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if s.index != nil {
		s.index.RecordSnapshot(path, snap, hf.Signature())
	}
	return path, nil
}

func genFromWire(g protocol.GenParams) ground.Settings {
	return ground.Settings{
		Seed:            g.Seed,
		Mode:            g.Mode,
		NoiseScale:      g.NoiseScale,
		NoiseAmplitude:  g.NoiseAmplitude,
		NoiseStrength:   g.NoiseStrength,
		DetailScale:     g.DetailScale,
		DetailAmplitude: g.DetailAmplitude,
		EdgeFalloff:     g.EdgeFalloff,
	}
}

func genToWire(s ground.Settings) protocol.GenParams {
	return protocol.GenParams{
		Seed:            s.Seed,
		Mode:            s.Mode,
		NoiseScale:      s.NoiseScale,
		NoiseAmplitude:  s.NoiseAmplitude,
		NoiseStrength:   s.NoiseStrength,
		DetailScale:     s.DetailScale,
		DetailAmplitude: s.DetailAmplitude,
		EdgeFalloff:     s.EdgeFalloff,
	}
}

func brushFromWire(b protocol.BrushParams) ground.Brush {
	return ground.Brush{
		CenterX:  b.CenterX,
		CenterZ:  b.CenterZ,
		Radius:   b.Radius,
		Strength: b.Strength,
		Shape:    b.Shape,
		Op:       b.Op,
		Target:   b.Target,
	}
}

func graphFromWire(p protocol.RoadPayload) *road.Graph {
	verts := make([]*road.Point, len(p.Vertices))
	for i, v := range p.Vertices {
		verts[i] = &road.Point{X: v[0], Z: v[1]}
	}
	return road.NewGraph(verts, p.Segments)
}
