package road

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"groundforge/internal/sim/physics"
)

// Tuning controls road collider generation. Zero values are replaced by
// Normalize; load it from configuration or start from DefaultTuning.
type Tuning struct {
	Width             float64 `yaml:"width" json:"width"`
	JunctionSmoothing float64 `yaml:"junction_smoothing" json:"junctionSmoothing"`
	SamplingDensity   float64 `yaml:"sampling_density" json:"samplingDensity"`
	SmoothingStrength float64 `yaml:"smoothing_strength" json:"smoothingStrength"`
	MinClearance      float64 `yaml:"min_clearance" json:"minClearance"`
	SurfaceOffset     float64 `yaml:"surface_offset" json:"surfaceOffset"`
	MinDeltaY         float64 `yaml:"min_delta_y" json:"minDeltaY"`
	MaxGrade          float64 `yaml:"max_grade" json:"maxGrade"`
	TileLength        float64 `yaml:"tile_length" json:"tileLength"`
	BendThresholdDeg  float64 `yaml:"bend_threshold_deg" json:"bendThresholdDeg"`
	ThinThickness     float64 `yaml:"thin_thickness" json:"thinThickness"`
	ElementSize       float64 `yaml:"element_size" json:"elementSize"`
	MaxBodies         int     `yaml:"max_bodies" json:"maxBodies"`
}

// DefaultTuning returns the stock road collider parameters.
func DefaultTuning() Tuning {
	return Tuning{
		Width:             2,
		JunctionSmoothing: 0.5,
		SamplingDensity:   1,
		SmoothingStrength: 1,
		MinClearance:      0.05,
		SurfaceOffset:     0.02,
		MinDeltaY:         0.01,
		MaxGrade:          0.6,
		TileLength:        6,
		BendThresholdDeg:  10,
		ThinThickness:     0.1,
		ElementSize:       1,
		MaxBodies:         256,
	}
}

// Normalize replaces non-finite or out-of-range fields with defaults.
func (t Tuning) Normalize() Tuning {
	def := DefaultTuning()
	fix := func(v, fallback float64) float64 {
		if !isFinite(v) || v <= 0 {
			return fallback
		}
		return v
	}
	t.Width = fix(t.Width, def.Width)
	t.SamplingDensity = fix(t.SamplingDensity, def.SamplingDensity)
	t.SmoothingStrength = fix(t.SmoothingStrength, def.SmoothingStrength)
	t.TileLength = fix(t.TileLength, def.TileLength)
	t.BendThresholdDeg = fix(t.BendThresholdDeg, def.BendThresholdDeg)
	t.ThinThickness = fix(t.ThinThickness, def.ThinThickness)
	t.ElementSize = fix(t.ElementSize, def.ElementSize)
	t.MaxGrade = fix(t.MaxGrade, def.MaxGrade)
	if !isFinite(t.JunctionSmoothing) || t.JunctionSmoothing < 0 {
		t.JunctionSmoothing = def.JunctionSmoothing
	}
	if t.JunctionSmoothing > 1 {
		t.JunctionSmoothing = 1
	}
	if !isFinite(t.MinClearance) || t.MinClearance < 0 {
		t.MinClearance = def.MinClearance
	}
	if !isFinite(t.SurfaceOffset) || t.SurfaceOffset < 0 {
		t.SurfaceOffset = def.SurfaceOffset
	}
	if !isFinite(t.MinDeltaY) || t.MinDeltaY <= 0 {
		t.MinDeltaY = def.MinDeltaY
	}
	if t.MaxBodies <= 0 {
		t.MaxBodies = def.MaxBodies
	}
	return t
}

const (
	// Tiles straighter and flatter than these thresholds become thin
	// boxes instead of heightfields.
	boxMaxHeadingDeg  = 2.0
	boxMaxHeightRange = 0.02
	maxTileSplitDepth = 6
	roadBodyFriction  = 0.9
)

// Tile is one emitted collider span along a road curve.
type Tile struct {
	Shape       physics.Shape
	Transform   physics.Transform
	StartS      float64
	EndS        float64
	StartHeight float64
	EndHeight   float64
}

// Result carries the bodies created for one road graph plus the signature
// callers diff to skip regeneration.
type Result struct {
	Signature string
	Bodies    []*physics.Body
	Tiles     []Tile
}

// Builder turns a road graph into collision tiles registered with a
// physics world.
type Builder struct {
	world physics.World
	log   *log.Logger
}

func NewBuilder(world physics.World, logger *log.Logger) *Builder {
	return &Builder{world: world, log: logger}
}

// Build extracts paths from g, smooths them, samples clearance envelopes
// against sampler and emits box or heightfield colliders. groundSig is the
// terrain's content signature, folded into the result signature so ground
// edits invalidate road tiles. Stops early at the body budget and returns
// what was produced.
func (b *Builder) Build(roadID string, g *Graph, sampler HeightSampler, groundSig string, tn Tuning) Result {
	tn = tn.Normalize()
	res := Result{}
	heightHash := uint32(2166136261)

	if g == nil || g.Segments() == 0 {
		res.Signature = b.signature(roadID, g, tn, 0, heightHash, groundSig)
		return res
	}

	for _, path := range g.Paths() {
		if len(res.Bodies) >= tn.MaxBodies {
			b.warnf("road %s: body budget %d reached, leaving remaining paths unbuilt", roadID, tn.MaxBodies)
			break
		}
		curve := BuildCurve(g, path, tn.JunctionSmoothing)
		if curve == nil {
			b.warnf("road %s: degenerate path skipped", roadID)
			continue
		}
		env := BuildEnvelope(curve, sampler, tn)
		if env == nil {
			continue
		}
		for _, v := range env.Smoothed {
			heightHash = heightHash*31 + uint32(int32(math.Round(v*1000)))
		}
		b.tilePath(roadID, curve, env, tn, &res)
	}

	res.Signature = b.signature(roadID, g, tn, len(res.Bodies), heightHash, groundSig)
	return res
}

func (b *Builder) tilePath(roadID string, c *Curve, env *Envelope, tn Tuning, res *Result) {
	length := c.Length()
	for s0 := 0.0; s0 < length-1e-9; s0 += tn.TileLength {
		s1 := math.Min(s0+tn.TileLength, length)
		if !b.emitSpan(roadID, c, env, tn, s0, s1, 0, res) {
			return
		}
	}
}

// emitSpan emits colliders for [s0,s1], recursively halving while the
// heading change exceeds the bend threshold. Returns false once the body
// budget is exhausted.
func (b *Builder) emitSpan(roadID string, c *Curve, env *Envelope, tn Tuning, s0, s1 float64, depth int, res *Result) bool {
	if len(res.Bodies) >= tn.MaxBodies {
		return false
	}
	heading := spanHeading(c, s0, s1)
	bend := tn.BendThresholdDeg * math.Pi / 180
	if heading > bend && depth < maxTileSplitDepth && s1-s0 > tn.ElementSize {
		mid := (s0 + s1) / 2
		return b.emitSpan(roadID, c, env, tn, s0, mid, depth+1, res) &&
			b.emitSpan(roadID, c, env, tn, mid, s1, depth+1, res)
	}

	lo, hi := env.RangeOver(s0, s1)
	tile := Tile{
		StartS:      s0,
		EndS:        s1,
		StartHeight: env.HeightAt(s0),
		EndHeight:   env.HeightAt(s1),
	}

	mid := (s0 + s1) / 2
	p := c.PointAt(mid)
	yaw := headingYaw(c.TangentAt(mid))

	if heading <= boxMaxHeadingDeg*math.Pi/180 && hi-lo <= boxMaxHeightRange {
		avg := (lo + hi) / 2
		tile.Shape = physics.NewBox(mgl64.Vec3{tn.Width / 2, tn.ThinThickness / 2, (s1 - s0) / 2})
		tile.Transform = physics.YawTransform(mgl64.Vec3{p[0], avg - tn.ThinThickness/2, p[1]}, yaw)
	} else {
		matrix := envelopeMatrix(c, env, tn, s0, s1)
		tile.Shape = physics.NewHeightfield(matrix, tn.ElementSize)
		tile.Transform = physics.YawTransform(mgl64.Vec3{p[0], 0, p[1]}, yaw)
	}

	if b.world == nil {
		res.Tiles = append(res.Tiles, tile)
		return true
	}
	node := physics.NodeRef(fmt.Sprintf("%s/tile%d", roadID, len(res.Tiles)))
	body := b.world.CreateBody(node, physics.BodyConfig{Friction: roadBodyFriction, Static: true}, tile.Shape, tile.Transform)
	if body == nil {
		b.warnf("road %s: physics world rejected tile at s=%.2f, skipped", roadID, s0)
		res.Tiles = append(res.Tiles, tile)
		return true
	}
	res.Bodies = append(res.Bodies, body)
	res.Tiles = append(res.Tiles, tile)
	return true
}

// envelopeMatrix samples the smoothed envelope across the tile footprint:
// rows along the curve, three columns across the width. Heights are
// constant across a row since the envelope already folds the lateral
// samples in.
func envelopeMatrix(c *Curve, env *Envelope, tn Tuning, s0, s1 float64) [][]float64 {
	rows := int(math.Round((s1-s0)/tn.ElementSize)) + 1
	if rows < 2 {
		rows = 2
	}
	const cols = 3
	matrix := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		s := s0 + (s1-s0)*float64(r)/float64(rows-1)
		h := env.HeightAt(s)
		row := make([]float64, cols)
		for cIdx := 0; cIdx < cols; cIdx++ {
			row[cIdx] = h
		}
		matrix[r] = row
	}
	return matrix
}

// spanHeading is the largest tangent deviation across a span, measured
// against the start tangent at the midpoint and the end.
func spanHeading(c *Curve, s0, s1 float64) float64 {
	t0 := c.TangentAt(s0)
	d1 := turnAngle(t0, c.TangentAt((s0+s1)/2))
	d2 := turnAngle(t0, c.TangentAt(s1))
	return math.Max(d1, d2)
}

func headingYaw(t mgl64.Vec2) float64 {
	return math.Atan2(t[0], t[1])
}

func perp(t mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-t[1], t[0]}
}

// InputSignature folds everything Build reads: the graph fingerprint, the
// tuning and the ground signature. Callers cache it and skip Build when it
// has not moved; equal inputs produce identical tiles.
func InputSignature(roadID string, g *Graph, tn Tuning, groundSig string) string {
	tn = tn.Normalize()
	fp := uint32(0)
	verts, segs := 0, 0
	if g != nil {
		fp = g.Fingerprint()
		verts = len(g.Vertices)
		segs = g.Segments()
	}
	return fmt.Sprintf("roadin:%s|v%d|s%d|f%08x|w%g|j%g|d%g|m%g|c%g|o%g|y%g|g%g|t%g|b%g|e%g|x%d|%s",
		roadID, verts, segs, fp,
		tn.Width, tn.JunctionSmoothing, tn.SamplingDensity, tn.SmoothingStrength,
		tn.MinClearance, tn.SurfaceOffset, tn.MinDeltaY, tn.MaxGrade,
		tn.TileLength, tn.BendThresholdDeg, tn.ElementSize, tn.MaxBodies,
		groundSig)
}

func (b *Builder) signature(roadID string, g *Graph, tn Tuning, bodies int, heightHash uint32, groundSig string) string {
	verts, segs := 0, 0
	if g != nil {
		verts = len(g.Vertices)
		segs = g.Segments()
	}
	return fmt.Sprintf("road:%s|v%d|s%d|w%g|j%g|d%g|m%g|c%g|o%g|y%g|g%g|t%g|b%g|e%g|n%d|h%08x|%s",
		roadID, verts, segs,
		tn.Width, tn.JunctionSmoothing, tn.SamplingDensity, tn.SmoothingStrength,
		tn.MinClearance, tn.SurfaceOffset, tn.MinDeltaY, tn.MaxGrade,
		tn.TileLength, tn.BendThresholdDeg, tn.ElementSize,
		bodies, heightHash, groundSig)
}

func (b *Builder) warnf(format string, args ...interface{}) {
	if b.log != nil {
		b.log.Printf("WARN "+format, args...)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
