package road

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Corner cuts never consume more than this share of the shorter
	// adjoining segment; tighter for near-reversals to keep the bezier
	// inside sane bounds.
	maxCutRatio         = 0.49
	maxCutRatioReversal = 0.25

	// Below this turn angle a joint stays exactly straight.
	straightJointDeg = 5.0
	// Above this turn angle a corner counts as a near-reversal.
	reversalDeg = 150.0

	bezierSubdivisions = 8
)

// Curve is an arc-length parameterized polyline flattened from a smoothed
// path. Corners smoothed with a non-zero cut contribute quadratic bezier
// spans through the original vertex.
type Curve struct {
	pts     []mgl64.Vec2
	cum     []float64 // cumulative length, cum[0]=0
	Closed  bool
	Corners int // number of bezier-smoothed corners
}

// BuildCurve converts one path into a continuous curve. smoothing in [0,1]
// scales the corner-cut distance. Two-point paths degrade to a straight
// segment regardless of smoothing. Returns nil for degenerate input
// (fewer than 2 usable vertices, zero-length geometry).
func BuildCurve(g *Graph, p Path, smoothing float64) *Curve {
	verts := make([]mgl64.Vec2, 0, len(p.Indices))
	for _, idx := range p.Indices {
		if idx < 0 || idx >= len(g.Vertices) || g.Vertices[idx] == nil {
			continue
		}
		pt := g.Vertices[idx]
		v := mgl64.Vec2{pt.X, pt.Z}
		if n := len(verts); n > 0 && verts[n-1].Sub(v).Len() < 1e-9 {
			continue // collapse zero-length segments
		}
		verts = append(verts, v)
	}
	if len(verts) < 2 {
		return nil
	}
	if !(smoothing >= 0) {
		smoothing = 0
	}
	if smoothing > 1 {
		smoothing = 1
	}

	c := &Curve{Closed: p.Closed}
	if len(verts) == 2 && !p.Closed {
		c.setPoints(verts)
		return c
	}

	var out []mgl64.Vec2
	appendPt := func(v mgl64.Vec2) {
		if n := len(out); n > 0 && out[n-1].Sub(v).Len() < 1e-9 {
			return
		}
		out = append(out, v)
	}

	n := len(verts)
	interiorFrom, interiorTo := 1, n-1
	if p.Closed {
		interiorFrom, interiorTo = 0, n
	} else {
		appendPt(verts[0])
	}

	for i := interiorFrom; i < interiorTo; i++ {
		v := verts[i]
		prev := verts[(i-1+n)%n]
		next := verts[(i+1)%n]

		inVec := v.Sub(prev)
		outVec := next.Sub(v)
		inLen := inVec.Len()
		outLen := outVec.Len()
		if inLen < 1e-9 || outLen < 1e-9 {
			appendPt(v)
			continue
		}

		turn := turnAngle(inVec, outVec)
		cut := 0.0
		if turn > straightJointDeg*math.Pi/180 && smoothing > 0 {
			ratio := maxCutRatio
			if turn > reversalDeg*math.Pi/180 {
				ratio = maxCutRatioReversal
			}
			minLen := math.Min(inLen, outLen)
			cut = math.Min(smoothing*minLen, ratio*minLen)
		}

		if cut <= 0 {
			appendPt(v)
			continue
		}

		entry := v.Sub(inVec.Mul(cut / inLen))
		exit := v.Add(outVec.Mul(cut / outLen))
		appendPt(entry)
		for k := 1; k < bezierSubdivisions; k++ {
			t := float64(k) / bezierSubdivisions
			appendPt(quadBezier(entry, v, exit, t))
		}
		appendPt(exit)
		c.Corners++
	}

	if !p.Closed {
		appendPt(verts[n-1])
	} else if len(out) > 1 && out[len(out)-1].Sub(out[0]).Len() >= 1e-9 {
		out = append(out, out[0]) // close the loop
	}

	if len(out) < 2 {
		return nil
	}
	c.setPoints(out)
	if c.Length() < 1e-9 {
		return nil
	}
	return c
}

func (c *Curve) setPoints(pts []mgl64.Vec2) {
	c.pts = pts
	c.cum = make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		c.cum[i] = c.cum[i-1] + pts[i].Sub(pts[i-1]).Len()
	}
}

// Length is the total arc length.
func (c *Curve) Length() float64 {
	if c == nil || len(c.cum) == 0 {
		return 0
	}
	return c.cum[len(c.cum)-1]
}

// PointAt returns the position at arc length s, clamped to the curve.
func (c *Curve) PointAt(s float64) mgl64.Vec2 {
	i, t := c.locate(s)
	return c.pts[i].Add(c.pts[i+1].Sub(c.pts[i]).Mul(t))
}

// TangentAt returns the unit direction at arc length s.
func (c *Curve) TangentAt(s float64) mgl64.Vec2 {
	i, _ := c.locate(s)
	d := c.pts[i+1].Sub(c.pts[i])
	l := d.Len()
	if l < 1e-12 {
		return mgl64.Vec2{1, 0}
	}
	return d.Mul(1 / l)
}

func (c *Curve) locate(s float64) (int, float64) {
	total := c.Length()
	if s <= 0 {
		return 0, 0
	}
	if s >= total {
		return len(c.pts) - 2, 1
	}
	lo, hi := 0, len(c.cum)-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if c.cum[mid] <= s {
			lo = mid
		} else {
			hi = mid
		}
	}
	seg := c.cum[lo+1] - c.cum[lo]
	if seg < 1e-12 {
		return lo, 0
	}
	return lo, (s - c.cum[lo]) / seg
}

func quadBezier(p0, ctrl, p2 mgl64.Vec2, t float64) mgl64.Vec2 {
	u := 1 - t
	return p0.Mul(u * u).Add(ctrl.Mul(2 * u * t)).Add(p2.Mul(t * t))
}

// turnAngle is the absolute heading change between two direction vectors,
// in radians, 0 for collinear continuation.
func turnAngle(a, b mgl64.Vec2) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	dot := a.Dot(b) / (la * lb)
	if dot > 1 {
		dot = 1
	}
	if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}
