package road

import "math"

// HeightSampler reads terrain height at a local-space position.
type HeightSampler interface {
	HeightAt(x, z float64) float64
}

const (
	minEnvelopeDivisions = 4
	maxEnvelopeDivisions = 256
	divisionsPerUnit     = 8.0
	cornerMinDivisions   = 8
)

// Envelope holds clearance heights sampled along a curve at a fixed arc
// step. Raw is the direct terrain clearance, Smoothed the moving-average
// result after slope clamping. Both have Divisions+1 samples.
type Envelope struct {
	Raw       []float64
	Smoothed  []float64
	Step      float64
	Divisions int
}

// BuildEnvelope samples terrain clearance along c. Division count scales
// with curve length and the sampling density factor, with a minimum per
// smoothed corner so tight bends keep enough resolution.
func BuildEnvelope(c *Curve, sampler HeightSampler, tn Tuning) *Envelope {
	if c == nil || sampler == nil {
		return nil
	}
	length := c.Length()
	if length < 1e-9 {
		return nil
	}

	n := int(math.Ceil(length * divisionsPerUnit * tn.SamplingDensity))
	if n < minEnvelopeDivisions {
		n = minEnvelopeDivisions
	}
	if want := c.Corners * cornerMinDivisions; n < want {
		n = want
	}
	if n > maxEnvelopeDivisions {
		n = maxEnvelopeDivisions
	}

	env := &Envelope{
		Raw:       make([]float64, n+1),
		Smoothed:  make([]float64, n+1),
		Step:      length / float64(n),
		Divisions: n,
	}

	half := tn.Width / 2
	for i := 0; i <= n; i++ {
		s := float64(i) * env.Step
		p := c.PointAt(s)
		t := c.TangentAt(s)
		lat := perp(t)
		center := sampler.HeightAt(p[0], p[1])
		left := sampler.HeightAt(p[0]+lat[0]*half, p[1]+lat[1]*half)
		right := sampler.HeightAt(p[0]-lat[0]*half, p[1]-lat[1]*half)
		env.Raw[i] = math.Max(center, math.Max(left, right)) + tn.MinClearance + tn.SurfaceOffset
	}

	copy(env.Smoothed, env.Raw)
	env.smooth(tn)
	env.clampSlope(tn)
	return env
}

// smooth applies K passes of 3-point moving average, each pass floored at
// the raw envelope so smoothing never cuts into the clearance requirement.
func (e *Envelope) smooth(tn Tuning) {
	k := int(math.Round(float64(e.Divisions) / 12 * tn.SmoothingStrength))
	if k < 3 {
		k = 3
	}
	if k > 12 {
		k = 12
	}
	tmp := make([]float64, len(e.Smoothed))
	for pass := 0; pass < k; pass++ {
		copy(tmp, e.Smoothed)
		for i := 1; i < len(tmp)-1; i++ {
			avg := (tmp[i-1] + tmp[i] + tmp[i+1]) / 3
			if avg < e.Raw[i] {
				avg = e.Raw[i]
			}
			e.Smoothed[i] = avg
		}
	}
}

// clampSlope limits the height change between adjacent samples. Both
// passes only raise samples, so the raw floor established by smoothing
// is preserved.
func (e *Envelope) clampSlope(tn Tuning) {
	maxDy := math.Max(tn.MinDeltaY, e.Step*tn.MaxGrade)
	for i := 1; i < len(e.Smoothed); i++ {
		if low := e.Smoothed[i-1] - maxDy; e.Smoothed[i] < low {
			e.Smoothed[i] = low
		}
	}
	for i := len(e.Smoothed) - 2; i >= 0; i-- {
		if low := e.Smoothed[i+1] - maxDy; e.Smoothed[i] < low {
			e.Smoothed[i] = low
		}
	}
}

// HeightAt linearly interpolates the smoothed envelope at arc length s.
func (e *Envelope) HeightAt(s float64) float64 {
	if s <= 0 {
		return e.Smoothed[0]
	}
	f := s / e.Step
	i := int(f)
	if i >= e.Divisions {
		return e.Smoothed[e.Divisions]
	}
	t := f - float64(i)
	return e.Smoothed[i]*(1-t) + e.Smoothed[i+1]*t
}

// RangeOver reports the min and max smoothed height across [s0,s1].
func (e *Envelope) RangeOver(s0, s1 float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	i0 := int(math.Ceil(s0 / e.Step))
	i1 := int(math.Floor(s1 / e.Step))
	if i0 < 0 {
		i0 = 0
	}
	if i1 > e.Divisions {
		i1 = e.Divisions
	}
	for i := i0; i <= i1; i++ {
		v := e.Smoothed[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for _, v := range []float64{e.HeightAt(s0), e.HeightAt(s1)} {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
