// Package noise provides the seeded pseudo-random streams used by ground
// generation and sculpting. All generators are pure functions of their seed
// and call/query pattern; internal caches are append-only memoization.
package noise

import "math"

// Seeded is a Park-Miller linear congruential generator over 31-bit state.
// The same seed always replays the same float stream.
type Seeded struct {
	state int64
}

func NewSeeded(seed int64) *Seeded {
	s := seed % 2147483646
	if s <= 0 {
		s += 2147483645
	}
	return &Seeded{state: s}
}

// Float returns the next value in [0,1).
func (s *Seeded) Float() float64 {
	s.state = s.state * 16807 % 2147483647
	return float64(s.state-1) / 2147483646
}

// Perlin is classic 3D gradient noise with a seed-shuffled permutation table.
type Perlin struct {
	perm [512]int
}

func NewPerlin(seed int64) *Perlin {
	p := &Perlin{}

	var base [256]int
	for i := range base {
		base[i] = i
	}

	// Fisher-Yates with the seeded stream so equal seeds yield equal tables.
	rng := NewSeeded(seed)
	for i := 255; i > 0; i-- {
		j := int(rng.Float() * float64(i+1))
		base[i], base[j] = base[j], base[i]
	}

	// Duplicate to avoid index wraparound in Sample.
	for i := 0; i < 256; i++ {
		p.perm[i] = base[i]
		p.perm[i+256] = base[i]
	}
	return p
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		if h == 12 || h == 14 {
			v = x
		} else {
			v = z
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}

// Sample returns gradient noise at (x,y,z), roughly in [-1,1].
func (p *Perlin) Sample(x, y, z float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	zi := int(math.Floor(z)) & 255

	xf := x - math.Floor(x)
	yf := y - math.Floor(y)
	zf := z - math.Floor(z)

	u := fade(xf)
	v := fade(yf)
	w := fade(zf)

	aaa := p.perm[p.perm[p.perm[xi]+yi]+zi]
	aba := p.perm[p.perm[p.perm[xi]+yi+1]+zi]
	aab := p.perm[p.perm[p.perm[xi]+yi]+zi+1]
	abb := p.perm[p.perm[p.perm[xi]+yi+1]+zi+1]
	baa := p.perm[p.perm[p.perm[xi+1]+yi]+zi]
	bba := p.perm[p.perm[p.perm[xi+1]+yi+1]+zi]
	bab := p.perm[p.perm[p.perm[xi+1]+yi]+zi+1]
	bbb := p.perm[p.perm[p.perm[xi+1]+yi+1]+zi+1]

	x1 := lerp(u, grad(aaa, xf, yf, zf), grad(baa, xf-1, yf, zf))
	x2 := lerp(u, grad(aba, xf, yf-1, zf), grad(bba, xf-1, yf-1, zf))
	y1 := lerp(v, x1, x2)

	x1 = lerp(u, grad(aab, xf, yf, zf-1), grad(bab, xf-1, yf, zf-1))
	x2 = lerp(u, grad(abb, xf, yf-1, zf-1), grad(bbb, xf-1, yf-1, zf-1))
	y2 := lerp(v, x1, x2)

	return lerp(w, y1, y2)
}

// Voronoi is inverted first-order Worley noise over a jittered point lattice.
// Feature points are a pure function of (seed, cell); the cache only memoizes.
type Voronoi struct {
	seed   int64
	points map[[2]int][2]float64
}

func NewVoronoi(seed int64) *Voronoi {
	return &Voronoi{
		seed:   seed,
		points: make(map[[2]int][2]float64),
	}
}

func (v *Voronoi) featurePoint(cx, cz int) [2]float64 {
	key := [2]int{cx, cz}
	if pt, ok := v.points[key]; ok {
		return pt
	}
	h := hash2(v.seed, cx, cz)
	jx := float64(h&0xFFFF) / 0x10000
	jz := float64((h>>16)&0xFFFF) / 0x10000
	pt := [2]float64{float64(cx) + jx, float64(cz) + jz}
	v.points[key] = pt
	return pt
}

// Sample returns 1 - clamp(distance to nearest feature point, 0, 1).
func (v *Voronoi) Sample(x, z float64) float64 {
	cx := int(math.Floor(x))
	cz := int(math.Floor(z))

	minDist := math.MaxFloat64
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			pt := v.featurePoint(cx+dx, cz+dz)
			ddx := x - pt[0]
			ddz := z - pt[1]
			d := math.Sqrt(ddx*ddx + ddz*ddz)
			if d < minDist {
				minDist = d
			}
		}
	}

	if minDist < 0 {
		minDist = 0
	}
	if minDist > 1 {
		minDist = 1
	}
	return 1 - minDist
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}
