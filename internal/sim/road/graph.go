// Package road turns a road centerline graph plus a terrain height sampler
// into physics collider tiles that hug the ground. It is keyed off the road
// graph, not the terrain grid, and owns no physics bodies itself.
package road

import (
	"math"
	"sort"
)

// Point is a 2D centerline vertex in terrain-local coordinates.
type Point struct {
	X float64
	Z float64
}

// Graph is an undirected road centerline network. Vertices may be nil to
// tolerate malformed input; segments touching nil or out-of-range vertices
// are dropped during construction.
type Graph struct {
	Vertices  []*Point
	adjacency map[int][]int
	segments  int
}

func NewGraph(vertices []*Point, segments [][2]int) *Graph {
	g := &Graph{
		Vertices:  vertices,
		adjacency: make(map[int][]int),
	}
	seen := make(map[[2]int]struct{})
	for _, seg := range segments {
		a, b := seg[0], seg[1]
		if a == b {
			continue
		}
		if a < 0 || b < 0 || a >= len(vertices) || b >= len(vertices) {
			continue
		}
		if vertices[a] == nil || vertices[b] == nil {
			continue
		}
		key := edgeKey(a, b)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.adjacency[a] = append(g.adjacency[a], b)
		g.adjacency[b] = append(g.adjacency[b], a)
		g.segments++
	}
	for v := range g.adjacency {
		sort.Ints(g.adjacency[v])
	}
	return g
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Degree returns the number of distinct neighbors of a vertex.
func (g *Graph) Degree(v int) int {
	return len(g.adjacency[v])
}

// Segments returns the number of accepted centerline segments.
func (g *Graph) Segments() int {
	return g.segments
}

// Fingerprint folds vertex coordinates (millimeter resolution) and the
// edge set into a hash, so moved vertices or rewired segments change it.
func (g *Graph) Fingerprint() uint32 {
	h := uint32(2166136261)
	for _, p := range g.Vertices {
		if p == nil {
			h = h*31 + 7
			continue
		}
		h = h*31 + uint32(int32(math.Round(p.X*1000)))
		h = h*31 + uint32(int32(math.Round(p.Z*1000)))
	}
	for v := 0; v < len(g.Vertices); v++ {
		for _, n := range g.adjacency[v] {
			if n > v {
				h = (h*31+uint32(v))*31 + uint32(n)
			}
		}
	}
	return h
}

// Path is an ordered walk between junction/endpoint vertices, or a full
// loop for leftover pure cycles. Closed paths do not repeat the first index.
type Path struct {
	Indices []int
	Closed  bool
}

// Paths extracts every walk of the graph: starting from each vertex whose
// degree is not 2 (endpoint or junction), follow unvisited segments through
// degree-2 vertices until another such vertex or until closure. Segments
// left untouched afterwards form pure cycles, walked from any of their
// vertices. Deterministic: vertices and neighbors are visited in index
// order.
func (g *Graph) Paths() []Path {
	visited := make(map[[2]int]struct{})
	var paths []Path

	starts := make([]int, 0, len(g.adjacency))
	for v := range g.adjacency {
		starts = append(starts, v)
	}
	sort.Ints(starts)

	for _, v := range starts {
		if g.Degree(v) == 2 {
			continue
		}
		for _, w := range g.adjacency[v] {
			if _, done := visited[edgeKey(v, w)]; done {
				continue
			}
			paths = append(paths, g.walk(v, w, visited))
		}
	}

	// Pure cycles: every remaining vertex has degree 2.
	for _, v := range starts {
		for _, w := range g.adjacency[v] {
			if _, done := visited[edgeKey(v, w)]; done {
				continue
			}
			paths = append(paths, g.walk(v, w, visited))
		}
	}
	return paths
}

func (g *Graph) walk(start, next int, visited map[[2]int]struct{}) Path {
	indices := []int{start, next}
	visited[edgeKey(start, next)] = struct{}{}

	prev := start
	cur := next
	for cur != start && g.Degree(cur) == 2 {
		var step int
		found := false
		for _, n := range g.adjacency[cur] {
			if n != prev {
				step = n
				found = true
				break
			}
		}
		if !found {
			break
		}
		if _, done := visited[edgeKey(cur, step)]; done {
			break
		}
		visited[edgeKey(cur, step)] = struct{}{}
		prev = cur
		cur = step
		indices = append(indices, cur)
	}

	if cur == start {
		// Loop closed; drop the repeated start index.
		return Path{Indices: indices[:len(indices)-1], Closed: true}
	}
	return Path{Indices: indices}
}
