package physics

// MemWorld is an in-memory World used by tests and the bake tool. It records
// created bodies and enforces an optional body budget: past the budget every
// CreateBody returns nil, which callers treat as a skip.
type MemWorld struct {
	MaxBodies int
	Bodies    []*Body

	created   int
	destroyed int
}

func NewMemWorld(maxBodies int) *MemWorld {
	return &MemWorld{MaxBodies: maxBodies}
}

func (w *MemWorld) CreateBody(node NodeRef, cfg BodyConfig, shape Shape, transform Transform) *Body {
	if w == nil {
		return nil
	}
	if w.MaxBodies > 0 && len(w.Bodies) >= w.MaxBodies {
		return nil
	}
	b := &Body{Node: node, Config: cfg, Shape: shape, Transform: transform}
	w.Bodies = append(w.Bodies, b)
	w.created++
	return b
}

func (w *MemWorld) DestroyBody(b *Body) {
	if w == nil || b == nil {
		return
	}
	for i, it := range w.Bodies {
		if it == b {
			w.Bodies = append(w.Bodies[:i], w.Bodies[i+1:]...)
			w.destroyed++
			return
		}
	}
}

func (w *MemWorld) Created() int   { return w.created }
func (w *MemWorld) Destroyed() int { return w.destroyed }

// CountKind tallies live bodies by shape kind.
func (w *MemWorld) CountKind(kind ShapeKind) int {
	n := 0
	for _, b := range w.Bodies {
		if b.Shape.Kind == kind {
			n++
		}
	}
	return n
}
