// Package scene carries the read-only transform surface the terrain
// subsystem needs from its host: where the terrain entity and the viewpoint
// sit in world space. It performs no scene-graph management of its own.
package scene

import "github.com/go-gl/mathgl/mgl64"

// Transform is a world placement: translate, rotate, scale, applied in the
// usual S-then-R-then-T order.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

func (t Transform) scaleOr1() mgl64.Vec3 {
	s := t.Scale
	for i := 0; i < 3; i++ {
		if s[i] == 0 {
			s[i] = 1
		}
	}
	return s
}

// ToLocal converts a world-space point into this transform's local space.
func (t Transform) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	p := world.Sub(t.Position)
	p = t.Rotation.Inverse().Rotate(p)
	s := t.scaleOr1()
	return mgl64.Vec3{p.X() / s.X(), p.Y() / s.Y(), p.Z() / s.Z()}
}

// ToWorld converts a local-space point into world space.
func (t Transform) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	s := t.scaleOr1()
	p := mgl64.Vec3{local.X() * s.X(), local.Y() * s.Y(), local.Z() * s.Z()}
	p = t.Rotation.Rotate(p)
	return p.Add(t.Position)
}

// Provider exposes host transforms by node name; read-only.
type Provider interface {
	WorldTransform(node string) (Transform, bool)
}
