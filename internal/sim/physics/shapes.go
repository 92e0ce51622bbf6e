// Package physics defines the collision shape descriptors this subsystem
// emits and the rigidbody-world collaborator it hands them to. It owns no
// bodies itself; creation failures mean "skip", never fatal.
package physics

import "github.com/go-gl/mathgl/mgl64"

type ShapeKind int

const (
	ShapeBox ShapeKind = iota + 1
	ShapeHeightfield
	ShapeSphere
	ShapeCylinder
	ShapeConvex
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeHeightfield:
		return "heightfield"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	case ShapeConvex:
		return "convex"
	default:
		return "unknown"
	}
}

// Shape is a tagged union; exactly the variant named by Kind is set.
// The terrain subsystem only produces Box and Heightfield.
type Shape struct {
	Kind ShapeKind

	Box         *Box
	Heightfield *Heightfield
	Sphere      *Sphere
	Cylinder    *Cylinder
	Convex      *Convex
}

type Box struct {
	HalfExtents mgl64.Vec3
}

// Heightfield is a row-major sample matrix with uniform element spacing.
type Heightfield struct {
	Matrix      [][]float64
	ElementSize float64
}

type Sphere struct {
	Radius float64
}

type Cylinder struct {
	RadiusTop    float64
	RadiusBottom float64
	Height       float64
	Segments     int
}

type Convex struct {
	Vertices []mgl64.Vec3
	Faces    [][]int
}

func NewBox(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, Box: &Box{HalfExtents: halfExtents}}
}

func NewHeightfield(matrix [][]float64, elementSize float64) Shape {
	return Shape{Kind: ShapeHeightfield, Heightfield: &Heightfield{Matrix: matrix, ElementSize: elementSize}}
}

// Transform places a body in world space.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// YawTransform is a placement rotated about the vertical axis.
func YawTransform(pos mgl64.Vec3, yaw float64) Transform {
	return Transform{Position: pos, Rotation: mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})}
}

// NodeRef names the scene node a body attaches to.
type NodeRef string

type BodyConfig struct {
	Mass     float64
	Friction float64
	Static   bool
}

// Body is an opaque handle returned by the collaborator.
type Body struct {
	Node      NodeRef
	Config    BodyConfig
	Shape     Shape
	Transform Transform
}

// World is the rigidbody collaborator. A nil return means the shape was
// rejected; callers skip that tile/chunk and continue.
type World interface {
	CreateBody(node NodeRef, cfg BodyConfig, shape Shape, transform Transform) *Body
	DestroyBody(b *Body)
}
