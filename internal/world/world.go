package world

import "fmt"

// Vec3i is an integer position in world units (tiles).
type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Add returns v + o.
func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Volume returns X*Y*Z.
func (v Vec3i) Volume() int {
	return v.X * v.Y * v.Z
}

// WorldToChunk floors each axis of p to a multiple of the chunk size.
// The result is the origin of the chunk containing p and is the key used
// by the resident set, the pending set and persistence.
func WorldToChunk(p, size Vec3i) Vec3i {
	return Vec3i{
		X: floorDiv(p.X, size.X) * size.X,
		Y: floorDiv(p.Y, size.Y) * size.Y,
		Z: floorDiv(p.Z, size.Z) * size.Z,
	}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// mod returns the non-negative remainder of a / b.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
