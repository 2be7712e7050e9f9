package render

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// AABB is an axis-aligned box in world units.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates a box from its corners.
func NewAABB(min, max math3d.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Center returns the box centre.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Transform bounds the box after the affine transform m. The centre is
// mapped and the half extents are spread through |m|.
func (b AABB) Transform(m math3d.Mat4) AABB {
	c := m.MulVec3(b.Center())
	e := b.Max.Sub(b.Min).Scale(0.5)
	ext := math3d.V3(
		math.Abs(m[0])*e.X+math.Abs(m[4])*e.Y+math.Abs(m[8])*e.Z,
		math.Abs(m[1])*e.X+math.Abs(m[5])*e.Y+math.Abs(m[9])*e.Z,
		math.Abs(m[2])*e.X+math.Abs(m[6])*e.Y+math.Abs(m[10])*e.Z,
	)
	return AABB{Min: c.Sub(ext), Max: c.Add(ext)}
}

// Frustum holds the clip planes of a view-projection as left, right,
// bottom, top, near, far. Normals face inward and have unit length.
type Frustum [6]math3d.Vec4

// FrustumOf extracts the clip planes of viewProj (Gribb/Hartmann).
func FrustumOf(viewProj math3d.Mat4) Frustum {
	row := func(i int) math3d.Vec4 {
		return math3d.V4(viewProj[i], viewProj[i+4], viewProj[i+8], viewProj[i+12])
	}
	w := row(3)
	var f Frustum
	for axis := range 3 {
		r := row(axis)
		f[2*axis] = w.Add(r).NormalizePlane()
		f[2*axis+1] = w.Sub(r).NormalizePlane()
	}
	return f
}

// Intersects reports whether any part of box may be visible. For each
// plane only the corner furthest along the normal is tested.
func (f Frustum) Intersects(box AABB) bool {
	for _, p := range f {
		far := box.Min
		if p.X >= 0 {
			far.X = box.Max.X
		}
		if p.Y >= 0 {
			far.Y = box.Max.Y
		}
		if p.Z >= 0 {
			far.Z = box.Max.Z
		}
		if p.PlaneDistance(far) < 0 {
			return false
		}
	}
	return true
}
