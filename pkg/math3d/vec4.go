package math3d

import "math"

// Vec4 is a homogeneous point or a plane (X, Y, Z normal and W offset).
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// V4FromV3 extends v with w.
func V4FromV3(v Vec3, w float64) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// Vec3 drops W.
func (v Vec4) Vec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Add returns the component-wise sum.
func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{v.X + o.X, v.Y + o.Y, v.Z + o.Z, v.W + o.W}
}

// Sub returns the component-wise difference.
func (v Vec4) Sub(o Vec4) Vec4 {
	return Vec4{v.X - o.X, v.Y - o.Y, v.Z - o.Z, v.W - o.W}
}

// PerspectiveDivide returns the point after dividing by W. A zero W
// leaves the components as they are.
func (v Vec4) PerspectiveDivide() Vec3 {
	if v.W == 0 {
		return v.Vec3()
	}
	return Vec3{v.X / v.W, v.Y / v.W, v.Z / v.W}
}

// NormalizePlane scales the plane so its normal has unit length, making
// PlaneDistance a true distance.
func (v Vec4) NormalizePlane() Vec4 {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if l == 0 {
		return v
	}
	return Vec4{v.X / l, v.Y / l, v.Z / l, v.W / l}
}

// PlaneDistance is the signed distance of p from the plane, positive on
// the side the normal points to.
func (v Vec4) PlaneDistance(p Vec3) float64 {
	return v.X*p.X + v.Y*p.Y + v.Z*p.Z + v.W
}
