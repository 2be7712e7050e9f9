// Package picking casts rays from the camera into the scene graph.
package picking

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/render"
)

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
}

// FromCamera builds the pick ray through a point in normalized device
// coordinates.
func FromCamera(cam *render.Camera, ndc math3d.Vec2) Ray {
	origin, dir := cam.Ray(ndc)
	return Ray{Origin: origin, Direction: dir}
}

// At returns the point at parameter t.
func (r Ray) At(t float64) math3d.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectAABB tests the ray against a box with the slab method.
// It returns the entry distance, or the exit distance when the origin
// is inside the box.
func (r Ray) IntersectAABB(box render.AABB) (float64, bool) {
	tmin, tmax := -math.MaxFloat64, math.MaxFloat64
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := range 3 {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle is the Möller-Trumbore test. Both faces count as hits.
func (r Ray) IntersectTriangle(a, b, c math3d.Vec3) (float64, bool) {
	const eps = 1e-9
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < eps {
		return 0, false
	}
	return t, true
}
