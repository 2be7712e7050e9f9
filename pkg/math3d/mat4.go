package math3d

import "math"

// Mat4 is a 4x4 matrix stored in column-major order, matching glTF and
// OpenGL conventions.
//
// Memory layout (indices):
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// ScaleUniform creates a uniform scaling matrix.
func ScaleUniform(s float64) Mat4 {
	return Scale(V3(s, s, s))
}

// Rotate creates a rotation of angle radians around axis.
func Rotate(axis Vec3, angle float64) Mat4 {
	a := axis.Normalize().Scale(math.Sin(angle / 2))
	return FromQuat([4]float64{a.X, a.Y, a.Z, math.Cos(angle / 2)})
}

// FromQuat creates a rotation matrix from a unit quaternion in glTF
// order (x, y, z, w). A zero quaternion yields the identity.
func FromQuat(q [4]float64) Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	n := x*x + y*y + z*z + w*w
	if n == 0 {
		return Identity()
	}
	s := 2 / n
	xx, yy, zz := x*x*s, y*y*s, z*z*s
	xy, xz, yz := x*y*s, x*z*s, y*z*s
	wx, wy, wz := w*x*s, w*y*s, w*z*s

	return Mat4{
		1 - yy - zz, xy + wz, xz - wy, 0,
		xy - wz, 1 - xx - zz, yz + wx, 0,
		xz + wy, yz - wx, 1 - xx - yy, 0,
		0, 0, 0, 1,
	}
}

// Compose builds T * R * S, the local transform of a glTF node.
func Compose(t Vec3, q [4]float64, s Vec3) Mat4 {
	return Translate(t).Mul(FromQuat(q)).Mul(Scale(s))
}

// LookAt creates a view matrix looking from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective creates a perspective projection matrix.
// fovy is vertical field of view in radians, aspect is width/height.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Mul returns m * o, so o is applied first.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := range 4 {
		col := m.MulVec4(Vec4{o[c*4], o[c*4+1], o[c*4+2], o[c*4+3]})
		out[c*4], out[c*4+1], out[c*4+2], out[c*4+3] = col.X, col.Y, col.Z, col.W
	}
	return out
}

// MulVec3 transforms a Vec3 as a point (w=1).
func (m Mat4) MulVec3(v Vec3) Vec3 {
	w := m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]
	if w == 0 {
		w = 1
	}
	return Vec3{
		(m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]) / w,
		(m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]) / w,
		(m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]) / w,
	}
}

// MulVec3Dir transforms a Vec3 as a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// MulVec4 transforms a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// NormalMatrix returns the inverse transpose used to carry normals
// through non-uniform scale.
func (m Mat4) NormalMatrix() Mat4 {
	inv := m.Inverse()
	return Mat4{
		inv[0], inv[4], inv[8], 0,
		inv[1], inv[5], inv[9], 0,
		inv[2], inv[6], inv[10], 0,
		0, 0, 0, 1,
	}
}

// minors holds the 2x2 determinants of the first two and last two
// columns that both Determinant and Inverse expand from.
type minors struct {
	s [6]float64
	c [6]float64
}

func (m Mat4) minors() minors {
	var r minors
	r.s = [6]float64{
		m[0]*m[5] - m[4]*m[1],
		m[0]*m[6] - m[4]*m[2],
		m[0]*m[7] - m[4]*m[3],
		m[1]*m[6] - m[5]*m[2],
		m[1]*m[7] - m[5]*m[3],
		m[2]*m[7] - m[6]*m[3],
	}
	r.c = [6]float64{
		m[8]*m[13] - m[12]*m[9],
		m[8]*m[14] - m[12]*m[10],
		m[8]*m[15] - m[12]*m[11],
		m[9]*m[14] - m[13]*m[10],
		m[9]*m[15] - m[13]*m[11],
		m[10]*m[15] - m[14]*m[11],
	}
	return r
}

func (r minors) det() float64 {
	s, c := r.s, r.c
	return s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0]
}

// Determinant returns the determinant of the matrix.
func (m Mat4) Determinant() float64 {
	return m.minors().det()
}

// Inverse returns the inverse of the matrix, or the identity when the
// matrix is singular.
func (m Mat4) Inverse() Mat4 {
	r := m.minors()
	det := r.det()
	if det == 0 {
		return Identity()
	}
	s, c := r.s, r.c
	k := 1 / det

	return Mat4{
		(m[5]*c[5] - m[6]*c[4] + m[7]*c[3]) * k,
		(-m[1]*c[5] + m[2]*c[4] - m[3]*c[3]) * k,
		(m[13]*s[5] - m[14]*s[4] + m[15]*s[3]) * k,
		(-m[9]*s[5] + m[10]*s[4] - m[11]*s[3]) * k,

		(-m[4]*c[5] + m[6]*c[2] - m[7]*c[1]) * k,
		(m[0]*c[5] - m[2]*c[2] + m[3]*c[1]) * k,
		(-m[12]*s[5] + m[14]*s[2] - m[15]*s[1]) * k,
		(m[8]*s[5] - m[10]*s[2] + m[11]*s[1]) * k,

		(m[4]*c[4] - m[5]*c[2] + m[7]*c[0]) * k,
		(-m[0]*c[4] + m[1]*c[2] - m[3]*c[0]) * k,
		(m[12]*s[4] - m[13]*s[2] + m[15]*s[0]) * k,
		(-m[8]*s[4] + m[9]*s[2] - m[11]*s[0]) * k,

		(-m[4]*c[3] + m[5]*c[1] - m[6]*c[0]) * k,
		(m[0]*c[3] - m[1]*c[1] + m[2]*c[0]) * k,
		(-m[12]*s[3] + m[13]*s[1] - m[14]*s[0]) * k,
		(m[8]*s[3] - m[9]*s[1] + m[10]*s[0]) * k,
	}
}

// Translation extracts the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}
