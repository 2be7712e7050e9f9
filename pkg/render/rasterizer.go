package render

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/scene"
)

// lineDepthBias lets wireframe decoration win against the surface it
// was modelled on. Units are world units along the view axis.
const lineDepthBias = 2.0

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y  float64 // Screen coordinates
	W     float64 // View depth, used for the depth buffer
	Color scene.Color
}

// Rasterizer handles software triangle and line rasterization.
type Rasterizer struct {
	camera  *Camera
	fb      *Framebuffer
	zbuffer []float64 // Depth buffer (1D array, row-major)
	frustum Frustum
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{camera: camera, fb: fb}
	r.Resize()
	return r
}

// Resize resizes the depth buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	if n := r.fb.Width * r.fb.Height; len(r.zbuffer) != n {
		r.zbuffer = make([]float64, n)
	}
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// UpdateFrustum recalculates the frustum planes from the camera.
func (r *Rasterizer) UpdateFrustum() {
	r.frustum = FrustumOf(r.camera.ViewProjectionMatrix())
}

// IsVisible tests if a world-space AABB is visible in the frustum.
func (r *Rasterizer) IsVisible(worldBounds AABB) bool {
	return r.frustum.Intersects(worldBounds)
}

func (r *Rasterizer) depthAt(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return -math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

func (r *Rasterizer) setDepth(x, y int, z float64) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return
	}
	r.zbuffer[y*r.Width()+x] = z
}

// project maps a world point to screen space. Points at or behind the
// near plane are rejected rather than clipped.
func (r *Rasterizer) project(p math3d.Vec3, c scene.Color) (screenVertex, bool) {
	clip := r.camera.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(p, 1))
	if clip.W < r.camera.Near {
		return screenVertex{}, false
	}
	return screenVertex{
		X:     (clip.X/clip.W + 1) * 0.5 * float64(r.Width()),
		Y:     (1 - clip.Y/clip.W) * 0.5 * float64(r.Height()),
		W:     clip.W,
		Color: c,
	}, true
}

// DrawTriangle rasterizes a Gouraud-shaded triangle. With cullBack set,
// triangles wound clockwise on screen (back faces in glTF winding) are
// skipped.
func (r *Rasterizer) DrawTriangle(sv [3]screenVertex, alpha float64, depthWrite, cullBack bool) bool {
	cross := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if math.Abs(cross) < 1e-12 {
		return false
	}
	if cullBack && cross > 0 {
		return false
	}

	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	drawn := false
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			bc := barycentric(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			z := bc.X*sv[0].W + bc.Y*sv[1].W + bc.Z*sv[2].W
			if z >= r.depthAt(x, y) {
				continue
			}

			c := interpolateColor3(sv[0].Color, sv[1].Color, sv[2].Color, bc)
			if depthWrite {
				r.setDepth(x, y, z)
			}
			r.fb.BlendPixel(x, y, c.RGBA(1), alpha)
			drawn = true
		}
	}
	return drawn
}

// DrawLine draws a depth-tested segment with Bresenham's algorithm.
func (r *Rasterizer) DrawLine(a, b screenVertex, alpha float64, depthWrite bool) {
	x0, y0 := int(math.Floor(a.X)), int(math.Floor(a.Y))
	x1, y1 := int(math.Floor(b.X)), int(math.Floor(b.Y))
	c := a.Color.RGBA(1)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	steps := max(dx, -dy)
	err := dx + dy

	for i := 0; ; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		z := a.W + (b.W-a.W)*t - lineDepthBias
		if z < r.depthAt(x0, y0) {
			if depthWrite {
				r.setDepth(x0, y0, z)
			}
			r.fb.BlendPixel(x0, y0, c, alpha)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

// interpolateColor3 interpolates between 3 colors using barycentric coords.
func interpolateColor3(c0, c1, c2 scene.Color, bc math3d.Vec3) scene.Color {
	return c0.Scale(bc.X).Add(c1.Scale(bc.Y)).Add(c2.Scale(bc.Z))
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
