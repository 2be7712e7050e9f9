package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/scene"
)

// frontCamera looks down -Z at the origin from z=10 with +Y up, so
// counter-clockwise triangles in the XY plane face it.
func frontCamera(width, height int) *Camera {
	c := NewCamera()
	c.SetPosition(math3d.V3(0, 0, 10))
	c.SetUp(math3d.V3(0, 1, 0))
	c.LookAt(math3d.Zero3())
	c.FOV = math.Pi / 3
	c.SetAspectRatio(float64(width) / float64(height))
	return c
}

func createTestRasterizer(width, height int) (*Rasterizer, *Framebuffer) {
	fb := NewFramebuffer(width, height)
	r := NewRasterizer(frontCamera(width, height), fb)
	r.ClearDepth()
	r.UpdateFrustum()
	fb.Clear(color.RGBA{0, 0, 0, 255})
	return r, fb
}

func projectAll(t *testing.T, r *Rasterizer, c scene.Color, pts ...math3d.Vec3) [3]screenVertex {
	t.Helper()
	var sv [3]screenVertex
	for i, p := range pts {
		v, ok := r.project(p, c)
		if !ok {
			t.Fatalf("point %v rejected by projection", p)
		}
		sv[i] = v
	}
	return sv
}

func countLit(fb *Framebuffer) int {
	n := 0
	for _, p := range fb.Pixels {
		if p.R > 0 || p.G > 0 || p.B > 0 {
			n++
		}
	}
	return n
}

func TestBarycentric(t *testing.T) {
	tests := []struct {
		name     string
		px, py   float64
		expected math3d.Vec3
	}{
		{"vertex 0", 0, 0, math3d.V3(1, 0, 0)},
		{"vertex 1", 1, 0, math3d.V3(0, 1, 0)},
		{"vertex 2", 0, 1, math3d.V3(0, 0, 1)},
		{"centroid", 1.0 / 3, 1.0 / 3, math3d.V3(1.0/3, 1.0/3, 1.0/3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bc := barycentric(0, 0, 1, 0, 0, 1, tc.px, tc.py)
			if !bc.ApproxEqual(tc.expected, 0.001) {
				t.Errorf("barycentric(%v, %v) = %v, want %v", tc.px, tc.py, bc, tc.expected)
			}
		})
	}

	bc := barycentric(0, 0, 1, 0, 0, 1, -1, -1)
	if bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 {
		t.Error("point outside triangle should have a negative coordinate")
	}
}

func TestInterpolateColor3(t *testing.T) {
	red, green, blue := scene.Color{R: 1}, scene.Color{G: 1}, scene.Color{B: 1}
	got := interpolateColor3(red, green, blue, math3d.V3(0.5, 0.25, 0.25))
	want := scene.Color{R: 0.5, G: 0.25, B: 0.25}
	if math.Abs(got.R-want.R) > 1e-12 || math.Abs(got.G-want.G) > 1e-12 || math.Abs(got.B-want.B) > 1e-12 {
		t.Errorf("interpolateColor3 = %v, want %v", got, want)
	}
}

func TestDrawTriangleBackfaceCulling(t *testing.T) {
	ccw := []math3d.Vec3{math3d.V3(-3, -3, 0), math3d.V3(3, -3, 0), math3d.V3(0, 3, 0)}
	cw := []math3d.Vec3{ccw[0], ccw[2], ccw[1]}

	tests := []struct {
		name     string
		pts      []math3d.Vec3
		cullBack bool
		want     bool
	}{
		{"front face culled mode", ccw, true, true},
		{"back face culled mode", cw, true, false},
		{"back face double sided", cw, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb := createTestRasterizer(64, 64)
			sv := projectAll(t, r, scene.White, tc.pts...)
			got := r.DrawTriangle(sv, 1, true, tc.cullBack)
			if got != tc.want {
				t.Errorf("DrawTriangle drew = %v, want %v", got, tc.want)
			}
			if tc.want && countLit(fb) == 0 {
				t.Error("no pixels written")
			}
		})
	}
}

func TestDrawTriangleDepthOrder(t *testing.T) {
	near := []math3d.Vec3{math3d.V3(-3, -3, 1), math3d.V3(3, -3, 1), math3d.V3(0, 3, 1)}
	far := []math3d.Vec3{math3d.V3(-3, -3, -1), math3d.V3(3, -3, -1), math3d.V3(0, 3, -1)}
	red, blue := scene.Color{R: 1}, scene.Color{B: 1}

	for _, nearFirst := range []bool{true, false} {
		r, fb := createTestRasterizer(64, 64)
		a := projectAll(t, r, red, near...)
		b := projectAll(t, r, blue, far...)
		if nearFirst {
			r.DrawTriangle(a, 1, true, false)
			r.DrawTriangle(b, 1, true, false)
		} else {
			r.DrawTriangle(b, 1, true, false)
			r.DrawTriangle(a, 1, true, false)
		}
		if got := fb.GetPixel(32, 32); got.R != 255 || got.B != 0 {
			t.Errorf("nearFirst=%v: center pixel = %v, want red", nearFirst, got)
		}
	}
}

func TestDrawTriangleTransparentBlend(t *testing.T) {
	r, fb := createTestRasterizer(64, 64)
	fb.Clear(color.RGBA{255, 255, 255, 255})
	sv := projectAll(t, r, scene.Black, math3d.V3(-3, -3, 0), math3d.V3(3, -3, 0), math3d.V3(0, 3, 0))

	r.DrawTriangle(sv, 0.5, false, false)
	if got := fb.GetPixel(32, 32); got.R < 126 || got.R > 129 {
		t.Errorf("blended pixel = %v, want mid grey", got)
	}
	if r.depthAt(32, 32) != math.MaxFloat64 {
		t.Error("depth should not be written when depthWrite is false")
	}
}

func TestDrawLineRespectsDepth(t *testing.T) {
	r, fb := createTestRasterizer(64, 64)

	wall := projectAll(t, r, scene.White, math3d.V3(-5, -5, 2), math3d.V3(5, -5, 2), math3d.V3(0, 5, 2))
	r.DrawTriangle(wall, 1, true, false)

	a, _ := r.project(math3d.V3(-4, 0, -3), scene.Color{R: 1})
	b, _ := r.project(math3d.V3(4, 0, -3), scene.Color{R: 1})
	r.DrawLine(a, b, 1, true)
	if got := fb.GetPixel(32, 32); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("line behind wall leaked through: %v", got)
	}

	a, _ = r.project(math3d.V3(-1, 0, 5), scene.Color{R: 1})
	b, _ = r.project(math3d.V3(1, 0, 5), scene.Color{R: 1})
	r.DrawLine(a, b, 1, true)
	if got := fb.GetPixel(32, 32); got.G != 0 || got.R != 255 {
		t.Errorf("line in front of wall missing: %v", got)
	}
}

func TestProjectRejectsBehindCamera(t *testing.T) {
	r, _ := createTestRasterizer(32, 32)
	if _, ok := r.project(math3d.V3(0, 0, 20), scene.White); ok {
		t.Error("point behind the camera should be rejected")
	}
}

func TestRasterizerClearDepth(t *testing.T) {
	r, _ := createTestRasterizer(10, 10)
	r.setDepth(5, 5, 1)
	r.ClearDepth()
	for i, z := range r.zbuffer {
		if z != math.MaxFloat64 {
			t.Fatalf("zbuffer[%d] = %v after clear", i, z)
		}
	}
	if r.depthAt(-1, 0) != -math.MaxFloat64 {
		t.Error("out-of-bounds depth should reject every fragment")
	}
}

func BenchmarkDrawTriangle(b *testing.B) {
	fb := NewFramebuffer(200, 100)
	r := NewRasterizer(frontCamera(200, 100), fb)
	sv := [3]screenVertex{
		{X: 10, Y: 10, W: 5, Color: scene.White},
		{X: 190, Y: 20, W: 5, Color: scene.White},
		{X: 100, Y: 90, W: 5, Color: scene.White},
	}

	for b.Loop() {
		r.ClearDepth()
		r.DrawTriangle(sv, 1, true, false)
	}
}
