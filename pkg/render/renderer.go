package render

import (
	"sort"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/scene"
)

// Stats summarizes one rendered frame.
type Stats struct {
	NodesDrawn     int
	NodesCulled    int
	TrianglesDrawn int
	SegmentsDrawn  int
}

// Renderer draws a scene from a camera into its framebuffer.
type Renderer struct {
	fb       *Framebuffer
	rast     *Rasterizer
	disposed bool
}

// NewRenderer creates a renderer with a width x height pixel buffer.
func NewRenderer(width, height int) *Renderer {
	fb := NewFramebuffer(width, height)
	return &Renderer{fb: fb, rast: NewRasterizer(nil, fb)}
}

// SetSize resizes the pixel buffer, clamping to at least 1x1.
func (r *Renderer) SetSize(width, height int) {
	if r.disposed {
		return
	}
	r.fb.Resize(width, height)
	r.rast.Resize()
}

// Size returns the pixel dimensions.
func (r *Renderer) Size() (width, height int) {
	if r.disposed {
		return 0, 0
	}
	return r.fb.Width, r.fb.Height
}

// Framebuffer exposes the last rendered frame.
func (r *Renderer) Framebuffer() *Framebuffer {
	return r.fb
}

// Dispose releases the buffers. Later calls do nothing.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.fb = &Framebuffer{}
	r.rast = NewRasterizer(nil, nil)
}

// Disposed reports whether Dispose has run.
func (r *Renderer) Disposed() bool {
	return r.disposed
}

type drawItem struct {
	node  *scene.Node
	world math3d.Mat4
	depth float64
}

// Render draws opaque nodes in tree order, then transparent nodes from
// back to front.
func (r *Renderer) Render(s *scene.Scene, cam *Camera) Stats {
	var st Stats
	if r.disposed || s == nil || cam == nil {
		return st
	}

	r.rast.camera = cam
	r.fb.Clear(s.Background.RGBA(1))
	r.rast.ClearDepth()
	r.rast.UpdateFrustum()

	var opaque, transparent []drawItem
	s.Root.TraverseVisible(func(n *scene.Node) {
		if n.Kind == scene.KindGroup || n.Geometry == nil || n.Material == nil || n.Geometry.Mesh == nil {
			return
		}
		if n.Geometry.Disposed() || n.Material.Disposed() {
			return
		}
		world := n.WorldMatrix()
		mesh := n.Geometry.Mesh
		bounds := NewAABB(mesh.BoundsMin, mesh.BoundsMax).Transform(world)
		if !r.rast.IsVisible(bounds) {
			st.NodesCulled++
			return
		}
		item := drawItem{node: n, world: world, depth: cam.ViewDepth(bounds.Center())}
		if n.Material.Transparent {
			transparent = append(transparent, item)
		} else {
			opaque = append(opaque, item)
		}
	})

	sort.SliceStable(transparent, func(i, j int) bool {
		return transparent[i].depth > transparent[j].depth
	})

	for _, items := range [][]drawItem{opaque, transparent} {
		for _, it := range items {
			st.NodesDrawn++
			if it.node.Kind == scene.KindLines {
				st.SegmentsDrawn += r.drawLines(it)
			} else {
				st.TrianglesDrawn += r.drawMesh(s.Lights, cam, it)
			}
		}
	}
	return st
}

func alphaOf(m *scene.Material) float64 {
	if !m.Transparent {
		return 1
	}
	return m.Opacity
}

func (r *Renderer) drawMesh(lights scene.Lights, cam *Camera, it drawItem) int {
	g, m := it.node.Geometry, it.node.Material
	mesh := g.Mesh
	normalMat := it.world.NormalMatrix()

	sv := make([]screenVertex, len(mesh.Vertices))
	ok := make([]bool, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		wp := it.world.MulVec3(v.Position)
		view := cam.Position.Sub(wp).Normalize()
		n := normalMat.MulVec3Dir(v.Normal).Normalize()
		if m.Side == scene.DoubleSide && n.Dot(view) < 0 {
			n = n.Negate()
		}
		base := m.Color
		if m.VertexColors {
			base = base.Mul(g.VertexColor(i))
		}
		sv[i], ok[i] = r.rast.project(wp, lights.Shade(m, base, n, view))
	}

	alpha := alphaOf(m)
	cull := m.Side == scene.FrontSide
	drawn := 0
	for _, f := range mesh.Faces {
		if !ok[f.V[0]] || !ok[f.V[1]] || !ok[f.V[2]] {
			continue
		}
		if r.rast.DrawTriangle([3]screenVertex{sv[f.V[0]], sv[f.V[1]], sv[f.V[2]]}, alpha, m.DepthWrite, cull) {
			drawn++
		}
	}
	return drawn
}

func (r *Renderer) drawLines(it drawItem) int {
	m := it.node.Material
	g := it.node.Geometry
	mesh := g.Mesh

	color := m.Color.Add(m.Emissive)
	alpha := alphaOf(m)
	drawn := 0
	for _, seg := range g.Segments {
		a, okA := r.rast.project(it.world.MulVec3(mesh.Vertices[seg[0]].Position), color)
		b, okB := r.rast.project(it.world.MulVec3(mesh.Vertices[seg[1]].Position), color)
		if !okA || !okB {
			continue
		}
		r.rast.DrawLine(a, b, alpha, m.DepthWrite)
		drawn++
	}
	return drawn
}
