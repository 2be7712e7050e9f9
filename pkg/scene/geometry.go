package scene

import (
	"fmt"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
)

// Geometry wraps a mesh with an optional per-vertex color attribute.
// Positions, normals and indices are never modified after creation.
type Geometry struct {
	Mesh *models.Mesh
	// Segments are the vertex pairs drawn for a lines node.
	Segments [][2]int

	colors   []float32
	version  int
	disposed bool
}

// NewGeometry wraps mesh.
func NewGeometry(mesh *models.Mesh) *Geometry {
	g := &Geometry{Mesh: mesh}
	if mesh != nil {
		g.Segments = mesh.Segments
	}
	return g
}

// buildSegments fills Segments from the triangle edges when the mesh
// shipped none.
func (g *Geometry) buildSegments() {
	if len(g.Segments) == 0 && g.Mesh != nil {
		g.Segments = g.Mesh.Edges()
	}
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g.Mesh == nil {
		return 0
	}
	return g.Mesh.VertexCount()
}

// SetColorAttribute replaces the active color buffer. The buffer must
// hold one RGB triple per vertex.
func (g *Geometry) SetColorAttribute(buf []float32) error {
	if want := g.VertexCount() * 3; len(buf) != want {
		return fmt.Errorf("color attribute has %d floats, geometry needs %d", len(buf), want)
	}
	g.colors = buf
	g.version++
	return nil
}

// ColorAttribute returns the active buffer, nil when unset.
func (g *Geometry) ColorAttribute() []float32 {
	return g.colors
}

// ColorVersion increments on every SetColorAttribute call.
func (g *Geometry) ColorVersion() int {
	return g.version
}

// VertexColor returns the attribute color of vertex i, white when unset.
func (g *Geometry) VertexColor(i int) Color {
	if g.colors == nil || i*3+2 >= len(g.colors) {
		return White
	}
	return Color{float64(g.colors[i*3]), float64(g.colors[i*3+1]), float64(g.colors[i*3+2])}
}

// Center returns the local bounding-box center.
func (g *Geometry) Center() math3d.Vec3 {
	if g.Mesh == nil {
		return math3d.Zero3()
	}
	return g.Mesh.Center()
}

// Dispose releases the geometry once; later calls report false.
func (g *Geometry) Dispose() bool {
	if g.disposed {
		return false
	}
	g.disposed = true
	g.colors = nil
	return true
}

// Disposed reports whether Dispose has run.
func (g *Geometry) Disposed() bool {
	return g.disposed
}
