// Package models decodes glTF assets into meshes and node trees for
// lymphview.
package models

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// Mesh is an indexed surface. Triangle meshes use Faces, wireframe
// decoration uses Segments.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face
	Segments [][2]int

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face is a triangle referencing Mesh.Vertices.
type Face struct {
	V [3]int
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// IsLines reports whether the mesh only carries line segments.
func (m *Mesh) IsLines() bool {
	return len(m.Faces) == 0 && len(m.Segments) > 0
}

// CalculateSmoothNormals computes area-weighted vertex normals,
// replacing whatever the asset shipped with.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		m.Vertices[f.V[0]].Normal = m.Vertices[f.V[0]].Normal.Add(normal)
		m.Vertices[f.V[1]].Normal = m.Vertices[f.V[1]].Normal.Add(normal)
		m.Vertices[f.V[2]].Normal = m.Vertices[f.V[2]].Normal.Add(normal)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Edges returns every triangle edge as a segment. Shared edges appear
// once per face.
func (m *Mesh) Edges() [][2]int {
	out := make([][2]int, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		out = append(out,
			[2]int{f.V[0], f.V[1]},
			[2]int{f.V[1], f.V[2]},
			[2]int{f.V[2], f.V[0]},
		)
	}
	return out
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Segments:  make([][2]int, len(m.Segments)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Segments, m.Segments)
	return clone
}

// GetBounds returns the axis-aligned bounding box.
func (m *Mesh) GetBounds() (min, max math3d.Vec3) {
	return m.BoundsMin, m.BoundsMax
}

// NewUVSphere builds a latitude/longitude sphere centred on the origin.
func NewUVSphere(name string, radius float64, widthSegments, heightSegments int) *Mesh {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	mesh := NewMesh(name)
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		theta := v * math.Pi
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			phi := u * 2 * math.Pi
			n := math3d.V3(
				-math.Cos(phi)*math.Sin(theta),
				math.Cos(theta),
				math.Sin(phi)*math.Sin(theta),
			)
			mesh.Vertices = append(mesh.Vertices, MeshVertex{
				Position: n.Scale(radius),
				Normal:   n,
			})
		}
	}

	row := widthSegments + 1
	for iy := range heightSegments {
		for ix := range widthSegments {
			a := iy*row + ix + 1
			b := iy*row + ix
			c := (iy+1)*row + ix
			d := (iy+1)*row + ix + 1
			if iy != 0 {
				mesh.Faces = append(mesh.Faces, Face{V: [3]int{a, b, d}})
			}
			if iy != heightSegments-1 {
				mesh.Faces = append(mesh.Faces, Face{V: [3]int{b, c, d}})
			}
		}
	}

	mesh.CalculateBounds()
	return mesh
}
