package scene

import (
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
)

// Kind distinguishes drawable node types.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindLines
)

// Node is an element of the scene tree. Its matrix is
// Translate(Position) * Base * Scale(Scale).
type Node struct {
	Name string
	Kind Kind

	// Base is the transform the node was loaded with.
	Base     math3d.Mat4
	Position math3d.Vec3
	Scale    float64
	Visible  bool

	Geometry *Geometry
	Material *Material

	// Selectable marks nodes the raycaster may return.
	Selectable bool

	Parent   *Node
	Children []*Node
}

// NewGroup creates an empty visible group.
func NewGroup(name string) *Node {
	return &Node{Name: name, Kind: KindGroup, Base: math3d.Identity(), Scale: 1, Visible: true}
}

// NewMeshNode creates a triangle mesh node.
func NewMeshNode(name string, g *Geometry, m *Material) *Node {
	n := NewGroup(name)
	n.Kind = KindMesh
	n.Geometry = g
	n.Material = m
	return n
}

// NewLinesNode creates a line segment node.
func NewLinesNode(name string, g *Geometry, m *Material) *Node {
	n := NewMeshNode(name, g, m)
	n.Kind = KindLines
	return n
}

// ConvertToLines switches a mesh node to line drawing. Triangle meshes
// are drawn along their edges, which are computed here once.
func (n *Node) ConvertToLines() {
	if n.Kind != KindMesh || n.Geometry == nil {
		return
	}
	n.Kind = KindLines
	n.Geometry.buildSegments()
}

// Add attaches child, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child if present.
func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Clear detaches every child and returns them.
func (n *Node) Clear() []*Node {
	out := n.Children
	for _, c := range out {
		c.Parent = nil
	}
	n.Children = nil
	return out
}

// Child returns the first direct child named name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Matrix returns the local transform.
func (n *Node) Matrix() math3d.Mat4 {
	return math3d.Translate(n.Position).Mul(n.Base).Mul(math3d.ScaleUniform(n.Scale))
}

// WorldMatrix composes every ancestor transform.
func (n *Node) WorldMatrix() math3d.Mat4 {
	m := n.Matrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Matrix().Mul(m)
	}
	return m
}

// LocalToWorld transforms a point from node space.
func (n *Node) LocalToWorld(p math3d.Vec3) math3d.Vec3 {
	return n.WorldMatrix().MulVec3(p)
}

// WorldCenter is the node's geometry bounding-box center in world space.
func (n *Node) WorldCenter() math3d.Vec3 {
	if n.Geometry == nil {
		return n.LocalToWorld(math3d.Zero3())
	}
	return n.LocalToWorld(n.Geometry.Center())
}

// WorldVisible reports whether the node and all ancestors are visible.
func (n *Node) WorldVisible() bool {
	for p := n; p != nil; p = p.Parent {
		if !p.Visible {
			return false
		}
	}
	return true
}

// Traverse visits n and its descendants depth-first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// TraverseVisible is Traverse that skips hidden subtrees.
func (n *Node) TraverseVisible(fn func(*Node)) {
	if !n.Visible {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.TraverseVisible(fn)
	}
}

// FromModel mirrors a decoded glTF node tree. Mesh nodes get their own
// material from newMaterial; meshes shared in the document share a
// Geometry.
func FromModel(src *models.Node, newMaterial func(*models.Node) *Material) *Node {
	geoms := make(map[*models.Mesh]*Geometry)
	var build func(*models.Node) *Node
	build = func(s *models.Node) *Node {
		var n *Node
		switch {
		case s.Mesh == nil:
			n = NewGroup(s.Name)
		default:
			g, ok := geoms[s.Mesh]
			if !ok {
				g = NewGeometry(s.Mesh)
				geoms[s.Mesh] = g
			}
			if s.Mesh.IsLines() {
				n = NewLinesNode(s.Name, g, newMaterial(s))
			} else {
				n = NewMeshNode(s.Name, g, newMaterial(s))
			}
		}
		n.Base = s.Local
		for _, c := range s.Children {
			n.Add(build(c))
		}
		return n
	}
	return build(src)
}

// NewInstanced creates one child per position sharing g, scaled
// uniformly. Each instance gets its own material copy so it can carry
// its own color; colors may be nil.
func NewInstanced(name string, g *Geometry, m *Material, positions []math3d.Vec3, scale float64, colors []Color) *Node {
	group := NewGroup(name)
	for i, p := range positions {
		mat := m.Clone()
		if i < len(colors) {
			mat.Color = colors[i]
		}
		inst := NewMeshNode(name, g, mat)
		inst.Position = p
		inst.Scale = scale
		group.Add(inst)
	}
	return group
}
