// Package scene holds the camera-independent state of the viewer: the
// node tree, materials, geometries and lights.
package scene

import (
	"github.com/taigrr/lymphview/pkg/math3d"
)

// AlignmentOffset moves every loaded root into the shared world frame
// the lymph positions were authored in.
var AlignmentOffset = math3d.V3(-270, -200, 900)

// Scene is the root of everything the renderer draws.
type Scene struct {
	Root       *Node
	Lights     Lights
	Background Color

	disposed bool
}

// New creates an empty scene lit by DefaultLights.
func New() *Scene {
	return &Scene{
		Root:       NewGroup("scene"),
		Lights:     DefaultLights(),
		Background: White,
	}
}

// Add attaches n to the root.
func (s *Scene) Add(n *Node) {
	s.Root.Add(n)
}

// Traverse visits every node.
func (s *Scene) Traverse(fn func(*Node)) {
	s.Root.Traverse(fn)
}

// DisposeStats counts the resources released by Dispose.
type DisposeStats struct {
	Geometries int
	Materials  int
}

// Dispose releases every geometry and material in the tree exactly once
// and detaches all nodes. Later calls release nothing.
func (s *Scene) Dispose() DisposeStats {
	var st DisposeStats
	if s.disposed {
		return st
	}
	s.disposed = true
	st = DisposeTree(s.Root)
	s.Root.Clear()
	return st
}

// DisposeTree releases the resources of n and its descendants. Shared
// resources are counted once.
func DisposeTree(n *Node) DisposeStats {
	var st DisposeStats
	n.Traverse(func(c *Node) {
		if c.Geometry != nil && c.Geometry.Dispose() {
			st.Geometries++
		}
		if c.Material != nil && c.Material.Dispose() {
			st.Materials++
		}
	})
	return st
}

// Disposed reports whether Dispose has run.
func (s *Scene) Disposed() bool {
	return s.disposed
}
