package picking

import (
	"sort"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/render"
	"github.com/taigrr/lymphview/pkg/scene"
)

// Hit is one ray/mesh intersection.
type Hit struct {
	Node     *scene.Node
	Distance float64
	Point    math3d.Vec3
	Face     int
}

// Raycaster intersects a ray with mesh nodes.
type Raycaster struct {
	Ray Ray
	// Far discards hits beyond this distance; zero means unlimited.
	Far float64
}

// SetFromCamera aims the ray through ndc.
func (rc *Raycaster) SetFromCamera(ndc math3d.Vec2, cam *render.Camera) {
	rc.Ray = FromCamera(cam, ndc)
	rc.Far = cam.Far
}

// IntersectObjects tests every visible selectable mesh under the given
// roots and returns the hits nearest first, one per node.
func (rc *Raycaster) IntersectObjects(roots ...*scene.Node) []Hit {
	var hits []Hit
	for _, root := range roots {
		if root == nil || !root.WorldVisible() {
			continue
		}
		root.TraverseVisible(func(n *scene.Node) {
			if !n.Selectable || n.Kind != scene.KindMesh || n.Geometry == nil || n.Geometry.Mesh == nil {
				return
			}
			if h, ok := rc.intersectNode(n); ok {
				hits = append(hits, h)
			}
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// Nearest returns the closest hit, if any.
func (rc *Raycaster) Nearest(roots ...*scene.Node) (Hit, bool) {
	hits := rc.IntersectObjects(roots...)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

func (rc *Raycaster) intersectNode(n *scene.Node) (Hit, bool) {
	mesh := n.Geometry.Mesh
	world := n.WorldMatrix()
	box := render.NewAABB(mesh.BoundsMin, mesh.BoundsMax).Transform(world)
	if _, ok := rc.Ray.IntersectAABB(box); !ok {
		return Hit{}, false
	}

	pts := make([]math3d.Vec3, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		pts[i] = world.MulVec3(v.Position)
	}

	best := Hit{Node: n, Face: -1}
	for fi, f := range mesh.Faces {
		t, ok := rc.Ray.IntersectTriangle(pts[f.V[0]], pts[f.V[1]], pts[f.V[2]])
		if !ok || (rc.Far > 0 && t > rc.Far) {
			continue
		}
		if best.Face < 0 || t < best.Distance {
			best.Distance, best.Face = t, fi
		}
	}
	if best.Face < 0 {
		return Hit{}, false
	}
	best.Point = rc.Ray.At(best.Distance)
	return best, true
}
