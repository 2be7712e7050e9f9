package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
)

func triangle() *models.Mesh {
	m := models.NewMesh("tri")
	m.Vertices = []models.MeshVertex{
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(2, 0, 0)},
		{Position: math3d.V3(0, 2, 0)},
	}
	m.Faces = []models.Face{{V: [3]int{0, 1, 2}}}
	m.CalculateSmoothNormals()
	m.CalculateBounds()
	return m
}

func TestHex(t *testing.T) {
	c := Hex(0xE5B27F)
	assert.InDelta(t, 0xE5/255.0, c.R, 1e-12)
	assert.InDelta(t, 0xB2/255.0, c.G, 1e-12)
	assert.InDelta(t, 0x7F/255.0, c.B, 1e-12)
	assert.Equal(t, uint8(0xE5), c.RGBA(1).R)
}

func TestWorldMatrixComposesParents(t *testing.T) {
	root := NewGroup("root")
	root.Position = AlignmentOffset

	child := NewMeshNode("child", NewGeometry(triangle()), NewLambertMaterial(White))
	child.Base = math3d.Translate(math3d.V3(10, 0, 0))
	child.Scale = 2
	root.Add(child)

	got := child.LocalToWorld(math3d.V3(1, 1, 1))
	want := math3d.V3(-270+10+2, -200+2, 900+2)
	assert.True(t, got.ApproxEqual(want, 1e-9), "got %v want %v", got, want)

	center := child.WorldCenter()
	assert.True(t, center.ApproxEqual(math3d.V3(-270+10+2, -200+2, 900), 1e-9), "center %v", center)
}

func TestAddReparents(t *testing.T) {
	a, b := NewGroup("a"), NewGroup("b")
	c := NewGroup("c")
	a.Add(c)
	b.Add(c)
	assert.Empty(t, a.Children)
	assert.Equal(t, b, c.Parent)
	assert.Equal(t, c, b.Child("c"))
	assert.Nil(t, b.Child("missing"))
}

func TestWorldVisible(t *testing.T) {
	root := NewGroup("root")
	mid := NewGroup("mid")
	leaf := NewGroup("leaf")
	root.Add(mid)
	mid.Add(leaf)

	assert.True(t, leaf.WorldVisible())
	mid.Visible = false
	assert.False(t, leaf.WorldVisible())

	var seen []string
	root.TraverseVisible(func(n *Node) { seen = append(seen, n.Name) })
	assert.Equal(t, []string{"root"}, seen)
}

func TestSetColorAttribute(t *testing.T) {
	g := NewGeometry(triangle())
	positions := append([]models.MeshVertex(nil), g.Mesh.Vertices...)

	assert.Equal(t, White, g.VertexColor(0))
	require.Error(t, g.SetColorAttribute(make([]float32, 3)))

	buf := []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	require.NoError(t, g.SetColorAttribute(buf))
	assert.Equal(t, Color{0, 1, 0}, g.VertexColor(1))
	assert.Equal(t, 1, g.ColorVersion())
	assert.Equal(t, positions, g.Mesh.Vertices, "positions and normals untouched")
	assert.Len(t, g.Mesh.Faces, 1)
}

func TestDisposeReleasesSharedResourcesOnce(t *testing.T) {
	s := New()
	shared := NewGeometry(triangle())
	mat := NewLambertMaterial(White)
	a := NewMeshNode("a", shared, mat)
	b := NewMeshNode("b", shared, NewLambertMaterial(Red))
	s.Add(a)
	s.Add(b)

	sites := NewInstanced("sites", NewGeometry(models.NewUVSphere("s", 10, 8, 6)), NewLambertMaterial(Black),
		[]math3d.Vec3{{}, {X: 1}, {X: 2}}, 0.5, []Color{Red})
	s.Add(sites)
	require.Len(t, sites.Children, 3)
	assert.Equal(t, Red, sites.Children[0].Material.Color)
	assert.Equal(t, Black, sites.Children[2].Material.Color)
	assert.Equal(t, 0.5, sites.Children[1].Scale)

	st := s.Dispose()
	assert.Equal(t, 2, st.Geometries)
	assert.Equal(t, 5, st.Materials)
	assert.True(t, shared.Disposed())
	assert.True(t, mat.Disposed())
	assert.Empty(t, s.Root.Children)

	assert.Equal(t, DisposeStats{}, s.Dispose(), "second dispose is a no-op")
}

func TestFromModelSharesGeometry(t *testing.T) {
	mesh := triangle()
	src := &models.Node{Name: "root", Local: math3d.Identity(), Children: []*models.Node{
		{Name: "a", Local: math3d.Identity(), Mesh: mesh},
		{Name: "b", Local: math3d.Translate(math3d.V3(1, 0, 0)), Mesh: mesh},
	}}
	lines := models.NewMesh("Lines")
	lines.Vertices = mesh.Vertices
	lines.Segments = [][2]int{{0, 1}}
	src.Children = append(src.Children, &models.Node{Name: "Lines", Local: math3d.Identity(), Mesh: lines})

	n := FromModel(src, func(*models.Node) *Material { return NewLambertMaterial(White) })
	require.Len(t, n.Children, 3)
	assert.Same(t, n.Children[0].Geometry, n.Children[1].Geometry)
	assert.NotSame(t, n.Children[0].Material, n.Children[1].Material)
	assert.Equal(t, KindLines, n.Child("Lines").Kind)
	assert.Equal(t, KindMesh, n.Child("a").Kind)
	assert.Equal(t, math3d.V3(1, 0, 0), n.Child("b").Base.Translation())
}

func TestShade(t *testing.T) {
	l := DefaultLights()
	up := math3d.V3(1, 1, 1).Normalize()
	view := up

	unlit := NewBasicMaterial(Red)
	assert.Equal(t, Red, l.Shade(unlit, Red, up, view))

	lit := NewLambertMaterial(White)
	facing := l.Shade(lit, White, up, view)
	away := l.Shade(lit, White, math3d.V3(1, -1, 0).Normalize(), view)
	assert.Greater(t, facing.R, away.R, "surface facing a key light is brighter")

	ambientOnly := Hex(0x404040).Scale(10 / math.Pi)
	assert.InDelta(t, ambientOnly.R, away.R, 1e-9)

	lit.Emissive = Red
	glowing := l.Shade(lit, White, math3d.V3(1, -1, 0).Normalize(), view)
	assert.InDelta(t, away.R+1, glowing.R, 1e-9)
	assert.InDelta(t, away.G, glowing.G, 1e-9)
}

func TestConvertToLinesCachesEdges(t *testing.T) {
	g := NewGeometry(triangle())
	assert.Empty(t, g.Segments)

	n := NewMeshNode("Lines", g, NewLineMaterial(Black, 1))
	n.ConvertToLines()
	assert.Equal(t, KindLines, n.Kind)
	require.Len(t, g.Segments, 3)
	assert.Equal(t, [2]int{0, 1}, g.Segments[0])

	first := &g.Segments[0]
	n.ConvertToLines()
	assert.Same(t, first, &g.Segments[0])

	group := NewGroup("group")
	group.ConvertToLines()
	assert.Equal(t, KindGroup, group.Kind)
}
