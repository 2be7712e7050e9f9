package models

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/lymphview/pkg/math3d"
)

// ErrNoMeshes is returned when a document decodes but holds no geometry.
var ErrNoMeshes = errors.New("document contains no meshes")

// Node is one glTF node: a local transform, an optional mesh and children.
type Node struct {
	Name     string
	Local    math3d.Mat4
	Mesh     *Mesh
	Children []*Node
}

// Scene is the node forest of a glTF document's active scene.
type Scene struct {
	Name  string
	Roots []*Node
}

// Traverse visits every node depth-first, parents before children.
func (s *Scene) Traverse(fn func(*Node)) {
	var walk func(n *Node)
	walk = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range s.Roots {
		walk(r)
	}
}

// Root returns the first root node, or nil for an empty scene.
func (s *Scene) Root() *Node {
	if len(s.Roots) == 0 {
		return nil
	}
	return s.Roots[0]
}

// FirstMesh returns the first triangle mesh in traversal order.
func (s *Scene) FirstMesh() *Mesh {
	var found *Mesh
	s.Traverse(func(n *Node) {
		if found == nil && n.Mesh != nil && len(n.Mesh.Faces) > 0 {
			found = n.Mesh
		}
	})
	return found
}

// MeshCount returns how many nodes carry a mesh.
func (s *Scene) MeshCount() int {
	count := 0
	s.Traverse(func(n *Node) {
		if n.Mesh != nil {
			count++
		}
	})
	return count
}

// GLTFLoader converts glTF documents into Scenes.
type GLTFLoader struct {
	// RecomputeNormals replaces shipped normals with smooth ones.
	RecomputeNormals bool
}

// NewGLTFLoader creates a loader that recomputes vertex normals, the way
// the anatomy assets are expected to be shaded.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{RecomputeNormals: true}
}

// LoadScene opens a .gltf or .glb file from disk.
func (l *GLTFLoader) LoadScene(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return l.Convert(doc)
}

// ParseScene decodes an in-memory .gltf or .glb payload.
func (l *GLTFLoader) ParseScene(data []byte) (*Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	return l.Convert(doc)
}

// Convert builds the node tree of the document's default scene. Mesh
// data is decoded once per glTF mesh and shared between nodes.
func (l *GLTFLoader) Convert(doc *gltf.Document) (*Scene, error) {
	if len(doc.Meshes) == 0 {
		return nil, ErrNoMeshes
	}

	meshes := make([]*Mesh, len(doc.Meshes))
	for i, m := range doc.Meshes {
		mesh, err := l.convertMesh(doc, m)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		meshes[i] = mesh
	}

	scene := &Scene{}
	var roots []int
	switch {
	case len(doc.Scenes) > 0:
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		scene.Name = doc.Scenes[idx].Name
		roots = doc.Scenes[idx].Nodes
	default:
		roots = parentlessNodes(doc)
	}

	visiting := make(map[int]bool)
	for _, idx := range roots {
		n, err := convertNode(doc, idx, meshes, visiting)
		if err != nil {
			return nil, err
		}
		scene.Roots = append(scene.Roots, n)
	}

	// A document may define meshes without nodes referencing them.
	if len(scene.Roots) == 0 {
		for _, m := range meshes {
			scene.Roots = append(scene.Roots, &Node{Name: m.Name, Local: math3d.Identity(), Mesh: m})
		}
	}

	return scene, nil
}

func parentlessNodes(doc *gltf.Document) []int {
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

func convertNode(doc *gltf.Document, idx int, meshes []*Mesh, visiting map[int]bool) (*Node, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if visiting[idx] {
		return nil, fmt.Errorf("node %d: cycle in node hierarchy", idx)
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	src := doc.Nodes[idx]
	n := &Node{Name: src.Name, Local: localMatrix(src)}
	if src.Mesh != nil {
		if *src.Mesh >= len(meshes) {
			return nil, fmt.Errorf("node %q: mesh index %d out of range", src.Name, *src.Mesh)
		}
		n.Mesh = meshes[*src.Mesh]
	}
	for _, c := range src.Children {
		child, err := convertNode(doc, c, meshes, visiting)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// localMatrix applies glTF defaults: a zero matrix means "use TRS", a
// zero scale means unit scale and a zero quaternion means no rotation.
func localMatrix(n *gltf.Node) math3d.Mat4 {
	if n.Matrix != [16]float64{} && n.Matrix != [16]float64(math3d.Identity()) {
		return math3d.Mat4(n.Matrix)
	}
	s := math3d.FromArray(n.Scale)
	if n.Scale == [3]float64{} {
		s = math3d.V3(1, 1, 1)
	}
	return math3d.Compose(math3d.FromArray(n.Translation), n.Rotation, s)
}

func (l *GLTFLoader) convertMesh(doc *gltf.Document, m *gltf.Mesh) (*Mesh, error) {
	mesh := NewMesh(m.Name)
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != gltf.PrimitiveLines {
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok && !l.RecomputeNormals {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return nil, fmt.Errorf("read normals: %w", err)
			}
		}

		base := len(mesh.Vertices)
		for i := range positions {
			v := MeshVertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		indices := sequential(len(positions))
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
		}
		for _, i := range indices {
			if i >= len(positions) {
				return nil, fmt.Errorf("index %d exceeds vertex count %d", i, len(positions))
			}
		}

		if prim.Mode == gltf.PrimitiveLines {
			for i := 0; i+1 < len(indices); i += 2 {
				mesh.Segments = append(mesh.Segments, [2]int{base + indices[i], base + indices[i+1]})
			}
			continue
		}
		for i := 0; i+2 < len(indices); i += 3 {
			mesh.Faces = append(mesh.Faces, Face{
				V: [3]int{base + indices[i], base + indices[i+1], base + indices[i+2]},
			})
		}
	}

	if l.RecomputeNormals {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()
	return mesh, nil
}

func sequential(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// readVec3Accessor reads float VEC3 data from a glTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 || accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", accessor.Type, accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		off := start + i*stride
		result[i] = math3d.V3(
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))),
		)
	}
	return result, nil
}

// readIndices reads unsigned scalar index data from a glTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index component type: %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range result {
		off := start + i*stride
		switch size {
		case 1:
			result[i] = int(data[off])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(data[off:]))
		}
	}
	return result, nil
}

// accessorBytes resolves the buffer backing an accessor and checks that
// every element lies inside it.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) (data []byte, start, stride int, err error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, errors.New("accessor has no buffer view")
	}
	if *accessor.BufferView >= len(doc.BufferViews) {
		return nil, 0, 0, fmt.Errorf("buffer view %d out of range", *accessor.BufferView)
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.Buffer >= len(doc.Buffers) {
		return nil, 0, 0, fmt.Errorf("buffer %d out of range", bufferView.Buffer)
	}
	data = doc.Buffers[bufferView.Buffer].Data
	if data == nil {
		return nil, 0, 0, errors.New("buffer has no data")
	}

	start = bufferView.ByteOffset + accessor.ByteOffset
	stride = bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if accessor.Count > 0 {
		end := start + (accessor.Count-1)*stride + elemSize
		if end > len(data) {
			return nil, 0, 0, fmt.Errorf("accessor reads past buffer end (%d > %d)", end, len(data))
		}
	}
	return data, start, stride, nil
}
