package scene

// Side selects which triangle faces are drawn.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Material describes how a node is shaded.
type Material struct {
	Name     string
	Color    Color
	Emissive Color
	Specular Color
	// Shininess is the Blinn-Phong exponent; zero disables specular.
	Shininess float64

	Opacity     float64
	Transparent bool
	DepthWrite  bool
	Side        Side

	// VertexColors multiplies Color by the geometry color attribute.
	VertexColors bool
	// Unlit materials ignore lights (basic and line materials).
	Unlit bool

	disposed bool
}

// NewBasicMaterial creates an unlit opaque material.
func NewBasicMaterial(c Color) *Material {
	return &Material{Color: c, Opacity: 1, DepthWrite: true, Unlit: true}
}

// NewLambertMaterial creates a diffuse lit material.
func NewLambertMaterial(c Color) *Material {
	return &Material{Color: c, Opacity: 1, DepthWrite: true}
}

// NewPhongMaterial creates a lit material with a specular highlight.
func NewPhongMaterial(c, specular Color, shininess float64) *Material {
	return &Material{Color: c, Specular: specular, Shininess: shininess, Opacity: 1, DepthWrite: true}
}

// NewLineMaterial creates an unlit line material.
func NewLineMaterial(c Color, opacity float64) *Material {
	return &Material{Color: c, Opacity: opacity, Transparent: opacity < 1, DepthWrite: true, Unlit: true}
}

// SetOpacity updates opacity and the transparency flag together.
func (m *Material) SetOpacity(o float64) {
	m.Opacity = o
	m.Transparent = o < 1
}

// Clone returns an undisposed copy.
func (m *Material) Clone() *Material {
	c := *m
	c.disposed = false
	return &c
}

// Dispose marks the material released. It reports whether this call
// performed the release.
func (m *Material) Dispose() bool {
	if m.disposed {
		return false
	}
	m.disposed = true
	return true
}

// Disposed reports whether Dispose has run.
func (m *Material) Disposed() bool {
	return m.disposed
}
