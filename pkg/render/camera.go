package render

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// Default camera framing for the anatomy model.
var (
	DefaultCameraPosition = math3d.V3(1496.96865501004, 3213.1316867226697, -232.08816356744805)
	DefaultFOV            = 35 * math.Pi / 180
)

const (
	DefaultNear = 1.0
	DefaultFar  = 10000.0
)

// Camera is a perspective camera aimed at a target point. Matrices are
// cached and rebuilt whenever the fields they derive from change.
type Camera struct {
	Position math3d.Vec3
	Target   math3d.Vec3
	Up       math3d.Vec3

	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64
	Far         float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewKey        [3]math3d.Vec3
	projKey        [4]float64
	valid          bool
}

// NewCamera creates the default anatomy camera looking at the origin.
func NewCamera() *Camera {
	return &Camera{
		Position:    DefaultCameraPosition,
		Target:      math3d.Zero3(),
		Up:          math3d.Up(),
		FOV:         DefaultFOV,
		AspectRatio: 1,
		Near:        DefaultNear,
		Far:         DefaultFar,
	}
}

// Clone copies the camera state.
func (c *Camera) Clone() *Camera {
	cp := *c
	return &cp
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
}

// SetUp sets the up hint used by LookAt.
func (c *Camera) SetUp(up math3d.Vec3) {
	c.Up = up
}

// LookAt aims the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.Target = target
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) {
		aspect = 1
	}
	c.AspectRatio = aspect
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Right returns the unit right vector.
func (c *Camera) Right() math3d.Vec3 {
	return c.Forward().Cross(c.Up).Normalize()
}

// TrueUp returns the up vector orthogonal to Forward.
func (c *Camera) TrueUp() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// Distance returns the distance from the camera to its target.
func (c *Camera) Distance() float64 {
	return c.Position.Distance(c.Target)
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	c.refresh()
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	c.refresh()
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	c.refresh()
	return c.viewProjMatrix
}

func (c *Camera) refresh() {
	vk := [3]math3d.Vec3{c.Position, c.Target, c.Up}
	pk := [4]float64{c.FOV, c.AspectRatio, c.Near, c.Far}
	if c.valid && vk == c.viewKey && pk == c.projKey {
		return
	}
	c.viewMatrix = math3d.LookAt(c.Position, c.Target, c.Up)
	c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
	c.viewProjMatrix = c.projMatrix.Mul(c.viewMatrix)
	c.viewKey, c.projKey, c.valid = vk, pk, true
}

// ViewDepth returns the distance of p along the view direction.
func (c *Camera) ViewDepth(p math3d.Vec3) float64 {
	return -c.ViewMatrix().MulVec3(p).Z
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float64(screenHeight)
	return x, y, ndc.Z, true
}

// Ray returns the world-space pick ray through a point in normalized
// device coordinates. The origin is the camera position.
func (c *Camera) Ray(ndc math3d.Vec2) (origin, dir math3d.Vec3) {
	inv := c.ViewProjectionMatrix().Inverse()
	p := inv.MulVec4(math3d.V4(ndc.X, ndc.Y, 0.5, 1)).PerspectiveDivide()
	return c.Position, p.Sub(c.Position).Normalize()
}

// ScreenToNDC converts pixel coordinates within a width x height area.
func ScreenToNDC(x, y float64, width, height int) math3d.Vec2 {
	return math3d.V2(
		x/float64(width)*2-1,
		-(y/float64(height))*2+1,
	)
}
