// Package controls moves a camera around a pivot in response to pointer
// input.
package controls

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/render"
)

// Button identifies the pointer button driving a gesture.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
)

type gesture int

const (
	gestureNone gesture = iota
	gestureRotate
	gesturePan
)

// minPolar keeps the camera off the +Z/-Z poles where LookAt degenerates.
const minPolar = 0.01

type state struct {
	position, target, up math3d.Vec3
}

// Orbit rotates the camera about the world +Z axis and its own right
// axis around Target, pans with the right button and dollies with the
// wheel. Rotation keeps spinning after release and eases out.
type Orbit struct {
	Camera  *render.Camera
	Target  math3d.Vec3
	Enabled bool

	// RotateSpeed is radians per pixel of drag.
	RotateSpeed float64
	// ZoomStep scales the camera distance per wheel notch.
	ZoomStep    float64
	MinDistance float64
	MaxDistance float64

	yaw, pitch Axis
	fps        int

	active gesture
	last   math3d.Vec2
	saved  state

	disposed bool
}

// NewOrbit creates controls for cam targeting the origin and saves the
// current camera as the reset state.
func NewOrbit(cam *render.Camera, fps int) *Orbit {
	if fps <= 0 {
		fps = 60
	}
	o := &Orbit{
		Camera:      cam,
		Target:      cam.Target,
		Enabled:     true,
		RotateSpeed: 0.01,
		ZoomStep:    0.9,
		MinDistance: cam.Near * 10,
		MaxDistance: cam.Far * 0.9,
		yaw:         NewAxis(fps),
		pitch:       NewAxis(fps),
		fps:         fps,
	}
	o.SaveState()
	return o
}

// SaveState records the current camera and target for Reset.
func (o *Orbit) SaveState() {
	o.saved = state{position: o.Camera.Position, target: o.Target, up: o.Camera.Up}
}

// SavedPosition returns the camera position Reset restores.
func (o *Orbit) SavedPosition() math3d.Vec3 {
	return o.saved.position
}

// StopInertia drops any spin left over from a drag.
func (o *Orbit) StopInertia() {
	o.yaw.Stop()
	o.pitch.Stop()
}

// Reset restores the saved state and stops any inertia.
func (o *Orbit) Reset() {
	if o.disposed {
		return
	}
	o.Camera.Position = o.saved.position
	o.Camera.Up = o.saved.up
	o.Target = o.saved.target
	o.StopInertia()
	o.active = gestureNone
	o.Update()
}

// SetTarget moves the pivot without moving the camera.
func (o *Orbit) SetTarget(p math3d.Vec3) {
	o.Target = p
}

// Update applies pending inertia and aims the camera at Target. It
// reports whether the camera is still moving.
func (o *Orbit) Update() bool {
	if o.disposed {
		return false
	}
	yaw, pitch := o.yaw.Step(), o.pitch.Step()
	if yaw != 0 || pitch != 0 {
		o.rotate(yaw, pitch)
	}
	o.Camera.LookAt(o.Target)
	return o.yaw.Moving() || o.pitch.Moving()
}

// rotate swings the camera about the vertical through Target, then
// tilts it about the camera right axis.
func (o *Orbit) rotate(yaw, pitch float64) {
	offset := o.Camera.Position.Sub(o.Target)
	up := math3d.Up()

	offset = math3d.Rotate(up, yaw).MulVec3Dir(offset)

	right := offset.Negate().Cross(up)
	if right.LenSq() > 1e-12 {
		polar := math.Acos(math3d.Clamp(offset.Normalize().Dot(up), -1, 1))
		next := math3d.Clamp(polar-pitch, minPolar, math.Pi-minPolar)
		offset = math3d.Rotate(right.Normalize(), next-polar).MulVec3Dir(offset)
	}

	o.Camera.Position = o.Target.Add(offset)
}

// Pan shifts camera and target in the view plane by a pixel delta
// measured on a viewport of the given height.
func (o *Orbit) Pan(dx, dy float64, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	dist := o.Camera.Distance()
	perPixel := 2 * dist * math.Tan(o.Camera.FOV/2) / float64(viewportHeight)
	move := o.Camera.Right().Scale(-dx * perPixel).Add(o.Camera.TrueUp().Scale(dy * perPixel))
	o.Camera.Position = o.Camera.Position.Add(move)
	o.Target = o.Target.Add(move)
}

// Dolly scales the camera distance to Target, clamped to the limits.
func (o *Orbit) Dolly(scale float64) {
	offset := o.Camera.Position.Sub(o.Target)
	dist := math3d.Clamp(offset.Len()*scale, o.MinDistance, o.MaxDistance)
	o.Camera.Position = o.Target.Add(offset.Normalize().Scale(dist))
}

// PointerDown starts a rotate or pan gesture.
func (o *Orbit) PointerDown(b Button, p math3d.Vec2) {
	if !o.Enabled || o.disposed {
		return
	}
	switch b {
	case ButtonLeft:
		o.active = gestureRotate
		o.yaw.Stop()
		o.pitch.Stop()
	case ButtonRight:
		o.active = gesturePan
	default:
		return
	}
	o.last = p
}

// PointerMove continues the active gesture.
func (o *Orbit) PointerMove(p math3d.Vec2, viewportHeight int) {
	if !o.Enabled || o.disposed || o.active == gestureNone {
		return
	}
	d := p.Sub(o.last)
	o.last = p
	switch o.active {
	case gestureRotate:
		o.yaw.Impulse(-d.X * o.RotateSpeed)
		o.pitch.Impulse(-d.Y * o.RotateSpeed)
	case gesturePan:
		o.Pan(d.X, d.Y, viewportHeight)
	}
}

// PointerUp ends the gesture; rotation keeps its momentum.
func (o *Orbit) PointerUp() {
	o.active = gestureNone
}

// Wheel dollies one notch in (negative) or out (positive).
func (o *Orbit) Wheel(notches float64) {
	if !o.Enabled || o.disposed || notches == 0 {
		return
	}
	o.Dolly(math.Pow(o.ZoomStep, -notches))
}

// Dispose disables the controls permanently.
func (o *Orbit) Dispose() {
	o.disposed = true
	o.Enabled = false
	o.active = gestureNone
	o.yaw.Stop()
	o.pitch.Stop()
}

// Disposed reports whether Dispose has run.
func (o *Orbit) Disposed() bool {
	return o.disposed
}
