package controls

import "github.com/charmbracelet/harmonica"

// Axis is one angular degree of freedom. Velocity is added every frame
// and decays toward zero through a critically damped spring.
type Axis struct {
	Velocity float64

	spring harmonica.Spring
	accel  float64
}

// NewAxis creates an axis that decays at the given frame rate.
func NewAxis(fps int) Axis {
	return Axis{spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

// Step returns the angle to apply this frame and advances the decay.
func (a *Axis) Step() float64 {
	delta := a.Velocity
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
	return delta
}

// Impulse adds angular velocity.
func (a *Axis) Impulse(v float64) {
	a.Velocity += v
}

// Stop zeroes the velocity.
func (a *Axis) Stop() {
	a.Velocity, a.accel = 0, 0
}

// Moving reports whether the remaining velocity is still visible.
func (a *Axis) Moving() bool {
	return a.Velocity > 1e-5 || a.Velocity < -1e-5
}
