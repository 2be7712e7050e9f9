package engine

import (
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/lymphview/pkg/controls"
)

// Layer is drawn by the host each time a frame is presented.
type Layer interface {
	Draw(scr uv.Screen, area uv.Rectangle)
}

// PointerKind distinguishes pointer events.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
	PointerUp
	PointerCancel
	PointerWheel
)

// PointerEvent is pointer input in host pixel coordinates, origin top-left.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float64
	Button controls.Button
	// Wheel is the scroll amount in notches; negative scrolls toward
	// the scene.
	Wheel float64
}

// Host is the surface an engine renders into. Size is in framebuffer
// pixels. The returned detach functions unregister a callback.
type Host interface {
	Size() (width, height int)
	Mount(Layer)
	Unmount(Layer)
	OnPointer(func(PointerEvent)) (detach func())
	OnResize(func(width, height int)) (detach func())
	// Present is called once per rendered frame with the engine locked.
	Present()
}
