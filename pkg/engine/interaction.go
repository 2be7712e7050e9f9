package engine

import (
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/scene"
)

// Phase summarises an InteractionState.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHovering
	PhaseSelected
)

func (p Phase) String() string {
	switch p {
	case PhaseHovering:
		return "hovering"
	case PhaseSelected:
		return "selected"
	default:
		return "idle"
	}
}

// InteractionState is the pointer-driven selection state. Hover and
// selection are tracked independently; only the transition methods
// modify it.
type InteractionState struct {
	hovered  *scene.Node
	selected *scene.Node
	focus    math3d.Vec3
	hasFocus bool
}

// Phase reports Selected when an element is selected, else Hovering
// when the pointer is over one.
func (s *InteractionState) Phase() Phase {
	switch {
	case s.selected != nil:
		return PhaseSelected
	case s.hovered != nil:
		return PhaseHovering
	default:
		return PhaseIdle
	}
}

// Hovered returns the element under the pointer.
func (s *InteractionState) Hovered() *scene.Node { return s.hovered }

// Selected returns the committed selection.
func (s *InteractionState) Selected() *scene.Node { return s.selected }

// Focus returns the focus point and whether one is set.
func (s *InteractionState) Focus() (math3d.Vec3, bool) {
	return s.focus, s.hasFocus
}

// Hover moves the hover to n (nil for none) and reports the previous
// element when it changed.
func (s *InteractionState) Hover(n *scene.Node) (prev *scene.Node, changed bool) {
	if s.hovered == n {
		return nil, false
	}
	prev, s.hovered = s.hovered, n
	return prev, true
}

// Select commits n. The focus point moves to the world bounding-box
// centre of n when the selection changed or no focus existed yet.
func (s *InteractionState) Select(n *scene.Node) (prev *scene.Node, refocused bool) {
	prev = s.selected
	s.selected = n
	if prev != n || !s.hasFocus {
		s.focus = n.WorldCenter()
		s.hasFocus = true
		refocused = true
	}
	return prev, refocused
}

// Reset clears hover, selection and focus, returning what was set.
func (s *InteractionState) Reset() (selected, hovered *scene.Node) {
	selected, hovered = s.selected, s.hovered
	*s = InteractionState{}
	return selected, hovered
}

// dragTracker separates clicks from drags. A press becomes a drag once
// the pointer has travelled threshold pixels from where it went down.
type dragTracker struct {
	threshold float64
	pressed   bool
	dragging  bool
	origin    math3d.Vec2
}

func (d *dragTracker) press(p math3d.Vec2) {
	d.pressed, d.dragging, d.origin = true, false, p
}

func (d *dragTracker) move(p math3d.Vec2) {
	if d.pressed && !d.dragging && p.Distance(d.origin) >= d.threshold {
		d.dragging = true
	}
}

// release ends the press and reports whether it was a click.
func (d *dragTracker) release(p math3d.Vec2) bool {
	d.move(p)
	click := d.pressed && !d.dragging
	d.pressed, d.dragging = false, false
	return click
}
