package engine

import (
	"fmt"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// ViewPreset is a named camera framing.
type ViewPreset int

const (
	PresetAnterior ViewPreset = iota
	PresetPosterior
	PresetLeftLateral
	PresetRightLateral
	PresetAll
)

var presetNames = [...]string{"Anterior", "Posterior", "Left lateral", "Right lateral", "All"}

func (p ViewPreset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return fmt.Sprintf("ViewPreset(%d)", int(p))
	}
	return presetNames[p]
}

// ParseViewPreset accepts the display names used by the UI.
func ParseViewPreset(s string) (ViewPreset, error) {
	for i, name := range presetNames {
		if s == name {
			return ViewPreset(i), nil
		}
	}
	return 0, fmt.Errorf("unknown view preset %q", s)
}

// direction is the unit vector from the pivot to the camera. All has
// no direction.
func (p ViewPreset) direction() (math3d.Vec3, bool) {
	switch p {
	case PresetPosterior:
		return math3d.V3(0, -1, 0), true
	case PresetLeftLateral:
		return math3d.V3(-1, 0, 0), true
	case PresetRightLateral:
		return math3d.V3(1, 0, 0), true
	case PresetAll:
		return math3d.Vec3{}, false
	default:
		return math3d.V3(0, 1, 0), true
	}
}
