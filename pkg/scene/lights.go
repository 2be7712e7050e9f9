package scene

import (
	"math"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// DirectionalLight shines from Position towards the origin.
type DirectionalLight struct {
	Position  math3d.Vec3
	Color     Color
	Intensity float64
}

// AmbientLight lights every surface evenly.
type AmbientLight struct {
	Color     Color
	Intensity float64
}

// Lights is the scene lighting rig.
type Lights struct {
	Directional []DirectionalLight
	Ambient     AmbientLight
}

// DefaultLights returns the anatomy rig: two opposing white key lights
// and a strong grey ambient.
func DefaultLights() Lights {
	return Lights{
		Directional: []DirectionalLight{
			{Position: math3d.V3(1, 1, 1), Color: White, Intensity: 3},
			{Position: math3d.V3(-1, -1, -1), Color: White, Intensity: 3},
		},
		Ambient: AmbientLight{Color: Hex(0x404040), Intensity: 10},
	}
}

// Shade evaluates Lambert diffuse plus Blinn-Phong specular for a
// surface point. normal must face the viewer; view points from the
// surface to the camera.
func (l Lights) Shade(m *Material, base Color, normal, view math3d.Vec3) Color {
	if m.Unlit {
		return base.Add(m.Emissive)
	}

	const invPi = 1 / math.Pi
	irradiance := l.Ambient.Color.Scale(l.Ambient.Intensity)
	var specular Color

	for _, d := range l.Directional {
		dir := d.Position.Normalize()
		ndl := normal.Dot(dir)
		if ndl <= 0 {
			continue
		}
		irradiance = irradiance.Add(d.Color.Scale(d.Intensity * ndl))

		if m.Shininess > 0 && !m.Specular.IsBlack() {
			h := dir.Add(view).Normalize()
			s := math.Pow(math.Max(normal.Dot(h), 0), m.Shininess)
			specular = specular.Add(m.Specular.Mul(d.Color).Scale(d.Intensity * s * ndl))
		}
	}

	return base.Mul(irradiance).Scale(invPi).Add(specular).Add(m.Emissive)
}
