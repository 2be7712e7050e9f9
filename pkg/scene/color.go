package scene

import (
	"image/color"
	"math"
)

// Color is a linear RGB triple in [0, 1].
type Color struct {
	R, G, B float64
}

// Hex converts a 0xRRGGBB integer.
func Hex(c uint32) Color {
	return Color{
		R: float64((c>>16)&0xFF) / 255,
		G: float64((c>>8)&0xFF) / 255,
		B: float64(c&0xFF) / 255,
	}
}

var (
	White = Color{1, 1, 1}
	Black = Color{}
	Red   = Hex(0xFF0000)
)

// Mul returns the component-wise product.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B}
}

// Add returns the component-wise sum.
func (c Color) Add(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B}
}

// Scale multiplies every channel by s.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// IsBlack reports whether every channel is zero.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// RGBA clamps and converts to 8-bit.
func (c Color) RGBA(alpha float64) color.RGBA {
	return color.RGBA{to8(c.R), to8(c.G), to8(c.B), to8(alpha)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
