// Package color parses CSS color strings and renders color ramps used as
// range textures for interpolated color scales.
package color

// ColorF32 represents a color with float32 components in [0,1].
// RGB components are sRGB encoded unless stated otherwise.
// Alpha is always linear (never gamma-encoded).
type ColorF32 struct {
	R, G, B, A float32
}

// ColorU8 represents a color with uint8 components in [0,255].
type ColorU8 struct {
	R, G, B, A uint8
}

// Vec4 returns the components as a vec4 uniform value.
func (c ColorF32) Vec4() []float64 {
	return []float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
}

// Lerp interpolates between two colors component-wise.
func (c ColorF32) Lerp(other ColorF32, t float32) ColorF32 {
	return ColorF32{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}
