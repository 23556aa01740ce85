package color

import "math"

// SRGBToLinear converts an sRGB component in [0,1] to linear light.
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB converts a linear component in [0,1] to sRGB.
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// U8ToF32 maps each component from [0,255] to [0,1].
func U8ToF32(c ColorU8) ColorF32 {
	return ColorF32{
		R: float32(c.R) / 255.0,
		G: float32(c.G) / 255.0,
		B: float32(c.B) / 255.0,
		A: float32(c.A) / 255.0,
	}
}

// F32ToU8 maps each component from [0,1] to [0,255] with rounding.
func F32ToU8(c ColorF32) ColorU8 {
	return ColorU8{
		R: clampAndRound(c.R),
		G: clampAndRound(c.G),
		B: clampAndRound(c.B),
		A: clampAndRound(c.A),
	}
}

func clampAndRound(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
