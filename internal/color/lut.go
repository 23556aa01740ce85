package color

import "math"

// sRGBToLinearLUT maps an sRGB byte to linear light.
var sRGBToLinearLUT [256]float32

// linearToSRGBLUT maps linear light, quantized to 12 bits, to an sRGB byte.
var linearToSRGBLUT [4096]uint8

func init() {
	for i := 0; i < 256; i++ {
		sRGBToLinearLUT[i] = SRGBToLinear(float32(i) / 255.0)
	}
	for i := 0; i < 4096; i++ {
		s := float64(LinearToSRGB(float32(i) / 4095.0))
		v := int(math.Round(s * 255.0))
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		//nolint:gosec // G115: v is clamped to [0,255]
		linearToSRGBLUT[i] = uint8(v)
	}
}

// SRGBToLinearFast converts an sRGB byte to linear light using a lookup table.
func SRGBToLinearFast(s uint8) float32 {
	return sRGBToLinearLUT[s]
}

// LinearToSRGBFast converts linear light to an sRGB byte using a lookup
// table. Input is clamped to [0,1].
func LinearToSRGBFast(l float32) uint8 {
	if l < 0 {
		l = 0
	}
	if l > 1 {
		l = 1
	}
	index := int(l*4095.0 + 0.5)
	if index > 4095 {
		index = 4095
	}
	return linearToSRGBLUT[index]
}
