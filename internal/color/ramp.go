package color

// RampWidth is the texel count of a range texture.
const RampWidth = 256

// Ramp renders stops into a width x 1 RGBA8 texture. Stops are spread
// evenly over the ramp. When linear is set, RGB is interpolated in linear
// light and re-encoded to sRGB.
func Ramp(stops []ColorF32, width int, linear bool) []byte {
	if width < 1 {
		width = RampWidth
	}
	out := make([]byte, width*4)
	if len(stops) == 0 {
		return out
	}
	for i := 0; i < width; i++ {
		t := float32(0)
		if width > 1 {
			t = float32(i) / float32(width-1)
		}
		c := sample(stops, t, linear)
		out[i*4] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
	return out
}

func sample(stops []ColorF32, t float32, linear bool) ColorU8 {
	if len(stops) == 1 {
		return F32ToU8(stops[0])
	}
	scaled := t * float32(len(stops)-1)
	index := int(scaled)
	if index > len(stops)-2 {
		index = len(stops) - 2
	}
	local := scaled - float32(index)
	a, b := stops[index], stops[index+1]
	if !linear {
		return F32ToU8(a.Lerp(b, local))
	}
	la, lb := toLinear(a), toLinear(b)
	m := la.Lerp(lb, local)
	return ColorU8{
		R: LinearToSRGBFast(m.R),
		G: LinearToSRGBFast(m.G),
		B: LinearToSRGBFast(m.B),
		A: clampAndRound(m.A),
	}
}

func toLinear(c ColorF32) ColorF32 {
	u := F32ToU8(c)
	return ColorF32{
		R: SRGBToLinearFast(u.R),
		G: SRGBToLinearFast(u.G),
		B: SRGBToLinearFast(u.B),
		A: c.A,
	}
}

// RampFunc renders fn into a width x 1 RGBA8 texture, sampling it at
// evenly spaced t in [0, 1]. Components outside [0, 1] are clamped.
func RampFunc(fn func(t float32) ColorF32, width int) []byte {
	if width < 1 {
		width = RampWidth
	}
	out := make([]byte, width*4)
	for i := 0; i < width; i++ {
		t := float32(0)
		if width > 1 {
			t = float32(i) / float32(width-1)
		}
		c := F32ToU8(fn(t))
		out[i*4] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
	return out
}
