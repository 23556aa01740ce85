package color

import "testing"

func TestRampEndpoints(t *testing.T) {
	black := ColorF32{A: 1}
	white := ColorF32{R: 1, G: 1, B: 1, A: 1}
	data := Ramp([]ColorF32{black, white}, RampWidth, false)
	if len(data) != RampWidth*4 {
		t.Fatalf("len = %d, want %d", len(data), RampWidth*4)
	}
	if data[0] != 0 || data[3] != 255 {
		t.Errorf("first texel = %v", data[:4])
	}
	last := data[len(data)-4:]
	if last[0] != 255 || last[1] != 255 || last[2] != 255 {
		t.Errorf("last texel = %v", last)
	}
	if mid := data[128*4]; mid != 128 {
		t.Errorf("texel 128 red = %d, want 128", mid)
	}
}

func TestRampLinearLight(t *testing.T) {
	black := ColorF32{A: 1}
	white := ColorF32{R: 1, G: 1, B: 1, A: 1}
	srgb := Ramp([]ColorF32{black, white}, 3, false)
	lin := Ramp([]ColorF32{black, white}, 3, true)
	if srgb[4] != 128 {
		t.Errorf("rgb midpoint = %d, want 128", srgb[4])
	}
	if lin[4] < 180 {
		t.Errorf("linear-rgb midpoint = %d, want brighter than 180", lin[4])
	}
}

func TestRampThreeStops(t *testing.T) {
	red := ColorF32{R: 1, A: 1}
	green := ColorF32{G: 1, A: 1}
	blue := ColorF32{B: 1, A: 1}
	data := Ramp([]ColorF32{red, green, blue}, 5, false)
	// Texels 0, 2 and 4 land on the stops.
	want := [][3]byte{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	for k, texel := range []int{0, 2, 4} {
		got := [3]byte{data[texel*4], data[texel*4+1], data[texel*4+2]}
		if got != want[k] {
			t.Errorf("texel %d = %v, want %v", texel, got, want[k])
		}
	}
}

func TestRampSingleStop(t *testing.T) {
	data := Ramp([]ColorF32{{R: 1, A: 1}}, 4, true)
	for i := 0; i < 4; i++ {
		if data[i*4] != 255 {
			t.Fatalf("texel %d red = %d", i, data[i*4])
		}
	}
}

func TestRampFunc(t *testing.T) {
	var seen []float32
	data := RampFunc(func(t float32) ColorF32 {
		seen = append(seen, t)
		return ColorF32{R: t, G: 1 - t, B: 2, A: 1}
	}, 5)
	if len(seen) != 5 || seen[0] != 0 || seen[4] != 1 {
		t.Fatalf("sampled at %v", seen)
	}
	if data[0] != 0 || data[1] != 255 {
		t.Errorf("first texel = %v", data[:4])
	}
	if data[16] != 255 || data[17] != 0 {
		t.Errorf("last texel = %v", data[16:20])
	}
	if data[2] != 255 {
		t.Errorf("blue = %d, want clamped to 255", data[2])
	}
	if n := len(RampFunc(func(float32) ColorF32 { return ColorF32{} }, 0)); n != RampWidth*4 {
		t.Errorf("default width len = %d", n)
	}
}
