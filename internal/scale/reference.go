package scale

import "math"

// The functions below mirror the WGSL scale library on the CPU. They use
// float64 arithmetic, so results match the GPU up to f32 rounding.

// Linear maps v from domain to range.
func Linear(v float64, domain, rng [2]float64) float64 {
	return (v-domain[0])/(domain[1]-domain[0])*(rng[1]-rng[0]) + rng[0]
}

// Log maps v through a logarithm of the given base.
func Log(v float64, domain, rng [2]float64, base float64) float64 {
	lb := math.Log(base)
	return Linear(math.Log(v)/lb, [2]float64{math.Log(domain[0]) / lb, math.Log(domain[1]) / lb}, rng)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Pow maps v through sign(v)*|v|^exponent.
func Pow(v float64, domain, rng [2]float64, exponent float64) float64 {
	return Linear(
		math.Pow(math.Abs(v), exponent)*sign(v),
		[2]float64{
			math.Pow(math.Abs(domain[0]), exponent) * sign(domain[0]),
			math.Pow(math.Abs(domain[1]), exponent) * sign(domain[1]),
		},
		rng,
	)
}

func symlog(v, constant float64) float64 {
	return sign(v) * math.Log(math.Abs(v/constant)+1)
}

// Symlog maps v through the bi-symmetric log transform.
func Symlog(v float64, domain, rng [2]float64, constant float64) float64 {
	return Linear(symlog(v, constant), [2]float64{symlog(domain[0], constant), symlog(domain[1], constant)}, rng)
}

// BandParams are the layout parameters of band and index scales.
type BandParams struct {
	PaddingInner float64
	PaddingOuter float64
	Align        float64
	Band         float64
}

// DefaultBandParams returns the defaults used when a scale sets none.
func DefaultBandParams() BandParams {
	return BandParams{Align: 0.5, Band: 0.5}
}

// Band returns the position of band v for a domain extent [d0, d1).
func Band(v uint32, extent, rng [2]float64, p BandParams) float64 {
	start, stop := rng[0], rng[1]
	span := stop - start
	n := extent[1] - extent[0]
	inner := p.PaddingInner
	if int32(n) <= 1 {
		inner = 0
	}
	step := span / math.Max(1, n-inner+p.PaddingOuter*2)
	start += (span - step*(n-inner)) * p.Align
	bandwidth := step * (1 - inner)
	return start + (float64(v)-extent[0])*step + bandwidth*p.Band
}

// BandHP is Band for the packed high-precision domain (hi, lo, count) of
// index scales.
func BandHP(v uint32, domain [3]float64, rng [2]float64, p BandParams) float64 {
	lo := float64(v & 4095)
	hi := float64(v) - lo
	start, stop := rng[0], rng[1]
	span := stop - start
	n := domain[2]
	step := span / math.Max(1, n-p.PaddingInner+p.PaddingOuter*2)
	start += (span - step*(n-p.PaddingInner)) * p.Align
	bandwidth := step * (1 - p.PaddingInner)
	return start + (hi-domain[0])*step + (lo-domain[1])*step + bandwidth*p.Band
}

// Threshold returns the range entry of the first bucket whose breakpoint
// exceeds v. len(rng) must be len(domain)+1.
func Threshold[T any](v float64, domain []float64, rng []T) T {
	slot := 0
	for i, d := range domain {
		if v >= d {
			slot = i + 1
		}
	}
	return rng[slot]
}

// Quantize splits the domain extent into len(rng) equal buckets and
// returns the entry of the bucket holding v. Values outside the extent
// land in the first or last bucket.
func Quantize[T any](v float64, domain [2]float64, rng []T) T {
	unit := 0.0
	if d := domain[1] - domain[0]; d != 0 {
		unit = (v - domain[0]) / d
	}
	unit = math.Min(math.Max(unit, 0), 1)
	n := len(rng)
	return rng[min(n-1, int(math.Floor(unit*float64(n))))]
}

// Piecewise interpolates v linearly between matching domain and range stops.
// Values outside the domain extrapolate from the outermost segment.
func Piecewise(v float64, domain, rng []float64) float64 {
	n := len(domain)
	slot := 0
	for i := 1; i+1 < n; i++ {
		if v >= domain[i] {
			slot = i
		}
	}
	d0, d1 := domain[slot], domain[slot+1]
	t := 0.0
	if d1 != d0 {
		t = (v - d0) / (d1 - d0)
	}
	return rng[slot] + (rng[slot+1]-rng[slot])*t
}

// ClampToDomain clamps v to the extent of a two-entry domain.
func ClampToDomain(v float64, domain [2]float64) float64 {
	return math.Min(math.Max(v, math.Min(domain[0], domain[1])), math.Max(domain[0], domain[1]))
}

// RoundAwayFromZero rounds half away from zero.
func RoundAwayFromZero(v float64) float64 {
	return sign(v) * math.Floor(math.Abs(v)+0.5)
}
