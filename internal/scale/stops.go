package scale

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/color"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/layout"
)

// DomainUpdate is a normalized domain.
type DomainUpdate struct {
	// Uniform is written to uDomain_<name>; nil when the scale has none.
	Uniform []float64
	// Keys feed the domain map; nil when the scale has no domain map.
	Keys []float64
}

// RangeUpdate is a normalized range.
type RangeUpdate struct {
	// Uniform is written to uRange_<name>, one row per array element.
	Uniform [][]float64
	// Ramp holds color stops for the range texture.
	Ramp []color.ColorF32
	// Interpolator replaces Ramp when the range is a function.
	Interpolator channel.Interpolator
	// Ordinal holds the entries of the ordinal range buffer.
	Ordinal [][]float64
}

// PackHighPrecisionDomain packs an index domain [start, end) as
// (hi(start), lo(start), end-start), matching the hi/lo split of values.
func PackHighPrecisionDomain(start, end float64) []float64 {
	hi := math.Floor(start/layout.HighPrecisionDivisor) * layout.HighPrecisionDivisor
	return []float64{hi, start - hi, end - start}
}

// NormalizeDomain validates a domain and converts it to uniform values and
// domain map keys.
func (p *Plan) NormalizeDomain(domain []float64) (DomainUpdate, error) {
	switch p.Def.Type {
	case channel.ScaleOrdinal:
		keys, err := p.ordinalKeys(domain)
		return DomainUpdate{Keys: keys}, err
	case channel.ScaleBand:
		keys, err := p.ordinalKeys(domain)
		if err != nil {
			return DomainUpdate{}, err
		}
		if len(keys) == 0 {
			return DomainUpdate{Uniform: []float64{0, 1}, Keys: keys}, nil
		}
		return DomainUpdate{Uniform: []float64{0, float64(len(keys))}, Keys: keys}, nil
	case channel.ScaleIndex:
		switch len(domain) {
		case 0:
			return DomainUpdate{Uniform: PackHighPrecisionDomain(0, 1)}, nil
		case 2:
			return DomainUpdate{Uniform: PackHighPrecisionDomain(domain[0], domain[1])}, nil
		case 3:
			return DomainUpdate{Uniform: append([]float64(nil), domain...)}, nil
		}
		return DomainUpdate{}, fmt.Errorf("scale domain for %q must have 2 or 3 entries for \"index\" scales", p.Name)
	}
	switch p.Stops {
	case StopsContinuous:
		switch len(domain) {
		case 0:
			return DomainUpdate{Uniform: []float64{0, 1}}, nil
		case 2:
			return DomainUpdate{Uniform: []float64{domain[0], domain[1]}}, nil
		}
		return DomainUpdate{}, fmt.Errorf("scale domain for %q must have 2 entries, got %d", p.Name, len(domain))
	case StopsQuantize:
		switch len(domain) {
		case 0:
			return DomainUpdate{Uniform: []float64{0, 1}}, nil
		case 2:
			return DomainUpdate{Uniform: []float64{domain[0], domain[1]}}, nil
		}
		return DomainUpdate{}, fmt.Errorf("quantize scale on %q requires a domain with exactly two entries, got %d", p.Name, len(domain))
	case StopsPiecewise, StopsThreshold:
		if len(domain) != p.DomainLength {
			return DomainUpdate{}, fmt.Errorf("%s scale on %q expects %d domain entries, got %d", p.label(), p.Name, p.DomainLength, len(domain))
		}
		return DomainUpdate{Uniform: append([]float64(nil), domain...)}, nil
	}
	return DomainUpdate{}, fmt.Errorf("scale on %q does not use a domain", p.Name)
}

func (p *Plan) ordinalKeys(domain []float64) ([]float64, error) {
	seen := make(map[uint32]bool, len(domain))
	keys := make([]float64, len(domain))
	for i, v := range domain {
		k, err := hashtable.KeyOf(v)
		if err != nil {
			return nil, fmt.Errorf("ordinal domain on %q requires integer u32 values", p.Name)
		}
		if k == hashtable.EmptyKey {
			return nil, fmt.Errorf("ordinal domain on %q must not contain 0xffffffff", p.Name)
		}
		if seen[k] {
			return nil, fmt.Errorf("ordinal domain on %q must not contain duplicates", p.Name)
		}
		seen[k] = true
		keys[i] = v
	}
	return keys, nil
}

func (p *Plan) label() string {
	switch p.Stops {
	case StopsThreshold:
		return "threshold"
	case StopsPiecewise:
		return "piecewise"
	case StopsQuantize:
		return "quantize"
	}
	if p.Def.Type == channel.ScaleOrdinal {
		return "ordinal"
	}
	return "scale"
}

// NormalizeRange validates a range. fallback supplies the range of a
// continuous scale that declares none.
func (p *Plan) NormalizeRange(rng []any, fallback []float64) (RangeUpdate, error) {
	if p.UseRangeTexture {
		return p.normalizeRamp(rng)
	}
	switch p.Def.Type {
	case channel.ScaleOrdinal:
		if len(rng) == 0 {
			return RangeUpdate{}, fmt.Errorf("ordinal scale on %q requires a non-empty range", p.Name)
		}
		out := make([][]float64, len(rng))
		for i, v := range rng {
			row, err := p.discreteValue(v)
			if err != nil {
				return RangeUpdate{}, err
			}
			out[i] = row
		}
		return RangeUpdate{Ordinal: out}, nil
	case channel.ScaleIdentity:
		return RangeUpdate{}, fmt.Errorf("scale on %q does not use a range", p.Name)
	}
	switch p.Stops {
	case StopsContinuous:
		pair := fallback
		if len(rng) > 0 {
			pair = make([]float64, 0, 2)
			for _, v := range rng {
				f, ok := toNumber(v)
				if !ok {
					return RangeUpdate{}, fmt.Errorf("scale range for %q must be numeric", p.Name)
				}
				pair = append(pair, f)
			}
		}
		if len(pair) == 0 {
			pair = []float64{0, 1}
		}
		if len(pair) != 2 {
			return RangeUpdate{}, fmt.Errorf("scale range for %q must have 2 entries, got %d", p.Name, len(pair))
		}
		return RangeUpdate{Uniform: [][]float64{{pair[0]}, {pair[1]}}}, nil
	case StopsPiecewise, StopsThreshold, StopsQuantize:
		if _, ok := RangeInterpolator(rng); ok {
			return RangeUpdate{}, fmt.Errorf("%s scale on %q does not support interpolator ranges", p.label(), p.Name)
		}
		if len(rng) == 0 && p.Stops == StopsQuantize {
			rng = quantizeFallback(fallback, p.RangeLength)
		}
		if len(rng) != p.RangeLength {
			return RangeUpdate{}, fmt.Errorf("%s scale on %q expects %d range entries, got %d", p.label(), p.Name, p.RangeLength, len(rng))
		}
		out := make([][]float64, len(rng))
		for i, v := range rng {
			row, err := p.discreteValue(v)
			if err != nil {
				return RangeUpdate{}, err
			}
			out[i] = row
		}
		return RangeUpdate{Uniform: out}, nil
	}
	return RangeUpdate{}, fmt.Errorf("scale on %q does not use a range", p.Name)
}

// quantizeFallback is the range of a quantize scale that declares none:
// fallback when it fits the compiled range length, else [0, 1].
func quantizeFallback(fallback []float64, n int) []any {
	if len(fallback) != n {
		fallback = []float64{0, 1}
	}
	out := make([]any, len(fallback))
	for i, v := range fallback {
		out[i] = v
	}
	return out
}

func (p *Plan) normalizeRamp(rng []any) (RangeUpdate, error) {
	if fn, ok := RangeInterpolator(rng); ok {
		if p.Stops == StopsPiecewise {
			return RangeUpdate{}, fmt.Errorf("piecewise scale on %q does not support interpolator ranges", p.Name)
		}
		return RangeUpdate{Uniform: [][]float64{{0}, {1}}, Interpolator: fn}, nil
	}
	if !IsColorRange(rng) {
		return RangeUpdate{}, fmt.Errorf("interpolated color scale on %q requires a color range", p.Name)
	}
	if p.Stops == StopsPiecewise && len(rng) != p.RangeLength {
		return RangeUpdate{}, fmt.Errorf("scale on %q expects %d range entries, got %d", p.Name, p.RangeLength, len(rng))
	}
	ramp := make([]color.ColorF32, len(rng))
	for i, v := range rng {
		c, err := color.ParseStop(v)
		if err != nil {
			return RangeUpdate{}, fmt.Errorf("invalid color in range of %q: %w", p.Name, err)
		}
		ramp[i] = c
	}
	n := 2
	if p.Stops == StopsPiecewise {
		n = p.RangeLength
	}
	positions := RangePositions(n)
	rows := make([][]float64, n)
	for i, v := range positions {
		rows[i] = []float64{v}
	}
	return RangeUpdate{Uniform: rows, Ramp: ramp}, nil
}

// RangePositions spreads n stops evenly over [0, 1].
func RangePositions(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n-1)
	}
	return out
}

func (p *Plan) discreteValue(v any) ([]float64, error) {
	if p.OutputComponents == 1 {
		f, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%s scale on %q expects numeric range values", p.label(), p.Name)
		}
		return []float64{f}, nil
	}
	if vec, ok := v.([]float64); ok && len(vec) == p.OutputComponents {
		return append([]float64(nil), vec...), nil
	}
	if p.OutputComponents == 4 && color.IsStop(v) {
		c, err := color.ParseStop(v)
		if err == nil {
			return c.Vec4(), nil
		}
	}
	return nil, fmt.Errorf("%s scale on %q expects vec4 range values or CSS colors", p.label(), p.Name)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// OrdinalRangeBytes encodes ordinal range entries for the range storage
// buffer: one scalar per entry, or a vec4<f32> for vector outputs.
func (p *Plan) OrdinalRangeBytes(rows [][]float64) []byte {
	if p.OutputComponents == 1 {
		out := make([]byte, 4*len(rows))
		for i, r := range rows {
			binary.LittleEndian.PutUint32(out[i*4:], encodeScalar(p.OutputType, r[0]))
		}
		return out
	}
	out := make([]byte, 16*len(rows))
	for i, r := range rows {
		for c := 0; c < 4 && c < len(r); c++ {
			binary.LittleEndian.PutUint32(out[i*16+c*4:], math.Float32bits(float32(r[c])))
		}
	}
	return out
}

func encodeScalar(t channel.ScalarType, v float64) uint32 {
	switch t {
	case channel.U32:
		if v <= 0 {
			return 0
		}
		return uint32(v)
	case channel.I32:
		return uint32(int32(v))
	}
	return math.Float32bits(float32(v))
}

// OrdinalRangeElement is the WGSL element type of range_<name>.
func (p *Plan) OrdinalRangeElement() string {
	if p.OutputComponents == 1 {
		return p.OutputType.String()
	}
	return "vec4<f32>"
}
