package scale

import (
	"fmt"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/color"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/wgsl"
)

// Plan is the resolved scale setup of one channel. It decides which
// uniforms and resources the scale needs and how domain and range updates
// are stored.
type Plan struct {
	Name  string
	Def   *Def
	Scale *channel.Scale

	// Function is the suffix of the emitted getScaled_ function. It
	// defaults to Name.
	Function string

	InputType        channel.ScalarType
	OutputType       channel.ScalarType
	InputComponents  int
	OutputComponents int

	Stops        StopKind
	DomainLength int
	RangeLength  int

	UseRangeTexture bool
	Piecewise       bool
}

// IsColorRange reports whether every range entry is a color stop, or the
// range is a single interpolator.
func IsColorRange(r []any) bool {
	if _, ok := RangeInterpolator(r); ok {
		return true
	}
	if len(r) == 0 {
		return false
	}
	for _, v := range r {
		if !color.IsStop(v) {
			return false
		}
	}
	return true
}

// RangeInterpolator returns the interpolator of a range that holds
// exactly one.
func RangeInterpolator(r []any) (channel.Interpolator, bool) {
	if len(r) != 1 {
		return nil, false
	}
	switch fn := r[0].(type) {
	case channel.Interpolator:
		return fn, fn != nil
	case func(float64) [4]float64:
		return fn, fn != nil
	}
	return nil, false
}

// UsesRangeTexture reports whether a continuous scale samples a color ramp.
func UsesRangeTexture(s *channel.Scale, outputComponents int) bool {
	if s == nil || outputComponents != 4 {
		return false
	}
	if s.Interpolate == "" && !IsColorRange(s.Range) {
		return false
	}
	switch s.Kind() {
	case channel.ScaleLinear, channel.ScaleLog, channel.ScalePow, channel.ScaleSqrt, channel.ScaleSymlog:
		return true
	}
	return false
}

// IsPiecewise reports whether a linear scale has more than two stops.
func IsPiecewise(s *channel.Scale) bool {
	if s == nil || s.Kind() != channel.ScaleLinear {
		return false
	}
	return len(s.Domain) > 2 || len(s.Range) > 2
}

// NewPlan resolves the scale of channel name.
func NewPlan(name string, s *channel.Scale, in channel.ScalarType, inComps, outComps int) (*Plan, error) {
	if s == nil {
		s = &channel.Scale{Type: channel.ScaleIdentity}
	}
	def, ok := Lookup(s.Kind())
	if !ok {
		return nil, fmt.Errorf("unsupported scale type %q on %q", s.Type, name)
	}
	p := &Plan{
		Name:             name,
		Def:              def,
		Scale:            s,
		InputType:        in,
		InputComponents:  inComps,
		OutputComponents: outComps,
		Stops:            def.Stops,
		UseRangeTexture:  UsesRangeTexture(s, outComps),
	}
	p.OutputType = channel.F32
	if outComps == 1 {
		p.OutputType = def.OutputType(in)
	}
	p.Piecewise = IsPiecewise(s) ||
		(s.Kind() == channel.ScaleLinear && outComps > 1 && !p.UseRangeTexture)
	if p.Piecewise {
		p.Stops = StopsPiecewise
	}
	if err := p.resolveLengths(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) resolveLengths() error {
	s := p.Scale
	switch p.Stops {
	case StopsContinuous:
		p.DomainLength, p.RangeLength = 2, 2
		if s.Kind() == channel.ScaleIndex {
			p.DomainLength = 3
		}
	case StopsThreshold:
		if len(s.Domain) == 0 {
			return fmt.Errorf("threshold scale on %q must define a non-empty domain", p.Name)
		}
		if len(s.Range) < 2 {
			return fmt.Errorf("threshold scale on %q must define at least two range entries", p.Name)
		}
		if len(s.Range) != len(s.Domain)+1 {
			return fmt.Errorf("threshold scale on %q requires range length of %d, got %d", p.Name, len(s.Domain)+1, len(s.Range))
		}
		p.DomainLength, p.RangeLength = len(s.Domain), len(s.Range)
	case StopsQuantize:
		p.DomainLength, p.RangeLength = 2, 2
		if len(s.Range) > 0 {
			p.RangeLength = len(s.Range)
		}
	case StopsPiecewise:
		if len(s.Domain) < 2 {
			return fmt.Errorf("piecewise scale on %q must define at least two domain entries", p.Name)
		}
		if len(s.Range) < 2 {
			return fmt.Errorf("piecewise scale on %q must define at least two range entries", p.Name)
		}
		if len(s.Range) != len(s.Domain) {
			return fmt.Errorf("piecewise scale on %q requires range length of %d, got %d", p.Name, len(s.Domain), len(s.Range))
		}
		p.DomainLength, p.RangeLength = len(s.Domain), len(s.Range)
	}
	return nil
}

// NeedsDomainMap reports whether the scale looks keys up in a hash table.
func (p *Plan) NeedsDomainMap() bool { return p.Def.NeedsDomainMap }

// NeedsOrdinalRange reports whether the range lives in a storage buffer.
func (p *Plan) NeedsOrdinalRange() bool { return p.Def.NeedsOrdinalRange }

// IsIdentity reports whether the scale passes raw values through.
func (p *Plan) IsIdentity() bool { return p.Def.Type == channel.ScaleIdentity }

// ReturnType is the WGSL return type of getScaled_<name>.
func (p *Plan) ReturnType() string {
	if p.UseRangeTexture {
		return "vec4<f32>"
	}
	if p.OutputComponents == 1 {
		return p.OutputType.String()
	}
	return wgsl.TypeName(channel.F32, p.OutputComponents)
}

// Zero is the literal returned when an ordinal lookup misses.
func (p *Plan) Zero() string {
	if p.OutputComponents == 1 {
		return wgsl.Zero(p.OutputType, 1)
	}
	return wgsl.Zero(channel.F32, p.OutputComponents)
}

func (p *Plan) rangeElement() (channel.ScalarType, int) {
	if p.UseRangeTexture {
		return channel.F32, 1
	}
	if p.OutputComponents == 1 {
		return p.OutputType, 1
	}
	return channel.F32, p.OutputComponents
}

// UniformFields lists the uniforms the scale reads, in declaration order.
func (p *Plan) UniformFields() []layout.UniformField {
	var fields []layout.UniformField
	if p.Stops != StopsNone {
		fields = append(fields, layout.UniformField{
			Name: wgsl.DomainPrefix + p.Name, Type: channel.F32, Components: 1, ArrayLength: p.DomainLength,
		})
		typ, comps := p.rangeElement()
		fields = append(fields, layout.UniformField{
			Name: wgsl.RangePrefix + p.Name, Type: typ, Components: comps, ArrayLength: p.RangeLength,
		})
	}
	for _, param := range p.Def.Params {
		fields = append(fields, layout.UniformField{
			Name: param.Prefix + p.Name, Type: channel.F32, Components: 1,
		})
	}
	if p.NeedsOrdinalRange() {
		fields = append(fields, layout.UniformField{
			Name: wgsl.RangeCountPrefix + p.Name, Type: channel.F32, Components: 1,
		})
	}
	if p.NeedsDomainMap() {
		fields = append(fields, layout.UniformField{
			Name: wgsl.DomainMapCountPrefix + p.Name, Type: channel.F32, Components: 1,
		})
	}
	return fields
}

// ParamValues returns the initial value of every scale parameter uniform.
func (p *Plan) ParamValues() map[string]float64 {
	out := make(map[string]float64, len(p.Def.Params))
	for _, param := range p.Def.Params {
		out[param.Prefix+p.Name] = ParamValue(p.Scale, param)
	}
	return out
}
