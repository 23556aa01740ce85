// Package scale generates WGSL for channel scales and mirrors their
// arithmetic in Go.
//
// Every scale compiles to a function getScaled_<name>(i: u32) that reads
// the channel's raw value and maps it through the scale. Domain, range and
// parameters live in the program's uniform buffer so they can change
// without recompiling the shader. Ordinal and band scales additionally use
// a hash-table domain map and, for ordinal, a range storage buffer.
package scale

import (
	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/wgsl"
)

// InputRule constrains the raw value type a scale accepts.
type InputRule uint8

const (
	// InputAny accepts every scalar type.
	InputAny InputRule = iota
	// InputNumeric accepts f32, u32 and i32 and casts to f32.
	InputNumeric
	// InputU32 requires u32 keys or indices.
	InputU32
)

// StopKind describes how domain and range are stored as uniforms.
type StopKind uint8

const (
	// StopsNone means the scale has no domain/range uniforms.
	StopsNone StopKind = iota
	// StopsContinuous stores a two-entry domain and range (three for index).
	StopsContinuous
	// StopsPiecewise stores N domain and N range entries.
	StopsPiecewise
	// StopsThreshold stores N breakpoints and N+1 range entries.
	StopsThreshold
	// StopsQuantize stores a two-entry domain and N range entries.
	StopsQuantize
)

// VectorOutput says when a scalar input may produce a vector output.
type VectorOutput uint8

const (
	// VectorNever requires matching input and output widths.
	VectorNever VectorOutput = iota
	// VectorInterpolated allows vectors for interpolated color ranges.
	VectorInterpolated
	// VectorAlways allows vector ranges, e.g. colors looked up by category.
	VectorAlways
)

// Param is a scalar scale parameter stored as an f32 uniform.
type Param struct {
	Name    string
	Prefix  string
	Default float64
}

// Def describes one scale type.
type Def struct {
	Type       channel.ScaleType
	Input      InputRule
	OutputF32  bool
	Continuous bool
	Params     []Param
	Stops      StopKind
	Vector     VectorOutput

	NeedsDomainMap    bool
	NeedsOrdinalRange bool

	// AllowsU32Override lets a u32 channel use this scale on an f32 contract.
	AllowsU32Override bool
}

var bandParams = []Param{
	{Name: "paddingInner", Prefix: wgsl.PaddingInnerPrefix, Default: 0},
	{Name: "paddingOuter", Prefix: wgsl.PaddingOuterPrefix, Default: 0},
	{Name: "align", Prefix: wgsl.AlignPrefix, Default: 0.5},
	{Name: "band", Prefix: wgsl.BandPrefix, Default: 0.5},
}

var defs = map[channel.ScaleType]*Def{
	channel.ScaleIdentity: {
		Type:  channel.ScaleIdentity,
		Input: InputAny,
	},
	channel.ScaleLinear: {
		Type:       channel.ScaleLinear,
		Input:      InputNumeric,
		OutputF32:  true,
		Continuous: true,
		Stops:      StopsContinuous,
		Vector:     VectorInterpolated,
	},
	channel.ScaleLog: {
		Type:       channel.ScaleLog,
		Input:      InputNumeric,
		OutputF32:  true,
		Continuous: true,
		Stops:      StopsContinuous,
		Vector:     VectorInterpolated,
		Params:     []Param{{Name: "base", Prefix: wgsl.BasePrefix, Default: 10}},
	},
	channel.ScalePow: {
		Type:       channel.ScalePow,
		Input:      InputNumeric,
		OutputF32:  true,
		Continuous: true,
		Stops:      StopsContinuous,
		Vector:     VectorInterpolated,
		Params:     []Param{{Name: "exponent", Prefix: wgsl.ExponentPrefix, Default: 1}},
	},
	channel.ScaleSqrt: {
		Type:       channel.ScaleSqrt,
		Input:      InputNumeric,
		OutputF32:  true,
		Continuous: true,
		Stops:      StopsContinuous,
		Vector:     VectorInterpolated,
		Params:     []Param{{Name: "exponent", Prefix: wgsl.ExponentPrefix, Default: 0.5}},
	},
	channel.ScaleSymlog: {
		Type:       channel.ScaleSymlog,
		Input:      InputNumeric,
		OutputF32:  true,
		Continuous: true,
		Stops:      StopsContinuous,
		Vector:     VectorInterpolated,
		Params:     []Param{{Name: "constant", Prefix: wgsl.ConstantPrefix, Default: 1}},
	},
	channel.ScaleBand: {
		Type:              channel.ScaleBand,
		Input:             InputU32,
		OutputF32:         true,
		Stops:             StopsContinuous,
		Params:            bandParams,
		NeedsDomainMap:    true,
		AllowsU32Override: true,
	},
	channel.ScaleIndex: {
		Type:              channel.ScaleIndex,
		Input:             InputU32,
		OutputF32:         true,
		Stops:             StopsContinuous,
		Params:            bandParams,
		AllowsU32Override: true,
	},
	channel.ScaleOrdinal: {
		Type:              channel.ScaleOrdinal,
		Input:             InputU32,
		Vector:            VectorAlways,
		NeedsDomainMap:    true,
		NeedsOrdinalRange: true,
		AllowsU32Override: true,
	},
	channel.ScaleThreshold: {
		Type:   channel.ScaleThreshold,
		Input:  InputNumeric,
		Stops:  StopsThreshold,
		Vector: VectorAlways,
	},
	channel.ScaleQuantize: {
		Type:   channel.ScaleQuantize,
		Input:  InputNumeric,
		Stops:  StopsQuantize,
		Vector: VectorAlways,
	},
}

// Lookup returns the definition of a scale type.
func Lookup(t channel.ScaleType) (*Def, bool) {
	d, ok := defs[t]
	return d, ok
}

// OutputType returns the scalar type produced for a scalar output.
func (d *Def) OutputType(in channel.ScalarType) channel.ScalarType {
	if d.OutputF32 {
		return channel.F32
	}
	return in
}

// ParamValue returns the configured value of p, or its default.
func ParamValue(s *channel.Scale, p Param) float64 {
	if s != nil {
		if v, ok := s.Params[p.Name]; ok {
			return v
		}
	}
	return p.Default
}
