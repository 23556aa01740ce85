// Package ir resolves channel configurations against a mark contract and
// lowers them into the channel IR consumed by the shader builder and the
// program runtime.
package ir

import (
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/scale"
)

// Resolved is a channel config with defaults applied. Type, Components and
// InputComponents are always set; Value holds the resolved value of
// value-backed channels.
type Resolved struct {
	Name string
	channel.Config
}

// ScalarType returns the resolved scalar type.
func (r *Resolved) ScalarType() channel.ScalarType {
	if r.Type == nil {
		return channel.F32
	}
	return *r.Type
}

// Normalize merges configs with the contract defaults and validates them.
// Channels are returned in contract order; omitted optional channels are
// dropped.
func Normalize(c *channel.Contract, configs map[string]channel.Config) ([]*Resolved, error) {
	unknown := make([]string, 0)
	for name := range configs {
		if !c.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown channel %q", unknown[0])
	}

	out := make([]*Resolved, 0, len(c.Order))
	for _, name := range c.Order {
		cfg, given := configs[name]
		r, err := normalizeChannel(c, name, cfg, given)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func normalizeChannel(c *channel.Contract, name string, cfg channel.Config, given bool) (*Resolved, error) {
	merged := merge(c.Defaults[name], cfg)
	spec, hasSpec := c.Specs[name]

	if merged.Components == 0 {
		merged.Components = 1
		if hasSpec && spec.Components > 0 {
			merged.Components = spec.Components
		}
	}
	if merged.Type == nil && hasSpec {
		merged.Type = channel.Type(spec.Type)
	}
	if merged.Type == nil {
		merged.Type = channel.Type(channel.F32)
	}

	if merged.HasData() {
		if given && (cfg.Value != nil || cfg.Default != nil) {
			return nil, fmt.Errorf("channel %q must not specify both data and value", name)
		}
		merged.Value, merged.Default = nil, nil
		if merged.InputComponents == 0 {
			merged.InputComponents = merged.Components
		}
	} else if merged.Value == nil {
		switch {
		case merged.Default != nil:
			merged.Value = merged.Default
		case c.DefaultValues[name] != nil:
			merged.Value = c.DefaultValues[name]
		}
	}
	if !merged.HasData() && merged.Value == nil {
		if c.IsOptional(name) {
			return nil, nil
		}
		return nil, fmt.Errorf("channel %q must specify either data or value", name)
	}
	if merged.InputComponents == 0 {
		merged.InputComponents = 1
		if merged.Scale.Kind() == channel.ScaleIdentity {
			merged.InputComponents = merged.Components
		}
	}

	r := &Resolved{Name: name, Config: merged}
	if err := validate(r, spec, hasSpec); err != nil {
		return nil, err
	}
	return r, nil
}

// merge overlays cfg on def field by field.
func merge(def, cfg channel.Config) channel.Config {
	m := def
	if cfg.Data != nil {
		m.Data = cfg.Data
	}
	if cfg.Value != nil {
		m.Value = cfg.Value
	}
	if cfg.Default != nil {
		m.Default = cfg.Default
	}
	if cfg.Type != nil {
		m.Type = cfg.Type
	}
	if cfg.Components != 0 {
		m.Components = cfg.Components
	}
	if cfg.InputComponents != 0 {
		m.InputComponents = cfg.InputComponents
	}
	if cfg.Dynamic {
		m.Dynamic = true
	}
	if cfg.Scale != nil {
		m.Scale = cfg.Scale
	}
	if cfg.Conditions != nil {
		m.Conditions = cfg.Conditions
	}
	return m
}

func validComponents(n int) bool { return n == 1 || n == 2 || n == 4 }

func validate(r *Resolved, spec channel.Spec, hasSpec bool) error {
	name := r.Name
	typ := r.ScalarType()
	kind := r.Scale.Kind()
	def, ok := scale.Lookup(kind)
	if !ok {
		return fmt.Errorf("channel %q uses unsupported scale %q", name, kind)
	}

	if hasSpec && spec.Components > 0 && r.Components != spec.Components {
		return fmt.Errorf("channel %q must use %d components", name, spec.Components)
	}
	if hasSpec && typ != spec.Type {
		override := def.AllowsU32Override && spec.Type == channel.F32 && typ == channel.U32
		if !override {
			return fmt.Errorf("channel %q must use type %q", name, spec.Type.String())
		}
	}
	if !validComponents(r.Components) {
		return fmt.Errorf("invalid component count for %q", name)
	}
	if !validComponents(r.InputComponents) {
		return fmt.Errorf("invalid input component count for %q", name)
	}

	in, out := r.InputComponents, r.Components
	packedIndex := kind == channel.ScaleIndex && typ == channel.U32 && in == 2 && out == 1
	if in > 1 && typ != channel.F32 && !packedIndex {
		return fmt.Errorf("only f32 vectors are supported for %q input data", name)
	}

	switch def.Input {
	case scale.InputU32:
		if typ != channel.U32 {
			if kind == channel.ScaleOrdinal {
				return fmt.Errorf("ordinal scale on %q requires u32 input type", name)
			}
			return fmt.Errorf("channel %q requires u32 input for %q scale", name, kind)
		}
	}

	rangeIsColor := scale.IsColorRange(rangeOf(r.Scale))
	interpolating := r.Scale != nil && (r.Scale.Interpolate != "" || rangeIsColor)
	vectorAllowed := def.Vector == scale.VectorAlways ||
		(def.Vector == scale.VectorInterpolated && interpolating)
	if out > 1 && kind != channel.ScaleIdentity && !vectorAllowed {
		return fmt.Errorf("channel %q uses vector components but scale %q only supports scalars", name, kind)
	}
	if kind == channel.ScaleIdentity && out > 1 && in != out {
		return fmt.Errorf("channel %q only supports mismatched input/output components when mapping scalars to vectors", name)
	}
	scalarToVector := out > 1 && in == 1 && kind != channel.ScaleIdentity && vectorAllowed
	if out > 1 && typ != channel.F32 && !scalarToVector {
		return fmt.Errorf("only f32 vectors are supported for %q right now", name)
	}
	if in != out && !scalarToVector && !packedIndex {
		return fmt.Errorf("channel %q only supports mismatched input/output components when mapping scalars to vectors", name)
	}

	if r.Scale != nil && r.Scale.Interpolate != "" {
		if !rangeIsColor {
			return fmt.Errorf("channel %q requires a color range when interpolate is set", name)
		}
		if !def.Continuous {
			return fmt.Errorf("channel %q only supports color interpolation with continuous scales", name)
		}
		if out != 4 {
			return fmt.Errorf("channel %q requires vec4 outputs when interpolate is set", name)
		}
	}
	if def.Continuous && rangeIsColor && out != 4 {
		return fmt.Errorf("channel %q requires vec4 outputs when using color ranges", name)
	}

	if err := validateStops(r, def); err != nil {
		return err
	}
	if err := validateSource(r, kind); err != nil {
		return err
	}
	return nil
}

func rangeOf(s *channel.Scale) []any {
	if s == nil {
		return nil
	}
	return s.Range
}

func validateStops(r *Resolved, def *scale.Def) error {
	name, s := r.Name, r.Scale
	switch {
	case def.Type == channel.ScaleThreshold:
		if _, ok := scale.RangeInterpolator(s.Range); ok {
			return fmt.Errorf("threshold scale on %q does not support interpolator ranges", name)
		}
		if len(s.Domain) == 0 {
			return fmt.Errorf("threshold scale on %q requires a non-empty domain", name)
		}
		if len(s.Range) < 2 {
			return fmt.Errorf("threshold scale on %q requires at least two range entries", name)
		}
		if len(s.Range) != len(s.Domain)+1 {
			return fmt.Errorf("threshold scale on %q requires range length of %d, got %d", name, len(s.Domain)+1, len(s.Range))
		}
		if r.InputComponents != 1 {
			return fmt.Errorf("threshold scale on %q requires scalar input values", name)
		}
	case scale.IsPiecewise(s):
		if _, ok := scale.RangeInterpolator(s.Range); ok {
			return fmt.Errorf("piecewise scale on %q does not support interpolator ranges", name)
		}
		if len(s.Domain) < 2 {
			return fmt.Errorf("piecewise scale on %q requires at least two domain entries", name)
		}
		if len(s.Range) < 2 {
			return fmt.Errorf("piecewise scale on %q requires at least two range entries", name)
		}
		if len(s.Domain) != len(s.Range) {
			return fmt.Errorf("piecewise scale on %q requires range length of %d, got %d", name, len(s.Domain), len(s.Range))
		}
		if r.InputComponents != 1 {
			return fmt.Errorf("piecewise scale on %q requires scalar input values", name)
		}
	case def.Type == channel.ScaleQuantize:
		if len(s.Domain) != 0 && len(s.Domain) != 2 {
			return fmt.Errorf("quantize scale on %q requires a domain with exactly two entries", name)
		}
		if _, ok := scale.RangeInterpolator(s.Range); ok {
			return fmt.Errorf("quantize scale on %q does not support interpolator ranges", name)
		}
		if r.InputComponents != 1 {
			return fmt.Errorf("quantize scale on %q requires scalar input values", name)
		}
		if r.Components != 1 && r.Components != 4 {
			return fmt.Errorf("channel %q uses %d components but quantize scales only support scalars or vec4 outputs", name, r.Components)
		}
	case def.Type == channel.ScaleOrdinal:
		if _, ok := scale.RangeInterpolator(s.Range); ok {
			return fmt.Errorf("ordinal scale on %q does not support interpolator ranges", name)
		}
		if len(s.Range) == 0 {
			return fmt.Errorf("ordinal scale on %q requires a non-empty range", name)
		}
		if r.InputComponents != 1 {
			return fmt.Errorf("ordinal scale on %q requires scalar input values", name)
		}
		if r.Components != 1 && r.Components != 4 {
			return fmt.Errorf("channel %q uses %d components but ordinal scales only support scalars or vec4 outputs", name, r.Components)
		}
	}
	return nil
}

func validateSource(r *Resolved, kind channel.ScaleType) error {
	name := r.Name
	if r.HasData() {
		return checkDataType(r)
	}
	if len(r.Value) != 1 && len(r.Value) != r.InputComponents {
		return fmt.Errorf("channel %q expects %d values, got %d", name, r.InputComponents, len(r.Value))
	}
	switch kind {
	case channel.ScaleOrdinal:
		if len(r.Value) > 1 {
			return fmt.Errorf("ordinal scale on %q requires scalar integer values", name)
		}
		if r.Value[0] != math.Trunc(r.Value[0]) {
			return fmt.Errorf("ordinal scale on %q requires integer values", name)
		}
	case channel.ScaleBand:
		if r.Value[0] != math.Trunc(r.Value[0]) {
			return fmt.Errorf("band scale on %q requires integer values when using an ordinal domain", name)
		}
	}
	return nil
}

// HighPrecision reports whether a series channel stores []float64 values
// as hi/lo u32 pairs.
func (r *Resolved) HighPrecision() bool {
	_, f64 := r.Data.([]float64)
	return f64 && r.ScalarType() == channel.U32 &&
		r.Scale.Kind() == channel.ScaleIndex && r.InputComponents == 2
}

func checkDataType(r *Resolved) error {
	if r.HighPrecision() {
		return nil
	}
	var ok bool
	var want string
	switch r.ScalarType() {
	case channel.F32:
		_, ok = r.Data.([]float32)
		want = "[]float32"
	case channel.U32:
		_, ok = r.Data.([]uint32)
		want = "[]uint32"
	case channel.I32:
		_, ok = r.Data.([]int32)
		want = "[]int32"
	}
	if !ok {
		return fmt.Errorf("channel %q expects a %s for %s data, got %T", r.Name, want, r.ScalarType(), r.Data)
	}
	return nil
}
