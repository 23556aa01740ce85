package ir

import (
	"fmt"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/scale"
	"github.com/gogpu/marks/internal/wgsl"
)

// SourceKind says where a channel's raw value comes from.
type SourceKind uint8

const (
	// SourceSeries reads per-instance values from a packed series buffer.
	SourceSeries SourceKind = iota
	// SourceUniform reads a dynamic value from the params uniform.
	SourceUniform
	// SourceLiteral inlines a static value into the shader.
	SourceLiteral
)

func (k SourceKind) String() string {
	switch k {
	case SourceSeries:
		return "series"
	case SourceUniform:
		return "uniform"
	case SourceLiteral:
		return "literal"
	}
	return fmt.Sprintf("SourceKind(%d)", k)
}

// Channel is the compiled form of one channel. It is built once per
// program and never mutated afterwards.
type Channel struct {
	Name string

	// Function is the suffix of the generated getScaled_ function. It
	// differs from Name for the base value of a conditional channel.
	Function string

	Source       SourceKind
	RawValueExpr string

	ScalarType       channel.ScalarType
	OutputScalarType channel.ScalarType
	InputComponents  int
	OutputComponents int

	ScaleType channel.ScaleType
	Plan      *scale.Plan

	// Value is the initial value of uniform and literal sources, padded to
	// InputComponents.
	Value []float64

	HighPrecision bool

	NeedsScaleFunction bool
	NeedsOrdinalRange  bool
	NeedsDomainMap     bool
	UseRangeTexture    bool

	Conditions []Condition
}

// Condition is a compiled channel condition.
type Condition struct {
	When channel.When

	// Value is the derived value channel, nil when the condition
	// references another channel.
	Value *Channel
	Ref   string
}

// ValueUniform is the params field of a dynamic value channel.
func (c *Channel) ValueUniform() string {
	return wgsl.ValuePrefix + c.Name
}

// IsConditional reports whether the channel dispatches on selections.
func (c *Channel) IsConditional() bool { return len(c.Conditions) > 0 }

// Build lowers resolved channels into IR. Conditions become derived value
// channels named <name>__cond<k>.
func Build(resolved []*Resolved) ([]*Channel, error) {
	byName := make(map[string]*Resolved, len(resolved))
	for _, r := range resolved {
		byName[r.Name] = r
	}
	out := make([]*Channel, 0, len(resolved))
	for _, r := range resolved {
		ch, err := BuildChannel(r)
		if err != nil {
			return nil, err
		}
		for k, cond := range r.Conditions {
			c, err := buildCondition(ch, k, cond, byName)
			if err != nil {
				return nil, err
			}
			ch.Conditions = append(ch.Conditions, c)
		}
		if ch.IsConditional() {
			ch.Function = wgsl.BaseName(ch.Name)
			ch.Plan.Function = ch.Function
		}
		out = append(out, ch)
	}
	return out, nil
}

// BuildChannel lowers one resolved channel, ignoring its conditions.
func BuildChannel(r *Resolved) (*Channel, error) {
	typ := r.ScalarType()
	plan, err := scale.NewPlan(r.Name, r.Scale, typ, r.InputComponents, r.Components)
	if err != nil {
		return nil, err
	}
	ch := &Channel{
		Name:               r.Name,
		Function:           r.Name,
		ScalarType:         typ,
		OutputScalarType:   plan.OutputType,
		InputComponents:    r.InputComponents,
		OutputComponents:   r.Components,
		ScaleType:          r.Scale.Kind(),
		Plan:               plan,
		NeedsScaleFunction: !plan.IsIdentity(),
		NeedsOrdinalRange:  plan.NeedsOrdinalRange(),
		NeedsDomainMap:     plan.NeedsDomainMap(),
		UseRangeTexture:    plan.UseRangeTexture,
	}
	switch {
	case r.HasData():
		ch.Source = SourceSeries
		ch.RawValueExpr = wgsl.ReadFunctionPrefix + r.Name + "(i)"
		ch.HighPrecision = r.HighPrecision()
	case r.Dynamic:
		ch.Source = SourceUniform
		ch.Value = PadValue(r.Value, r.InputComponents)
		ch.RawValueExpr = "params." + ch.ValueUniform()
	default:
		ch.Source = SourceLiteral
		ch.Value = PadValue(r.Value, r.InputComponents)
		ch.RawValueExpr = wgsl.FormatLiteral(typ, r.InputComponents, ch.Value)
	}
	return ch, nil
}

func buildCondition(parent *Channel, k int, cond channel.Condition, byName map[string]*Resolved) (Condition, error) {
	c := Condition{When: cond.When}
	if cond.When.Selection == "" {
		return c, fmt.Errorf("condition %d on %q must name a selection", k, parent.Name)
	}
	switch {
	case cond.Value != nil && cond.Ref != "":
		return c, fmt.Errorf("condition %d on %q must not specify both value and ref", k, parent.Name)
	case cond.Ref != "":
		ref, ok := byName[cond.Ref]
		if !ok {
			return c, fmt.Errorf("condition %d on %q references unknown channel %q", k, parent.Name, cond.Ref)
		}
		if ref.Name == parent.Name {
			return c, fmt.Errorf("condition %d on %q must not reference its own channel", k, parent.Name)
		}
		if len(ref.Conditions) > 0 {
			return c, fmt.Errorf("condition %d on %q must not reference conditional channel %q", k, parent.Name, cond.Ref)
		}
		refPlan, err := scale.NewPlan(ref.Name, ref.Scale, ref.ScalarType(), ref.InputComponents, ref.Components)
		if err != nil {
			return c, err
		}
		if ref.Components != parent.OutputComponents || refPlan.OutputType != parent.OutputScalarType {
			return c, fmt.Errorf("condition %d on %q references %q with a different output type", k, parent.Name, cond.Ref)
		}
		c.Ref = cond.Ref
		return c, nil
	case cond.Value != nil:
		v := *cond.Value
		if v.Data != nil {
			return c, fmt.Errorf("condition %d on %q must use a value, not data", k, parent.Name)
		}
		if v.Value == nil {
			v.Value = v.Default
		}
		if v.Value == nil {
			return c, fmt.Errorf("condition %d on %q must specify a value", k, parent.Name)
		}
		if v.Scale != nil || v.Conditions != nil {
			return c, fmt.Errorf("condition %d on %q must not define a scale or conditions", k, parent.Name)
		}
		r := &Resolved{Name: wgsl.ConditionName(parent.Name, k), Config: v}
		r.Type = channel.Type(parent.OutputScalarType)
		r.Components = parent.OutputComponents
		r.InputComponents = parent.OutputComponents
		if len(r.Value) != 1 && len(r.Value) != r.Components {
			return c, fmt.Errorf("channel %q expects %d values, got %d", r.Name, r.Components, len(r.Value))
		}
		ch, err := BuildChannel(r)
		if err != nil {
			return c, err
		}
		c.Value = ch
		return c, nil
	}
	return c, fmt.Errorf("condition %d on %q must specify either value or ref", k, parent.Name)
}

// PadValue pads or truncates v to n components.
func PadValue(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}

// ValueChannels lists the channels whose value is a dynamic uniform,
// including derived condition channels.
func ValueChannels(channels []*Channel) []*Channel {
	var out []*Channel
	for _, ch := range channels {
		if ch.Source == SourceUniform {
			out = append(out, ch)
		}
		for _, c := range ch.Conditions {
			if c.Value != nil && c.Value.Source == SourceUniform {
				out = append(out, c.Value)
			}
		}
	}
	return out
}

// Find returns the channel with the given name.
func Find(channels []*Channel, name string) (*Channel, bool) {
	for _, ch := range channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return nil, false
}
