// Package selection compiles selection predicates and the conditional
// dispatch of channels whose value depends on a selection.
package selection

import (
	"fmt"
	"strings"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/wgsl"
)

// UniqueIDChannel is the channel single and multi selections test against.
const UniqueIDChannel = "uniqueId"

// Def is a selection referenced by at least one channel condition.
type Def struct {
	Name string
	Type channel.SelectionType

	// Channel and Secondary are the tested channels of interval
	// selections. Secondary is x2 or y2 when the mark has it.
	Channel   string
	Secondary string

	// ScalarType is the type of the interval bounds.
	ScalarType channel.ScalarType
}

// Collect gathers selection defs from channel conditions in declaration
// order.
func Collect(channels []*ir.Channel) ([]*Def, error) {
	var defs []*Def
	byName := map[string]*Def{}
	for _, ch := range channels {
		for _, cond := range ch.Conditions {
			w := cond.When
			if existing, ok := byName[w.Selection]; ok {
				if existing.Type != w.Type {
					return nil, fmt.Errorf("selection %q must keep a single type", w.Selection)
				}
				if existing.Type == channel.SelectionInterval && existing.Channel != w.Channel {
					return nil, fmt.Errorf("selection %q must target a single interval channel", w.Selection)
				}
				continue
			}
			d, err := newDef(w, channels)
			if err != nil {
				return nil, err
			}
			byName[d.Name] = d
			defs = append(defs, d)
		}
	}
	if _, ok := ir.Find(channels, UniqueIDChannel); !ok {
		for _, d := range defs {
			if d.Type == channel.SelectionSingle || d.Type == channel.SelectionMulti {
				return nil, fmt.Errorf(`selections of type "single" or "multi" require the %q channel`, UniqueIDChannel)
			}
		}
	}
	return defs, nil
}

func newDef(w channel.When, channels []*ir.Channel) (*Def, error) {
	d := &Def{Name: w.Selection, Type: w.Type}
	switch w.Type {
	case channel.SelectionSingle, channel.SelectionMulti:
		return d, nil
	case channel.SelectionInterval:
	default:
		return nil, fmt.Errorf("selection %q has unsupported type %q", w.Selection, w.Type)
	}
	if w.Channel == "" {
		return nil, fmt.Errorf("interval selection %q must specify a channel", w.Selection)
	}
	target, ok := ir.Find(channels, w.Channel)
	if !ok {
		return nil, fmt.Errorf("interval selection %q references unknown channel %q", w.Selection, w.Channel)
	}
	if target.InputComponents != 1 {
		return nil, fmt.Errorf("interval selection %q requires scalar channel %q", w.Selection, w.Channel)
	}
	d.Channel = w.Channel
	d.ScalarType = target.ScalarType
	if sec, ok := ir.Find(channels, secondaryOf(w.Channel)); ok && sec.InputComponents == 1 && sec.ScalarType == target.ScalarType {
		d.Secondary = sec.Name
	}
	return d, nil
}

func secondaryOf(name string) string {
	switch name {
	case "x":
		return "x2"
	case "y":
		return "y2"
	}
	return ""
}

// UniformName is the params field holding the selection state.
func (d *Def) UniformName() string {
	if d.Type == channel.SelectionMulti {
		return wgsl.SelectionCountPrefix + d.Name
	}
	return wgsl.SelectionPrefix + d.Name
}

// BufferName is the hash set buffer of a multi selection.
func (d *Def) BufferName() string {
	return wgsl.SelectionBufferPrefix + d.Name
}

// UniformFields lists the selection uniforms in def order.
func UniformFields(defs []*Def) []layout.UniformField {
	fields := make([]layout.UniformField, 0, len(defs))
	for _, d := range defs {
		switch d.Type {
		case channel.SelectionSingle, channel.SelectionMulti:
			fields = append(fields, layout.UniformField{Name: d.UniformName(), Type: channel.U32, Components: 1})
		case channel.SelectionInterval:
			fields = append(fields, layout.UniformField{Name: d.UniformName(), Type: d.ScalarType, Components: 2})
		}
	}
	return fields
}

// InitialValue is the uniform value of an empty selection. Empty intervals
// are stored as [1, 0] so that no value lies inside them.
func (d *Def) InitialValue() []float64 {
	if d.Type == channel.SelectionInterval {
		return []float64{1, 0}
	}
	return []float64{0}
}

// Update is a new selection state.
type Update struct {
	Type     channel.SelectionType
	ID       uint32
	IDs      []uint32
	Min, Max float64
}

// Apply writes u into the uniform buffer. For multi selections it returns
// the hash set to upload; minCapacity keeps the table at least as large as
// the current buffer.
func (d *Def) Apply(u Update, uniforms *layout.UniformBuffer, minCapacity int) (*hashtable.Table, error) {
	if u.Type != d.Type {
		return nil, fmt.Errorf("selection %q must remain type %q", d.Name, d.Type)
	}
	switch d.Type {
	case channel.SelectionSingle:
		return nil, uniforms.SetValue(d.UniformName(), float64(u.ID))
	case channel.SelectionInterval:
		return nil, uniforms.SetValue(d.UniformName(), []float64{u.Min, u.Max})
	}
	table, err := hashtable.BuildSet(u.IDs, minCapacity)
	if err != nil {
		return nil, fmt.Errorf("selection %q: %w", d.Name, err)
	}
	if err := uniforms.SetValue(d.UniformName(), float64(table.Size)); err != nil {
		return nil, err
	}
	return table, nil
}

// Matches evaluates the predicate on the CPU. id is the element's unique
// id; v and v2 are its primary and secondary interval values.
func (d *Def) Matches(u Update, set *hashtable.Table, id uint32, v, v2 float64) bool {
	switch d.Type {
	case channel.SelectionSingle:
		return u.ID != 0 && id == u.ID
	case channel.SelectionMulti:
		return set != nil && set.Size > 0 && set.Contains(id)
	}
	if d.Secondary != "" {
		lo, hi := min(v, v2), max(v, v2)
		return hi >= u.Min && lo <= u.Max
	}
	return v >= u.Min && v <= u.Max
}

func predicateName(d *Def) string {
	return wgsl.PredicatePrefix + d.Name
}

// EmitPredicates returns the isSelected_ functions and the lookup
// functions of multi selection buffers.
func EmitPredicates(defs []*Def, channels []*ir.Channel) (string, error) {
	var b strings.Builder
	for _, d := range defs {
		fmt.Fprintf(&b, "fn %s(i: u32) -> bool {\n", predicateName(d))
		switch d.Type {
		case channel.SelectionSingle:
			fmt.Fprintf(&b, "    let id = params.%s;\n", d.UniformName())
			fmt.Fprintf(&b, "    return id != 0u && %s%s(i) == id;\n", wgsl.ScaledFunctionPrefix, UniqueIDChannel)
		case channel.SelectionMulti:
			fmt.Fprintf(&b, "    if (params.%s == 0u) {\n        return false;\n    }\n", d.UniformName())
			fmt.Fprintf(&b, "    return %s(%s%s(i)) != HASH_NOT_FOUND;\n",
				hashtable.LookupName(d.BufferName()), wgsl.ScaledFunctionPrefix, UniqueIDChannel)
		case channel.SelectionInterval:
			target, ok := ir.Find(channels, d.Channel)
			if !ok {
				return "", fmt.Errorf("interval selection %q references unknown channel %q", d.Name, d.Channel)
			}
			fmt.Fprintf(&b, "    let bounds = params.%s;\n", d.UniformName())
			if sec, ok := ir.Find(channels, d.Secondary); ok {
				fmt.Fprintf(&b, "    let a = %s;\n    let b = %s;\n", target.RawValueExpr, sec.RawValueExpr)
				b.WriteString("    return max(a, b) >= bounds.x && min(a, b) <= bounds.y;\n")
			} else {
				fmt.Fprintf(&b, "    let v = %s;\n", target.RawValueExpr)
				b.WriteString("    return v >= bounds.x && v <= bounds.y;\n")
			}
		}
		b.WriteString("}\n")
		if d.Type == channel.SelectionMulti {
			b.WriteString(hashtable.LookupFunction(hashtable.LookupName(d.BufferName()), d.BufferName()))
		}
	}
	return b.String(), nil
}

// conditionExpr is the WGSL test of one condition.
func conditionExpr(w channel.When) string {
	call := predicateName(&Def{Name: w.Selection}) + "(i)"
	if w.Type == channel.SelectionMulti && w.EmptyMatchesAll {
		return fmt.Sprintf("(params.%s%s == 0u || %s)", wgsl.SelectionCountPrefix, w.Selection, call)
	}
	return call
}

// EmitConditional returns getScaled_<name> for a conditional channel. It
// tests the conditions in order and falls back to the base value.
func EmitConditional(ch *ir.Channel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s%s(i: u32) -> %s {\n", wgsl.ScaledFunctionPrefix, ch.Name, ch.Plan.ReturnType())
	for _, c := range ch.Conditions {
		target := c.Ref
		if c.Value != nil {
			target = c.Value.Name
		}
		fmt.Fprintf(&b, "    if (%s) {\n        return %s%s(i);\n    }\n", conditionExpr(c.When), wgsl.ScaledFunctionPrefix, target)
	}
	fmt.Fprintf(&b, "    return %s%s(i);\n}\n", wgsl.ScaledFunctionPrefix, ch.Function)
	return b.String()
}
