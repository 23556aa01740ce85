package marks

import (
	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/ir"
)

// SlotHandles are typed setters for the updatable parts of a program,
// keyed by channel, selection or mark uniform name. They are shortcuts for
// the Update methods and share their validation.
type SlotHandles struct {
	Scales     map[string]ScaleSlot
	Values     map[string]ValueSlot
	Selections map[string]SelectionSlot
	Uniforms   map[string]UniformSlot
}

// ScaleSlot updates the scale of one channel.
type ScaleSlot struct {
	p       *Program
	channel string
}

// SetDomain replaces the scale domain.
func (s ScaleSlot) SetDomain(domain []float64) error {
	return s.p.UpdateScaleDomains(map[string][]float64{s.channel: domain})
}

// SetRange replaces the scale range.
func (s ScaleSlot) SetRange(rng []any) error {
	return s.p.UpdateScaleRanges(map[string][]any{s.channel: rng})
}

// ValueSlot updates a dynamic channel value. Conditions holds the slots of
// dynamic condition values, keyed by selection name.
type ValueSlot struct {
	p          *Program
	name       string
	Conditions map[string]ValueSlot
}

// Set writes a number or a []float64 vector.
func (s ValueSlot) Set(v any) error {
	return s.p.UpdateValues(map[string]any{s.name: v})
}

// UniformSlot updates one mark uniform.
type UniformSlot struct {
	p    *Program
	name string
}

// Set writes a number or a []float64 vector.
func (s UniformSlot) Set(v any) error {
	return s.p.UpdateUniforms(map[string]any{s.name: v})
}

// SelectionSlot updates one selection.
type SelectionSlot struct {
	p    *Program
	name string
}

// SetSingle selects one unique id. Zero clears the selection.
func (s SelectionSlot) SetSingle(id uint32) error {
	return s.p.UpdateSelection(s.name, SelectionUpdate{Type: channel.SelectionSingle, ID: id})
}

// SetMulti selects a set of unique ids.
func (s SelectionSlot) SetMulti(ids []uint32) error {
	return s.p.UpdateSelection(s.name, SelectionUpdate{Type: channel.SelectionMulti, IDs: ids})
}

// SetInterval selects values in [lo, hi].
func (s SelectionSlot) SetInterval(lo, hi float64) error {
	return s.p.UpdateSelection(s.name, SelectionUpdate{Type: channel.SelectionInterval, Min: lo, Max: hi})
}

// Clear empties the selection.
func (s SelectionSlot) Clear() error {
	d, err := s.p.selection(s.name)
	if err != nil {
		return err
	}
	u := clearedSelection(d)
	return s.p.UpdateSelection(s.name, SelectionUpdate{Type: u.Type, Min: u.Min, Max: u.Max})
}

// SlotHandles returns the program's slot handles. The same value is
// returned on every call.
func (p *Program) SlotHandles() *SlotHandles { return p.slots }

func newSlotHandles(p *Program) *SlotHandles {
	h := &SlotHandles{
		Scales:     make(map[string]ScaleSlot),
		Values:     make(map[string]ValueSlot),
		Selections: make(map[string]SelectionSlot),
		Uniforms:   make(map[string]UniformSlot),
	}
	for _, ch := range p.channels {
		if !ch.Plan.IsIdentity() {
			h.Scales[ch.Name] = ScaleSlot{p: p, channel: ch.Name}
		}
		var conds map[string]ValueSlot
		for _, c := range ch.Conditions {
			if c.Value == nil || c.Value.Source != ir.SourceUniform {
				continue
			}
			if conds == nil {
				conds = make(map[string]ValueSlot)
			}
			conds[c.When.Selection] = ValueSlot{p: p, name: c.Value.Name}
		}
		if ch.Source == ir.SourceUniform || conds != nil {
			h.Values[ch.Name] = ValueSlot{p: p, name: ch.Name, Conditions: conds}
		}
	}
	for _, d := range p.selections {
		h.Selections[d.Name] = SelectionSlot{p: p, name: d.Name}
	}
	for _, u := range p.contract.Uniforms {
		h.Uniforms[u.Name] = UniformSlot{p: p, name: u.Name}
	}
	return h
}
