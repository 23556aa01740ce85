package marks

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/color"
	"github.com/gogpu/marks/internal/gpu"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/scale"
	"github.com/gogpu/marks/internal/selection"
	"github.com/gogpu/marks/internal/wgsl"
	"github.com/gogpu/marks/mark"
)

// UpdateSeries replaces the data of series-backed channels. Channels not
// named in data keep their previous arrays. A negative count (see
// InferCount) derives the count from the data lengths.
//
// Content-only updates reuse the existing buffers. When a buffer has to
// grow, the bind group is rebuilt before the call returns.
func (p *Program) UpdateSeries(data map[string]any, count int) error {
	if p.destroyed {
		return ErrDestroyed
	}
	merged := maps.Clone(p.data)
	for _, name := range slices.Sorted(maps.Keys(data)) {
		ch, ok := ir.Find(p.channels, name)
		if !ok || ch.Source != ir.SourceSeries {
			return fmt.Errorf("%w: channel %q is not series-backed", ErrInvalidChannel, name)
		}
		merged[name] = data[name]
	}
	if count < 0 {
		n, ok, err := layout.InferCount(p.series.Channels(), merged)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
		}
		count = p.count
		if ok {
			count = n
		}
	}
	return p.commit(func() error {
		return p.uploadSeries(merged, count)
	})
}

// UpdateValues writes dynamic channel values. Keys are channel names,
// including derived condition channels such as "fill__cond0"; values are
// numbers or []float64 vectors. Either every value is written or none is.
func (p *Program) UpdateValues(values map[string]any) error {
	if p.destroyed {
		return ErrDestroyed
	}
	names := slices.Sorted(maps.Keys(values))
	for _, name := range names {
		if uniform := wgsl.ValuePrefix + name; !p.uniforms.Has(uniform) {
			return fmt.Errorf("%w: uniform %q is not available for updates", ErrUnknownUniform, uniform)
		}
	}
	return p.setUniforms(ErrInvalidChannel, func(yield func(string, any) bool) {
		for _, name := range names {
			if !yield(wgsl.ValuePrefix+name, values[name]) {
				return
			}
		}
	})
}

// UpdateUniforms writes mark uniforms declared in mark.Contract.Uniforms,
// keyed by their Params member name. Either every value is written or none
// is.
func (p *Program) UpdateUniforms(values map[string]any) error {
	if p.destroyed {
		return ErrDestroyed
	}
	names := slices.Sorted(maps.Keys(values))
	for _, name := range names {
		if !p.hasMarkUniform(name) {
			return fmt.Errorf("%w: mark %q declares no uniform %q", ErrUnknownUniform, p.contract.Name, name)
		}
	}
	return p.setUniforms(ErrInvalidUniform, func(yield func(string, any) bool) {
		for _, name := range names {
			if !yield(name, values[name]) {
				return
			}
		}
	})
}

func (p *Program) hasMarkUniform(name string) bool {
	return slices.ContainsFunc(p.contract.Uniforms, func(u mark.Uniform) bool { return u.Name == name })
}

// setUniforms writes every value of seq into the uniform mirror. On the
// first rejected value the mirror is restored, nothing is uploaded and the
// error is wrapped in kind.
func (p *Program) setUniforms(kind error, seq iter.Seq2[string, any]) error {
	saved := p.uniforms.Snapshot()
	for name, v := range seq {
		if err := p.uniforms.SetValue(name, v); err != nil {
			p.uniforms.Restore(saved)
			return fmt.Errorf("%w: %w", kind, err)
		}
	}
	return p.sync()
}

type domainChange struct {
	ch  *ir.Channel
	upd scale.DomainUpdate
}

type rangeChange struct {
	ch  *ir.Channel
	upd scale.RangeUpdate
}

// UpdateScaleDomains replaces scale domains by channel name. Every domain
// is validated before any is written, so a rejected update leaves all
// scales unchanged.
func (p *Program) UpdateScaleDomains(domains map[string][]float64) error {
	if p.destroyed {
		return ErrDestroyed
	}
	names := slices.Sorted(maps.Keys(domains))
	changes := make([]domainChange, 0, len(names))
	for _, name := range names {
		ch, err := p.scaledChannel(name)
		if err != nil {
			return err
		}
		upd, err := p.normalizeDomain(ch, domains[name])
		if err != nil {
			return err
		}
		changes = append(changes, domainChange{ch: ch, upd: upd})
	}
	return p.commit(func() error {
		for _, c := range changes {
			if err := p.writeDomain(c.ch, c.upd); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateScaleRanges replaces scale ranges by channel name. Entries may be
// numbers, []float64 vectors or CSS colors, as in channel.Scale.Range. Every
// range is validated before any is written.
func (p *Program) UpdateScaleRanges(ranges map[string][]any) error {
	if p.destroyed {
		return ErrDestroyed
	}
	names := slices.Sorted(maps.Keys(ranges))
	changes := make([]rangeChange, 0, len(names))
	for _, name := range names {
		ch, err := p.scaledChannel(name)
		if err != nil {
			return err
		}
		upd, err := p.normalizeRange(ch, ranges[name])
		if err != nil {
			return err
		}
		changes = append(changes, rangeChange{ch: ch, upd: upd})
	}
	return p.commit(func() error {
		for _, c := range changes {
			if err := p.writeRange(c.ch, c.upd); err != nil {
				return err
			}
		}
		return nil
	})
}

// commit runs write and then syncs, also when write fails part way. A
// handle replaced before the failure is bound before the next draw.
func (p *Program) commit(write func() error) error {
	err := write()
	if serr := p.sync(); err == nil {
		err = serr
	}
	return err
}

func (p *Program) scaledChannel(name string) (*ir.Channel, error) {
	ch, ok := ir.Find(p.channels, name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidChannel, name)
	}
	if ch.Plan.IsIdentity() {
		return nil, fmt.Errorf("%w: channel %q has no scale", ErrInvalidChannel, name)
	}
	return ch, nil
}

// applyDomain normalizes and stores a domain.
func (p *Program) applyDomain(ch *ir.Channel, domain []float64) error {
	upd, err := p.normalizeDomain(ch, domain)
	if err != nil {
		return err
	}
	return p.writeDomain(ch, upd)
}

func (p *Program) normalizeDomain(ch *ir.Channel, domain []float64) (scale.DomainUpdate, error) {
	upd, err := ch.Plan.NormalizeDomain(domain)
	if err != nil {
		return scale.DomainUpdate{}, fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	return upd, nil
}

// writeDomain stores a normalized domain: the uniform stops and, for band
// and ordinal scales, the domain map and its key count.
func (p *Program) writeDomain(ch *ir.Channel, upd scale.DomainUpdate) error {
	if upd.Uniform != nil {
		if err := p.uniforms.SetValue(wgsl.DomainPrefix+ch.Name, upd.Uniform); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
		}
	}
	if !ch.NeedsDomainMap {
		return nil
	}
	name := wgsl.DomainMapPrefix + ch.Name
	table, err := hashtable.BuildIndex(upd.Keys, p.tableCapacity(name))
	if err != nil {
		return fmt.Errorf("%w: scale domain for %q: %w", ErrInvalidChannel, ch.Name, err)
	}
	if err := p.writeBuffer(name, table.Bytes()); err != nil {
		return err
	}
	return p.uniforms.SetValue(wgsl.DomainMapCountPrefix+ch.Name, float64(len(upd.Keys)))
}

// applyRange normalizes and stores a range.
func (p *Program) applyRange(ch *ir.Channel, rng []any) error {
	upd, err := p.normalizeRange(ch, rng)
	if err != nil {
		return err
	}
	return p.writeRange(ch, upd)
}

func (p *Program) normalizeRange(ch *ir.Channel, rng []any) (scale.RangeUpdate, error) {
	upd, err := ch.Plan.NormalizeRange(rng, p.fallbackRange(ch.Name))
	if err != nil {
		return scale.RangeUpdate{}, fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	return upd, nil
}

// writeRange stores a normalized range in the uniform stops, the color
// ramp texture or the ordinal range buffer.
func (p *Program) writeRange(ch *ir.Channel, upd scale.RangeUpdate) error {
	if upd.Uniform != nil {
		if err := p.uniforms.SetValue(wgsl.RangePrefix+ch.Name, upd.Uniform); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
		}
	}
	if ch.UseRangeTexture {
		tex, err := p.rangeTexture(ch.Name)
		if err != nil {
			return err
		}
		if err := tex.Write(rampTexels(ch, upd)); err != nil {
			return err
		}
	}
	if ch.NeedsOrdinalRange {
		if err := p.writeBuffer(wgsl.OrdinalRangePrefix+ch.Name, ch.Plan.OrdinalRangeBytes(upd.Ordinal)); err != nil {
			return err
		}
		return p.uniforms.SetValue(wgsl.RangeCountPrefix+ch.Name, float64(len(upd.Ordinal)))
	}
	return nil
}

// rampTexels renders the range texture of ch from color stops or an
// interpolator.
func rampTexels(ch *ir.Channel, upd scale.RangeUpdate) []byte {
	if upd.Interpolator != nil {
		return color.RampFunc(func(t float32) color.ColorF32 {
			c := upd.Interpolator(float64(t))
			return color.ColorF32{R: float32(c[0]), G: float32(c[1]), B: float32(c[2]), A: float32(c[3])}
		}, gpu.RangeTextureWidth)
	}
	linear := ch.Plan.Scale.Interpolate == channel.InterpolateLinearRGB
	return color.Ramp(upd.Ramp, gpu.RangeTextureWidth, linear)
}

// fallbackRange is the range of a continuous scale that declares none:
// the program option first, then the mark default for the current
// viewport. Nil means [0, 1].
func (p *Program) fallbackRange(name string) []float64 {
	w, h, _ := p.renderer.Viewport()
	if p.opts.defaultRange != nil {
		if r := p.opts.defaultRange(name, w, h); r != nil {
			return r
		}
	}
	if fn := p.contract.Channels.DefaultScaleRange; fn != nil && w > 0 && h > 0 {
		return fn(name, w, h)
	}
	return nil
}

// SelectionUpdate is the new state of a selection. Type must match the
// selection's declared type. Single selections use ID (0 selects
// nothing), multi selections use IDs and interval selections use Min and
// Max.
type SelectionUpdate struct {
	Type     channel.SelectionType
	ID       uint32
	IDs      []uint32
	Min, Max float64
}

// UpdateSelection replaces the state of the named selection.
func (p *Program) UpdateSelection(name string, u SelectionUpdate) error {
	if p.destroyed {
		return ErrDestroyed
	}
	d, err := p.selection(name)
	if err != nil {
		return err
	}
	return p.commit(func() error {
		return p.applySelection(d, selection.Update(u))
	})
}

func (p *Program) selection(name string) (*selection.Def, error) {
	for _, d := range p.selections {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: selection %q is not defined", ErrInvalidSelection, name)
}

// clearedSelection is the empty state of a selection.
func clearedSelection(d *selection.Def) selection.Update {
	u := selection.Update{Type: d.Type}
	if d.Type == channel.SelectionInterval {
		v := d.InitialValue()
		u.Min, u.Max = v[0], v[1]
	}
	return u
}

func (p *Program) applySelection(d *selection.Def, u selection.Update) error {
	table, err := d.Apply(u, p.uniforms, p.tableCapacity(d.BufferName()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	if table != nil {
		if err := p.writeBuffer(d.BufferName(), table.Bytes()); err != nil {
			return err
		}
	}
	p.selectionState[d.Name] = selectionState{update: u, set: table}
	return nil
}

// IsSelected evaluates the named selection on the CPU with the same
// predicate the shader uses. id is the element's unique id; v and v2 are
// its values of the interval channel and its secondary (x2 or y2).
func (p *Program) IsSelected(name string, id uint32, v, v2 float64) (bool, error) {
	d, err := p.selection(name)
	if err != nil {
		return false, err
	}
	st, ok := p.selectionState[name]
	if !ok {
		return false, nil
	}
	return d.Matches(st.update, st.set, id, v, v2), nil
}
