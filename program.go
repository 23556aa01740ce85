package marks

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/gpu"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/selection"
	"github.com/gogpu/marks/internal/shader"
	"github.com/gogpu/marks/internal/wgsl"
	"github.com/gogpu/marks/mark"
)

// InferCount tells UpdateSeries to derive the instance count from the
// length of the series data.
const InferCount = -1

// Config is the per-program channel configuration.
type Config struct {
	Channels map[string]channel.Config

	// Count is the number of instances to draw. Zero or negative infers it
	// from the series data; a program without series channels then draws
	// one instance.
	Count int
}

// RenderPass is the subset of hal.RenderPassEncoder used by Draw.
type RenderPass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// Program is a compiled mark: its shader, pipeline, uniform state and GPU
// resources. A program is driven from one goroutine.
type Program struct {
	renderer *Renderer
	contract *mark.Contract
	opts     programOptions

	channels   []*ir.Channel
	selections []*selection.Def
	series     *layout.SeriesLayout
	uniforms   *layout.UniformBuffer
	code       string
	resources  []shader.Resource

	data  map[string]any
	count int

	uniformBuf *gpu.StorageBuffer
	buffers    map[string]*gpu.StorageBuffer
	textures   map[string]*gpu.RangeTexture
	pipeline   *gpu.Pipeline
	group      hal.BindGroup

	// dirty is set when a buffer or texture handle changes.
	dirty   bool
	rebinds int

	selectionState map[string]selectionState
	slots          *SlotHandles
	destroyed      bool
}

type selectionState struct {
	update selection.Update
	set    *hashtable.Table
}

// NewProgram validates cfg against the mark contract, generates the
// shader, creates the pipeline and uploads the initial series, uniforms
// and scale resources.
func NewProgram(r *Renderer, c *mark.Contract, cfg Config, opts ...ProgramOption) (*Program, error) {
	if r == nil || c == nil {
		return nil, ErrNilRenderer
	}
	if r.destroyed {
		return nil, ErrDestroyed
	}
	o := defaultProgramOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Program{
		renderer:       r,
		contract:       c,
		opts:           o,
		data:           make(map[string]any),
		buffers:        make(map[string]*gpu.StorageBuffer),
		textures:       make(map[string]*gpu.RangeTexture),
		selectionState: make(map[string]selectionState),
	}
	if err := p.compile(cfg); err != nil {
		return nil, err
	}
	if err := p.createResources(cfg); err != nil {
		p.release()
		return nil, err
	}
	p.slots = newSlotHandles(p)
	Logger().Debug("marks: program created",
		"mark", c.Name,
		"channels", len(p.channels),
		"resources", len(p.resources),
		"count", p.count)
	return p, nil
}

// compile runs the CPU half: normalization, IR, layouts and WGSL.
func (p *Program) compile(cfg Config) error {
	resolved, err := ir.Normalize(&p.contract.Channels, cfg.Channels)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	chs, err := ir.Build(resolved)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	sels, err := selection.Collect(chs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	for _, r := range resolved {
		if r.HasData() {
			p.data[r.Name] = r.Data
		}
	}

	seriesChs := shader.SeriesChannels(chs)
	series, err := layout.BuildSeriesLayout(seriesChs, layout.Aliases(seriesChs, p.data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	markFields, err := markUniformFields(p.contract)
	if err != nil {
		return err
	}
	uniforms, err := layout.NewUniformBuffer(shader.UniformFields(chs, sels, markFields...))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUniform, err)
	}

	extras := make([]shader.Extra, len(p.contract.Extras))
	for i, e := range p.contract.Extras {
		extras[i] = shader.Extra{Name: e.Name, Kind: shader.ExtraKind(e.Kind), WGSLType: e.WGSLType}
	}
	res, err := shader.Build(shader.Params{
		Channels:   chs,
		Series:     series,
		Uniforms:   uniforms,
		Selections: sels,
		Extras:     extras,
		Body:       p.contract.Body,
		Defines:    p.contract.Defines,
		Validate:   p.opts.validate,
	})
	if err != nil {
		return err
	}

	p.channels = chs
	p.selections = sels
	p.series = series
	p.uniforms = uniforms
	p.code = res.Code
	p.resources = res.Resources
	return nil
}

// createResources runs the GPU half. Any partially created objects are
// released by the caller on error.
func (p *Program) createResources(cfg Config) error {
	r := p.renderer
	if err := p.initUniforms(); err != nil {
		return err
	}
	ub, err := gpu.NewUniformBuffer(r.device, r.queue, p.label("params"), uint64(p.uniforms.Len()))
	if err != nil {
		return err
	}
	p.uniformBuf = ub

	for _, ch := range p.channels {
		if ch.Plan.IsIdentity() {
			continue
		}
		if err := p.applyDomain(ch, ch.Plan.Scale.Domain); err != nil {
			return err
		}
		if err := p.applyRange(ch, ch.Plan.Scale.Range); err != nil {
			return err
		}
	}
	for _, d := range p.selections {
		if err := p.applySelection(d, clearedSelection(d)); err != nil {
			return err
		}
	}

	count := cfg.Count
	if count <= 0 {
		n, ok, err := layout.InferCount(p.series.Channels(), p.data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
		}
		count = 1
		if ok {
			count = n
		}
	}
	if err := p.uploadSeries(p.data, count); err != nil {
		return err
	}

	pipeline, err := gpu.BuildPipeline(r.device, gpu.PipelineConfig{
		Label:         p.label("mark"),
		Code:          p.code,
		Resources:     p.resources,
		GlobalsLayout: r.globalsLayout,
		Format:        r.format,
		SampleCount:   r.sampleCount,
	})
	if err != nil {
		return err
	}
	p.pipeline = pipeline
	p.dirty = true
	return p.sync()
}

// markUniformFields validates the contract's own uniforms and converts them
// to layout fields.
func markUniformFields(c *mark.Contract) ([]layout.UniformField, error) {
	fields := make([]layout.UniformField, 0, len(c.Uniforms))
	for _, u := range c.Uniforms {
		if !wgsl.IsIdentifier(u.Name) {
			return nil, fmt.Errorf("%w: %q is not a WGSL identifier", ErrInvalidUniform, u.Name)
		}
		comps := max(u.Components, 1)
		if u.Default != nil && len(u.Default) != comps {
			return nil, fmt.Errorf("%w: uniform %q expects %d default values, got %d",
				ErrInvalidUniform, u.Name, comps, len(u.Default))
		}
		fields = append(fields, layout.UniformField{Name: u.Name, Type: u.Type, Components: comps})
	}
	if c.Segments != "" && !slices.ContainsFunc(c.Uniforms, func(u mark.Uniform) bool {
		return u.Name == c.Segments && max(u.Components, 1) == 1
	}) {
		return nil, fmt.Errorf("%w: segments uniform %q is not a scalar mark uniform", ErrInvalidUniform, c.Segments)
	}
	return fields, nil
}

// initUniforms writes the initial value of every dynamic value, scale
// parameter and mark uniform.
func (p *Program) initUniforms() error {
	for _, ch := range ir.ValueChannels(p.channels) {
		if err := p.uniforms.SetValue(ch.ValueUniform(), ch.Value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
		}
	}
	for _, ch := range p.channels {
		for name, v := range ch.Plan.ParamValues() {
			if err := p.uniforms.SetValue(name, v); err != nil {
				return err
			}
		}
	}
	for _, u := range p.contract.Uniforms {
		if u.Default == nil {
			continue
		}
		if err := p.uniforms.SetValue(u.Name, u.Default); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUniform, err)
		}
	}
	return nil
}

func (p *Program) label(suffix string) string {
	return p.contract.Name + "_" + suffix
}

// uploadSeries packs data and writes every typed series buffer.
func (p *Program) uploadSeries(data map[string]any, count int) error {
	packed, err := layout.PackSeries(p.series, data, count)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
	}
	for _, t := range []channel.ScalarType{channel.F32, channel.U32, channel.I32} {
		if !p.series.Used(t) {
			continue
		}
		if err := p.writeBuffer(wgsl.SeriesBufferName(t), packed.Bytes(t)); err != nil {
			return err
		}
	}
	p.data = data
	p.count = count
	return nil
}

// writeBuffer uploads data to the named storage buffer, creating it on
// first use. A new or reallocated buffer marks the bind group dirty.
func (p *Program) writeBuffer(name string, data []byte) error {
	b, ok := p.buffers[name]
	if !ok {
		var err error
		b, err = gpu.NewStorageBuffer(p.renderer.device, p.renderer.queue, p.label(name), uint64(len(data)))
		if err != nil {
			return err
		}
		p.buffers[name] = b
		p.dirty = true
	}
	grown, err := b.Write(data)
	if err != nil {
		return err
	}
	if grown {
		p.dirty = true
	}
	return nil
}

// tableCapacity is the slot count a hash table needs to fill the named
// buffer, so lookups that use arrayLength see a consistent table.
func (p *Program) tableCapacity(name string) int {
	if b, ok := p.buffers[name]; ok {
		return max(2, int(b.Size()/hashtable.EntrySize))
	}
	return 2
}

func (p *Program) rangeTexture(ch string) (*gpu.RangeTexture, error) {
	if t, ok := p.textures[ch]; ok {
		return t, nil
	}
	t, err := gpu.NewRangeTexture(p.renderer.device, p.renderer.queue, p.label(wgsl.RangeTexturePrefix+ch))
	if err != nil {
		return nil, err
	}
	p.textures[ch] = t
	p.dirty = true
	return t, nil
}

// sync flushes the uniform buffer and rebuilds the bind group when a
// resource handle changed since the last build.
func (p *Program) sync() error {
	if _, err := p.uniformBuf.Write(p.uniforms.Bytes()); err != nil {
		return err
	}
	if !p.dirty || p.pipeline == nil {
		return nil
	}
	group, err := gpu.BuildBindGroup(p.renderer.device, gpu.BindGroupConfig{
		Label:     p.label("group1"),
		Layout:    p.pipeline.GroupLayout,
		Uniform:   p.uniformBuf.Buffer(),
		Resources: p.resources,
	}, programResources{p})
	if err != nil {
		return err
	}
	if p.group != nil {
		p.renderer.device.DestroyBindGroup(p.group)
	}
	p.group = group
	p.dirty = false
	p.rebinds++
	Logger().Debug("marks: bind group rebuilt", "mark", p.contract.Name, "rebinds", p.rebinds)
	return nil
}

// programResources resolves group 1 resource names to the program's live
// handles, falling back to caller-supplied extras.
type programResources struct{ p *Program }

func (r programResources) Buffer(name string) hal.Buffer {
	if b, ok := r.p.buffers[name]; ok {
		return b.Buffer()
	}
	return r.p.opts.extras.Buffers[name]
}

func (r programResources) TextureView(name string) hal.TextureView {
	if ch, ok := strings.CutPrefix(name, wgsl.RangeTexturePrefix); ok {
		if t, ok := r.p.textures[ch]; ok {
			return t.View()
		}
	}
	return r.p.opts.extras.TextureViews[name]
}

func (r programResources) Sampler(name string) hal.Sampler {
	if ch, ok := strings.CutPrefix(name, wgsl.RangeSamplerPrefix); ok {
		if t, ok := r.p.textures[ch]; ok {
			return t.Sampler()
		}
	}
	return r.p.opts.extras.Samplers[name]
}

// Draw records the program into pass: six vertices per instance and
// segment. It does nothing for destroyed or empty programs. A bind group left stale by a
// failed update is rebuilt first; if that fails the draw is skipped.
func (p *Program) Draw(pass RenderPass) {
	if p.destroyed || p.count <= 0 {
		return
	}
	if p.dirty {
		if err := p.Flush(); err != nil {
			Logger().Warn("marks: draw skipped", "mark", p.contract.Name, "err", err)
			return
		}
	}
	if p.group == nil {
		return
	}
	pass.SetPipeline(p.pipeline.Render)
	pass.SetBindGroup(0, p.renderer.globalsGroup, nil)
	pass.SetBindGroup(1, p.group, nil)
	pass.Draw(6*p.segments(), uint32(p.count), 0, 0)
}

// segments is the quad count per instance read from the mark's segments
// uniform, at least one.
func (p *Program) segments() uint32 {
	if p.contract.Segments == "" {
		return 1
	}
	v, ok := p.uniforms.Value(p.contract.Segments)
	if !ok || len(v) == 0 || v[0] < 1 {
		return 1
	}
	return uint32(math.Round(v[0]))
}

// Flush uploads pending uniforms and rebuilds the bind group if a resource
// handle changed since it was built. Updates flush on their own; Flush is
// for retrying after an update failed part way.
func (p *Program) Flush() error {
	if p.destroyed {
		return ErrDestroyed
	}
	return p.sync()
}

// ShaderCode returns the generated WGSL.
func (p *Program) ShaderCode() string { return p.code }

// Resources returns the group 1 resources in binding order. Binding 0,
// the params uniform, is not listed.
func (p *Program) Resources() []shader.Resource { return p.resources }

// Count returns the current instance count.
func (p *Program) Count() int { return p.count }

// Destroy releases every GPU object the program owns. Extra resources
// supplied by the caller are left alone.
func (p *Program) Destroy() {
	if p.destroyed {
		Logger().Warn("marks: program destroyed twice", "mark", p.contract.Name)
		return
	}
	p.release()
}

func (p *Program) release() {
	p.destroyed = true
	device := p.renderer.device
	if p.group != nil {
		device.DestroyBindGroup(p.group)
		p.group = nil
	}
	p.pipeline.Destroy(device)
	p.pipeline = nil
	for name, b := range p.buffers {
		b.Destroy()
		delete(p.buffers, name)
	}
	for name, t := range p.textures {
		t.Destroy()
		delete(p.textures, name)
	}
	p.uniformBuf.Destroy()
}
