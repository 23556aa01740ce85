package marks

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/marks/internal/gpu"
	"github.com/gogpu/marks/internal/shader"
)

// Renderer owns the device, the queue and the group 0 Globals uniform
// shared by every program built on it.
type Renderer struct {
	device      hal.Device
	queue       hal.Queue
	format      gputypes.TextureFormat
	sampleCount uint32

	globals       *gpu.StorageBuffer
	globalsLayout hal.BindGroupLayout
	globalsGroup  hal.BindGroup

	width, height, dpr float64
	destroyed          bool
}

// NewRenderer creates a renderer on an existing device and queue. The
// caller keeps ownership of both.
func NewRenderer(device hal.Device, queue hal.Queue, opts ...RendererOption) (*Renderer, error) {
	if device == nil {
		return nil, gpu.ErrNilDevice
	}
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Renderer{
		device:      device,
		queue:       queue,
		format:      o.format,
		sampleCount: o.sampleCount,
	}

	globals, err := gpu.NewUniformBuffer(device, queue, "marks_globals", shader.GlobalsSize)
	if err != nil {
		return nil, err
	}
	r.globals = globals

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "marks_globals_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create globals layout: %w", err)
	}
	r.globalsLayout = layout

	group, err := gpu.BuildBindGroup(device, gpu.BindGroupConfig{
		Label:   "marks_globals",
		Layout:  layout,
		Uniform: globals.Buffer(),
	}, gpu.NewResourceSet())
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.globalsGroup = group

	if err := r.SetViewport(o.width, o.height, o.dpr); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// NewRendererFromProvider creates a renderer on a host application's
// device. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. The surface format
// of the provider is used unless an option overrides it.
func NewRendererFromProvider(provider gpucontext.DeviceProvider, opts ...RendererOption) (*Renderer, error) {
	if provider == nil {
		return nil, errors.New("marks: provider is nil")
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("marks: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("marks: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("marks: provider HalQueue is not hal.Queue")
	}
	all := make([]RendererOption, 0, len(opts)+1)
	all = append(all, WithSurfaceFormat(provider.SurfaceFormat()))
	all = append(all, opts...)
	return NewRenderer(device, queue, all...)
}

// SetViewport writes the viewport size in CSS pixels and the device pixel
// ratio to the Globals uniform. Programs see the change on their next
// draw without rebuilding anything.
func (r *Renderer) SetViewport(width, height, dpr float64) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if dpr <= 0 {
		dpr = 1
	}
	r.width, r.height, r.dpr = width, height, dpr

	var buf [shader.GlobalsSize]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(height)))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(dpr)))
	_, err := r.globals.Write(buf[:])
	return err
}

// Viewport returns the values last passed to SetViewport.
func (r *Renderer) Viewport() (width, height, dpr float64) {
	return r.width, r.height, r.dpr
}

// Format returns the color target format.
func (r *Renderer) Format() gputypes.TextureFormat { return r.format }

// Device returns the device programs are built on.
func (r *Renderer) Device() hal.Device { return r.device }

// Destroy releases the Globals buffer, layout and bind group. Programs
// built on the renderer must be destroyed first.
func (r *Renderer) Destroy() {
	if r.destroyed {
		Logger().Warn("marks: renderer destroyed twice")
		return
	}
	r.destroyed = true
	if r.globalsGroup != nil {
		r.device.DestroyBindGroup(r.globalsGroup)
		r.globalsGroup = nil
	}
	if r.globalsLayout != nil {
		r.device.DestroyBindGroupLayout(r.globalsLayout)
		r.globalsLayout = nil
	}
	r.globals.Destroy()
}
