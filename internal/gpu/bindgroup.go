package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/marks/internal/shader"
)

var (
	// ErrNilDevice is returned when a builder receives a nil device.
	ErrNilDevice = errors.New("gpu: device is nil")

	// ErrMissingResource is returned when a bind group entry has no handle.
	ErrMissingResource = errors.New("gpu: missing resource")
)

// Resources resolves resource names to live handles. Lookups return nil
// for unknown names.
type Resources interface {
	Buffer(name string) hal.Buffer
	TextureView(name string) hal.TextureView
	Sampler(name string) hal.Sampler
}

// BindGroupConfig describes a group 1 bind group.
type BindGroupConfig struct {
	Label     string
	Layout    hal.BindGroupLayout
	Uniform   hal.Buffer
	Resources []shader.Resource
}

// BuildBindGroup walks the resource list in binding order and resolves
// each entry through res. It fails on the first missing handle.
func BuildBindGroup(device hal.Device, cfg BindGroupConfig, res Resources) (hal.BindGroup, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cfg.Uniform == nil {
		return nil, fmt.Errorf("%w: missing uniform buffer binding", ErrMissingResource)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(cfg.Resources)+1)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: cfg.Uniform.NativeHandle()},
	})
	for _, r := range cfg.Resources {
		e, err := resolve(r, res)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	group, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   cfg.Label,
		Layout:  cfg.Layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group: %w", cfg.Label, err)
	}
	slogger().Debug("bind group built", "label", cfg.Label, "entries", len(entries))
	return group, nil
}

func resolve(r shader.Resource, res Resources) (gputypes.BindGroupEntry, error) {
	e := gputypes.BindGroupEntry{Binding: r.Binding}
	switch {
	case r.Role.IsBuffer():
		buf := res.Buffer(r.Name)
		if buf == nil {
			return e, fmt.Errorf("%w: missing buffer binding for %q", ErrMissingResource, r.Name)
		}
		e.Resource = gputypes.BufferBinding{Buffer: buf.NativeHandle()}
	case r.Role.IsTexture():
		view := res.TextureView(r.Name)
		if view == nil {
			return e, fmt.Errorf("%w: missing texture binding for %q", ErrMissingResource, r.Name)
		}
		e.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
	case r.Role.IsSampler():
		s := res.Sampler(r.Name)
		if s == nil {
			return e, fmt.Errorf("%w: missing sampler binding for %q", ErrMissingResource, r.Name)
		}
		e.Resource = gputypes.SamplerBinding{Sampler: s.NativeHandle()}
	default:
		return e, fmt.Errorf("%w: unknown role %s for %q", ErrMissingResource, r.Role, r.Name)
	}
	return e, nil
}

// ResourceSet is a map-backed Resources.
type ResourceSet struct {
	Buffers  map[string]hal.Buffer
	Views    map[string]hal.TextureView
	Samplers map[string]hal.Sampler
}

// NewResourceSet returns an empty set.
func NewResourceSet() *ResourceSet {
	return &ResourceSet{
		Buffers:  make(map[string]hal.Buffer),
		Views:    make(map[string]hal.TextureView),
		Samplers: make(map[string]hal.Sampler),
	}
}

func (s *ResourceSet) Buffer(name string) hal.Buffer           { return s.Buffers[name] }
func (s *ResourceSet) TextureView(name string) hal.TextureView { return s.Views[name] }
func (s *ResourceSet) Sampler(name string) hal.Sampler         { return s.Samplers[name] }
