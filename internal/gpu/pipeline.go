package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/marks/internal/shader"
)

// PipelineConfig describes a mark render pipeline.
type PipelineConfig struct {
	Label string

	// Code is the assembled WGSL with vs_main and fs_main entry points.
	Code string

	// Resources are the group 1 bindings after the uniform buffer.
	Resources []shader.Resource

	// GlobalsLayout is the renderer's group 0 layout.
	GlobalsLayout hal.BindGroupLayout

	// Format defaults to BGRA8Unorm.
	Format gputypes.TextureFormat

	// SampleCount defaults to 1.
	SampleCount uint32
}

// Pipeline owns the GPU objects compiled from one mark program.
type Pipeline struct {
	Shader      hal.ShaderModule
	GroupLayout hal.BindGroupLayout
	Layout      hal.PipelineLayout
	Render      hal.RenderPipeline
}

// BuildPipeline compiles the shader and creates a render pipeline whose
// group 1 layout matches cfg.Resources exactly. Instances are drawn as
// triangle lists without culling and blended as premultiplied alpha.
func BuildPipeline(device hal.Device, cfg PipelineConfig) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cfg.GlobalsLayout == nil {
		return nil, fmt.Errorf("%s: globals layout is required", cfg.Label)
	}
	format := cfg.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	sampleCount := cfg.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	p := &Pipeline{}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  cfg.Label + "_shader",
		Source: hal.ShaderSource{WGSL: cfg.Code},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s shader: %w", cfg.Label, err)
	}
	p.Shader = module

	groupLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   cfg.Label + "_group1_layout",
		Entries: shader.LayoutEntries(cfg.Resources),
	})
	if err != nil {
		p.Destroy(device)
		return nil, fmt.Errorf("create %s bind group layout: %w", cfg.Label, err)
	}
	p.GroupLayout = groupLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            cfg.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{cfg.GlobalsLayout, groupLayout},
	})
	if err != nil {
		p.Destroy(device)
		return nil, fmt.Errorf("create %s pipeline layout: %w", cfg.Label, err)
	}
	p.Layout = layout

	premulBlend := gputypes.BlendStatePremultiplied()
	render, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  cfg.Label + "_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy(device)
		return nil, fmt.Errorf("create %s pipeline: %w", cfg.Label, err)
	}
	p.Render = render

	slogger().Debug("mark pipeline created",
		"label", cfg.Label,
		"bindings", len(cfg.Resources)+1,
		"wgsl_bytes", len(cfg.Code))
	return p, nil
}

// Destroy releases the pipeline objects in reverse creation order.
func (p *Pipeline) Destroy(device hal.Device) {
	if p == nil || device == nil {
		return
	}
	if p.Render != nil {
		device.DestroyRenderPipeline(p.Render)
		p.Render = nil
	}
	if p.Layout != nil {
		device.DestroyPipelineLayout(p.Layout)
		p.Layout = nil
	}
	if p.GroupLayout != nil {
		device.DestroyBindGroupLayout(p.GroupLayout)
		p.GroupLayout = nil
	}
	if p.Shader != nil {
		device.DestroyShaderModule(p.Shader)
		p.Shader = nil
	}
}
