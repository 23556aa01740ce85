package marks

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ProgramOption configures a Program during creation.
//
// Example:
//
//	p, err := marks.NewProgram(r, mark.Rect(), cfg,
//	    marks.WithValidation(true),
//	    marks.WithDebugResources(true))
type ProgramOption func(*programOptions)

type programOptions struct {
	extras       ExtraResources
	debug        bool
	validate     bool
	defaultRange func(name string, width, height float64) []float64
}

func defaultProgramOptions() programOptions {
	return programOptions{}
}

// ExtraResources supplies handles for resources a mark declares outside
// the channel system, keyed by resource name.
type ExtraResources struct {
	Buffers      map[string]hal.Buffer
	TextureViews map[string]hal.TextureView
	Samplers     map[string]hal.Sampler
}

// WithExtraResources binds caller-owned handles to the mark's extra
// resources. The program never destroys them.
func WithExtraResources(res ExtraResources) ProgramOption {
	return func(o *programOptions) {
		o.extras = res
	}
}

// WithDebugResources enables DebugResources output for this program.
func WithDebugResources(enabled bool) ProgramOption {
	return func(o *programOptions) {
		o.debug = enabled
	}
}

// WithValidation parses and lowers the generated WGSL with naga before
// the pipeline is created. Validation failures are returned from
// NewProgram.
func WithValidation(enabled bool) ProgramOption {
	return func(o *programOptions) {
		o.validate = enabled
	}
}

// WithDefaultScaleRange overrides the mark's default range for continuous
// scales that declare none. Returning nil falls back to the mark default.
//
// Example:
//
//	marks.WithDefaultScaleRange(func(name string, w, h float64) []float64 {
//	    if name == "size" {
//	        return []float64{4, 400}
//	    }
//	    return nil
//	})
func WithDefaultScaleRange(fn func(name string, width, height float64) []float64) ProgramOption {
	return func(o *programOptions) {
		o.defaultRange = fn
	}
}

// RendererOption configures a Renderer during creation.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	format      gputypes.TextureFormat
	sampleCount uint32
	width       float64
	height      float64
	dpr         float64
}

func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		format:      gputypes.TextureFormatBGRA8Unorm,
		sampleCount: 1,
		dpr:         1,
	}
}

// WithSurfaceFormat sets the color target format of every pipeline the
// renderer builds. The default is BGRA8Unorm.
func WithSurfaceFormat(format gputypes.TextureFormat) RendererOption {
	return func(o *rendererOptions) {
		if format != gputypes.TextureFormatUndefined {
			o.format = format
		}
	}
}

// WithSampleCount sets the MSAA sample count of the render target.
func WithSampleCount(n uint32) RendererOption {
	return func(o *rendererOptions) {
		if n > 0 {
			o.sampleCount = n
		}
	}
}

// WithViewport sets the initial viewport in CSS pixels and the device
// pixel ratio.
func WithViewport(width, height, dpr float64) RendererOption {
	return func(o *rendererOptions) {
		o.width = width
		o.height = height
		if dpr > 0 {
			o.dpr = dpr
		}
	}
}
