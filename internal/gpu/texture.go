package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RangeTextureWidth is the texel count of a continuous color ramp.
const RangeTextureWidth = 256

// RangeTexture is a 256x1 RGBA8 ramp sampled with clamp-to-edge linear
// filtering.
type RangeTexture struct {
	device  hal.Device
	queue   hal.Queue
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
}

// NewRangeTexture creates the texture, its view and its sampler.
func NewRangeTexture(device hal.Device, queue hal.Queue, label string) (*RangeTexture, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	rt := &RangeTexture{device: device, queue: queue}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              RangeTextureWidth,
			Height:             1,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	rt.tex = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		rt.Destroy()
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}
	rt.view = view

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		rt.Destroy()
		return nil, fmt.Errorf("create %s sampler: %w", label, err)
	}
	rt.sampler = sampler
	return rt, nil
}

// Write uploads RangeTextureWidth RGBA8 texels.
func (rt *RangeTexture) Write(texels []byte) error {
	if rt.tex == nil {
		return ErrBufferDestroyed
	}
	if len(texels) != RangeTextureWidth*4 {
		return fmt.Errorf("gpu: range texture expects %d bytes, got %d", RangeTextureWidth*4, len(texels))
	}
	if rt.queue == nil {
		return nil
	}
	rt.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: rt.tex, MipLevel: 0},
		texels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: RangeTextureWidth * 4, RowsPerImage: 1},
		&hal.Extent3D{Width: RangeTextureWidth, Height: 1, DepthOrArrayLayers: 1},
	)
	return nil
}

// View returns the texture view.
func (rt *RangeTexture) View() hal.TextureView { return rt.view }

// Sampler returns the sampler.
func (rt *RangeTexture) Sampler() hal.Sampler { return rt.sampler }

// Destroy releases the sampler, view and texture.
func (rt *RangeTexture) Destroy() {
	if rt == nil {
		return
	}
	if rt.sampler != nil {
		rt.device.DestroySampler(rt.sampler)
		rt.sampler = nil
	}
	if rt.view != nil {
		rt.device.DestroyTextureView(rt.view)
		rt.view = nil
	}
	if rt.tex != nil {
		rt.device.DestroyTexture(rt.tex)
		rt.tex = nil
	}
}
