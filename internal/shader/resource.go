package shader

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/marks/channel"
)

// Role identifies what a group 1 resource holds.
type Role uint8

const (
	// RoleSeries is a packed series storage buffer.
	RoleSeries Role = iota
	// RoleOrdinalRange is the range storage buffer of an ordinal scale.
	RoleOrdinalRange
	// RoleDomainMap is the hash table of a band or ordinal domain.
	RoleDomainMap
	// RoleRangeTexture is the color ramp of an interpolated scale.
	RoleRangeTexture
	// RoleRangeSampler samples a range texture.
	RoleRangeSampler
	// RoleExtraTexture is a texture declared by the mark.
	RoleExtraTexture
	// RoleExtraSampler is a sampler declared by the mark.
	RoleExtraSampler
	// RoleExtraBuffer is a read-only storage buffer declared by the mark,
	// or the hash set of a multi selection.
	RoleExtraBuffer
)

func (r Role) String() string {
	switch r {
	case RoleSeries:
		return "series"
	case RoleOrdinalRange:
		return "ordinalRange"
	case RoleDomainMap:
		return "domainMap"
	case RoleRangeTexture:
		return "rangeTexture"
	case RoleRangeSampler:
		return "rangeSampler"
	case RoleExtraTexture:
		return "extraTexture"
	case RoleExtraSampler:
		return "extraSampler"
	case RoleExtraBuffer:
		return "extraBuffer"
	}
	return fmt.Sprintf("Role(%d)", r)
}

// IsBuffer reports whether the role binds a storage buffer.
func (r Role) IsBuffer() bool {
	switch r {
	case RoleSeries, RoleOrdinalRange, RoleDomainMap, RoleExtraBuffer:
		return true
	}
	return false
}

// IsTexture reports whether the role binds a texture view.
func (r Role) IsTexture() bool { return r == RoleRangeTexture || r == RoleExtraTexture }

// IsSampler reports whether the role binds a sampler.
func (r Role) IsSampler() bool { return r == RoleRangeSampler || r == RoleExtraSampler }

// Stages is a set of shader stages a resource is visible to.
type Stages uint8

// Shader stages.
const (
	StageVertex Stages = 1 << iota
	StageFragment
)

// Resource is one group 1 binding. Binding is assigned by Build and never
// changes for the lifetime of the program.
type Resource struct {
	Name       string
	Role       Role
	Binding    uint32
	Visibility Stages

	// Owner is the channel of a scale resource or the selection of a
	// multi selection buffer.
	Owner string

	// ScalarType is the element type of a series buffer.
	ScalarType channel.ScalarType

	// WGSLType is the declared type, e.g. array<f32> or texture_2d<f32>.
	WGSLType string
}

// Declaration renders the WGSL module-scope variable.
func (r Resource) Declaration() string {
	if r.Role.IsBuffer() {
		return fmt.Sprintf("@group(1) @binding(%d) var<storage, read> %s: %s;\n", r.Binding, r.Name, r.WGSLType)
	}
	return fmt.Sprintf("@group(1) @binding(%d) var %s: %s;\n", r.Binding, r.Name, r.WGSLType)
}

// LayoutEntry returns the bind group layout entry of the resource.
func (r Resource) LayoutEntry() gputypes.BindGroupLayoutEntry {
	e := gputypes.BindGroupLayoutEntry{Binding: r.Binding}
	if r.Visibility&StageVertex != 0 {
		e.Visibility |= gputypes.ShaderStageVertex
	}
	if r.Visibility&StageFragment != 0 {
		e.Visibility |= gputypes.ShaderStageFragment
	}
	switch {
	case r.Role.IsBuffer():
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	case r.Role.IsTexture():
		e.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case r.Role.IsSampler():
		e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	}
	return e
}

// ExtraKind is the kind of a mark-declared resource.
type ExtraKind uint8

// Extra resource kinds.
const (
	ExtraBuffer ExtraKind = iota
	ExtraTexture
	ExtraSampler
)

// Extra is a resource a mark declares outside the channel system, e.g. a
// glyph atlas. The program binds a caller-supplied handle to it.
type Extra struct {
	Name string
	Kind ExtraKind

	// WGSLType is the declared type. It defaults to array<f32> for
	// buffers, texture_2d<f32> for textures and sampler for samplers.
	WGSLType string

	// Visibility defaults to vertex|fragment.
	Visibility Stages
}

func (e Extra) resource() Resource {
	r := Resource{Name: e.Name, Visibility: e.Visibility, WGSLType: e.WGSLType}
	if r.Visibility == 0 {
		r.Visibility = StageVertex | StageFragment
	}
	switch e.Kind {
	case ExtraTexture:
		r.Role = RoleExtraTexture
		if r.WGSLType == "" {
			r.WGSLType = "texture_2d<f32>"
		}
	case ExtraSampler:
		r.Role = RoleExtraSampler
		r.WGSLType = "sampler"
	default:
		r.Role = RoleExtraBuffer
		if r.WGSLType == "" {
			r.WGSLType = "array<f32>"
		}
	}
	return r
}

// LayoutEntries returns the group 1 layout: the uniform buffer at binding 0
// followed by one entry per resource.
func LayoutEntries(resources []Resource) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(resources)+1)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for _, r := range resources {
		entries = append(entries, r.LayoutEntry())
	}
	return entries
}
