package marks

import (
	"log/slog"
	"strings"

	"github.com/gogpu/marks/internal/gpu"
	"github.com/gogpu/marks/internal/shader"
	"github.com/gogpu/marks/internal/wgsl"
)

// ResourceInfo describes one group 1 resource for debugging.
type ResourceInfo struct {
	Name    string
	Role    shader.Role
	Binding uint32
	// Bytes is the allocation size of buffers and textures; zero for
	// samplers and caller-supplied extras.
	Bytes uint64
}

// ResourceInfo lists the live group 1 resources in binding order.
func (p *Program) ResourceInfo() []ResourceInfo {
	out := make([]ResourceInfo, 0, len(p.resources))
	for _, r := range p.resources {
		info := ResourceInfo{Name: r.Name, Role: r.Role, Binding: r.Binding}
		switch {
		case r.Role.IsBuffer():
			if b, ok := p.buffers[r.Name]; ok {
				info.Bytes = b.Size()
			}
		case r.Role == shader.RoleRangeTexture:
			if _, ok := p.textures[strings.TrimPrefix(r.Name, wgsl.RangeTexturePrefix)]; ok {
				info.Bytes = gpu.RangeTextureWidth * 4
			}
		}
		out = append(out, info)
	}
	return out
}

// DebugResources logs the uniform size and every group 1 resource at debug
// level. It does nothing unless the program was built with
// WithDebugResources(true).
func (p *Program) DebugResources(label string) {
	if !p.opts.debug {
		return
	}
	if label == "" {
		label = p.contract.Name
	}
	l := Logger()
	l.Debug("marks: resources", "label", label, "uniform_bytes", p.uniforms.Len(), "count", p.count)
	for _, info := range p.ResourceInfo() {
		l.Debug("marks: resource",
			"label", label,
			slog.String("name", info.Name),
			slog.String("role", info.Role.String()),
			slog.Uint64("binding", uint64(info.Binding)),
			slog.Uint64("bytes", info.Bytes))
	}
}
