// Package shader assembles the WGSL program of a mark from its compiled
// channels, uniform layout and shader body, and assigns the group 1
// bindings the pipeline and bind group are built from.
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/cache"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/preprocess"
	"github.com/gogpu/marks/internal/scale"
	"github.com/gogpu/marks/internal/selection"
	"github.com/gogpu/marks/internal/wgsl"
)

// ErrValidation wraps naga parse and lowering failures of generated WGSL.
var ErrValidation = errors.New("shader: generated WGSL failed validation")

// Globals is the group 0 uniform shared by every program of a renderer.
const Globals = `struct Globals {
    width: f32,
    height: f32,
    dpr: f32,
}

@group(0) @binding(0) var<uniform> globals: Globals;
`

// GlobalsSize is the byte size of the Globals uniform buffer.
const GlobalsSize = 16

// Params is the input of Build.
type Params struct {
	Channels   []*ir.Channel
	Series     *layout.SeriesLayout
	Uniforms   *layout.UniformBuffer
	Selections []*selection.Def
	Extras     []Extra

	// Body is the mark shader body with vs_main and fs_main. It is run
	// through the preprocessor with HAS_<CHANNEL> defined for every present
	// channel, plus Defines.
	Body    string
	Defines map[string]string

	// Validate parses and lowers the result with naga.
	Validate bool
}

// Result is the assembled program.
type Result struct {
	Code      string
	Resources []Resource
}

// Build assigns bindings and emits the WGSL source.
func Build(p Params) (*Result, error) {
	if p.Uniforms == nil || p.Series == nil {
		return nil, errors.New("shader: uniform and series layouts are required")
	}
	if err := checkUniforms(p.Channels, p.Uniforms); err != nil {
		return nil, err
	}
	resources, err := assignBindings(p)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(Globals)
	b.WriteString("\n")
	b.WriteString(scale.Library)
	b.WriteString("\n")
	if needsHashTables(resources) {
		b.WriteString(hashtable.Library)
		b.WriteString("\n")
	}
	b.WriteString(p.Uniforms.WGSLStruct("Params"))
	b.WriteString("\n@group(1) @binding(0) var<uniform> params: Params;\n\n")

	var extras []Resource
	for _, r := range resources {
		if r.Role == RoleExtraBuffer || r.Role == RoleExtraTexture || r.Role == RoleExtraSampler {
			extras = append(extras, r)
			continue
		}
		b.WriteString(r.Declaration())
	}
	b.WriteString("\n")

	for _, ch := range p.Channels {
		if ch.Source != ir.SourceSeries {
			continue
		}
		fn, err := p.Series.ReadFunction(ch.Name)
		if err != nil {
			return nil, err
		}
		b.WriteString(fn)
	}
	for _, r := range resources {
		if r.Role == RoleDomainMap {
			b.WriteString(hashtable.LookupFunction(hashtable.LookupName(r.Name), r.Name))
		}
	}
	b.WriteString("\n")

	preds, err := selection.EmitPredicates(p.Selections, p.Channels)
	if err != nil {
		return nil, err
	}
	if preds != "" {
		b.WriteString(preds)
		b.WriteString("\n")
	}

	for _, ch := range p.Channels {
		src, err := emitChannel(ch)
		if err != nil {
			return nil, err
		}
		b.WriteString(src)
	}
	b.WriteString("\n")

	for _, r := range extras {
		b.WriteString(r.Declaration())
	}
	if len(extras) > 0 {
		b.WriteString("\n")
	}

	body, err := preprocess.Process(p.Body, Defines(p.Channels, p.Defines))
	if err != nil {
		return nil, err
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	res := &Result{Code: b.String(), Resources: resources}
	if p.Validate {
		if err := Validate(res.Code); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// emitChannel emits the getScaled_ functions of a channel: its scale, the
// values of its conditions and the conditional dispatcher.
func emitChannel(ch *ir.Channel) (string, error) {
	lookupFn := ""
	if ch.NeedsDomainMap {
		lookupFn = hashtable.LookupName(wgsl.DomainMapPrefix + ch.Name)
	}
	src, err := ch.Plan.Emit(ch.RawValueExpr, lookupFn)
	if err != nil {
		return "", err
	}
	if !ch.IsConditional() {
		return src, nil
	}
	var b strings.Builder
	b.WriteString(src)
	for _, c := range ch.Conditions {
		if c.Value == nil {
			continue
		}
		v, err := c.Value.Plan.Emit(c.Value.RawValueExpr, "")
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	b.WriteString(selection.EmitConditional(ch))
	return b.String(), nil
}

// Defines returns the preprocessor macros of a program: HAS_<CHANNEL> for
// every present channel, overlaid with extra.
func Defines(channels []*ir.Channel, extra map[string]string) map[string]string {
	defs := make(map[string]string, len(channels)+len(extra))
	for _, ch := range channels {
		defs["HAS_"+strings.ToUpper(ch.Name)] = "1"
	}
	for k, v := range extra {
		defs[k] = v
	}
	return defs
}

// checkUniforms verifies that every resource-backed scale has its count
// uniform in the layout.
func checkUniforms(channels []*ir.Channel, u *layout.UniformBuffer) error {
	for _, ch := range channels {
		if ch.NeedsOrdinalRange {
			if name := wgsl.RangeCountPrefix + ch.Name; !u.Has(name) {
				return fmt.Errorf("missing uniform %q for ordinal range of %q", name, ch.Name)
			}
		}
		if ch.NeedsDomainMap {
			if name := wgsl.DomainMapCountPrefix + ch.Name; !u.Has(name) {
				return fmt.Errorf("missing uniform %q for domain map of %q", name, ch.Name)
			}
		}
	}
	return nil
}

// assignBindings lists the group 1 resources with sequential bindings from
// 1: series buffers, ordinal ranges, domain maps, range texture and sampler
// pairs, then mark extras and multi selection buffers.
func assignBindings(p Params) ([]Resource, error) {
	var out []Resource
	seen := map[string]bool{"params": true, "globals": true}
	add := func(r Resource) error {
		if seen[r.Name] {
			return fmt.Errorf("duplicate resource name %q", r.Name)
		}
		seen[r.Name] = true
		r.Binding = uint32(len(out) + 1)
		out = append(out, r)
		return nil
	}

	for _, t := range []channel.ScalarType{channel.F32, channel.U32, channel.I32} {
		if !p.Series.Used(t) {
			continue
		}
		if err := add(Resource{
			Name:       wgsl.SeriesBufferName(t),
			Role:       RoleSeries,
			Visibility: StageVertex,
			ScalarType: t,
			WGSLType:   "array<" + t.String() + ">",
		}); err != nil {
			return nil, err
		}
	}
	for _, ch := range p.Channels {
		if !ch.NeedsOrdinalRange {
			continue
		}
		if err := add(Resource{
			Name:       wgsl.OrdinalRangePrefix + ch.Name,
			Role:       RoleOrdinalRange,
			Visibility: StageVertex,
			Owner:      ch.Name,
			WGSLType:   "array<" + ch.Plan.OrdinalRangeElement() + ">",
		}); err != nil {
			return nil, err
		}
	}
	for _, ch := range p.Channels {
		if !ch.NeedsDomainMap {
			continue
		}
		if err := add(Resource{
			Name:       wgsl.DomainMapPrefix + ch.Name,
			Role:       RoleDomainMap,
			Visibility: StageVertex,
			Owner:      ch.Name,
			WGSLType:   "array<HashEntry>",
		}); err != nil {
			return nil, err
		}
	}
	for _, ch := range p.Channels {
		if !ch.UseRangeTexture {
			continue
		}
		if err := add(Resource{
			Name:       wgsl.RangeTexturePrefix + ch.Name,
			Role:       RoleRangeTexture,
			Visibility: StageVertex | StageFragment,
			Owner:      ch.Name,
			WGSLType:   "texture_2d<f32>",
		}); err != nil {
			return nil, err
		}
		if err := add(Resource{
			Name:       wgsl.RangeSamplerPrefix + ch.Name,
			Role:       RoleRangeSampler,
			Visibility: StageVertex | StageFragment,
			Owner:      ch.Name,
			WGSLType:   "sampler",
		}); err != nil {
			return nil, err
		}
	}
	for _, e := range p.Extras {
		if e.Name == "" {
			return nil, errors.New("extra resources must have a name")
		}
		if err := add(e.resource()); err != nil {
			return nil, err
		}
	}
	for _, d := range p.Selections {
		if d.Type != channel.SelectionMulti {
			continue
		}
		if err := add(Resource{
			Name:       d.BufferName(),
			Role:       RoleExtraBuffer,
			Visibility: StageVertex,
			Owner:      d.Name,
			WGSLType:   "array<HashEntry>",
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func needsHashTables(resources []Resource) bool {
	for _, r := range resources {
		if r.WGSLType == "array<HashEntry>" {
			return true
		}
	}
	return false
}

// validated memoizes Validate by source.
var validated = cache.New[string, error](64)

// Validate parses and lowers WGSL source with naga. Results are cached by
// source text.
func Validate(code string) error {
	return validated.GetOrCreate(code, func() error { return validate(code) })
}

// ValidationStats reports the validation cache statistics.
func ValidationStats() cache.Stats { return validated.Stats() }

func validate(code string) error {
	ast, err := naga.Parse(code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := naga.LowerWithSource(ast, code); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
