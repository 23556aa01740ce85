package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/selection"
)

const testBody = `struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) v: u32, @builtin(instance_index) i: u32) -> VSOut {
    var o: VSOut;
    let x = getScaled_x(i);
#ifdef HAS_SIZE
    let s = getScaled_size(i);
#else
    let s = 1.0;
#endif
    o.pos = vec4<f32>(x / globals.width, s, 0.0, 1.0);
#if defined(HAS_FILL) && !defined(NO_FILL)
    o.color = getScaled_fill(i);
#else
    o.color = vec4<f32>(0.0, 0.0, 0.0, 1.0);
#endif
    return o;
}

@fragment
fn fs_main(v: VSOut) -> @location(0) vec4<f32> {
    return v.color;
}
`

func testContract() *channel.Contract {
	return &channel.Contract{
		Order:    []string{"uniqueId", "x", "y", "fill", "stroke", "size"},
		Optional: []string{"uniqueId", "y", "stroke", "size"},
		Specs: map[string]channel.Spec{
			"uniqueId": {Type: channel.U32, Components: 1},
			"x":        {Type: channel.F32, Components: 1},
			"y":        {Type: channel.F32, Components: 1},
			"fill":     {Type: channel.F32, Components: 4},
			"stroke":   {Type: channel.F32, Components: 4},
			"size":     {Type: channel.F32, Components: 1},
		},
		DefaultValues: map[string][]float64{"fill": {0, 0, 0, 1}},
	}
}

type built struct {
	channels   []*ir.Channel
	selections []*selection.Def
	params     Params
}

func prepare(t *testing.T, configs map[string]channel.Config) built {
	t.Helper()
	rs, err := ir.Normalize(testContract(), configs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := ir.Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sels, err := selection.Collect(chs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	series, err := layout.BuildSeriesLayout(SeriesChannels(chs), nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	uniforms, err := layout.NewUniformBuffer(UniformFields(chs, sels))
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	return built{
		channels:   chs,
		selections: sels,
		params: Params{
			Channels:   chs,
			Series:     series,
			Uniforms:   uniforms,
			Selections: sels,
			Body:       testBody,
		},
	}
}

func fullConfigs() map[string]channel.Config {
	return map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x": {
			Data:  []float32{0, 1},
			Scale: &channel.Scale{Type: channel.ScaleLinear, Domain: []float64{0, 1}, Range: []any{0.0, 100.0}},
		},
		"y": {
			Type:  channel.Type(channel.U32),
			Data:  []uint32{3, 4},
			Scale: &channel.Scale{Type: channel.ScaleBand, Domain: []float64{3, 4}, Range: []any{0.0, 100.0}},
		},
		"fill": {
			Type:            channel.Type(channel.U32),
			Data:            []uint32{1, 2},
			InputComponents: 1,
			Scale:           &channel.Scale{Type: channel.ScaleOrdinal, Domain: []float64{1, 2}, Range: []any{"red", "blue"}},
		},
		"stroke": {
			Data:            []float32{0, 1},
			InputComponents: 1,
			Scale:           &channel.Scale{Type: channel.ScaleLinear, Range: []any{"white", "black"}},
		},
		"size": {
			Value:   channel.Scalar(5),
			Dynamic: true,
			Conditions: []channel.Condition{
				{When: channel.When{Selection: "picked", Type: channel.SelectionMulti}, Value: &channel.Config{Value: channel.Scalar(10)}},
			},
		},
	}
}

func TestBindingOrder(t *testing.T) {
	b := prepare(t, fullConfigs())
	b.params.Extras = []Extra{{Name: "atlas", Kind: ExtraTexture}}
	res, err := Build(b.params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []struct {
		name string
		role Role
	}{
		{"seriesF32", RoleSeries},
		{"seriesU32", RoleSeries},
		{"range_fill", RoleOrdinalRange},
		{"domainMap_y", RoleDomainMap},
		{"domainMap_fill", RoleDomainMap},
		{"uRangeTexture_stroke", RoleRangeTexture},
		{"uRangeSampler_stroke", RoleRangeSampler},
		{"atlas", RoleExtraTexture},
		{"uSelectionBuffer_picked", RoleExtraBuffer},
	}
	if len(res.Resources) != len(want) {
		t.Fatalf("got %d resources, want %d: %+v", len(res.Resources), len(want), res.Resources)
	}
	for i, w := range want {
		r := res.Resources[i]
		if r.Name != w.name || r.Role != w.role || r.Binding != uint32(i+1) {
			t.Errorf("resource %d = %s/%s@%d, want %s/%s@%d", i, r.Name, r.Role, r.Binding, w.name, w.role, i+1)
		}
	}

	entries := LayoutEntries(res.Resources)
	if len(entries) != len(want)+1 {
		t.Fatalf("got %d layout entries", len(entries))
	}
	if entries[0].Buffer == nil || entries[0].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("binding 0 is not the uniform buffer")
	}
	if entries[1].Buffer == nil || entries[1].Buffer.Type != gputypes.BufferBindingTypeReadOnlyStorage {
		t.Errorf("series binding is not read-only storage")
	}
	if entries[6].Texture == nil || entries[7].Sampler == nil {
		t.Errorf("range texture/sampler entries = %+v, %+v", entries[6], entries[7])
	}
	if entries[1].Visibility != gputypes.ShaderStageVertex {
		t.Errorf("series visibility = %v", entries[1].Visibility)
	}
	if entries[6].Visibility != gputypes.ShaderStageVertex|gputypes.ShaderStageFragment {
		t.Errorf("range texture visibility = %v", entries[6].Visibility)
	}
}

func TestCodeSectionOrder(t *testing.T) {
	b := prepare(t, fullConfigs())
	b.params.Extras = []Extra{{Name: "atlas", Kind: ExtraTexture}}
	res, err := Build(b.params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	code := res.Code
	sections := []string{
		"struct Globals {",
		"@group(0) @binding(0) var<uniform> globals: Globals;",
		"fn scaleLinear(",
		"struct HashEntry {",
		"struct Params {",
		"@group(1) @binding(0) var<uniform> params: Params;",
		"@group(1) @binding(1) var<storage, read> seriesF32: array<f32>;",
		"@group(1) @binding(3) var<storage, read> range_fill: array<vec4<f32>>;",
		"@group(1) @binding(6) var uRangeTexture_stroke: texture_2d<f32>;",
		"fn read_x(i: u32) -> f32 {",
		"fn hashLookup_domainMap_y(key: u32) -> u32 {",
		"fn isSelected_picked(i: u32) -> bool {",
		"fn getScaled_x(i: u32) -> f32 {",
		"fn getScaled_size__base(i: u32) -> f32 { return params.u_size; }",
		"fn getScaled_size__cond0(i: u32) -> f32 { return 10.0; }",
		"fn getScaled_size(i: u32) -> f32 {",
		"@group(1) @binding(8) var atlas: texture_2d<f32>;",
		"@group(1) @binding(9) var<storage, read> uSelectionBuffer_picked: array<HashEntry>;",
		"fn vs_main(",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(code, s)
		if idx < 0 {
			t.Fatalf("missing %q in\n%s", s, code)
		}
		if idx < last {
			t.Errorf("%q is out of order", s)
		}
		last = idx
	}

	if !strings.Contains(code, "let s = getScaled_size(i);") || strings.Contains(code, "let s = 1.0;") {
		t.Errorf("HAS_SIZE branch not selected")
	}
	if strings.Contains(code, "#ifdef") || strings.Contains(code, "#endif") {
		t.Errorf("directives left in output")
	}
}

func TestDefines(t *testing.T) {
	b := prepare(t, map[string]channel.Config{
		"x": {Data: []float32{0, 1}},
	})
	b.params.Defines = map[string]string{"NO_FILL": "1"}
	res, err := Build(b.params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(res.Code, "let s = 1.0;") {
		t.Errorf("HAS_SIZE defined without a size channel")
	}
	if strings.Contains(res.Code, "o.color = getScaled_fill(i);") {
		t.Errorf("NO_FILL ignored")
	}
	if strings.Contains(res.Code, "struct HashEntry") {
		t.Errorf("hash library emitted without hash tables")
	}
	if len(res.Resources) != 1 || res.Resources[0].Name != "seriesF32" {
		t.Errorf("resources = %+v", res.Resources)
	}

	defs := Defines(b.channels, nil)
	for _, name := range []string{"HAS_X", "HAS_FILL"} {
		if defs[name] != "1" {
			t.Errorf("%s = %q", name, defs[name])
		}
	}
	if _, ok := defs["HAS_UNIQUEID"]; ok {
		t.Errorf("HAS_UNIQUEID defined for an omitted channel")
	}
}

func TestMissingCountUniform(t *testing.T) {
	b := prepare(t, fullConfigs())
	var fields []layout.UniformField
	for _, f := range UniformFields(b.channels, b.selections) {
		if f.Name != "uRangeCount_fill" {
			fields = append(fields, f)
		}
	}
	u, err := layout.NewUniformBuffer(fields)
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	b.params.Uniforms = u
	_, err = Build(b.params)
	if err == nil || !strings.Contains(err.Error(), `missing uniform "uRangeCount_fill"`) {
		t.Errorf("err = %v", err)
	}
}

func TestDuplicateExtra(t *testing.T) {
	b := prepare(t, map[string]channel.Config{"x": {Data: []float32{0}}})
	b.params.Extras = []Extra{{Name: "seriesF32"}}
	if _, err := Build(b.params); err == nil || !strings.Contains(err.Error(), `duplicate resource name "seriesF32"`) {
		t.Errorf("err = %v", err)
	}
}

func TestUnbalancedBody(t *testing.T) {
	b := prepare(t, map[string]channel.Config{"x": {Data: []float32{0}}})
	b.params.Body = "#ifdef HAS_X\n"
	if _, err := Build(b.params); err == nil {
		t.Errorf("expected an error for an unterminated block")
	}
}

func TestValidateWithNaga(t *testing.T) {
	b := prepare(t, fullConfigs())
	res, err := Build(b.params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := Validate(res.Code); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") ||
			strings.Contains(msg, "unsupported") {
			t.Skipf("Skipping: naga limitation: %v", err)
		}
		t.Fatalf("Validate: %v\n%s", err, res.Code)
	}
}

func TestValidateRejectsBrokenBody(t *testing.T) {
	err := Validate("fn broken( {")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestValidateCachesBySource(t *testing.T) {
	const code = "fn cached_twice( {"
	before := ValidationStats()
	first := Validate(code)
	second := Validate(code)
	if first == nil || first != second {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	after := ValidationStats()
	if after.Hits != before.Hits+1 || after.Misses != before.Misses+1 {
		t.Errorf("stats before %+v after %+v", before, after)
	}
}
