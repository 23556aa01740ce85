package ir

import (
	"strings"
	"testing"

	"github.com/gogpu/marks/channel"
)

func testContract() *channel.Contract {
	return &channel.Contract{
		Order:    []string{"uniqueId", "x", "y", "fill", "size", "shape"},
		Optional: []string{"uniqueId", "shape"},
		Specs: map[string]channel.Spec{
			"uniqueId": {Type: channel.U32, Components: 1},
			"x":        {Type: channel.F32, Components: 1},
			"y":        {Type: channel.F32, Components: 1},
			"fill":     {Type: channel.F32, Components: 4},
			"size":     {Type: channel.F32, Components: 1},
			"shape":    {Type: channel.U32, Components: 1},
		},
		DefaultValues: map[string][]float64{
			"y":    {0},
			"fill": {0, 0, 0, 1},
			"size": {10},
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	rs, err := Normalize(testContract(), map[string]channel.Config{
		"x": {Data: []float32{1, 2, 3}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	var names []string
	for _, r := range rs {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "x,y,fill,size" {
		t.Fatalf("channels = %s, want x,y,fill,size", got)
	}
	fill := rs[2]
	if fill.Components != 4 || fill.InputComponents != 4 || len(fill.Value) != 4 {
		t.Errorf("fill = %+v", fill.Config)
	}
	if rs[0].InputComponents != 1 || rs[0].ScalarType() != channel.F32 {
		t.Errorf("x = %+v", rs[0].Config)
	}
}

func TestNormalizeErrors(t *testing.T) {
	ordinal := &channel.Scale{Type: channel.ScaleOrdinal, Range: []any{"red"}}
	tests := []struct {
		name    string
		configs map[string]channel.Config
		want    string
	}{
		{
			"unknown",
			map[string]channel.Config{"color": {Value: channel.Scalar(1)}},
			`unknown channel "color"`,
		},
		{
			"missing",
			map[string]channel.Config{},
			`channel "x" must specify either data or value`,
		},
		{
			"both",
			map[string]channel.Config{"x": {Data: []float32{1}, Value: channel.Scalar(1)}},
			`channel "x" must not specify both data and value`,
		},
		{
			"type",
			map[string]channel.Config{"x": {Data: []int32{1}, Type: channel.Type(channel.I32)}},
			`channel "x" must use type "f32"`,
		},
		{
			"components",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Value: []float64{1, 1}, Components: 2}},
			`channel "fill" must use 4 components`,
		},
		{
			"vector input type",
			map[string]channel.Config{"x": {Data: []uint32{1, 2}, Type: channel.Type(channel.U32), InputComponents: 2, Scale: &channel.Scale{Type: channel.ScaleBand}}},
			`only f32 vectors are supported for "x" input data`,
		},
		{
			"mismatched components",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Data: []float32{1}, InputComponents: 1}},
			`channel "fill" only supports mismatched input/output components when mapping scalars to vectors`,
		},
		{
			"ordinal input",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Value: channel.Scalar(1), Scale: ordinal}},
			`ordinal scale on "fill" requires u32 input type`,
		},
		{
			"ordinal empty range",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Value: channel.Scalar(1), Type: channel.Type(channel.U32), Scale: &channel.Scale{Type: channel.ScaleOrdinal}}},
			`ordinal scale on "fill" requires a non-empty range`,
		},
		{
			"ordinal integer",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Value: channel.Scalar(1.5), Type: channel.Type(channel.U32), Scale: ordinal}},
			`ordinal scale on "fill" requires integer values`,
		},
		{
			"threshold",
			map[string]channel.Config{"x": {Value: channel.Scalar(1), Scale: &channel.Scale{Type: channel.ScaleThreshold, Domain: []float64{1, 2}, Range: []any{1.0, 2.0}}}},
			`threshold scale on "x" requires range length of 3, got 2`,
		},
		{
			"piecewise",
			map[string]channel.Config{"x": {Value: channel.Scalar(1), Scale: &channel.Scale{Type: channel.ScaleLinear, Domain: []float64{0, 1, 2}, Range: []any{1.0, 2.0}}}},
			`piecewise scale on "x" requires range length of 3, got 2`,
		},
		{
			"data type",
			map[string]channel.Config{"x": {Data: []float64{1}}},
			`channel "x" expects a []float32 for f32 data, got []float64`,
		},
		{
			"vector scale",
			map[string]channel.Config{"x": {Value: channel.Scalar(1)}, "fill": {Data: []float32{1}, InputComponents: 1, Scale: &channel.Scale{Type: channel.ScaleLog}}},
			`channel "fill" uses vector components but scale "log" only supports scalars`,
		},
		{
			"color range needs vec4",
			map[string]channel.Config{"x": {Value: channel.Scalar(1), Scale: &channel.Scale{Type: channel.ScaleLinear, Range: []any{"red", "blue"}}}},
			`channel "x" requires vec4 outputs when using color ranges`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(testContract(), tt.configs)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNormalizeAllowsU32Override(t *testing.T) {
	_, err := Normalize(testContract(), map[string]channel.Config{
		"x": {
			Data:  []uint32{1, 2},
			Type:  channel.Type(channel.U32),
			Scale: &channel.Scale{Type: channel.ScaleBand, Domain: []float64{1, 2}},
		},
		"fill": {
			Data:            []uint32{0, 1},
			Type:            channel.Type(channel.U32),
			InputComponents: 1,
			Scale:           &channel.Scale{Type: channel.ScaleOrdinal, Range: []any{"red", "blue"}},
		},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestBuildSources(t *testing.T) {
	rs, err := Normalize(testContract(), map[string]channel.Config{
		"x":    {Data: []float32{1, 2}},
		"y":    {Value: channel.Scalar(3), Dynamic: true},
		"size": {Value: channel.Scalar(2.5)},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tests := []struct {
		name   string
		source SourceKind
		expr   string
	}{
		{"x", SourceSeries, "read_x(i)"},
		{"y", SourceUniform, "params.u_y"},
		{"fill", SourceLiteral, "vec4<f32>(0.0, 0.0, 0.0, 1.0)"},
		{"size", SourceLiteral, "2.5"},
	}
	for _, tt := range tests {
		ch, ok := Find(chs, tt.name)
		if !ok {
			t.Fatalf("missing channel %q", tt.name)
		}
		if ch.Source != tt.source || ch.RawValueExpr != tt.expr {
			t.Errorf("%s: source %v expr %q, want %v %q", tt.name, ch.Source, ch.RawValueExpr, tt.source, tt.expr)
		}
	}
	if vs := ValueChannels(chs); len(vs) != 1 || vs[0].Name != "y" {
		t.Errorf("ValueChannels = %v", vs)
	}
}

func TestBuildClassifiesScales(t *testing.T) {
	rs, err := Normalize(testContract(), map[string]channel.Config{
		"x": {Data: []float32{1}, Scale: &channel.Scale{Type: channel.ScaleLinear}},
		"fill": {
			Data:            []uint32{1},
			Type:            channel.Type(channel.U32),
			InputComponents: 1,
			Scale:           &channel.Scale{Type: channel.ScaleOrdinal, Domain: []float64{1}, Range: []any{"red"}},
		},
		"size": {Data: []float32{1}, Scale: &channel.Scale{Type: channel.ScaleSqrt}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	fill, _ := Find(chs, "fill")
	if !fill.NeedsOrdinalRange || !fill.NeedsDomainMap || fill.UseRangeTexture {
		t.Errorf("fill flags = %+v", fill)
	}
	if fill.OutputScalarType != channel.F32 || fill.InputComponents != 1 {
		t.Errorf("fill types = %v/%d", fill.OutputScalarType, fill.InputComponents)
	}
	x, _ := Find(chs, "x")
	if !x.NeedsScaleFunction || x.NeedsDomainMap {
		t.Errorf("x flags = %+v", x)
	}
	y, _ := Find(chs, "y")
	if y.NeedsScaleFunction {
		t.Errorf("identity y needs a scale function")
	}
}

func TestBuildConditions(t *testing.T) {
	rs, err := Normalize(testContract(), map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x":        {Data: []float32{1, 2}},
		"size":     {Data: []float32{1, 2}},
		"fill": {
			Value: []float64{0, 0, 1, 1},
			Conditions: []channel.Condition{
				{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Value: &channel.Config{Value: []float64{1, 0, 0, 1}, Dynamic: true}},
				{When: channel.When{Selection: "brush", Type: channel.SelectionInterval, Channel: "x"}, Value: &channel.Config{Value: []float64{0, 1, 0, 1}}},
			},
		},
		"y": {
			Value: channel.Scalar(0),
			Conditions: []channel.Condition{
				{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Ref: "size"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	fill, _ := Find(chs, "fill")
	if fill.Function != "fill__base" || len(fill.Conditions) != 2 {
		t.Fatalf("fill = %+v", fill)
	}
	c0 := fill.Conditions[0].Value
	if c0 == nil || c0.Name != "fill__cond0" || c0.Source != SourceUniform || c0.RawValueExpr != "params.u_fill__cond0" {
		t.Errorf("cond0 = %+v", c0)
	}
	c1 := fill.Conditions[1].Value
	if c1 == nil || c1.Source != SourceLiteral || c1.RawValueExpr != "vec4<f32>(0.0, 1.0, 0.0, 1.0)" {
		t.Errorf("cond1 = %+v", c1)
	}
	y, _ := Find(chs, "y")
	if y.Conditions[0].Ref != "size" {
		t.Errorf("y ref = %q", y.Conditions[0].Ref)
	}
	if vs := ValueChannels(chs); len(vs) != 1 || vs[0].Name != "fill__cond0" {
		t.Errorf("ValueChannels = %d", len(vs))
	}
}

func TestBuildConditionErrors(t *testing.T) {
	tests := []struct {
		cond channel.Condition
		want string
	}{
		{channel.Condition{When: channel.When{Selection: "s", Type: channel.SelectionSingle}}, "must specify either value or ref"},
		{channel.Condition{When: channel.When{Selection: "s", Type: channel.SelectionSingle}, Ref: "nope"}, `references unknown channel "nope"`},
		{channel.Condition{When: channel.When{Selection: "s", Type: channel.SelectionSingle}, Ref: "fill"}, "different output type"},
		{channel.Condition{When: channel.When{Type: channel.SelectionSingle}, Ref: "y"}, "must name a selection"},
	}
	for _, tt := range tests {
		rs, err := Normalize(testContract(), map[string]channel.Config{
			"x": {Value: channel.Scalar(1), Conditions: []channel.Condition{tt.cond}},
		})
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if _, err := Build(rs); err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("err = %v, want %q", err, tt.want)
		}
	}
}

func TestHighPrecisionIndex(t *testing.T) {
	rs, err := Normalize(testContract(), map[string]channel.Config{
		"x": {
			Data:            []float64{5000, 6000},
			Type:            channel.Type(channel.U32),
			InputComponents: 2,
			Scale:           &channel.Scale{Type: channel.ScaleIndex, Domain: []float64{5000, 6001}},
		},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !chs[0].HighPrecision || chs[0].OutputScalarType != channel.F32 {
		t.Errorf("x = %+v", chs[0])
	}
}
