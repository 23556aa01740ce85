package selection

import (
	"strings"
	"testing"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/hashtable"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
)

func contract() *channel.Contract {
	return &channel.Contract{
		Order:    []string{"uniqueId", "x", "x2", "fill"},
		Optional: []string{"uniqueId", "x2"},
		Specs: map[string]channel.Spec{
			"uniqueId": {Type: channel.U32, Components: 1},
			"x":        {Type: channel.F32, Components: 1},
			"x2":       {Type: channel.F32, Components: 1},
			"fill":     {Type: channel.F32, Components: 4},
		},
		DefaultValues: map[string][]float64{"fill": {0, 0, 0, 1}},
	}
}

func build(t *testing.T, configs map[string]channel.Config) []*ir.Channel {
	t.Helper()
	rs, err := ir.Normalize(contract(), configs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	chs, err := ir.Build(rs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return chs
}

func red() *channel.Config {
	return &channel.Config{Value: []float64{1, 0, 0, 1}}
}

func TestCollect(t *testing.T) {
	chs := build(t, map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x":        {Data: []float32{1, 2}},
		"x2":       {Data: []float32{3, 4}},
		"fill": {Conditions: []channel.Condition{
			{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Value: red()},
			{When: channel.When{Selection: "picked", Type: channel.SelectionMulti}, Value: red()},
			{When: channel.When{Selection: "brush", Type: channel.SelectionInterval, Channel: "x"}, Value: red()},
			{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Value: red()},
		}},
	})
	defs, err := Collect(chs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("len(defs) = %d, want 3", len(defs))
	}
	if defs[2].Secondary != "x2" || defs[2].ScalarType != channel.F32 {
		t.Errorf("brush = %+v", defs[2])
	}

	fields := UniformFields(defs)
	want := []struct {
		name  string
		typ   channel.ScalarType
		comps int
	}{
		{"uSelection_hover", channel.U32, 1},
		{"uSelectionCount_picked", channel.U32, 1},
		{"uSelection_brush", channel.F32, 2},
	}
	for i, w := range want {
		f := fields[i]
		if f.Name != w.name || f.Type != w.typ || f.Components != w.comps {
			t.Errorf("field %d = %+v, want %+v", i, f, w)
		}
	}
}

func TestCollectErrors(t *testing.T) {
	tests := []struct {
		name    string
		configs map[string]channel.Config
		want    string
	}{
		{
			"missing unique id",
			map[string]channel.Config{
				"x": {Value: channel.Scalar(1)},
				"fill": {Conditions: []channel.Condition{
					{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Value: red()},
				}},
			},
			`require the "uniqueId" channel`,
		},
		{
			"type conflict",
			map[string]channel.Config{
				"uniqueId": {Value: channel.Scalar(1)},
				"x":        {Value: channel.Scalar(1)},
				"fill": {Conditions: []channel.Condition{
					{When: channel.When{Selection: "s", Type: channel.SelectionSingle}, Value: red()},
					{When: channel.When{Selection: "s", Type: channel.SelectionMulti}, Value: red()},
				}},
			},
			`selection "s" must keep a single type`,
		},
		{
			"interval channel conflict",
			map[string]channel.Config{
				"x":  {Value: channel.Scalar(1)},
				"x2": {Value: channel.Scalar(1)},
				"fill": {Conditions: []channel.Condition{
					{When: channel.When{Selection: "s", Type: channel.SelectionInterval, Channel: "x"}, Value: red()},
					{When: channel.When{Selection: "s", Type: channel.SelectionInterval, Channel: "x2"}, Value: red()},
				}},
			},
			`selection "s" must target a single interval channel`,
		},
		{
			"unknown interval channel",
			map[string]channel.Config{
				"x": {Value: channel.Scalar(1)},
				"fill": {Conditions: []channel.Condition{
					{When: channel.When{Selection: "s", Type: channel.SelectionInterval, Channel: "y"}, Value: red()},
				}},
			},
			`interval selection "s" references unknown channel "y"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Collect(build(t, tt.configs))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	single := &Def{Name: "s", Type: channel.SelectionSingle}
	if single.Matches(Update{Type: channel.SelectionSingle}, nil, 0, 0, 0) {
		t.Errorf("single id 0 matched element 0")
	}
	if !single.Matches(Update{Type: channel.SelectionSingle, ID: 7}, nil, 7, 0, 0) {
		t.Errorf("single id 7 did not match")
	}

	multi := &Def{Name: "m", Type: channel.SelectionMulti}
	set, err := hashtable.BuildSet([]uint32{11, 13}, 0)
	if err != nil {
		t.Fatalf("BuildSet: %v", err)
	}
	for id, want := range map[uint32]bool{11: true, 12: false, 13: true} {
		if got := multi.Matches(Update{}, set, id, 0, 0); got != want {
			t.Errorf("multi %d = %v, want %v", id, got, want)
		}
	}

	interval := &Def{Name: "i", Type: channel.SelectionInterval, Channel: "x"}
	u := Update{Type: channel.SelectionInterval, Min: 1, Max: 2}
	for v, want := range map[float64]bool{0.5: false, 1: true, 1.5: true, 2: true, 2.5: false} {
		if got := interval.Matches(u, nil, 0, v, 0); got != want {
			t.Errorf("interval %v = %v, want %v", v, got, want)
		}
	}
	empty := Update{Type: channel.SelectionInterval, Min: 1, Max: 0}
	if interval.Matches(empty, nil, 0, 0.5, 0) {
		t.Errorf("empty interval matched")
	}

	interval.Secondary = "x2"
	if !interval.Matches(u, nil, 0, 0, 1.5) {
		t.Errorf("overlapping span did not match")
	}
	if interval.Matches(u, nil, 0, 3, 4) {
		t.Errorf("disjoint span matched")
	}
}

func TestApply(t *testing.T) {
	defs := []*Def{
		{Name: "hover", Type: channel.SelectionSingle},
		{Name: "picked", Type: channel.SelectionMulti},
		{Name: "brush", Type: channel.SelectionInterval, Channel: "x"},
	}
	u, err := layout.NewUniformBuffer(UniformFields(defs))
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	if _, err := defs[0].Apply(Update{Type: channel.SelectionSingle, ID: 5}, u, 0); err != nil {
		t.Fatalf("Apply single: %v", err)
	}
	if v, _ := u.Value("uSelection_hover"); v[0] != 5 {
		t.Errorf("hover = %v", v)
	}
	table, err := defs[1].Apply(Update{Type: channel.SelectionMulti, IDs: []uint32{11, 13}}, u, 8)
	if err != nil {
		t.Fatalf("Apply multi: %v", err)
	}
	if table.Capacity() != 8 || !table.Contains(13) {
		t.Errorf("table capacity %d", table.Capacity())
	}
	if v, _ := u.Value("uSelectionCount_picked"); v[0] != 2 {
		t.Errorf("count = %v", v)
	}
	if _, err := defs[2].Apply(Update{Type: channel.SelectionSingle}, u, 0); err == nil ||
		!strings.Contains(err.Error(), `selection "brush" must remain type "interval"`) {
		t.Errorf("err = %v", err)
	}
	if got := defs[2].InitialValue(); got[0] != 1 || got[1] != 0 {
		t.Errorf("initial interval = %v", got)
	}
}

func TestEmit(t *testing.T) {
	chs := build(t, map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x":        {Data: []float32{1, 2}},
		"x2":       {Data: []float32{3, 4}},
		"fill": {Conditions: []channel.Condition{
			{When: channel.When{Selection: "hover", Type: channel.SelectionSingle}, Value: red()},
			{When: channel.When{Selection: "picked", Type: channel.SelectionMulti, EmptyMatchesAll: true}, Value: red()},
			{When: channel.When{Selection: "brush", Type: channel.SelectionInterval, Channel: "x"}, Value: red()},
		}},
	})
	defs, err := Collect(chs)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	src, err := EmitPredicates(defs, chs)
	if err != nil {
		t.Fatalf("EmitPredicates: %v", err)
	}
	for _, want := range []string{
		"fn isSelected_hover(i: u32) -> bool {",
		"return id != 0u && getScaled_uniqueId(i) == id;",
		"return hashLookup_uSelectionBuffer_picked(getScaled_uniqueId(i)) != HASH_NOT_FOUND;",
		"fn hashLookup_uSelectionBuffer_picked(key: u32) -> u32 {",
		"let a = read_x(i);",
		"let b = read_x2(i);",
		"return max(a, b) >= bounds.x && min(a, b) <= bounds.y;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q in\n%s", want, src)
		}
	}

	fill, _ := ir.Find(chs, "fill")
	got := EmitConditional(fill)
	want := `fn getScaled_fill(i: u32) -> vec4<f32> {
    if (isSelected_hover(i)) {
        return getScaled_fill__cond0(i);
    }
    if ((params.uSelectionCount_picked == 0u || isSelected_picked(i))) {
        return getScaled_fill__cond1(i);
    }
    if (isSelected_brush(i)) {
        return getScaled_fill__cond2(i);
    }
    return getScaled_fill__base(i);
}
`
	if got != want {
		t.Errorf("EmitConditional =\n%s\nwant\n%s", got, want)
	}
}
