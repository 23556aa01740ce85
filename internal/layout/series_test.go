package layout

import (
	"strings"
	"testing"

	"github.com/gogpu/marks/channel"
)

func TestBuildSeriesLayoutInterleaves(t *testing.T) {
	l, err := BuildSeriesLayout([]SeriesChannel{
		{Name: "x", Type: channel.F32, Components: 1},
		{Name: "uniqueId", Type: channel.U32, Components: 1},
		{Name: "fill", Type: channel.F32, Components: 4},
		{Name: "y", Type: channel.F32, Components: 1},
	}, nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	tests := []struct {
		name   string
		offset int
		stride int
	}{
		{"x", 0, 6},
		{"fill", 1, 6},
		{"y", 5, 6},
		{"uniqueId", 0, 1},
	}
	for _, tt := range tests {
		e, ok := l.Entry(tt.name)
		if !ok {
			t.Fatalf("missing entry %q", tt.name)
		}
		if e.Offset != tt.offset || e.Stride != tt.stride {
			t.Errorf("%s offset/stride = %d/%d, want %d/%d", tt.name, e.Offset, e.Stride, tt.offset, tt.stride)
		}
	}
	if l.Used(channel.I32) {
		t.Errorf("i32 buffer reported as used")
	}
}

func TestPackSeries(t *testing.T) {
	chs := []SeriesChannel{
		{Name: "x", Type: channel.F32, Components: 1},
		{Name: "pos", Type: channel.F32, Components: 2},
	}
	l, err := BuildSeriesLayout(chs, nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	p, err := PackSeries(l, map[string]any{
		"x":   []float32{1, 2},
		"pos": []float32{10, 11, 20, 21},
	}, 2)
	if err != nil {
		t.Fatalf("PackSeries: %v", err)
	}
	want := []float32{1, 10, 11, 2, 20, 21}
	if len(p.F32) != len(want) {
		t.Fatalf("len = %d, want %d", len(p.F32), len(want))
	}
	for i := range want {
		if p.F32[i] != want[i] {
			t.Fatalf("packed = %v, want %v", p.F32, want)
		}
	}
	if p.U32 != nil || p.Bytes(channel.U32) != nil {
		t.Errorf("unused u32 buffer allocated")
	}
	if n := len(p.Bytes(channel.F32)); n != 24 {
		t.Errorf("byte length = %d, want 24", n)
	}
}

func TestPackSeriesErrors(t *testing.T) {
	chs := []SeriesChannel{{Name: "x", Type: channel.F32, Components: 1}}
	l, err := BuildSeriesLayout(chs, nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	tests := []struct {
		data any
		want string
	}{
		{[]uint32{1, 2, 3}, `channel "x" expects a []float32 for f32 data`},
		{[]float32{1}, `channel "x" length (1) is less than count (3)`},
	}
	for _, tt := range tests {
		_, err := PackSeries(l, map[string]any{"x": tt.data}, 3)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("err = %v, want %q", err, tt.want)
		}
	}
}

func TestSeriesAliases(t *testing.T) {
	shared := []float32{1, 2, 3}
	chs := []SeriesChannel{
		{Name: "x", Type: channel.F32, Components: 1},
		{Name: "x2", Type: channel.F32, Components: 1},
		{Name: "y", Type: channel.F32, Components: 1},
	}
	data := map[string]any{"x": shared, "x2": shared, "y": []float32{4, 5, 6}}
	aliases := Aliases(chs, data)
	if aliases["x2"] != "x" || aliases["y"] != "y" {
		t.Fatalf("aliases = %v", aliases)
	}
	l, err := BuildSeriesLayout(chs, aliases)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	ex, _ := l.Entry("x")
	ex2, _ := l.Entry("x2")
	if ex != ex2 {
		t.Errorf("aliased channels have distinct entries")
	}
	if l.Stride(channel.F32) != 2 {
		t.Errorf("stride = %d, want 2", l.Stride(channel.F32))
	}
	if _, err := PackSeries(l, data, 3); err != nil {
		t.Fatalf("PackSeries: %v", err)
	}

	data["x2"] = []float32{7, 8, 9}
	_, err = PackSeries(l, data, 3)
	if err == nil || !strings.Contains(err.Error(), `series channels "x", "x2" must share the same buffer`) {
		t.Errorf("err = %v", err)
	}
}

func TestHighPrecisionPacking(t *testing.T) {
	chs := []SeriesChannel{{Name: "x", Type: channel.U32, Components: 2, HighPrecision: true}}
	l, err := BuildSeriesLayout(chs, nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	data := map[string]any{"x": []float64{5000, 3_000_000_000}}
	count, ok, err := InferCount(chs, data)
	if err != nil || !ok || count != 2 {
		t.Fatalf("InferCount = %d, %v, %v; want 2", count, ok, err)
	}
	p, err := PackSeries(l, data, count)
	if err != nil {
		t.Fatalf("PackSeries: %v", err)
	}
	want := []uint32{1, 904, 732421, 3584}
	for i := range want {
		if p.U32[i] != want[i] {
			t.Fatalf("packed = %v, want %v", p.U32, want)
		}
	}
}

func TestInferCount(t *testing.T) {
	chs := []SeriesChannel{
		{Name: "x", Type: channel.F32, Components: 1},
		{Name: "pos", Type: channel.F32, Components: 2},
	}
	count, ok, err := InferCount(chs, map[string]any{
		"x":   []float32{1, 2, 3},
		"pos": []float32{1, 2, 3, 4, 5, 6},
	})
	if err != nil || !ok || count != 3 {
		t.Fatalf("InferCount = %d, %v, %v; want 3", count, ok, err)
	}

	_, _, err = InferCount(chs, map[string]any{
		"x":   []float32{1, 2},
		"pos": []float32{1, 2, 3, 4, 5, 6},
	})
	if err == nil || !strings.Contains(err.Error(), `count (3) does not match inferred count (2)`) {
		t.Errorf("err = %v", err)
	}

	_, _, err = InferCount(chs, map[string]any{
		"x":   []float32{1, 2, 3},
		"pos": []float32{1, 2, 3},
	})
	if err == nil || !strings.Contains(err.Error(), `length (3) must be divisible by 2`) {
		t.Errorf("err = %v", err)
	}

	if _, ok, _ := InferCount(nil, nil); ok {
		t.Errorf("InferCount with no series reported ok")
	}
}

func TestReadFunction(t *testing.T) {
	l, err := BuildSeriesLayout([]SeriesChannel{
		{Name: "x", Type: channel.F32, Components: 1},
		{Name: "fill", Type: channel.F32, Components: 4},
	}, nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	src, err := l.ReadFunction("x")
	if err != nil {
		t.Fatalf("ReadFunction: %v", err)
	}
	if !strings.Contains(src, "fn read_x(i: u32) -> f32") || !strings.Contains(src, "seriesF32[i * 5u + 0u]") {
		t.Errorf("read_x:\n%s", src)
	}
	src, _ = l.ReadFunction("fill")
	if !strings.Contains(src, "let base = i * 5u + 1u;") || !strings.Contains(src, "seriesF32[base + 3u]") {
		t.Errorf("read_fill:\n%s", src)
	}
	if _, err := l.ReadFunction("nope"); err == nil {
		t.Errorf("ReadFunction of unknown channel succeeded")
	}
}
