package mark

import (
	"strings"
	"testing"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/selection"
	"github.com/gogpu/marks/internal/shader"
)

func compile(t *testing.T, c *Contract, configs map[string]channel.Config) string {
	t.Helper()
	rs, err := ir.Normalize(&c.Channels, configs)
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
	series, err := layout.BuildSeriesLayout(shader.SeriesChannels(chs), nil)
	if err != nil {
		t.Fatalf("BuildSeriesLayout: %v", err)
	}
	var markFields []layout.UniformField
	for _, u := range c.Uniforms {
		markFields = append(markFields, layout.UniformField{Name: u.Name, Type: u.Type, Components: max(u.Components, 1)})
	}
	uniforms, err := layout.NewUniformBuffer(shader.UniformFields(chs, sels, markFields...))
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	res, err := shader.Build(shader.Params{
		Channels:   chs,
		Series:     series,
		Uniforms:   uniforms,
		Selections: sels,
		Body:       c.Body,
		Defines:    c.Defines,
	})
	if err != nil {
		t.Fatalf("shader.Build: %v", err)
	}
	return res.Code
}

func validate(t *testing.T, code string) {
	t.Helper()
	if err := shader.Validate(code); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") ||
			strings.Contains(msg, "unsupported") {
			t.Skipf("Skipping: naga limitation: %v", err)
		}
		t.Fatalf("Validate: %v\n%s", err, code)
	}
}

func TestContractsCompileWithDefaults(t *testing.T) {
	endpoints := map[string]channel.Config{
		"x":  {Value: channel.Scalar(0)},
		"x2": {Value: channel.Scalar(10)},
		"y":  {Value: channel.Scalar(0)},
		"y2": {Value: channel.Scalar(10)},
	}
	tests := []struct {
		name     string
		contract *Contract
		configs  map[string]channel.Config
	}{
		{"rect", Rect(), nil},
		{"point", Point(), nil},
		{"rule", Rule(), nil},
		{"link", Link(), endpoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := compile(t, tt.contract, tt.configs)
			if !strings.Contains(code, "fn vs_main(") || !strings.Contains(code, "fn fs_main(") {
				t.Fatalf("entry points missing")
			}
			if strings.Contains(code, "getScaled_uniqueId(i) + 1u") {
				t.Errorf("uniqueId branch kept without the channel")
			}
			validate(t, code)
		})
	}
}

func TestContractSpecsCoverOrder(t *testing.T) {
	// Link endpoints have no sensible default and must be configured.
	required := map[string]bool{"link.x": true, "link.x2": true, "link.y": true, "link.y2": true}
	for _, c := range []*Contract{Rect(), Point(), Rule(), Link()} {
		for _, name := range c.Channels.Order {
			if _, ok := c.Channels.Specs[name]; !ok {
				t.Errorf("%s: channel %q has no spec", c.Name, name)
			}
			_, hasDefault := c.Channels.DefaultValues[name]
			if !hasDefault && !c.Channels.IsOptional(name) && !required[c.Name+"."+name] {
				t.Errorf("%s: required channel %q has no default", c.Name, name)
			}
		}
	}
}

func TestRectWithSeriesAndStroke(t *testing.T) {
	code := compile(t, Rect(), map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x":        {Data: []float32{0, 1}, Scale: &channel.Scale{Type: channel.ScaleLinear}},
		"x2":       {Data: []float32{1, 2}, Scale: &channel.Scale{Type: channel.ScaleLinear}},
		"stroke":   {Value: []float64{0, 0, 0, 1}},
		"fill": {
			Data:            []float32{0, 1},
			InputComponents: 1,
			Scale:           &channel.Scale{Type: channel.ScaleLinear, Range: []any{"white", "steelblue"}},
		},
	})
	for _, want := range []string{
		"o.pickId = getScaled_uniqueId(i) + 1u;",
		"var stroke = getScaled_stroke(i);",
		"var uRangeTexture_fill: texture_2d<f32>;",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(code, "o.cornerRadius = getScaled_cornerRadius(i);") {
		t.Errorf("cornerRadius branch kept without the channel")
	}
	validate(t, code)
}

func TestRuleFallsBackWithoutSecondary(t *testing.T) {
	code := compile(t, Rule(), map[string]channel.Config{
		"y2": {Value: channel.Scalar(20)},
	})
	if !strings.Contains(code, "let x2 = x;") {
		t.Errorf("x2 fallback missing")
	}
	if !strings.Contains(code, "let y2 = getScaled_y2(i);") {
		t.Errorf("y2 branch missing")
	}
}

func TestViewportRange(t *testing.T) {
	tests := []struct {
		name string
		want []float64
	}{
		{"x", []float64{0, 800}},
		{"x2", []float64{0, 800}},
		{"y", []float64{0, 600}},
		{"y2", []float64{0, 600}},
		{"size", nil},
	}
	for _, tt := range tests {
		got := viewportRange(tt.name, 800, 600)
		if len(got) != len(tt.want) {
			t.Errorf("viewportRange(%q) = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("viewportRange(%q) = %v, want %v", tt.name, got, tt.want)
			}
		}
	}
}

func TestLinkUniformDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts []LinkOption
		want map[string][]float64
	}{
		{
			"defaults",
			nil,
			map[string][]float64{
				LinkUniformShape:          {float64(LinkArc)},
				LinkUniformOrient:         {float64(OrientVertical)},
				LinkUniformArcHeight:      {1},
				LinkUniformMinArcHeight:   {1.5},
				LinkUniformArcFading:      {0, 0},
				LinkUniformMaxChordLength: {50000},
				LinkUniformClampApex:      {0},
				LinkUniformSegments:       {101},
			},
		},
		{
			"options",
			[]LinkOption{
				WithLinkShape(LinkDiagonal),
				WithOrient(OrientHorizontal),
				WithArcHeightFactor(0.25),
				WithArcFadingDistance(100, 400),
				WithClampApex(true),
				WithSegments(16),
			},
			map[string][]float64{
				LinkUniformShape:     {float64(LinkDiagonal)},
				LinkUniformOrient:    {float64(OrientHorizontal)},
				LinkUniformArcHeight: {0.25},
				LinkUniformArcFading: {100, 400},
				LinkUniformClampApex: {1},
				LinkUniformSegments:  {16},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Link(tt.opts...)
			if c.Segments != LinkUniformSegments {
				t.Errorf("Segments = %q, want %q", c.Segments, LinkUniformSegments)
			}
			got := make(map[string][]float64, len(c.Uniforms))
			for _, u := range c.Uniforms {
				if len(u.Default) != max(u.Components, 1) {
					t.Errorf("%s: %d defaults for %d components", u.Name, len(u.Default), u.Components)
				}
				got[u.Name] = u.Default
			}
			for name, want := range tt.want {
				v, ok := got[name]
				if !ok {
					t.Errorf("uniform %q not declared", name)
					continue
				}
				for i := range want {
					if v[i] != want[i] {
						t.Errorf("%s = %v, want %v", name, v, want)
						break
					}
				}
			}
		})
	}
}

func TestLinkShader(t *testing.T) {
	code := compile(t, Link(), map[string]channel.Config{
		"uniqueId": {Data: []uint32{1, 2}},
		"x":        {Data: []float32{0, 1}, Scale: &channel.Scale{Type: channel.ScaleLinear}},
		"x2":       {Data: []float32{1, 2}, Scale: &channel.Scale{Type: channel.ScaleLinear}},
		"y":        {Value: channel.Scalar(0)},
		"y2":       {Value: channel.Scalar(0)},
		"color":    {Value: []float64{1, 0, 0, 1}},
	})
	for _, want := range []string{
		"uArcHeightFactor: f32,",
		"uArcFadingDistance: vec2<f32>,",
		"uShape: u32,",
		"o.pickId = getScaled_uniqueId(i) + 1u;",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("missing %q", want)
		}
	}
	validate(t, code)
}
