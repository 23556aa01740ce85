package mark

import "github.com/gogpu/marks/channel"

const ruleBody = common + `
struct RuleOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) across: f32,
    @location(1) halfWidth: f32,
    @location(2) color: vec4<f32>,
    @location(3) @interpolate(flat) pickId: u32,
}

@vertex
fn vs_main(@builtin(vertex_index) v: u32, @builtin(instance_index) i: u32) -> RuleOut {
    let x = getScaled_x(i);
    let y = getScaled_y(i);
#ifdef HAS_X2
    let x2 = getScaled_x2(i);
#else
    let x2 = x;
#endif
#ifdef HAS_Y2
    let y2 = getScaled_y2(i);
#else
    let y2 = y;
#endif
    var a = vec2<f32>(x, y);
    var b = vec2<f32>(x2, y2);
    var dir = vec2<f32>(1.0, 0.0);
    var len = length(b - a);
    if (len > 0.0) {
        dir = (b - a) / len;
    }
    let minLength = getScaled_minLength(i);
    if (len < minLength) {
        let mid = (a + b) * 0.5;
        a = mid - dir * minLength * 0.5;
        len = minLength;
    }

    let halfWidth = max(getScaled_size(i), 0.0) * 0.5;
    let pad = halfWidth + 1.0;
    let corner = quadCorner(v);
    let normal = vec2<f32>(-dir.y, dir.x);
    let across = (corner.y * 2.0 - 1.0) * pad;

    var o: RuleOut;
    o.pos = pixelToClip(a + dir * (corner.x * len) + normal * across);
    o.across = across;
    o.halfWidth = halfWidth;
    var color = getScaled_color(i);
    color.a = color.a * getScaled_opacity(i);
    o.color = color;
    o.pickId = 0u;
#ifdef HAS_UNIQUEID
    o.pickId = getScaled_uniqueId(i) + 1u;
#endif
    return o;
}

@fragment
fn fs_main(f: RuleOut) -> @location(0) vec4<f32> {
    var color = f.color;
    color.a = color.a * coverage(abs(f.across) - f.halfWidth);
    return premultiply(color);
}
`

// Rule is a line segment from (x, y) to (x2, y2). A missing x2 or y2
// repeats x or y, so a rule with only x and y, y2 is vertical.
func Rule() *Contract {
	return &Contract{
		Name: "rule",
		Channels: channel.Contract{
			Order:    []string{"uniqueId", "x", "x2", "y", "y2", "size", "color", "opacity", "minLength"},
			Optional: []string{"uniqueId", "x2", "y2"},
			Specs: map[string]channel.Spec{
				"uniqueId":  {Type: channel.U32, Components: 1},
				"x":         {Type: channel.F32, Components: 1},
				"x2":        {Type: channel.F32, Components: 1},
				"y":         {Type: channel.F32, Components: 1},
				"y2":        {Type: channel.F32, Components: 1},
				"size":      {Type: channel.F32, Components: 1},
				"color":     {Type: channel.F32, Components: 4},
				"opacity":   {Type: channel.F32, Components: 1},
				"minLength": {Type: channel.F32, Components: 1},
			},
			DefaultValues: map[string][]float64{
				"x":         {0},
				"y":         {0},
				"size":      {1},
				"color":     {0, 0, 0, 1},
				"opacity":   {1},
				"minLength": {0},
			},
			DefaultScaleRange: viewportRange,
		},
		Body: ruleBody,
	}
}
