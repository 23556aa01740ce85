package mark

import "github.com/gogpu/marks/channel"

const rectBody = common + `
struct RectOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) local: vec2<f32>,
    @location(1) size: vec2<f32>,
    @location(2) fill: vec4<f32>,
    @location(3) stroke: vec4<f32>,
    @location(4) strokeWidth: f32,
    @location(5) cornerRadius: f32,
    @location(6) @interpolate(flat) pickId: u32,
}

fn sdRoundedBox(p: vec2<f32>, b: vec2<f32>, r: f32) -> f32 {
    let q = abs(p) - b + vec2<f32>(r);
    return min(max(q.x, q.y), 0.0) + length(max(q, vec2<f32>(0.0))) - r;
}

@vertex
fn vs_main(@builtin(vertex_index) v: u32, @builtin(instance_index) i: u32) -> RectOut {
    let xa = getScaled_x(i);
    let xb = getScaled_x2(i);
    let ya = getScaled_y(i);
    let yb = getScaled_y2(i);
    var lo = vec2<f32>(min(xa, xb), min(ya, yb));
    var size = vec2<f32>(max(xa, xb), max(ya, yb)) - lo;
    let minSize = vec2<f32>(getScaled_minWidth(i), getScaled_minHeight(i));
    let grow = max(minSize - size, vec2<f32>(0.0));
    lo = lo - grow * 0.5;
    size = size + grow;

    let corner = quadCorner(v);
    var o: RectOut;
    o.pos = pixelToClip(lo + corner * size);
    o.local = corner;
    o.size = size;
    var fill = getScaled_fill(i);
    fill.a = fill.a * getScaled_fillOpacity(i);
    o.fill = fill;
#ifdef HAS_STROKE
    var stroke = getScaled_stroke(i);
    stroke.a = stroke.a * getScaled_strokeOpacity(i);
    o.stroke = stroke;
    o.strokeWidth = getScaled_strokeWidth(i);
#else
    o.stroke = vec4<f32>(0.0);
    o.strokeWidth = 0.0;
#endif
#ifdef HAS_CORNERRADIUS
    o.cornerRadius = getScaled_cornerRadius(i);
#else
    o.cornerRadius = 0.0;
#endif
    o.pickId = 0u;
#ifdef HAS_UNIQUEID
    o.pickId = getScaled_uniqueId(i) + 1u;
#endif
    return o;
}

@fragment
fn fs_main(f: RectOut) -> @location(0) vec4<f32> {
    let halfSize = f.size * 0.5;
    let p = (f.local - vec2<f32>(0.5)) * f.size;
    let d = sdRoundedBox(p, halfSize, min(f.cornerRadius, min(halfSize.x, halfSize.y)));
    var color = f.fill;
    let hw = f.strokeWidth * 0.5;
    if (hw > 0.0) {
        color = mix(f.fill, f.stroke, coverage(abs(d + hw) - hw));
    }
    color.a = color.a * coverage(d);
    return premultiply(color);
}
`

// Rect is a rectangle spanning [x, x2] x [y, y2] in pixels, with an
// optional inner stroke and rounded corners.
func Rect() *Contract {
	return &Contract{
		Name: "rect",
		Channels: channel.Contract{
			Order: []string{
				"uniqueId", "x", "x2", "y", "y2",
				"fill", "fillOpacity", "stroke", "strokeOpacity", "strokeWidth",
				"cornerRadius", "minWidth", "minHeight",
			},
			Optional: []string{"uniqueId", "stroke", "cornerRadius"},
			Specs: map[string]channel.Spec{
				"uniqueId":      {Type: channel.U32, Components: 1},
				"x":             {Type: channel.F32, Components: 1},
				"x2":            {Type: channel.F32, Components: 1},
				"y":             {Type: channel.F32, Components: 1},
				"y2":            {Type: channel.F32, Components: 1},
				"fill":          {Type: channel.F32, Components: 4},
				"fillOpacity":   {Type: channel.F32, Components: 1},
				"stroke":        {Type: channel.F32, Components: 4},
				"strokeOpacity": {Type: channel.F32, Components: 1},
				"strokeWidth":   {Type: channel.F32, Components: 1},
				"cornerRadius":  {Type: channel.F32, Components: 1},
				"minWidth":      {Type: channel.F32, Components: 1},
				"minHeight":     {Type: channel.F32, Components: 1},
			},
			DefaultValues: map[string][]float64{
				"x":             {0},
				"x2":            {10},
				"y":             {0},
				"y2":            {10},
				"fill":          {0.27, 0.49, 0.8, 1},
				"fillOpacity":   {1},
				"strokeOpacity": {1},
				"strokeWidth":   {1},
				"minWidth":      {0},
				"minHeight":     {0},
			},
			DefaultScaleRange: viewportRange,
		},
		Body: rectBody,
	}
}
