package mark

import "github.com/gogpu/marks/channel"

// Point shapes selected by the shape channel.
const (
	ShapeCircle  = 0
	ShapeSquare  = 1
	ShapeDiamond = 2
)

const pointBody = common + `
struct PointOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) local: vec2<f32>,
    @location(1) radius: f32,
    @location(2) fill: vec4<f32>,
    @location(3) stroke: vec4<f32>,
    @location(4) strokeWidth: f32,
    @location(5) @interpolate(flat) shape: u32,
    @location(6) @interpolate(flat) pickId: u32,
}

fn shapeDistance(p: vec2<f32>, r: f32, shape: u32) -> f32 {
    if (shape == 1u) {
        let q = abs(p) - vec2<f32>(r);
        return length(max(q, vec2<f32>(0.0))) + min(max(q.x, q.y), 0.0);
    }
    if (shape == 2u) {
        return (abs(p.x) + abs(p.y) - r) * 0.70710678;
    }
    return length(p) - r;
}

@vertex
fn vs_main(@builtin(vertex_index) v: u32, @builtin(instance_index) i: u32) -> PointOut {
    var center = vec2<f32>(getScaled_x(i), getScaled_y(i));
#ifdef HAS_DX
    center.x = center.x + getScaled_dx(i);
#endif
#ifdef HAS_DY
    center.y = center.y + getScaled_dy(i);
#endif
    let radius = sqrt(max(getScaled_size(i), 0.0)) * 0.5;
    let sw = getScaled_strokeWidth(i);
    let extent = radius + sw * 0.5 + 1.0;
    let corner = quadCorner(v) * 2.0 - vec2<f32>(1.0);

    var o: PointOut;
    o.pos = pixelToClip(center + corner * extent);
    o.local = corner * extent;
    o.radius = radius;
    var fill = getScaled_fill(i);
    fill.a = fill.a * getScaled_fillOpacity(i);
    o.fill = fill;
    var stroke = getScaled_stroke(i);
    stroke.a = stroke.a * getScaled_strokeOpacity(i);
    o.stroke = stroke;
    o.strokeWidth = sw;
    o.shape = getScaled_shape(i);
    o.pickId = 0u;
#ifdef HAS_UNIQUEID
    o.pickId = getScaled_uniqueId(i) + 1u;
#endif
    return o;
}

@fragment
fn fs_main(f: PointOut) -> @location(0) vec4<f32> {
    let d = shapeDistance(f.local, f.radius, f.shape);
    let hw = f.strokeWidth * 0.5;
    var color = f.fill;
    if (hw > 0.0) {
        color = mix(f.fill, f.stroke, coverage(abs(d) - hw));
    }
    color.a = color.a * coverage(d - hw);
    return premultiply(color);
}
`

// Point is a symbol centered on (x, y). Size is the symbol area in square
// pixels.
func Point() *Contract {
	return &Contract{
		Name: "point",
		Channels: channel.Contract{
			Order: []string{
				"uniqueId", "x", "y", "dx", "dy", "size", "shape",
				"fill", "fillOpacity", "stroke", "strokeOpacity", "strokeWidth",
			},
			Optional: []string{"uniqueId", "dx", "dy"},
			Specs: map[string]channel.Spec{
				"uniqueId":      {Type: channel.U32, Components: 1},
				"x":             {Type: channel.F32, Components: 1},
				"y":             {Type: channel.F32, Components: 1},
				"dx":            {Type: channel.F32, Components: 1},
				"dy":            {Type: channel.F32, Components: 1},
				"size":          {Type: channel.F32, Components: 1},
				"shape":         {Type: channel.U32, Components: 1},
				"fill":          {Type: channel.F32, Components: 4},
				"fillOpacity":   {Type: channel.F32, Components: 1},
				"stroke":        {Type: channel.F32, Components: 4},
				"strokeOpacity": {Type: channel.F32, Components: 1},
				"strokeWidth":   {Type: channel.F32, Components: 1},
			},
			DefaultValues: map[string][]float64{
				"x":             {0},
				"y":             {0},
				"size":          {100},
				"shape":         {ShapeCircle},
				"fill":          {0.3, 0.5, 0.7, 1},
				"fillOpacity":   {1},
				"stroke":        {0, 0, 0, 1},
				"strokeOpacity": {1},
				"strokeWidth":   {2},
			},
			DefaultScaleRange: viewportRange,
		},
		Body: pointBody,
	}
}
