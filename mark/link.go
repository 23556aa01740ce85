package mark

import "github.com/gogpu/marks/channel"

// LinkShape selects the curve drawn between the two link endpoints.
type LinkShape uint32

// Link shapes.
const (
	// LinkArc bends away from the chord by a height proportional to its
	// length.
	LinkArc LinkShape = iota
	// LinkDome rises from the baseline y2 (or x2) to the apex y (or x).
	LinkDome
	// LinkDiagonal is an S-shaped bezier along the orient axis.
	LinkDiagonal
	// LinkLine is a straight segment.
	LinkLine
)

// Orient is the primary axis of dome and diagonal links.
type Orient uint32

// Link orientations.
const (
	OrientVertical Orient = iota
	OrientHorizontal
)

// Link uniform names, for Program.UpdateUniforms.
const (
	LinkUniformShape          = "uShape"
	LinkUniformOrient         = "uOrient"
	LinkUniformArcHeight      = "uArcHeightFactor"
	LinkUniformMinArcHeight   = "uMinArcHeight"
	LinkUniformArcFading      = "uArcFadingDistance"
	LinkUniformMaxChordLength = "uMaxChordLength"
	LinkUniformClampApex      = "uClampApex"
	LinkUniformSegments       = "uSegmentBreaks"
)

type linkOptions struct {
	shape           LinkShape
	orient          Orient
	arcHeightFactor float64
	minArcHeight    float64
	arcFading       [2]float64
	maxChordLength  float64
	clampApex       bool
	segments        int
}

// LinkOption configures Link.
type LinkOption func(*linkOptions)

// WithLinkShape sets the curve shape. Defaults to LinkArc.
func WithLinkShape(s LinkShape) LinkOption {
	return func(o *linkOptions) { o.shape = s }
}

// WithOrient sets the axis of dome and diagonal links. Defaults to
// OrientVertical.
func WithOrient(or Orient) LinkOption {
	return func(o *linkOptions) { o.orient = or }
}

// WithArcHeightFactor scales arc height relative to half the chord.
// Defaults to 1.
func WithArcHeightFactor(f float64) LinkOption {
	return func(o *linkOptions) { o.arcHeightFactor = f }
}

// WithMinArcHeight sets the minimum arc height in pixels. Defaults to 1.5.
func WithMinArcHeight(h float64) LinkOption {
	return func(o *linkOptions) { o.minArcHeight = h }
}

// WithArcFadingDistance fades arcs out between near and far pixels from
// their chord. Both must be positive to enable fading.
func WithArcFadingDistance(near, far float64) LinkOption {
	return func(o *linkOptions) { o.arcFading = [2]float64{near, far} }
}

// WithMaxChordLength limits the chord of arcs that leave the viewport.
// Defaults to 50000 pixels.
func WithMaxChordLength(l float64) LinkOption {
	return func(o *linkOptions) { o.maxChordLength = l }
}

// WithClampApex keeps the endpoints of dome links close enough to the
// viewport that their apex stays visible.
func WithClampApex(clamp bool) LinkOption {
	return func(o *linkOptions) { o.clampApex = clamp }
}

// WithSegments sets the number of quads each link is tessellated into.
// Defaults to 101; values below 1 keep the default.
func WithSegments(n int) LinkOption {
	return func(o *linkOptions) {
		if n > 0 {
			o.segments = n
		}
	}
}

const linkBody = common + `
const SHAPE_ARC: u32 = 0u;
const SHAPE_DOME: u32 = 1u;
const SHAPE_DIAGONAL: u32 = 2u;
const SHAPE_LINE: u32 = 3u;
const ORIENT_VERTICAL: u32 = 0u;

struct LinkOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) across: f32,
    @location(2) size: f32,
    @location(3) @interpolate(flat) pickId: u32,
}

fn distanceFromLine(a: vec2<f32>, b: vec2<f32>, p: vec2<f32>) -> f32 {
    let ap = p - a;
    let ab = b - a;
    return length(ap - dot(ap, ab) / dot(ab, ab) * ab);
}

fn insideViewport(p: vec2<f32>, marginFactor: f32) -> bool {
    let margin = vec2<f32>(globals.width, globals.height) * marginFactor;
    return p.x >= -margin.x && p.x <= globals.width + margin.x &&
        p.y >= -margin.y && p.y <= globals.height + margin.y;
}

@vertex
fn vs_main(@builtin(vertex_index) v: u32, @builtin(instance_index) i: u32) -> LinkOut {
    let corner = quadCorner(v);
    let segments = max(1u, u32(params.uSegmentBreaks));
    let t = smoothstep(0.0, 1.0, (f32(v / 6u) + corner.x) / f32(segments));
    let pixelSize = 1.0 / globals.dpr;
    var opacity = getScaled_opacity(i);

    let a = vec2<f32>(getScaled_x(i), getScaled_y(i));
    let b = vec2<f32>(getScaled_x2(i), getScaled_y2(i));

    // Cubic bezier control points.
    var p1 = a;
    var p2 = (a + b) * 0.5;
    var p3 = p2;
    var p4 = b;

    if (params.uShape == SHAPE_DOME) {
        var height = vec2<f32>(0.0);
        if (params.uOrient == ORIENT_VERTICAL) {
            p1 = vec2<f32>(min(a.x, b.x), b.y);
            p4 = vec2<f32>(max(a.x, b.x), b.y);
            height = vec2<f32>(0.0, a.y - b.y);
            if (params.uClampApex != 0u) {
                if (p4.x > 0.0) {
                    p1.x = max(p1.x, -p4.x);
                }
                if (p1.x < globals.width) {
                    p4.x = min(p4.x, 2.0 * globals.width - p1.x);
                }
            }
        } else {
            p1 = vec2<f32>(b.x, min(a.y, b.y));
            p4 = vec2<f32>(b.x, max(a.y, b.y));
            height = vec2<f32>(a.x - b.x, 0.0);
            if (params.uClampApex != 0u) {
                if (p4.y > 0.0) {
                    p1.y = max(p1.y, -p4.y);
                }
                if (p1.y < globals.height) {
                    p4.y = min(p4.y, 2.0 * globals.height - p1.y);
                }
            }
        }
        p2 = p1 + height / 0.75;
        p3 = p4 + height / 0.75;
    } else if (params.uShape == SHAPE_ARC) {
        let chord = p4 - p1;
        let unitChord = normalize(chord);
        var chordLength = length(chord);
        if (chordLength > params.uMaxChordLength) {
            if (insideViewport(p1, 2.0)) {
                chordLength = params.uMaxChordLength;
                p4 = p1 + unitChord * chordLength;
            } else if (insideViewport(p4, 2.0)) {
                chordLength = params.uMaxChordLength;
                p1 = p4 - unitChord * chordLength;
            }
        }
        let height = max(chordLength * 0.5 * params.uArcHeightFactor, params.uMinArcHeight);
        let bend = vec2<f32>(-unitChord.y, unitChord.x) * height / 0.75;
        p2 = p1 + bend;
        p3 = p4 + bend;
    } else if (params.uShape == SHAPE_DIAGONAL) {
        if (params.uOrient == ORIENT_VERTICAL) {
            p2 = vec2<f32>(a.x, (a.y + b.y) * 0.5);
            p3 = vec2<f32>(b.x, (a.y + b.y) * 0.5);
        } else {
            p2 = vec2<f32>((a.x + b.x) * 0.5, a.y);
            p3 = vec2<f32>((a.x + b.x) * 0.5, b.y);
        }
    }

    let c1 = p4 - 3.0 * p3 + 3.0 * p2 - p1;
    let c2 = 3.0 * p3 - 6.0 * p2 + 3.0 * p1;
    let c3 = 3.0 * p2 - 3.0 * p1;
    var p = c1 * t * t * t + c2 * t * t + c3 * t + p1;
    if (t == 0.0) {
        p = p1;
    } else if (t == 1.0) {
        p = p4;
    }
    let tangent = normalize(3.0 * c1 * t * t + 2.0 * c2 * t + c3);
    let normal = vec2<f32>(-tangent.y, tangent.x);

    // Links thinner than a device pixel fade instead of aliasing.
    var size = getScaled_size(i);
    if (size < pixelSize) {
        opacity = opacity * size / pixelSize;
        size = pixelSize;
    }
    let padded = size + pixelSize;
    var across = (corner.y - 0.5) * padded;

    let fading = params.uArcFadingDistance;
    if (params.uShape == SHAPE_ARC && fading.x > 0.0 && fading.y > 0.0) {
        let fade = smoothstep(fading.y, fading.x, distanceFromLine(p1, p4, p));
        opacity = opacity * fade;
        if (fade <= 0.0) {
            across = 0.0;
        }
    }

    var o: LinkOut;
    o.pos = pixelToClip(p + normal * across);
    var color = getScaled_color(i);
    color.a = color.a * opacity;
    o.color = color;
    o.across = across;
    o.size = padded;
    o.pickId = 0u;
#ifdef HAS_UNIQUEID
    o.pickId = getScaled_uniqueId(i) + 1u;
#endif
    return o;
}

@fragment
fn fs_main(f: LinkOut) -> @location(0) vec4<f32> {
    var color = f.color;
    color.a = color.a * coverage(abs(f.across) - f.size * 0.5);
    return premultiply(color);
}
`

// Link is a curve from (x, y) to (x2, y2), tessellated into segments
// quads per instance. Shape and tessellation are mark uniforms and can
// change without recompiling.
func Link(opts ...LinkOption) *Contract {
	o := linkOptions{
		arcHeightFactor: 1,
		minArcHeight:    1.5,
		maxChordLength:  50000,
		segments:        101,
	}
	for _, opt := range opts {
		opt(&o)
	}
	clampApex := 0.0
	if o.clampApex {
		clampApex = 1
	}
	return &Contract{
		Name: "link",
		Channels: channel.Contract{
			Order:    []string{"uniqueId", "x", "x2", "y", "y2", "size", "color", "opacity"},
			Optional: []string{"uniqueId"},
			Specs: map[string]channel.Spec{
				"uniqueId": {Type: channel.U32, Components: 1},
				"x":        {Type: channel.F32, Components: 1},
				"x2":       {Type: channel.F32, Components: 1},
				"y":        {Type: channel.F32, Components: 1},
				"y2":       {Type: channel.F32, Components: 1},
				"size":     {Type: channel.F32, Components: 1},
				"color":    {Type: channel.F32, Components: 4},
				"opacity":  {Type: channel.F32, Components: 1},
			},
			DefaultValues: map[string][]float64{
				"size":    {1},
				"color":   {0, 0, 0, 1},
				"opacity": {1},
			},
			DefaultScaleRange: viewportRange,
		},
		Body: linkBody,
		Uniforms: []Uniform{
			{Name: LinkUniformArcFading, Type: channel.F32, Components: 2, Default: o.arcFading[:]},
			{Name: LinkUniformArcHeight, Type: channel.F32, Components: 1, Default: []float64{o.arcHeightFactor}},
			{Name: LinkUniformMinArcHeight, Type: channel.F32, Components: 1, Default: []float64{o.minArcHeight}},
			{Name: LinkUniformShape, Type: channel.U32, Components: 1, Default: []float64{float64(o.shape)}},
			{Name: LinkUniformOrient, Type: channel.U32, Components: 1, Default: []float64{float64(o.orient)}},
			{Name: LinkUniformClampApex, Type: channel.U32, Components: 1, Default: []float64{clampApex}},
			{Name: LinkUniformMaxChordLength, Type: channel.F32, Components: 1, Default: []float64{o.maxChordLength}},
			{Name: LinkUniformSegments, Type: channel.F32, Components: 1, Default: []float64{float64(o.segments)}},
		},
		Segments: LinkUniformSegments,
	}
}
