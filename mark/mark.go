// Package mark declares the built-in mark types: their channel contracts
// and the WGSL bodies that turn scaled channel values into geometry.
//
// A mark body defines vs_main and fs_main. It reads channels through the
// generated getScaled_<name>(i) functions and may branch on the
// HAS_<NAME> macros, which are defined for every channel present in a
// program. Bodies draw six vertices per instance as two triangles.
package mark

import "github.com/gogpu/marks/channel"

// ExtraKind is the kind of an extra resource.
type ExtraKind uint8

// Extra resource kinds.
const (
	ExtraBuffer ExtraKind = iota
	ExtraTexture
	ExtraSampler
)

// Extra is a resource a mark body declares outside the channel system,
// such as a glyph atlas. The caller supplies its handle when building a
// program.
type Extra struct {
	Name     string
	Kind     ExtraKind
	WGSLType string
}

// Uniform is a Params member the body reads directly, such as a shape
// parameter that is not tied to a channel. Default is written when the
// program is created; nil means zero. Program.UpdateUniforms changes it
// later.
type Uniform struct {
	Name       string
	Type       channel.ScalarType
	Components int
	Default    []float64
}

// Contract is everything a program needs to know about one mark type.
type Contract struct {
	// Name labels GPU objects created for the mark.
	Name string

	Channels channel.Contract

	// Body is the WGSL with vs_main and fs_main.
	Body string

	// Defines are passed to the preprocessor with the HAS_ macros.
	Defines map[string]string

	Extras []Extra

	// Uniforms are appended to the Params struct after the channel and
	// selection uniforms.
	Uniforms []Uniform

	// Segments names a scalar entry of Uniforms holding the number of
	// quads drawn per instance. Empty means one quad, six vertices.
	Segments string
}

// viewportRange maps x-like channels to [0, width] and y-like channels to
// [0, height].
func viewportRange(name string, width, height float64) []float64 {
	switch name {
	case "x", "x2":
		return []float64{0, width}
	case "y", "y2":
		return []float64{0, height}
	}
	return nil
}

// common is prepended to every built-in body.
const common = `fn quadCorner(v: u32) -> vec2<f32> {
    var corners = array<vec2<f32>, 6>(
        vec2<f32>(0.0, 0.0),
        vec2<f32>(1.0, 0.0),
        vec2<f32>(0.0, 1.0),
        vec2<f32>(0.0, 1.0),
        vec2<f32>(1.0, 0.0),
        vec2<f32>(1.0, 1.0)
    );
    return corners[v % 6u];
}

fn pixelToClip(p: vec2<f32>) -> vec4<f32> {
    return vec4<f32>(p.x / globals.width * 2.0 - 1.0, 1.0 - p.y / globals.height * 2.0, 0.0, 1.0);
}

// Coverage of a signed distance in pixels, antialiased over one device pixel.
fn coverage(d: f32) -> f32 {
    return clamp(0.5 - d * globals.dpr, 0.0, 1.0);
}

fn premultiply(c: vec4<f32>) -> vec4<f32> {
    return vec4<f32>(c.rgb * c.a, c.a);
}
`
