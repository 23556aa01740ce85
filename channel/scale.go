package channel

// ScaleType names a scale transform.
type ScaleType string

// Supported scale types.
const (
	ScaleIdentity  ScaleType = "identity"
	ScaleLinear    ScaleType = "linear"
	ScaleLog       ScaleType = "log"
	ScalePow       ScaleType = "pow"
	ScaleSqrt      ScaleType = "sqrt"
	ScaleSymlog    ScaleType = "symlog"
	ScaleBand      ScaleType = "band"
	ScaleIndex     ScaleType = "index"
	ScaleOrdinal   ScaleType = "ordinal"
	ScaleThreshold ScaleType = "threshold"
	ScaleQuantize  ScaleType = "quantize"
)

// Interpolation selects the color space used for continuous color ranges.
type Interpolation string

const (
	// InterpolateRGB interpolates gamma-encoded sRGB components.
	InterpolateRGB Interpolation = "rgb"
	// InterpolateLinearRGB interpolates in linear light.
	InterpolateLinearRGB Interpolation = "linear-rgb"
)

// Interpolator maps t in [0, 1] to an sRGB color with components in
// [0, 1]. It is sampled into the range texture of a continuous color
// scale.
type Interpolator func(t float64) [4]float64

// InterpolatorRange wraps fn as a scale range.
func InterpolatorRange(fn Interpolator) []any { return []any{fn} }

// Scale configures the transform applied to a channel's raw value.
type Scale struct {
	Type ScaleType

	// Domain holds the input extent, breakpoints, or ordinal keys.
	Domain []float64

	// Range holds output stops. Entries may be numbers (float64, int),
	// vectors ([]float64), or CSS color strings. A continuous color scale
	// may instead hold a single Interpolator.
	Range []any

	// Clamp restricts continuous inputs to the domain.
	Clamp bool

	// Round rounds continuous outputs away from zero.
	Round bool

	// Interpolate enables color interpolation for continuous scales.
	Interpolate Interpolation

	// Params overrides scale parameters by name: "base", "exponent",
	// "constant", "paddingInner", "paddingOuter", "align", "band".
	Params map[string]float64
}

// Kind returns the scale type, defaulting to identity.
func (s *Scale) Kind() ScaleType {
	if s == nil || s.Type == "" {
		return ScaleIdentity
	}
	return s.Type
}
