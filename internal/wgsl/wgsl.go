// Package wgsl holds the naming conventions and literal formatting shared by
// every code generator that emits WGSL for a mark program.
package wgsl

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/marks/channel"
)

// Identifier prefixes. Generated functions, uniforms and resources are
// named <prefix><channel> so the shader text and the host-side layout can
// be derived from the same channel name.
const (
	ValuePrefix          = "u_"
	DomainPrefix         = "uDomain_"
	RangePrefix          = "uRange_"
	RangeCountPrefix     = "uRangeCount_"
	DomainMapCountPrefix = "uDomainMapCount_"
	DomainMapPrefix      = "domainMap_"
	OrdinalRangePrefix   = "range_"
	RangeTexturePrefix   = "uRangeTexture_"
	RangeSamplerPrefix   = "uRangeSampler_"
	ReadFunctionPrefix   = "read_"
	ScaledFunctionPrefix = "getScaled_"

	SelectionPrefix       = "uSelection_"
	SelectionCountPrefix  = "uSelectionCount_"
	SelectionBufferPrefix = "uSelectionBuffer_"
	PredicatePrefix       = "isSelected_"

	PaddingInnerPrefix = "uPaddingInner_"
	PaddingOuterPrefix = "uPaddingOuter_"
	AlignPrefix        = "uAlign_"
	BandPrefix         = "uBand_"
	BasePrefix         = "uBase_"
	ExponentPrefix     = "uExponent_"
	ConstantPrefix     = "uConstant_"
)

// Buffer names of the packed series storage buffers.
const (
	SeriesF32 = "seriesF32"
	SeriesU32 = "seriesU32"
	SeriesI32 = "seriesI32"
)

// SeriesBufferName returns the packed series buffer for a scalar type.
func SeriesBufferName(t channel.ScalarType) string {
	switch t {
	case channel.U32:
		return SeriesU32
	case channel.I32:
		return SeriesI32
	default:
		return SeriesF32
	}
}

// ConditionName is the derived channel name of the k-th condition on name.
func ConditionName(name string, k int) string {
	return name + "__cond" + strconv.Itoa(k)
}

// BaseName is the derived name of a conditional channel's unconditioned value.
func BaseName(name string) string {
	return name + "__base"
}

// IsIdentifier reports whether name is usable as a WGSL identifier:
// ASCII letters, digits and underscores, not starting with a digit, and
// not a lone or leading double underscore.
func IsIdentifier(name string) bool {
	if name == "" || name == "_" || strings.HasPrefix(name, "__") {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// TypeName returns the WGSL type for a scalar with the given component count.
func TypeName(t channel.ScalarType, components int) string {
	switch components {
	case 1:
		return t.String()
	case 2, 3, 4:
		return "vec" + strconv.Itoa(components) + "<" + t.String() + ">"
	}
	return t.String()
}

// Zero returns the zero value literal for a type.
func Zero(t channel.ScalarType, components int) string {
	if components > 1 {
		return TypeName(t, components) + "(" + scalarZero(t) + ")"
	}
	return scalarZero(t)
}

func scalarZero(t channel.ScalarType) string {
	switch t {
	case channel.U32:
		return "0u"
	case channel.I32:
		return "0"
	default:
		return "0.0"
	}
}

// FormatFloat formats v as a WGSL float literal. Integral values keep a
// trailing ".0" so the literal is never inferred as an integer.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	s := strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatScalar(t channel.ScalarType, v float64) string {
	switch t {
	case channel.U32:
		if v < 0 {
			v = 0
		}
		return strconv.FormatUint(uint64(v), 10) + "u"
	case channel.I32:
		n := strconv.FormatInt(int64(v), 10)
		return "i32(" + n + ")"
	default:
		return FormatFloat(v)
	}
}

// FormatLiteral formats values as a WGSL literal of the given type. Vectors
// shorter than the component count are padded with zeros.
func FormatLiteral(t channel.ScalarType, components int, values []float64) string {
	if components <= 1 {
		v := 0.0
		if len(values) > 0 {
			v = values[0]
		}
		return formatScalar(t, v)
	}
	parts := make([]string, components)
	for i := range parts {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		parts[i] = formatScalar(t, v)
	}
	return TypeName(t, components) + "(" + strings.Join(parts, ", ") + ")"
}
