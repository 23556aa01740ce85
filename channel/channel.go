// Package channel defines the declarative configuration of a mark's data
// channels: where values come from, how they are scaled, and which
// selections may override them.
//
// The types here are plain data. Validation, defaulting and shader
// generation happen when a configuration is compiled into a program.
package channel

import "fmt"

// ScalarType is the scalar element type of a channel value.
type ScalarType uint8

const (
	// F32 is a 32-bit float.
	F32 ScalarType = iota
	// U32 is a 32-bit unsigned integer.
	U32
	// I32 is a 32-bit signed integer.
	I32
)

// String returns the WGSL name of the scalar type.
func (t ScalarType) String() string {
	switch t {
	case F32:
		return "f32"
	case U32:
		return "u32"
	case I32:
		return "i32"
	default:
		return fmt.Sprintf("ScalarType(%d)", t)
	}
}

// ParseScalarType parses a WGSL scalar name ("f32", "u32" or "i32").
func ParseScalarType(s string) (ScalarType, error) {
	switch s {
	case "f32":
		return F32, nil
	case "u32":
		return U32, nil
	case "i32":
		return I32, nil
	}
	return F32, fmt.Errorf("channel: unknown scalar type %q", s)
}

// Config describes one channel as supplied by the caller.
//
// Exactly one of Data and Value must be set after defaults are applied.
// Data holds per-instance values and must be a []float32, []uint32 or
// []int32 matching Type. A []float64 is accepted for u32 channels that use
// an index scale with two input components; each value is split into a
// high/low pair to preserve precision beyond 2^24.
//
// Value holds a single scalar (one element) or vector.
type Config struct {
	Data  any
	Value []float64

	// Default is used as Value when neither Data nor Value is given.
	Default []float64

	// Type is the scalar type. Nil means the mark contract's type.
	Type *ScalarType

	// Components is the number of output components (1, 2 or 4).
	// Zero means the contract's count, or 1.
	Components int

	// InputComponents is the number of components stored per instance.
	// Zero means Components for series and identity channels, otherwise 1.
	InputComponents int

	// Dynamic makes a value channel uniform-backed so it can be updated
	// after the program is built. Static values are inlined as literals.
	Dynamic bool

	Scale      *Scale
	Conditions []Condition
}

// HasData reports whether the config is series-backed.
func (c *Config) HasData() bool { return c.Data != nil }

// HasValue reports whether the config carries a value or a default.
func (c *Config) HasValue() bool { return c.Value != nil || c.Default != nil }

// Type returns a pointer to t, for use in Config literals.
func Type(t ScalarType) *ScalarType { return &t }

// Scalar is a convenience for a one-element Value.
func Scalar(v float64) []float64 { return []float64{v} }

// Spec is a mark's fixed contract for one channel.
type Spec struct {
	Type       ScalarType
	Components int
}

// Contract is the channel contract declared by a mark type.
type Contract struct {
	// Order lists every channel the mark understands, in declaration order.
	Order []string

	// Optional channels may be omitted entirely.
	Optional []string

	Specs map[string]Spec

	// Defaults are merged under caller configs, field by field.
	Defaults map[string]Config

	// DefaultValues supply a value when a channel has neither data nor value.
	DefaultValues map[string][]float64

	// DefaultScaleRange returns the range of a continuous scale that
	// declares none, given the viewport size in pixels. Nil results fall
	// back to [0, 1].
	DefaultScaleRange func(name string, width, height float64) []float64
}

// Has reports whether name is part of the contract.
func (c *Contract) Has(name string) bool {
	for _, n := range c.Order {
		if n == name {
			return true
		}
	}
	return false
}

// IsOptional reports whether name may be omitted.
func (c *Contract) IsOptional(name string) bool {
	for _, n := range c.Optional {
		if n == name {
			return true
		}
	}
	return false
}
