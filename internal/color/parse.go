package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned for strings that are not CSS colors.
var ErrInvalidColor = errors.New("color: invalid color")

// Parse parses a CSS color: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba()
// or a named color.
func Parse(s string) (ColorF32, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(str, "#"):
		return parseHex(str[1:], s)
	case strings.HasPrefix(str, "rgb(") || strings.HasPrefix(str, "rgba("):
		return parseFunc(str, s)
	case str == "transparent":
		return ColorF32{}, nil
	}
	c, ok := colornames.Map[str]
	if !ok {
		return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, s)
	}
	return U8ToF32(ColorU8{R: c.R, G: c.G, B: c.B, A: c.A}), nil
}

func parseHex(hex, orig string) (ColorF32, error) {
	var digits [8]uint8
	for i := 0; i < len(hex) && i < len(digits); i++ {
		v, ok := hexDigit(hex[i])
		if !ok {
			return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, orig)
		}
		digits[i] = v
	}
	c := ColorU8{A: 255}
	switch len(hex) {
	case 3, 4:
		c.R, c.G, c.B = digits[0]*17, digits[1]*17, digits[2]*17
		if len(hex) == 4 {
			c.A = digits[3] * 17
		}
	case 6, 8:
		c.R = digits[0]<<4 | digits[1]
		c.G = digits[2]<<4 | digits[3]
		c.B = digits[4]<<4 | digits[5]
		if len(hex) == 8 {
			c.A = digits[6]<<4 | digits[7]
		}
	default:
		return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, orig)
	}
	return U8ToF32(c), nil
}

func hexDigit(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}

func parseFunc(str, orig string) (ColorF32, error) {
	open := strings.IndexByte(str, '(')
	if !strings.HasSuffix(str, ")") {
		return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, orig)
	}
	parts := strings.Split(str[open+1:len(str)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, orig)
	}
	var v [4]float64
	v[3] = 1
	for i, p := range parts {
		p = strings.TrimSpace(p)
		scale := 255.0
		if i == 3 {
			scale = 1
		}
		if strings.HasSuffix(p, "%") {
			p = strings.TrimSuffix(p, "%")
			scale = 100
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return ColorF32{}, fmt.Errorf("%w %q", ErrInvalidColor, orig)
		}
		v[i] = clamp01(f / scale)
	}
	return ColorF32{R: float32(v[0]), G: float32(v[1]), B: float32(v[2]), A: float32(v[3])}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ParseStop converts a range entry to a color. Strings are parsed as CSS
// colors; []float64 slices of three or four components are taken as
// [0,1] rgb(a) values with alpha defaulting to 1.
func ParseStop(v any) (ColorF32, error) {
	switch s := v.(type) {
	case string:
		return Parse(s)
	case ColorF32:
		return s, nil
	case []float64:
		switch len(s) {
		case 3:
			return ColorF32{R: float32(s[0]), G: float32(s[1]), B: float32(s[2]), A: 1}, nil
		case 4:
			return ColorF32{R: float32(s[0]), G: float32(s[1]), B: float32(s[2]), A: float32(s[3])}, nil
		}
	}
	return ColorF32{}, fmt.Errorf("%w: %v", ErrInvalidColor, v)
}

// IsStop reports whether v can be used as a color stop.
func IsStop(v any) bool {
	switch s := v.(type) {
	case string, ColorF32:
		return true
	case []float64:
		return len(s) == 3 || len(s) == 4
	}
	return false
}
