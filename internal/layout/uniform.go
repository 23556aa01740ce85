// Package layout computes the byte layout of a program's uniform buffer and
// of its packed series storage buffers.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/wgsl"
)

// arrayStride is the byte stride of uniform array elements. Every element
// occupies a full vec4 slot.
const arrayStride = 16

// UniformField declares one member of the Params struct.
type UniformField struct {
	Name       string
	Type       channel.ScalarType
	Components int

	// ArrayLength > 0 declares array<vec4<Type>, ArrayLength>.
	ArrayLength int
}

// WGSLType returns the member type as written in the Params struct.
func (f UniformField) WGSLType() string {
	if f.ArrayLength > 0 {
		return "array<vec4<" + f.Type.String() + ">, " + strconv.Itoa(f.ArrayLength) + ">"
	}
	return wgsl.TypeName(f.Type, f.Components)
}

// UniformEntry is a field with its resolved byte offset.
type UniformEntry struct {
	UniformField
	Offset int
	Size   int
}

// UniformBuffer is the CPU mirror of a program's uniform buffer. Its
// length is fixed when the layout is built.
type UniformBuffer struct {
	entries []UniformEntry
	index   map[string]int
	data    []byte
}

// NewUniformBuffer lays out fields in order using WGSL uniform alignment:
// scalars align to 4 bytes, vec2 to 8, vec3/vec4 and arrays to 16. The
// total length is rounded up to 16. An empty field list gets a single
// "dummy" f32 so the buffer is never zero-sized.
func NewUniformBuffer(fields []UniformField) (*UniformBuffer, error) {
	if len(fields) == 0 {
		fields = []UniformField{{Name: "dummy", Type: channel.F32, Components: 1}}
	}
	u := &UniformBuffer{index: make(map[string]int, len(fields))}
	offset := 0
	for _, f := range fields {
		if _, dup := u.index[f.Name]; dup {
			return nil, fmt.Errorf("uniform %q is defined twice", f.Name)
		}
		if f.Components < 1 {
			f.Components = 1
		}
		if f.Components > 4 {
			return nil, fmt.Errorf("uniform %q has %d components", f.Name, f.Components)
		}
		align, size := alignment(f)
		offset = alignUp(offset, align)
		u.index[f.Name] = len(u.entries)
		u.entries = append(u.entries, UniformEntry{UniformField: f, Offset: offset, Size: size})
		offset += size
	}
	u.data = make([]byte, alignUp(offset, 16))
	return u, nil
}

func alignment(f UniformField) (align, size int) {
	if f.ArrayLength > 0 {
		return arrayStride, arrayStride * f.ArrayLength
	}
	switch f.Components {
	case 1:
		return 4, 4
	case 2:
		return 8, 8
	case 3:
		return 16, 12
	default:
		return 16, 16
	}
}

func alignUp(v, a int) int {
	return (v + a - 1) / a * a
}

// Entries returns the laid out fields in declaration order.
func (u *UniformBuffer) Entries() []UniformEntry { return u.entries }

// Entry returns the entry for name.
func (u *UniformBuffer) Entry(name string) (UniformEntry, bool) {
	i, ok := u.index[name]
	if !ok {
		return UniformEntry{}, false
	}
	return u.entries[i], true
}

// Has reports whether name is a field.
func (u *UniformBuffer) Has(name string) bool {
	_, ok := u.index[name]
	return ok
}

// Len returns the buffer length in bytes.
func (u *UniformBuffer) Len() int { return len(u.data) }

// Bytes returns the current contents. The slice aliases internal storage.
func (u *UniformBuffer) Bytes() []byte { return u.data }

// Snapshot returns a copy of the current contents for Restore.
func (u *UniformBuffer) Snapshot() []byte { return bytes.Clone(u.data) }

// Restore puts back contents taken by Snapshot.
func (u *UniformBuffer) Restore(saved []byte) { copy(u.data, saved) }

// SetValue writes value into the field name. Scalars accept a number or a
// one-element slice; vectors accept []float64 of the field's component
// count; arrays accept []float64 (one value per element) or [][]float64.
func (u *UniformBuffer) SetValue(name string, value any) error {
	i, ok := u.index[name]
	if !ok {
		return fmt.Errorf("uniform %q is not defined", name)
	}
	e := u.entries[i]
	if e.ArrayLength > 0 {
		return u.setArray(e, value)
	}
	values, err := toFloats(name, value)
	if err != nil {
		return err
	}
	if len(values) != e.Components {
		return fmt.Errorf("uniform %q expects %d values, got %d", name, e.Components, len(values))
	}
	for c, v := range values {
		u.put(e.Type, e.Offset+c*4, v)
	}
	return nil
}

func (u *UniformBuffer) setArray(e UniformEntry, value any) error {
	var rows [][]float64
	switch v := value.(type) {
	case [][]float64:
		rows = v
	default:
		flat, err := toFloats(e.Name, value)
		if err != nil {
			return err
		}
		rows = make([][]float64, len(flat))
		for i := range flat {
			rows[i] = flat[i : i+1]
		}
	}
	if len(rows) != e.ArrayLength {
		return fmt.Errorf("uniform %q expects %d array entries, got %d", e.Name, e.ArrayLength, len(rows))
	}
	for i, row := range rows {
		if len(row) > 4 {
			return fmt.Errorf("uniform %q expects %d values, got %d", e.Name, e.Components, len(row))
		}
		base := e.Offset + i*arrayStride
		for c := 0; c < 4; c++ {
			v := 0.0
			if c < len(row) {
				v = row[c]
			}
			u.put(e.Type, base+c*4, v)
		}
	}
	return nil
}

func (u *UniformBuffer) put(t channel.ScalarType, off int, v float64) {
	binary.LittleEndian.PutUint32(u.data[off:], encodeScalar(t, v))
}

func encodeScalar(t channel.ScalarType, v float64) uint32 {
	switch t {
	case channel.U32:
		if v <= 0 {
			return 0
		}
		if v >= math.MaxUint32 {
			return math.MaxUint32
		}
		return uint32(v)
	case channel.I32:
		return uint32(int32(v))
	default:
		return math.Float32bits(float32(v))
	}
}

func decodeScalar(t channel.ScalarType, bits uint32) float64 {
	switch t {
	case channel.U32:
		return float64(bits)
	case channel.I32:
		return float64(int32(bits))
	default:
		return float64(math.Float32frombits(bits))
	}
}

// Value reads back the field name. Arrays return the first component of
// each element; use ArrayValue for vector arrays.
func (u *UniformBuffer) Value(name string) ([]float64, bool) {
	e, ok := u.Entry(name)
	if !ok {
		return nil, false
	}
	if e.ArrayLength > 0 {
		out := make([]float64, e.ArrayLength)
		for i := range out {
			out[i] = u.get(e.Type, e.Offset+i*arrayStride)
		}
		return out, true
	}
	out := make([]float64, e.Components)
	for c := range out {
		out[c] = u.get(e.Type, e.Offset+c*4)
	}
	return out, true
}

// ArrayValue reads element i of an array field as a vec4.
func (u *UniformBuffer) ArrayValue(name string, i int) ([]float64, bool) {
	e, ok := u.Entry(name)
	if !ok || e.ArrayLength == 0 || i < 0 || i >= e.ArrayLength {
		return nil, false
	}
	out := make([]float64, 4)
	for c := range out {
		out[c] = u.get(e.Type, e.Offset+i*arrayStride+c*4)
	}
	return out, true
}

func (u *UniformBuffer) get(t channel.ScalarType, off int) float64 {
	return decodeScalar(t, binary.LittleEndian.Uint32(u.data[off:]))
}

// WGSLStruct renders the uniform struct declaration.
func (u *UniformBuffer) WGSLStruct(name string) string {
	var b strings.Builder
	b.WriteString("struct ")
	b.WriteString(name)
	b.WriteString(" {\n")
	for _, e := range u.entries {
		fmt.Fprintf(&b, "    %s: %s,\n", e.Name, e.WGSLType())
	}
	b.WriteString("}\n")
	return b.String()
}

func toFloats(name string, value any) ([]float64, error) {
	switch v := value.(type) {
	case float64:
		return []float64{v}, nil
	case float32:
		return []float64{float64(v)}, nil
	case int:
		return []float64{float64(v)}, nil
	case uint32:
		return []float64{float64(v)}, nil
	case int32:
		return []float64{float64(v)}, nil
	case bool:
		if v {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case []uint32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case []int:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("uniform %q does not accept %T values", name, value)
}
