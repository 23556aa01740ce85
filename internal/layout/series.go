package layout

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/wgsl"
)

// HighPrecisionDivisor splits large integers into hi/lo parts that are
// both exactly representable in f32.
const HighPrecisionDivisor = 4096

// SeriesChannel describes one series-backed channel.
type SeriesChannel struct {
	Name string
	Type channel.ScalarType

	// Components is the number of stored components per instance.
	Components int

	// HighPrecision marks u32 index channels fed with []float64 data. Each
	// value is stored as a (hi, lo) u32 pair.
	HighPrecision bool
}

// SeriesEntry locates a channel inside its typed buffer. Offsets and
// strides are in elements, not bytes.
type SeriesEntry struct {
	// Owner is the channel whose data fills the entry. Aliased channels
	// share the owner's entry.
	Owner      string
	Type       channel.ScalarType
	Components int
	Offset     int
	Stride     int
}

// SeriesLayout is the interleaved layout of all series channels.
type SeriesLayout struct {
	channels []SeriesChannel
	entries  map[string]*SeriesEntry
	owners   []*SeriesEntry
	stride   [3]int
}

// BuildSeriesLayout groups channels by scalar type and interleaves them.
// Within each type, offsets are the running sum of component counts in
// channel order and the stride is the group's total width. aliases maps a
// channel to the owner whose entry it shares; it may be nil.
func BuildSeriesLayout(channels []SeriesChannel, aliases map[string]string) (*SeriesLayout, error) {
	l := &SeriesLayout{
		channels: channels,
		entries:  make(map[string]*SeriesEntry, len(channels)),
	}
	byOwner := make(map[string]*SeriesEntry)
	var offsets [3]int
	for _, ch := range channels {
		if ch.Type > channel.I32 {
			return nil, fmt.Errorf("packed series only supports f32/u32/i32 channels: %q is %s", ch.Name, ch.Type)
		}
		if ch.Components != 1 && ch.Components != 2 && ch.Components != 4 {
			return nil, fmt.Errorf("packed series only supports 1, 2, or 4 components: %q is %d", ch.Name, ch.Components)
		}
		owner := ch.Name
		if a, ok := aliases[ch.Name]; ok {
			owner = a
		}
		if e, ok := byOwner[owner]; ok {
			if e.Type != ch.Type || e.Components != ch.Components {
				return nil, fmt.Errorf("packed alias %q must keep type/components consistent", owner)
			}
			l.entries[ch.Name] = e
			continue
		}
		e := &SeriesEntry{
			Owner:      ch.Name,
			Type:       ch.Type,
			Components: ch.Components,
			Offset:     offsets[ch.Type],
		}
		offsets[ch.Type] += ch.Components
		byOwner[owner] = e
		l.entries[ch.Name] = e
		l.owners = append(l.owners, e)
	}
	for _, e := range l.owners {
		e.Stride = offsets[e.Type]
	}
	l.stride = offsets
	return l, nil
}

// Entry returns the entry of a channel.
func (l *SeriesLayout) Entry(name string) (*SeriesEntry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Stride returns the per-instance element count of a typed buffer.
func (l *SeriesLayout) Stride(t channel.ScalarType) int {
	if t > channel.I32 {
		return 0
	}
	return l.stride[t]
}

// Used reports whether any channel is stored in the typed buffer.
func (l *SeriesLayout) Used(t channel.ScalarType) bool { return l.Stride(t) > 0 }

// Channels returns the channels in layout order.
func (l *SeriesLayout) Channels() []SeriesChannel { return l.channels }

// ReadFunction emits read_<name>(i), which loads one instance's value.
func (l *SeriesLayout) ReadFunction(name string) (string, error) {
	e, ok := l.entries[name]
	if !ok {
		return "", fmt.Errorf("missing series layout for %q", name)
	}
	buf := wgsl.SeriesBufferName(e.Type)
	retType := wgsl.TypeName(e.Type, e.Components)
	fn := wgsl.ReadFunctionPrefix + name
	if e.Components == 1 {
		return fmt.Sprintf("fn %s(i: u32) -> %s {\n    return %s[i * %du + %du];\n}\n",
			fn, retType, buf, e.Stride, e.Offset), nil
	}
	parts := make([]string, e.Components)
	for c := range parts {
		if c == 0 {
			parts[c] = buf + "[base]"
		} else {
			parts[c] = fmt.Sprintf("%s[base + %du]", buf, c)
		}
	}
	return fmt.Sprintf("fn %s(i: u32) -> %s {\n    let base = i * %du + %du;\n    return %s(%s);\n}\n",
		fn, retType, e.Stride, e.Offset, retType, strings.Join(parts, ", ")), nil
}

type sliceKey struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

func keyOf(data any) (sliceKey, bool) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return sliceKey{}, false
	}
	return sliceKey{typ: v.Type(), ptr: v.Pointer(), n: v.Len()}, true
}

// Aliases groups channels whose data is the same slice. The returned map
// sends every member of a group to the first channel (in order) holding
// that slice.
func Aliases(channels []SeriesChannel, data map[string]any) map[string]string {
	first := make(map[sliceKey]string)
	aliases := make(map[string]string, len(channels))
	for _, ch := range channels {
		k, ok := keyOf(data[ch.Name])
		if !ok {
			continue
		}
		if owner, ok := first[k]; ok {
			aliases[ch.Name] = owner
			continue
		}
		first[k] = ch.Name
		aliases[ch.Name] = ch.Name
	}
	return aliases
}

// Packed holds the interleaved typed buffers. Unused types are nil.
type Packed struct {
	F32 []float32
	U32 []uint32
	I32 []int32
}

// Bytes encodes the typed buffer for t little-endian. Nil means the type
// is unused.
func (p *Packed) Bytes(t channel.ScalarType) []byte {
	switch t {
	case channel.F32:
		if p.F32 == nil {
			return nil
		}
		out := make([]byte, 4*len(p.F32))
		for i, v := range p.F32 {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out
	case channel.U32:
		if p.U32 == nil {
			return nil
		}
		out := make([]byte, 4*len(p.U32))
		for i, v := range p.U32 {
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
		return out
	case channel.I32:
		if p.I32 == nil {
			return nil
		}
		out := make([]byte, 4*len(p.I32))
		for i, v := range p.I32 {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
		return out
	}
	return nil
}

// PackSeries interleaves channel data into typed buffers holding count
// instances. Aliased channels must still hold the owner's slice.
func PackSeries(l *SeriesLayout, data map[string]any, count int) (*Packed, error) {
	if err := checkAliases(l, data); err != nil {
		return nil, err
	}
	p := &Packed{}
	if n := l.stride[channel.F32]; n > 0 {
		p.F32 = make([]float32, count*n)
	}
	if n := l.stride[channel.U32]; n > 0 {
		p.U32 = make([]uint32, count*n)
	}
	if n := l.stride[channel.I32]; n > 0 {
		p.I32 = make([]int32, count*n)
	}
	for _, ch := range l.channels {
		e := l.entries[ch.Name]
		if e.Owner != ch.Name {
			continue
		}
		src, ok := data[ch.Name]
		if !ok || src == nil {
			return nil, fmt.Errorf("missing data for channel %q", ch.Name)
		}
		if err := packChannel(p, ch, e, src, count); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func checkAliases(l *SeriesLayout, data map[string]any) error {
	members := make(map[string][]string)
	for _, ch := range l.channels {
		owner := l.entries[ch.Name].Owner
		members[owner] = append(members[owner], ch.Name)
	}
	for _, e := range l.owners {
		group := members[e.Owner]
		if len(group) < 2 {
			continue
		}
		want, _ := keyOf(data[e.Owner])
		for _, m := range group[1:] {
			if got, _ := keyOf(data[m]); got != want {
				quoted := make([]string, len(group))
				for i, n := range group {
					quoted[i] = fmt.Sprintf("%q", n)
				}
				return fmt.Errorf("series channels %s must share the same buffer", strings.Join(quoted, ", "))
			}
		}
	}
	return nil
}

func packChannel(p *Packed, ch SeriesChannel, e *SeriesEntry, src any, count int) error {
	if f64, ok := src.([]float64); ok && ch.HighPrecision {
		if ch.Components != 2 {
			return fmt.Errorf("channel %q requires 2 input components when providing []float64 data", ch.Name)
		}
		src = SplitHighPrecision(f64)
	}
	switch e.Type {
	case channel.F32:
		s, ok := src.([]float32)
		if !ok {
			return fmt.Errorf("channel %q expects a []float32 for f32 data", ch.Name)
		}
		return interleave(p.F32, s, e, ch.Name, count)
	case channel.U32:
		s, ok := src.([]uint32)
		if !ok {
			return fmt.Errorf("channel %q expects a []uint32 for u32 data", ch.Name)
		}
		return interleave(p.U32, s, e, ch.Name, count)
	default:
		s, ok := src.([]int32)
		if !ok {
			return fmt.Errorf("channel %q expects a []int32 for i32 data", ch.Name)
		}
		return interleave(p.I32, s, e, ch.Name, count)
	}
}

func interleave[T float32 | uint32 | int32](dst, src []T, e *SeriesEntry, name string, count int) error {
	if len(src) < count*e.Components {
		return fmt.Errorf("channel %q length (%d) is less than count (%d)", name, len(src), count)
	}
	for i := 0; i < count; i++ {
		copy(dst[i*e.Stride+e.Offset:i*e.Stride+e.Offset+e.Components], src[i*e.Components:])
	}
	return nil
}

// SplitHighPrecision converts values into (hi, lo) pairs where
// hi = floor(v / 4096) and lo = v - hi*4096.
func SplitHighPrecision(values []float64) []uint32 {
	out := make([]uint32, 2*len(values))
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		hi := math.Floor(v / HighPrecisionDivisor)
		out[2*i] = uint32(hi)
		out[2*i+1] = uint32(v - hi*HighPrecisionDivisor)
	}
	return out
}

// InferCount derives the instance count from data lengths. ok is false when
// there are no series channels.
func InferCount(channels []SeriesChannel, data map[string]any) (count int, ok bool, err error) {
	inferred := -1
	for _, ch := range channels {
		src := data[ch.Name]
		if src == nil {
			return 0, false, fmt.Errorf("missing data for channel %q", ch.Name)
		}
		n := reflect.ValueOf(src)
		if n.Kind() != reflect.Slice {
			return 0, false, fmt.Errorf("channel %q data must be a slice, got %T", ch.Name, src)
		}
		divisor := ch.Components
		if _, isF64 := src.([]float64); isF64 && ch.HighPrecision && ch.Components == 2 {
			divisor = 1
		}
		if divisor <= 0 {
			return 0, false, fmt.Errorf("invalid input component count for %q", ch.Name)
		}
		if n.Len()%divisor != 0 {
			return 0, false, fmt.Errorf("channel %q length (%d) must be divisible by %d", ch.Name, n.Len(), divisor)
		}
		c := n.Len() / divisor
		if inferred < 0 {
			inferred = c
		} else if c != inferred {
			return 0, false, fmt.Errorf("channel %q count (%d) does not match inferred count (%d)", ch.Name, c, inferred)
		}
	}
	if inferred < 0 {
		return 0, false, nil
	}
	return inferred, true, nil
}
