// Package hashtable builds open-addressing u32 hash tables on the CPU for
// lookup in WGSL storage buffers.
//
// Tables use linear probing with a power-of-two capacity. Each slot is a
// (key, value) pair of u32; empty slots carry EmptyKey. The same hash is
// implemented in Go and WGSL so both sides agree on slot order.
package hashtable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// EmptyKey marks an unused slot.
const EmptyKey uint32 = 0xffffffff

// MaxLoadFactor is the default fill ratio used to size tables.
const MaxLoadFactor = 0.6

// EntrySize is the byte size of one slot.
const EntrySize = 8

var (
	// ErrEmptyKeyUsed is returned when a key equals EmptyKey.
	ErrEmptyKeyUsed = errors.New("hashtable: keys must not equal the empty sentinel (0xffffffff)")
	// ErrInvalidKey is returned for keys that are not non-negative integers below 2^32.
	ErrInvalidKey = errors.New("hashtable: key must be a non-negative u32")
	// ErrFull is returned when insertion exhausts every slot.
	ErrFull = errors.New("hashtable: insertion failed, increase capacity")
)

// Entry is one key/value pair.
type Entry struct {
	Key   uint32
	Value uint32
}

// Table is a built hash table.
type Table struct {
	// Slots holds Capacity entries. Unused slots have Key == EmptyKey.
	Slots []Entry
	// Size is the number of stored keys.
	Size int
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return len(t.Slots) }

// Hash32 is the integer hash shared with the WGSL hash32 function.
func Hash32(v uint32) uint32 {
	v ^= v >> 16
	v *= 0x7feb352d
	v ^= v >> 15
	v *= 0x846ca68b
	v ^= v >> 16
	return v
}

// CapacityFor returns the power-of-two capacity for n keys at MaxLoadFactor.
func CapacityFor(n int) int {
	return nextPow2(int(math.Ceil(float64(n) / MaxLoadFactor)))
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// BuildMap builds a table mapping each key to its value. The capacity is
// at least minCapacity, which lets callers keep a table inside an already
// allocated buffer when the key count shrinks.
func BuildMap(entries []Entry, minCapacity int) (*Table, error) {
	capacity := CapacityFor(len(entries))
	if minCapacity > capacity {
		capacity = nextPow2(minCapacity)
	}
	slots := make([]Entry, capacity)
	for i := range slots {
		slots[i].Key = EmptyKey
	}
	mask := uint32(capacity - 1)
	size := 0
	for _, e := range entries {
		if e.Key == EmptyKey {
			return nil, ErrEmptyKeyUsed
		}
		idx := Hash32(e.Key) & mask
		inserted := false
		for step := 0; step < capacity; step++ {
			s := &slots[idx]
			if s.Key == EmptyKey || s.Key == e.Key {
				if s.Key == EmptyKey {
					size++
				}
				s.Key = e.Key
				s.Value = e.Value
				inserted = true
				break
			}
			idx = (idx + 1) & mask
		}
		if !inserted {
			return nil, ErrFull
		}
	}
	return &Table{Slots: slots, Size: size}, nil
}

// BuildSet builds a membership table. Every key maps to 1.
func BuildSet(keys []uint32, minCapacity int) (*Table, error) {
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: 1}
	}
	return BuildMap(entries, minCapacity)
}

// BuildIndex maps each key to its position in keys. It is used to turn a
// sparse ordinal domain into dense range indices.
func BuildIndex(keys []float64, minCapacity int) (*Table, error) {
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		key, err := KeyOf(k)
		if err != nil {
			return nil, fmt.Errorf("domain[%d]: %w", i, err)
		}
		entries[i] = Entry{Key: key, Value: uint32(i)}
	}
	return BuildMap(entries, minCapacity)
}

// KeyOf converts a float64 to a u32 key.
func KeyOf(v float64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		return 0, ErrInvalidKey
	}
	return uint32(v), nil
}

// Lookup returns the value stored for key.
func (t *Table) Lookup(key uint32) (uint32, bool) {
	capacity := len(t.Slots)
	if capacity == 0 || key == EmptyKey {
		return 0, false
	}
	mask := uint32(capacity - 1)
	idx := Hash32(key) & mask
	for step := 0; step < capacity; step++ {
		s := t.Slots[idx]
		if s.Key == key {
			return s.Value, true
		}
		if s.Key == EmptyKey {
			return 0, false
		}
		idx = (idx + 1) & mask
	}
	return 0, false
}

// Contains reports whether key is present.
func (t *Table) Contains(key uint32) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Bytes encodes the slots as little-endian u32 pairs.
func (t *Table) Bytes() []byte {
	out := make([]byte, len(t.Slots)*EntrySize)
	for i, s := range t.Slots {
		binary.LittleEndian.PutUint32(out[i*EntrySize:], s.Key)
		binary.LittleEndian.PutUint32(out[i*EntrySize+4:], s.Value)
	}
	return out
}

// Empty returns the one-slot table uploaded when there are no keys.
// Storage buffers cannot be zero-sized.
func Empty() *Table {
	return &Table{Slots: []Entry{{Key: EmptyKey}}}
}
