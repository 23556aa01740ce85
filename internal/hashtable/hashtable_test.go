package hashtable

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestHash32(t *testing.T) {
	if Hash32(0) != 0 {
		t.Errorf("Hash32(0) = %#x, want 0", Hash32(0))
	}
	if got := Hash32(1); got != 0x688990c0 {
		t.Errorf("Hash32(1) = %#x, want 0x688990c0", got)
	}
	if got := Hash32(11); got != 0x0428f9fb {
		t.Errorf("Hash32(11) = %#x, want 0x0428f9fb", got)
	}
}

func TestCapacityFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 8},
		{6, 16},
		{100, 256},
	}
	for _, tt := range tests {
		if got := CapacityFor(tt.n); got != tt.want {
			t.Errorf("CapacityFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBuildSetMembership(t *testing.T) {
	table, err := BuildSet([]uint32{11, 13}, 0)
	if err != nil {
		t.Fatalf("BuildSet: %v", err)
	}
	if table.Size != 2 {
		t.Errorf("Size = %d, want 2", table.Size)
	}
	for _, k := range []uint32{11, 13} {
		if !table.Contains(k) {
			t.Errorf("Contains(%d) = false", k)
		}
	}
	for _, k := range []uint32{0, 12, 14, EmptyKey} {
		if table.Contains(k) {
			t.Errorf("Contains(%d) = true", k)
		}
	}
}

func TestBuildIndex(t *testing.T) {
	table, err := BuildIndex([]float64{100, 7, 42}, 0)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	want := map[uint32]uint32{100: 0, 7: 1, 42: 2}
	for k, v := range want {
		got, ok := table.Lookup(k)
		if !ok || got != v {
			t.Errorf("Lookup(%d) = %d, %v; want %d, true", k, got, ok, v)
		}
	}
	if _, ok := table.Lookup(8); ok {
		t.Errorf("Lookup(8) found an absent key")
	}
}

func TestBuildMapMinCapacity(t *testing.T) {
	table, err := BuildSet([]uint32{1}, 30)
	if err != nil {
		t.Fatalf("BuildSet: %v", err)
	}
	if table.Capacity() != 32 {
		t.Errorf("Capacity = %d, want 32", table.Capacity())
	}
	if !table.Contains(1) {
		t.Errorf("key lost after padding")
	}
}

func TestBuildMapErrors(t *testing.T) {
	if _, err := BuildSet([]uint32{EmptyKey}, 0); !errors.Is(err, ErrEmptyKeyUsed) {
		t.Errorf("err = %v, want ErrEmptyKeyUsed", err)
	}
	if _, err := BuildIndex([]float64{1.5}, 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
	if _, err := BuildIndex([]float64{-1}, 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
}

func TestDuplicateKeysOverwrite(t *testing.T) {
	table, err := BuildMap([]Entry{{5, 1}, {5, 9}}, 0)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}
	if table.Size != 1 {
		t.Errorf("Size = %d, want 1", table.Size)
	}
	if v, _ := table.Lookup(5); v != 9 {
		t.Errorf("Lookup(5) = %d, want 9", v)
	}
}

func TestBytes(t *testing.T) {
	table := Empty()
	b := table.Bytes()
	if len(b) != EntrySize {
		t.Fatalf("len = %d, want %d", len(b), EntrySize)
	}
	if k := binary.LittleEndian.Uint32(b); k != EmptyKey {
		t.Errorf("key = %#x, want empty", k)
	}
	if v := binary.LittleEndian.Uint32(b[4:]); v != 0 {
		t.Errorf("value = %d, want 0", v)
	}
	if table.Contains(0) {
		t.Errorf("empty table contains 0")
	}
}

func TestLookupFunction(t *testing.T) {
	src := LookupFunction(LookupName("domainMap_x"), "domainMap_x")
	for _, want := range []string{
		"fn hashLookup_domainMap_x(key: u32) -> u32",
		"arrayLength(&domainMap_x)",
		"hash32(key)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("lookup function missing %q", want)
		}
	}
}
