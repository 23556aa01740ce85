package hashtable

import "fmt"

// Library is the WGSL shared by every table lookup.
const Library = `const HASH_EMPTY_KEY: u32 = 0xffffffffu;
const HASH_NOT_FOUND: u32 = 0xffffffffu;

struct HashEntry {
    key: u32,
    value: u32,
}

fn hash32(value: u32) -> u32 {
    var v = value;
    v = v ^ (v >> 16u);
    v = v * 0x7feb352du;
    v = v ^ (v >> 15u);
    v = v * 0x846ca68bu;
    v = v ^ (v >> 16u);
    return v;
}
`

// LookupFunction returns a WGSL function named fnName that searches the
// storage array bufferName and returns the stored value or HASH_NOT_FOUND.
func LookupFunction(fnName, bufferName string) string {
	return fmt.Sprintf(`fn %[1]s(key: u32) -> u32 {
    let capacity = arrayLength(&%[2]s);
    if (capacity == 0u || key == HASH_EMPTY_KEY) {
        return HASH_NOT_FOUND;
    }
    let mask = capacity - 1u;
    var slot = hash32(key) & mask;
    for (var step = 0u; step < capacity; step = step + 1u) {
        let entry = %[2]s[slot];
        if (entry.key == key) {
            return entry.value;
        }
        if (entry.key == HASH_EMPTY_KEY) {
            return HASH_NOT_FOUND;
        }
        slot = (slot + 1u) & mask;
    }
    return HASH_NOT_FOUND;
}
`, fnName, bufferName)
}

// LookupName is the lookup function name generated for a buffer.
func LookupName(bufferName string) string {
	return "hashLookup_" + bufferName
}
