// Package octets provides the small set of byte-string operations the
// authentication core needs: XOR, concatenation, sub-range copy, hex
// rendering and single-bit access. free5gc/util/milenage and
// free5gc/util/ueauth already operate on plain []byte, so the core follows
// suit rather than introducing an immutable octet-string type the corpus
// does not use.
package octets

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// Xor XORs two equal-length byte slices and returns a new slice.
func Xor(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, errors.Errorf("octets: Xor length mismatch %d != %d", len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

// Concat returns a fresh slice containing parts joined in order.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// SubCopy returns a copy of b[start:end], guarding against out-of-range slices.
func SubCopy(b []byte, start, end int) ([]byte, error) {
	if start < 0 || end > len(b) || start > end {
		return nil, errors.Errorf("octets: SubCopy range [%d:%d] out of bounds for length %d", start, end, len(b))
	}
	out := make([]byte, end-start)
	copy(out, b[start:end])
	return out, nil
}

// Equal reports whether a and b hold identical bytes.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Hex renders b as lower-case hex.
func Hex(b []byte) string {
	return hex.EncodeToString(b)
}

// Bit returns the value (0 or 1) of the given bit index (0 = MSB) of b.
func Bit(b byte, index uint) uint {
	return uint((b >> (7 - index)) & 0x01)
}
