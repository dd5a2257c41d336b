// Package fingerprint computes stable, non-cryptographic content hashes
// used as conflict-detection baselines.
package fingerprint

import (
	"fmt"
	"unicode/utf16"
)

// Sum returns a 32-bit polynomial hash of s over its UTF-16 code units.
// The value is stable across runs and platforms. It is an equality-style
// fingerprint, not an integrity digest.
func Sum(s string) uint32 {
	var h uint32
	for _, r := range s {
		if r < 0x10000 {
			h = h*31 + uint32(r)
			continue
		}
		hi, lo := utf16.EncodeRune(r)
		h = h*31 + uint32(hi)
		h = h*31 + uint32(lo)
	}
	return h
}

// Hex returns the fingerprint of s as a fixed-width hex string.
func Hex(s string) string {
	return fmt.Sprintf("%08x", Sum(s))
}
