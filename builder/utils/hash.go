package utils

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashBytes returns the hex blake3 digest of parts, each followed by a NUL
// delimiter so that ("ab","c") and ("a","bc") differ.
func HashBytes(parts ...[]byte) string {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashString is HashBytes for strings.
func HashString(parts ...string) string {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return HashBytes(bs...)
}
