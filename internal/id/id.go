package id

import (
	"crypto/rand"
	"fmt"
)

// New returns a 36-character hex-and-hyphen identifier in the
// 8-4-4-4-12 shape used for session and photo IDs.
func New() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000-0000-0000-0000-000000000000"
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
