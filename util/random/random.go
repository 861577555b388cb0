package random

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
)

// NewSeed returns a non-deterministic seed for runs where the caller
// did not pin one. Seeded runs never go through here.
func NewSeed() int64 {
	var b [8]byte
	if _, err := crypto_rand.Read(b[:]); err != nil {
		panic("cannot read from cryptographically secure random number generator")
	}
	// Drop the sign bit so the seed is always positive.
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
