package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeedIsNonNegativeAndVaries(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 32; i++ {
		s := NewSeed()
		assert.GreaterOrEqual(t, s, int64(0))
		seen[s] = true
	}
	// 32 collisions out of 2^63 values would mean a broken reader.
	assert.Greater(t, len(seen), 1)
}
