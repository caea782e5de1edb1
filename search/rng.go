package search

import (
	"encoding/binary"
	"math/rand/v2"
)

// NewRand returns the random source of one run. Every random draw of a solver comes from it,
// so equal seeds reproduce the same trajectory.
func NewRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.New(rand.NewChaCha8(key))
}
