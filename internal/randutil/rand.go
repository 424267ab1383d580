// Package randutil derives reproducible random sources from a single seed.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. The same seed
// always produces the same deals.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns *fixed when set, otherwise a time-based seed. Callers log the
// result so a game can be replayed.
func Seed(fixed *int64) int64 {
	if fixed != nil {
		return *fixed
	}
	return time.Now().UnixNano()
}

// splitmix64 finaliser
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
