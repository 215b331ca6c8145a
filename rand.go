package resil

import "math/rand/v2"

// Rand is the source of randomness for jitter. It is satisfied by
// [*math/rand/v2.Rand], so tests can pass a seeded generator for
// reproducible jitter sequences.
type Rand interface {
	// Int64N returns a uniformly distributed value in [0, n).
	// It panics if n <= 0.
	Int64N(n int64) int64
}

// systemRand delegates to the package-level generator in math/rand/v2.
type systemRand struct{}

func (systemRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// defaultRand is used wherever a caller did not inject a [Rand].
var defaultRand Rand = systemRand{}
