// Some helpers using closures to generate input values
package valgen

import "math/rand"

// Gen yields the next input value.
type Gen func() int64

func MakeConstGen(constant int64) Gen {
	return func() int64 {
		return constant
	}
}

func MakeIncreasingGen(start int64) Gen {
	current := start
	return func() int64 {
		current++
		return current
	}
}

// MakeRandomGen draws values in [-bound, bound] from a seeded source, so the
// same seed always yields the same sequence.
func MakeRandomGen(seed int64, bound int64) Gen {
	r := rand.New(rand.NewSource(seed))
	return func() int64 {
		return r.Int63n(2*bound+1) - bound
	}
}
