package service

import (
	"fmt"
	"math/rand/v2"
)

// IDGenerator produces candidate study ids. The store rejects candidates
// already in use.
type IDGenerator interface {
	NextID(digits int) string
}

// RandomIDGenerator draws ids of the form P-NNNN.
type RandomIDGenerator struct{}

// NextID returns "P-" followed by a random number with exactly digits digits.
func (RandomIDGenerator) NextID(digits int) string {
	low := pow10(digits - 1)
	return fmt.Sprintf("P-%d", low+rand.IntN(9*low))
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// idSpace returns how many distinct ids of the given width exist.
func idSpace(digits int) int {
	return 9 * pow10(digits-1)
}
