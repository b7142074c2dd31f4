// Package helper collects the small utilities the rest of distcal
// shares: unique id generation and basic numeric helpers.
package helper

import "github.com/google/uuid"

// GenerateUID returns a fresh globally-unique identifier, used for
// snapshot temp-file suffixes — never for EventRecord identity, which is
// defined by (origin, time) alone.
func GenerateUID() string {
	return uuid.NewString()
}

// MaxValue returns the largest value in values, or zero for an empty
// slice.
func MaxValue(values []uint64) uint64 {
	var max uint64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
