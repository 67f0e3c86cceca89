package store

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultIDLength is the length of generated item IDs.
const DefaultIDLength = 8

// MaxIDAttempts bounds the number of draws Create makes before giving up.
const MaxIDAttempts = 64

// IDGenerator produces candidate item IDs. Candidates may collide;
// the store redraws until it finds an unused one.
type IDGenerator func() string

// RandomToken returns a lowercase hexadecimal token of DefaultIDLength
// characters drawn from the random bits of a version 4 UUID.
func RandomToken() string {
	return randomToken(DefaultIDLength)
}

// NewTokenGenerator returns a generator producing tokens of the given length.
// Lengths above 12 are clamped: later UUID characters carry version bits.
func NewTokenGenerator(length int) IDGenerator {
	if length <= 0 {
		length = DefaultIDLength
	}
	if length > 12 {
		length = 12
	}
	return func() string {
		return randomToken(length)
	}
}

func randomToken(length int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
}
