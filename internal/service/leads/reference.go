package leads

import (
	"crypto/rand"
	"fmt"
)

// Reference alphabet drops 0/O/1/I so guests can read codes back over the
// phone without ambiguity.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const referenceLength = 8

// maxReferenceAttempts bounds regeneration when an insert hits the unique
// constraint on reference.
const maxReferenceAttempts = 5

// GenerateReference returns a short human-readable booking code, e.g.
// "K7DQ2MPX". Collision handling is the caller's job: insert, regenerate on
// a duplicate, give up after maxReferenceAttempts.
func GenerateReference() (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(buf), nil
}
