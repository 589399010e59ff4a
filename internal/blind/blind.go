// Package blind produces stable anonymized reviewer handles for blind
// reviews. The handle is deterministic per (paper, reviewer) under a
// repository-local key, so the same reviewer keeps one pseudonym across a
// paper's review thread without the identity being recoverable.
package blind

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// KeySize is the size of the pseudonym key in bytes.
const KeySize = 32

// Pseudonymizer derives reviewer handles under a fixed key.
type Pseudonymizer struct {
	key []byte
}

// New creates a Pseudonymizer from a repository key.
func New(key []byte) (*Pseudonymizer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("pseudonym key must be %d bytes, got %d", KeySize, len(key))
	}
	return &Pseudonymizer{key: append([]byte(nil), key...)}, nil
}

// GenerateKey returns a fresh random pseudonym key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating pseudonym key: %w", err)
	}
	return key, nil
}

// Handle returns the reviewer's pseudonym for one paper, e.g. "Reviewer-4f21".
func (p *Pseudonymizer) Handle(paperID, reviewerID string) string {
	h, err := blake2b.New256(p.key)
	if err != nil {
		// Only reachable with an oversized key, which New prevents.
		panic(err)
	}
	h.Write([]byte(paperID))
	h.Write([]byte{0})
	h.Write([]byte(reviewerID))
	sum := h.Sum(nil)
	return fmt.Sprintf("Reviewer-%s", hex.EncodeToString(sum[:2]))
}
