// Package hashing provides the content digests the edit engine uses to
// detect stale targets and derive document versions.
package hashing

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Normalize collapses line endings to LF so the same visible content
// hashes identically regardless of the platform that produced it.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Hash returns the hex blake2b-256 digest of the normalized text.
func Hash(text string) string {
	sum := blake2b.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Digest hashes a sequence of parts with length-prefix framing, so
// ("ab", "c") and ("a", "bc") produce different digests.
func Digest(parts ...string) string {
	h, _ := blake2b.New256(nil)
	var frame [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(frame[:], uint64(len(part)))
		h.Write(frame[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
