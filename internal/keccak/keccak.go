// Package keccak wraps the Keccak-256 hash primitive spec.md §6 requires
// for function selectors and event topics. Ethereum uses the original
// Keccak padding, not the later NIST SHA3-256 standardization, hence
// sha3.NewLegacyKeccak256 rather than sha3.New256.
package keccak

import "golang.org/x/crypto/sha3"

// Hash256 returns the 32-byte Keccak-256 digest of data.
func Hash256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Selector returns the first 4 bytes of the Keccak-256 digest of data, the
// function/error selector convention.
func Selector(data []byte) [4]byte {
	digest := Hash256(data)
	var out [4]byte
	copy(out[:], digest[:4])
	return out
}
