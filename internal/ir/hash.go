package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainWorld prefixes world document hashes. The version suffix leaves
// room for changing the hashed shape without colliding with old hashes.
const DomainWorld = "ags/world/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated SHA-256 of a value's canonical encoding.
func Hash(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// WorldHash identifies the content of a world document. Two worlds with
// the same hash are identical; replay uses it to verify reconstruction.
func WorldHash(doc Object) (string, error) {
	return Hash(DomainWorld, doc)
}
