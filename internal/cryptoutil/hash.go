// Package cryptoutil provides the node's hashing, signing, and address
// primitives: SHA-256 hex digests, SECP256k1 keypairs, and the
// hex-concatenation Merkle root used by the block and transaction models.
package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MerkleRoot computes the Merkle root over a list of hex transaction IDs.
//
// At every level, pairs of adjacent elements are combined by hashing the
// UTF-8 concatenation of their hex strings, not the raw digest bytes. A
// level with an odd count duplicates its last element before pairing. An
// empty list yields the hash of the empty string.
func MerkleRoot(txIDs []string) string {
	if len(txIDs) == 0 {
		return Sha256Hex([]byte(""))
	}

	level := make([]string, len(txIDs))
	copy(level, txIDs)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			combined := level[i] + level[i+1]
			next = append(next, Sha256Hex([]byte(combined)))
		}
		level = next
	}

	return level[0]
}
