package blockchain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerforge/node/internal/cryptoutil"
)

// Block is a header plus its transaction list. Index, PreviousHash, and
// Nonce form the proof-of-work header together with Timestamp and
// MerkleRoot.
type Block struct {
	Index        int           `json:"index"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	MerkleRoot   string        `json:"merkle_root"`
	Nonce        int64         `json:"nonce"`
}

// NewBlock constructs a block, computing MerkleRoot and Hash from the given
// fields when they are not already supplied (zero value). Passing an
// already-known hash/merkle root (as when reconstructing from storage)
// preserves them verbatim instead of recomputing.
func NewBlock(index int, transactions []Transaction, timestamp float64, previousHash string, nonce int64, merkleRoot, hash string) Block {
	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: transactions,
		PreviousHash: previousHash,
		Nonce:        nonce,
		MerkleRoot:   merkleRoot,
		Hash:         hash,
	}
	if b.MerkleRoot == "" {
		b.MerkleRoot = b.computeMerkleRoot()
	}
	if b.Hash == "" {
		b.Hash = b.computeHash()
	}
	return b
}

func (b Block) computeMerkleRoot() string {
	ids := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.TransactionID
	}
	return cryptoutil.MerkleRoot(ids)
}

// computeHash is SHA-256 of the textual concatenation of the header
// fields' string forms, no separators: "{index}{timestamp}{previous_hash}{merkle_root}{nonce}".
func (b Block) computeHash() string {
	header := fmt.Sprintf("%d%s%s%s%d", b.Index, formatTimestamp(b.Timestamp), b.PreviousHash, b.MerkleRoot, b.Nonce)
	return cryptoutil.Sha256Hex([]byte(header))
}

// formatTimestamp renders a float64 unix timestamp the way Python's str()
// renders a float in the range timestamps occupy, which is what the
// reference hashes over: the shortest round-trip digits in positional
// notation, with ".0" appended to whole values (1700000000.0). Values
// Python would write in exponent form (below 1e-4 or from 1e16 up) are
// still written positionally here.
func formatTimestamp(ts float64) string {
	s := strconv.FormatFloat(ts, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// RecomputeHash returns the header hash recomputed from the block's current
// fields, independent of the stored Hash value.
func (b Block) RecomputeHash() string {
	return b.computeHash()
}

// RecomputeMerkleRoot returns the Merkle root recomputed from the block's
// current transaction list, independent of the stored MerkleRoot value.
func (b Block) RecomputeMerkleRoot() string {
	return b.computeMerkleRoot()
}
