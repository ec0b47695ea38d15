package blockchain

import "strings"

// Consensus is the proof-of-work rule: a block header hash must begin with
// a configured number of hex zero characters.
type Consensus struct {
	Difficulty   int
	targetPrefix string
}

// NewConsensus builds a PoW consensus instance. Difficulty below 1 is a
// programmer error.
func NewConsensus(difficulty int) Consensus {
	if difficulty < 1 {
		panic("blockchain: difficulty must be >= 1")
	}
	return Consensus{Difficulty: difficulty, targetPrefix: strings.Repeat("0", difficulty)}
}

// Prove searches nonces from 0 upward and returns the first nonce whose
// header hash begins with the target prefix.
func (c Consensus) Prove(index int, timestamp float64, previousHash, merkleRoot string) int64 {
	var nonce int64
	for {
		candidate := Block{
			Index:        index,
			Timestamp:    timestamp,
			PreviousHash: previousHash,
			MerkleRoot:   merkleRoot,
			Nonce:        nonce,
		}
		if strings.HasPrefix(candidate.computeHash(), c.targetPrefix) {
			return nonce
		}
		nonce++
	}
}

// ProveContext is like Prove but aborts early, returning ok=false, if stop
// is closed before a nonce is found. Used by the miner to honor the shared
// stop flag during a long PoW search.
func (c Consensus) ProveContext(index int, timestamp float64, previousHash, merkleRoot string, stop <-chan struct{}) (nonce int64, ok bool) {
	for n := int64(0); ; n++ {
		select {
		case <-stop:
			return 0, false
		default:
		}
		candidate := Block{
			Index:        index,
			Timestamp:    timestamp,
			PreviousHash: previousHash,
			MerkleRoot:   merkleRoot,
			Nonce:        n,
		}
		if strings.HasPrefix(candidate.computeHash(), c.targetPrefix) {
			return n, true
		}
	}
}

// ValidateHeader recomputes the header hash from the block's fields and
// returns true iff it equals the stored hash and begins with the target
// prefix.
func (c Consensus) ValidateHeader(b Block) bool {
	recomputed := b.computeHash()
	return recomputed == b.Hash && strings.HasPrefix(b.Hash, c.targetPrefix)
}
