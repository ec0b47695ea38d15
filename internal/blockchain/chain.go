package blockchain

import (
	"math"
	"time"

	"github.com/ledgerforge/node/internal/cryptoutil"
	"go.uber.org/zap"
)

// BlockReward is the fixed block subsidy paid to a block's coinbase output
// before fees.
const BlockReward = 50.0

// GenesisAddress is the placeholder recipient of the genesis block's
// zero-amount coinbase output.
const GenesisAddress = "genesis_reward_address_placeholder"

// Chain is an append-only sequence of blocks, validated and committed
// through AddBlock. It is not safe for concurrent use on its own; callers
// serialize access (the node coordinator does so with its chain lock).
type Chain struct {
	blocks    []Block
	consensus Consensus
	log       *zap.SugaredLogger
}

// NewChain constructs a chain, building and appending a freshly mined
// genesis block. The genesis transaction is a coinbase-like transaction
// with a single zero-amount output to a placeholder address; it is never
// received from peers.
func NewChain(consensus Consensus, log *zap.SugaredLogger) *Chain {
	c := &Chain{consensus: consensus, log: log}
	c.blocks = []Block{c.buildGenesis()}
	return c
}

func (c *Chain) buildGenesis() Block {
	coinbaseInput := TransactionInput{
		PrevTxID:        ZeroHash,
		PrevOutputIndex: CoinbaseOutputIndex,
		UnlockScript:    UnlockScript{Data: "Genesis Block Marker"},
	}
	coinbaseOutput := NewTransactionOutput(0, GenesisAddress)
	genesisTx := NewTransaction([]TransactionInput{coinbaseInput}, []TransactionOutput{coinbaseOutput})

	merkleRoot := merkleRootOf([]Transaction{genesisTx})
	timestamp := currentTimestamp()
	previousHash := ZeroHash
	nonce := c.consensus.Prove(0, timestamp, previousHash, merkleRoot)

	return NewBlock(0, []Transaction{genesisTx}, timestamp, previousHash, nonce, "", "")
}

func merkleRootOf(txs []Transaction) string {
	return Block{Transactions: txs}.computeMerkleRoot()
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Tail returns the last block and true, or the zero value and false if the
// chain is empty (which never happens after NewChain/Load).
func (c *Chain) Tail() (Block, bool) {
	if len(c.blocks) == 0 {
		return Block{}, false
	}
	return c.blocks[len(c.blocks)-1], true
}

// Blocks returns the chain's blocks in order. Callers must not mutate the
// returned slice.
func (c *Chain) Blocks() []Block {
	return c.blocks
}

// AddBlock validates block against the chain and the given UTXO set, and,
// if valid, appends it and applies its effects to utxo. The operation is
// atomic: either both the chain and utxo advance, or neither does.
func (c *Chain) AddBlock(block Block, utxo *UTXOSet) bool {
	if tail, ok := c.Tail(); ok {
		if block.PreviousHash != tail.Hash || block.Index != tail.Index+1 {
			c.log.Debugw("reject block: chain link mismatch", "index", block.Index)
			return false
		}
	} else {
		if block.Index != 0 || block.PreviousHash != ZeroHash {
			c.log.Debugw("reject block: invalid genesis link", "index", block.Index)
			return false
		}
	}

	if !c.consensus.ValidateHeader(block) {
		c.log.Debugw("reject block: invalid header", "index", block.Index)
		return false
	}

	if len(block.Transactions) == 0 {
		c.log.Debugw("reject block: no transactions", "index", block.Index)
		return false
	}

	if block.RecomputeMerkleRoot() != block.MerkleRoot {
		c.log.Debugw("reject block: merkle root mismatch", "index", block.Index)
		return false
	}

	snapshot := utxo.Snapshot()
	coinbaseCount := 0
	for i, tx := range block.Transactions {
		if tx.IsCoinbase() {
			if i != 0 {
				c.log.Debugw("reject block: coinbase not first", "index", block.Index)
				return false
			}
			coinbaseCount++
			continue
		}
		ok, _ := c.ValidateTransaction(tx, snapshot, false)
		if !ok {
			c.log.Debugw("reject block: invalid transaction", "index", block.Index, "tx", tx.TransactionID)
			return false
		}
		applyTransaction(snapshot, tx)
	}

	if coinbaseCount != 1 {
		c.log.Debugw("reject block: coinbase count != 1", "index", block.Index, "count", coinbaseCount)
		return false
	}

	utxo.UpdateFromBlock(block)
	c.blocks = append(c.blocks, block)
	return true
}

// applyTransaction removes a non-coinbase transaction's spent inputs and
// adds its outputs to snapshot, mirroring the effect AddBlock's live commit
// will have, so later transactions in the same block validate against an
// up-to-date view.
func applyTransaction(snapshot *UTXOSet, tx Transaction) {
	for _, in := range tx.Inputs {
		snapshot.Remove(in.PrevTxID, in.PrevOutputIndex)
	}
	for i, out := range tx.Outputs {
		snapshot.Add(tx.TransactionID, i, out)
	}
}

// ValidateTransaction validates a non-coinbase transaction against utxo.
// checkNotInSet is accepted for interface parity with the reference
// implementation but unused: this set already reflects the effects of
// every preceding transaction in the same validation pass, which is the
// only notion of "already applied" this chain tracks.
func (c *Chain) ValidateTransaction(tx Transaction, utxo *UTXOSet, checkNotInSet bool) (bool, float64) {
	return ValidateTransaction(tx, utxo, checkNotInSet)
}

// ValidateTransaction is the free-standing form of (*Chain).ValidateTransaction,
// usable by callers (such as the miner) that need to validate a transaction
// against a UTXO snapshot without owning a Chain.
func ValidateTransaction(tx Transaction, utxo *UTXOSet, checkNotInSet bool) (bool, float64) {
	_ = checkNotInSet
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return false, 0
	}

	dataToSign := tx.GetDataToSign()

	type spentKey struct {
		TxID  string
		Index int
	}
	seen := make(map[spentKey]bool, len(tx.Inputs))

	var totalIn float64
	for _, in := range tx.Inputs {
		key := spentKey{in.PrevTxID, in.PrevOutputIndex}
		if seen[key] {
			return false, 0
		}
		seen[key] = true

		out, ok := utxo.Get(in.PrevTxID, in.PrevOutputIndex)
		if !ok {
			return false, 0
		}

		if !in.UnlockScript.IsRegular() {
			return false, 0
		}

		address, err := cryptoutil.PublicKeyToAddress(in.UnlockScript.PublicKey)
		if err != nil || address != out.LockScript {
			return false, 0
		}

		if !cryptoutil.Verify(in.UnlockScript.PublicKey, dataToSign, in.UnlockScript.Signature) {
			return false, 0
		}

		totalIn += out.Amount
	}

	var totalOut float64
	for _, out := range tx.Outputs {
		if out.Amount < 0 {
			return false, 0
		}
		totalOut += out.Amount
	}

	fee := round8(totalIn - totalOut)
	if fee < 0 {
		return false, 0
	}
	return true, fee
}

func round8(v float64) float64 {
	const scale = 1e8
	return math.Round(v*scale) / scale
}

func currentTimestamp() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
