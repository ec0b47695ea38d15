// Package miner assembles, proves, and returns candidate blocks. It never
// mutates shared state itself; committing a mined block is the node
// coordinator's responsibility.
package miner

import (
	"fmt"
	"math"
	"time"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/mempool"
)

// Input bundles everything MineBlock needs to assemble a candidate block.
type Input struct {
	Mempool       *mempool.Mempool
	UTXOSnapshot  *blockchain.UTXOSet
	Tail          blockchain.Block
	RewardAddress string
	Consensus     blockchain.Consensus
	// Stop, if non-nil, lets the long proof-of-work search be cancelled.
	Stop <-chan struct{}
}

// MineBlock drains candidate transactions from the mempool, admits the ones
// that validate against a local copy of the UTXO snapshot (applying each
// admitted transaction's effect before validating the next), builds a
// coinbase transaction paying the reward address the subsidy plus
// collected fees, performs proof-of-work, and returns the assembled block.
//
// Returns ok=false if mining was cancelled via Stop before a nonce was
// found.
func MineBlock(in Input) (blockchain.Block, bool) {
	nextIndex := in.Tail.Index + 1
	previousHash := in.Tail.Hash

	working := in.UTXOSnapshot.Snapshot()
	pending := in.Mempool.GetPending(mempool.DefaultLimit)

	var admitted []blockchain.Transaction
	var totalFees float64
	for _, tx := range pending {
		ok, fee := blockchain.ValidateTransaction(tx, working, false)
		if !ok {
			continue
		}
		admitted = append(admitted, tx)
		totalFees += fee
		applyToSnapshot(working, tx)
	}

	coinbaseInput := blockchain.TransactionInput{
		PrevTxID:        blockchain.ZeroHash,
		PrevOutputIndex: blockchain.CoinbaseOutputIndex,
		UnlockScript:    blockchain.UnlockScript{Data: fmt.Sprintf("Block %d reward", nextIndex)},
	}
	coinbaseOutput := blockchain.NewTransactionOutput(round8(blockchain.BlockReward+totalFees), in.RewardAddress)
	coinbaseTx := blockchain.NewTransaction([]blockchain.TransactionInput{coinbaseInput}, []blockchain.TransactionOutput{coinbaseOutput})

	allTxs := append([]blockchain.Transaction{coinbaseTx}, admitted...)
	ids := make([]string, len(allTxs))
	for i, tx := range allTxs {
		ids[i] = tx.TransactionID
	}

	timestamp := float64(time.Now().UnixNano()) / 1e9
	merkleRoot := blockchain.Block{Transactions: allTxs}.RecomputeMerkleRoot()

	var nonce int64
	if in.Stop != nil {
		n, ok := in.Consensus.ProveContext(nextIndex, timestamp, previousHash, merkleRoot, in.Stop)
		if !ok {
			return blockchain.Block{}, false
		}
		nonce = n
	} else {
		nonce = in.Consensus.Prove(nextIndex, timestamp, previousHash, merkleRoot)
	}

	return blockchain.NewBlock(nextIndex, allTxs, timestamp, previousHash, nonce, "", ""), true
}

func round8(v float64) float64 {
	const scale = 1e8
	return math.Round(v*scale) / scale
}

func applyToSnapshot(snapshot *blockchain.UTXOSet, tx blockchain.Transaction) {
	for _, in := range tx.Inputs {
		snapshot.Remove(in.PrevTxID, in.PrevOutputIndex)
	}
	for i, out := range tx.Outputs {
		snapshot.Add(tx.TransactionID, i, out)
	}
}
