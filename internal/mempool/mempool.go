// Package mempool implements the node-local pool of validated-but-unmined
// transactions.
package mempool

import (
	"sync"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/cryptoutil"
)

// DefaultMaxSize is the default transaction-count capacity of a Mempool.
const DefaultMaxSize = 1000

// DefaultLimit is the default number of transactions GetPending returns.
const DefaultLimit = 50

// Mempool is a concurrency-safe map of pending transactions bounded by
// maxSize. It performs basic structural and signature validation only; it
// never consults a UTXO set.
type Mempool struct {
	mu      sync.Mutex
	maxSize int
	txs     map[string]blockchain.Transaction
}

// New constructs an empty mempool with the given capacity.
func New(maxSize int) *Mempool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Mempool{maxSize: maxSize, txs: make(map[string]blockchain.Transaction)}
}

// Add admits tx if it is not already present, the pool is not at capacity,
// it is not coinbase, neither side is empty, and every input's signature
// verifies against GetDataToSign. Returns false on any rejection.
func (m *Mempool) Add(tx blockchain.Transaction) bool {
	if !validateBasic(tx) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.txs[tx.TransactionID]; exists {
		return false
	}
	if len(m.txs) >= m.maxSize {
		return false
	}

	m.txs[tx.TransactionID] = tx
	return true
}

func validateBasic(tx blockchain.Transaction) bool {
	if tx.IsCoinbase() {
		return false
	}
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return false
	}

	dataToSign := tx.GetDataToSign()
	for _, in := range tx.Inputs {
		if !in.UnlockScript.IsRegular() {
			return false
		}
		if !cryptoutil.Verify(in.UnlockScript.PublicKey, dataToSign, in.UnlockScript.Signature) {
			return false
		}
	}
	return true
}

// GetPending returns up to limit transactions in no particular order. A
// non-positive limit uses DefaultLimit.
func (m *Mempool) GetPending(limit int) []blockchain.Transaction {
	if limit <= 0 {
		limit = DefaultLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]blockchain.Transaction, 0, limit)
	for _, tx := range m.txs {
		if len(out) >= limit {
			break
		}
		out = append(out, tx)
	}
	return out
}

// Remove deletes every transaction whose ID is in ids, ignoring IDs not
// present.
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.txs, id)
	}
}

// Get returns the transaction with the given ID, if present.
func (m *Mempool) Get(id string) (blockchain.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}
