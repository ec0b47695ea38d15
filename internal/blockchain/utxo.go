package blockchain

import "fmt"

// utxoKey addresses a UTXO by the transaction that produced it and the
// output's index within that transaction.
type utxoKey struct {
	TxID  string
	Index int
}

// UTXOSet is an in-memory map of unspent transaction outputs. A plain map
// is used (rather than an on-disk KV store) so that Snapshot can produce a
// cheap, structurally independent copy the miner and block validation can
// mutate without affecting the live set.
type UTXOSet struct {
	utxos map[utxoKey]TransactionOutput
}

// NewUTXOSet returns an empty UTXO set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{utxos: make(map[utxoKey]TransactionOutput)}
}

// Add inserts a UTXO, overwriting (and not erroring on) a pre-existing
// entry at the same key.
func (u *UTXOSet) Add(txID string, index int, output TransactionOutput) {
	u.utxos[utxoKey{txID, index}] = output
}

// Remove deletes a UTXO, returning it and true if it was present.
func (u *UTXOSet) Remove(txID string, index int) (TransactionOutput, bool) {
	key := utxoKey{txID, index}
	out, ok := u.utxos[key]
	if ok {
		delete(u.utxos, key)
	}
	return out, ok
}

// Get looks up a UTXO without removing it.
func (u *UTXOSet) Get(txID string, index int) (TransactionOutput, bool) {
	out, ok := u.utxos[utxoKey{txID, index}]
	return out, ok
}

// FindForAddress returns every UTXO whose lock_script is addr, keyed by
// "txid:index".
func (u *UTXOSet) FindForAddress(addr string) map[string]TransactionOutput {
	found := make(map[string]TransactionOutput)
	for k, out := range u.utxos {
		if out.LockScript == addr {
			found[fmt.Sprintf("%s:%d", k.TxID, k.Index)] = out
		}
	}
	return found
}

// SpendableOutput pairs a UTXO with its key, used by wallets selecting
// inputs for a new transaction.
type SpendableOutput struct {
	TxID   string
	Index  int
	Output TransactionOutput
}

// FindSpendable returns every UTXO belonging to addr as (key, output)
// pairs, suitable for coin selection.
func (u *UTXOSet) FindSpendable(addr string) []SpendableOutput {
	var found []SpendableOutput
	for k, out := range u.utxos {
		if out.LockScript == addr {
			found = append(found, SpendableOutput{TxID: k.TxID, Index: k.Index, Output: out})
		}
	}
	return found
}

// GetBalance sums the amounts of every UTXO belonging to addr.
func (u *UTXOSet) GetBalance(addr string) float64 {
	var total float64
	for _, out := range u.utxos {
		if out.LockScript == addr {
			total += out.Amount
		}
	}
	return total
}

// Len returns the number of UTXOs currently tracked.
func (u *UTXOSet) Len() int {
	return len(u.utxos)
}

// UpdateFromBlock applies a committed block's transactions to the set in
// list order: for each non-coinbase transaction, its input UTXOs are
// removed, then its output UTXOs are added; a coinbase transaction only
// adds outputs.
func (u *UTXOSet) UpdateFromBlock(b Block) {
	for _, tx := range b.Transactions {
		if !tx.IsCoinbase() {
			for _, in := range tx.Inputs {
				u.Remove(in.PrevTxID, in.PrevOutputIndex)
			}
		}
		for i, out := range tx.Outputs {
			u.Add(tx.TransactionID, i, out)
		}
	}
}

// Rebuild clears the set and replays every block of chain from genesis.
func (u *UTXOSet) Rebuild(blocks []Block) {
	u.utxos = make(map[utxoKey]TransactionOutput)
	for _, b := range blocks {
		u.UpdateFromBlock(b)
	}
}

// Snapshot returns a fully independent copy: mutations to it never leak
// back to u.
func (u *UTXOSet) Snapshot() *UTXOSet {
	cp := make(map[utxoKey]TransactionOutput, len(u.utxos))
	for k, v := range u.utxos {
		cp[k] = v
	}
	return &UTXOSet{utxos: cp}
}
