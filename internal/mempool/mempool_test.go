package mempool_test

import (
	"testing"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/mempool"
	"github.com/ledgerforge/node/internal/wallet"
)

func newFundedUTXO(t *testing.T, addr string, amount float64) *blockchain.UTXOSet {
	t.Helper()
	utxo := blockchain.NewUTXOSet()
	coinbaseInput := blockchain.TransactionInput{
		PrevTxID:        blockchain.ZeroHash,
		PrevOutputIndex: blockchain.CoinbaseOutputIndex,
		UnlockScript:    blockchain.UnlockScript{Data: "seed"},
	}
	tx := blockchain.NewTransaction(
		[]blockchain.TransactionInput{coinbaseInput},
		[]blockchain.TransactionOutput{blockchain.NewTransactionOutput(amount, addr)},
	)
	utxo.Add(tx.TransactionID, 0, tx.Outputs[0])
	return utxo
}

func TestMempoolAdmitsValidTransaction(t *testing.T) {
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	utxo := newFundedUTXO(t, w.Address, 100)

	tx, err := w.CreateTransaction("recipient", 10, 1, utxo)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	mp := mempool.New(10)
	if !mp.Add(tx) {
		t.Fatal("Add rejected a valid transaction")
	}
	if mp.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", mp.Len())
	}
}

func TestMempoolRejectsCoinbase(t *testing.T) {
	coinbaseInput := blockchain.TransactionInput{
		PrevTxID:        blockchain.ZeroHash,
		PrevOutputIndex: blockchain.CoinbaseOutputIndex,
		UnlockScript:    blockchain.UnlockScript{Data: "tag"},
	}
	tx := blockchain.NewTransaction(
		[]blockchain.TransactionInput{coinbaseInput},
		[]blockchain.TransactionOutput{blockchain.NewTransactionOutput(50, "addr")},
	)

	mp := mempool.New(10)
	if mp.Add(tx) {
		t.Fatal("Add admitted a coinbase transaction")
	}
}

func TestMempoolRejectsDuplicateAndEnforcesCapacity(t *testing.T) {
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	utxo := newFundedUTXO(t, w.Address, 1000)

	mp := mempool.New(1)

	tx1, err := w.CreateTransaction("recipient1", 10, 1, utxo)
	if err != nil {
		t.Fatalf("CreateTransaction tx1: %v", err)
	}
	if !mp.Add(tx1) {
		t.Fatal("Add rejected the first transaction unexpectedly")
	}
	if mp.Add(tx1) {
		t.Fatal("Add admitted a duplicate transaction ID")
	}

	utxo2 := newFundedUTXO(t, w.Address, 1000)
	tx2, err := w.CreateTransaction("recipient2", 20, 1, utxo2)
	if err != nil {
		t.Fatalf("CreateTransaction tx2: %v", err)
	}
	if mp.Add(tx2) {
		t.Fatal("Add admitted a transaction past capacity")
	}
}

func TestMempoolRejectsBadSignature(t *testing.T) {
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	utxo := newFundedUTXO(t, w.Address, 100)

	tx, err := w.CreateTransaction("recipient", 10, 1, utxo)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	tx.Inputs[0].UnlockScript.Signature = "00"

	mp := mempool.New(10)
	if mp.Add(tx) {
		t.Fatal("Add admitted a transaction with an invalid signature")
	}
}

func TestMempoolRemoveAndGet(t *testing.T) {
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	utxo := newFundedUTXO(t, w.Address, 100)
	tx, err := w.CreateTransaction("recipient", 10, 1, utxo)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	mp := mempool.New(10)
	mp.Add(tx)

	if _, ok := mp.Get(tx.TransactionID); !ok {
		t.Fatal("Get did not find an admitted transaction")
	}

	mp.Remove([]string{tx.TransactionID})
	if _, ok := mp.Get(tx.TransactionID); ok {
		t.Fatal("Remove did not delete the transaction")
	}
	if mp.Len() != 0 {
		t.Fatalf("Len() after remove = %d, want 0", mp.Len())
	}
}
