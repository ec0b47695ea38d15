// Package wallet holds a keypair and builds transactions against a UTXO
// snapshot.
package wallet

import (
	"math"
	"sort"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/cryptoutil"
	"github.com/pkg/errors"
)

// Wallet holds a keypair and the address derived from its public key.
type Wallet struct {
	PrivateKeyHex string
	PublicKeyHex  string
	Address       string
}

// New generates a fresh keypair and derives its address.
func New() (*Wallet, error) {
	kp, err := cryptoutil.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "generate wallet keypair")
	}
	addr, err := cryptoutil.PublicKeyToAddress(kp.PublicKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "derive wallet address")
	}
	return &Wallet{PrivateKeyHex: kp.PrivateKeyHex, PublicKeyHex: kp.PublicKeyHex, Address: addr}, nil
}

// ErrNoUTXOs is returned when the wallet owns no spendable outputs.
var ErrNoUTXOs = errors.New("wallet: no spendable UTXOs for address")

// ErrInsufficientFunds is returned when the wallet's UTXOs can't cover the
// requested amount plus fee.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// CreateTransaction builds and signs a transaction paying amount to
// recipient with fee, spending from utxo. Candidates are selected smallest
// first until the accumulated total covers amount+fee; any leftover is
// returned to the wallet's own address as a change output.
func (w *Wallet) CreateTransaction(recipient string, amount, fee float64, utxo *blockchain.UTXOSet) (blockchain.Transaction, error) {
	candidates := utxo.FindSpendable(w.Address)
	if len(candidates) == 0 {
		return blockchain.Transaction{}, ErrNoUTXOs
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Output.Amount < candidates[j].Output.Amount
	})

	need := amount + fee
	var total float64
	var chosen []blockchain.SpendableOutput
	for _, c := range candidates {
		chosen = append(chosen, c)
		total += c.Output.Amount
		if total >= need {
			break
		}
	}
	if total < need {
		return blockchain.Transaction{}, ErrInsufficientFunds
	}

	inputs := make([]blockchain.TransactionInput, len(chosen))
	for i, c := range chosen {
		inputs[i] = blockchain.TransactionInput{PrevTxID: c.TxID, PrevOutputIndex: c.Index}
	}

	outputs := []blockchain.TransactionOutput{
		blockchain.NewTransactionOutput(round8(amount), recipient),
	}
	change := round8(total - amount - fee)
	if change > 1e-8 {
		outputs = append(outputs, blockchain.NewTransactionOutput(change, w.Address))
	}

	unsigned := blockchain.NewTransaction(inputs, outputs)
	dataToSign := unsigned.GetDataToSign()
	signature, err := cryptoutil.Sign(w.PrivateKeyHex, dataToSign)
	if err != nil {
		return blockchain.Transaction{}, errors.Wrap(err, "sign transaction")
	}

	signedInputs := make([]blockchain.TransactionInput, len(inputs))
	for i, in := range inputs {
		in.UnlockScript = blockchain.UnlockScript{Signature: signature, PublicKey: w.PublicKeyHex}
		signedInputs[i] = in
	}

	return blockchain.NewTransaction(signedInputs, outputs), nil
}

func round8(v float64) float64 {
	const scale = 1e8
	return math.Round(v*scale) / scale
}
