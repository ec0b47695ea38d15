package blockchain

import (
	"encoding/json"
	"strings"

	"github.com/ledgerforge/node/internal/cryptoutil"
	"github.com/pkg/errors"
)

// ZeroHash is the 64 zero-hex-character sentinel used by genesis blocks'
// previous_hash and by coinbase inputs' prev_tx_id.
var ZeroHash = strings.Repeat("0", 64)

// CoinbaseOutputIndex is the sentinel output index carried by coinbase
// inputs.
const CoinbaseOutputIndex = -1

// TransactionOutput is an amount paid to a lock_script (recipient address).
type TransactionOutput struct {
	Amount     float64 `json:"amount"`
	LockScript string  `json:"lock_script"`
}

// NewTransactionOutput constructs an output, panicking on a negative
// amount: this is a construction-time precondition, a programmer error per
// the node's error-handling design, not a runtime rejection.
func NewTransactionOutput(amount float64, lockScript string) TransactionOutput {
	if amount < 0 {
		panic("blockchain: negative transaction output amount")
	}
	return TransactionOutput{Amount: amount, LockScript: lockScript}
}

// UnlockScript carries either a regular spend proof (signature+public key)
// or a coinbase tag (arbitrary data), depending on which input it is
// attached to. Both shapes serialize as a single JSON object.
type UnlockScript struct {
	Signature string `json:"signature,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
	Data      string `json:"data,omitempty"`
}

// IsRegular reports whether u carries a signature/public-key spend proof.
func (u UnlockScript) IsRegular() bool {
	return u.Signature != "" && u.PublicKey != ""
}

// TransactionInput references a previous output and carries the proof that
// authorizes spending it.
type TransactionInput struct {
	PrevTxID        string       `json:"transaction_id"`
	PrevOutputIndex int          `json:"output_index"`
	UnlockScript    UnlockScript `json:"unlock_script"`
}

// IsCoinbaseSentinel reports whether this input is the coinbase sentinel
// reference (zero_hash, -1).
func (in TransactionInput) IsCoinbaseSentinel() bool {
	return in.PrevTxID == ZeroHash && in.PrevOutputIndex == CoinbaseOutputIndex
}

// Transaction is an ordered list of inputs and outputs identified by a
// content-derived transaction_id.
type Transaction struct {
	TransactionID string              `json:"transaction_id"`
	Inputs        []TransactionInput  `json:"inputs"`
	Outputs       []TransactionOutput `json:"outputs"`
}

// NewTransaction builds and IDs a transaction from the given inputs and
// outputs. Fewer than one input or one output is a programmer error.
func NewTransaction(inputs []TransactionInput, outputs []TransactionOutput) Transaction {
	if len(inputs) < 1 || len(outputs) < 1 {
		panic("blockchain: transaction requires at least one input and one output")
	}
	tx := Transaction{Inputs: inputs, Outputs: outputs}
	tx.TransactionID = tx.computeID()
	return tx
}

// IsCoinbase reports whether tx has exactly one input whose
// (prev_tx_id, prev_output_index) is the coinbase sentinel.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbaseSentinel()
}

// computeID returns the SHA-256 hex digest of the canonical JSON encoding
// of the transaction's identity payload. Regular transactions exclude
// unlock scripts so the ID is fixed before signing; coinbase transactions
// include them so that distinct miner tags yield distinct IDs.
func (tx Transaction) computeID() string {
	inputs := make([]interface{}, len(tx.Inputs))
	if tx.IsCoinbase() {
		for i, in := range tx.Inputs {
			inputs[i] = map[string]interface{}{
				"transaction_id": in.PrevTxID,
				"output_index":   in.PrevOutputIndex,
				"unlock_script":  in.UnlockScript,
			}
		}
	} else {
		for i, in := range tx.Inputs {
			inputs[i] = map[string]interface{}{
				"transaction_id": in.PrevTxID,
				"output_index":   in.PrevOutputIndex,
			}
		}
	}

	outputs := make([]interface{}, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = map[string]interface{}{
			"amount":      out.Amount,
			"lock_script": out.LockScript,
		}
	}

	payload := map[string]interface{}{"inputs": inputs, "outputs": outputs}
	return cryptoutil.Sha256Hex([]byte(canonicalJSON(payload)))
}

// GetDataToSign returns the canonical JSON string every input's signature
// is computed over: the transaction's identity payload excluding unlock
// scripts, regardless of whether the transaction is coinbase.
func (tx Transaction) GetDataToSign() string {
	inputs := make([]interface{}, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = map[string]interface{}{
			"transaction_id": in.PrevTxID,
			"output_index":   in.PrevOutputIndex,
		}
	}
	outputs := make([]interface{}, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = map[string]interface{}{
			"amount":      out.Amount,
			"lock_script": out.LockScript,
		}
	}
	payload := map[string]interface{}{"inputs": inputs, "outputs": outputs}
	return canonicalJSON(payload)
}

// canonicalJSON marshals v with alphabetically sorted object keys and no
// extraneous whitespace. encoding/json sorts map[string]interface{} keys
// alphabetically by documented behavior, which is sufficient here without
// a dedicated canonical-JSON encoder.
func canonicalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(errors.Wrap(err, "canonical json marshal"))
	}
	return string(b)
}
