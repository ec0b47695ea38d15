package blockchain

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type chainFile struct {
	Chain []Block `json:"chain"`
}

// Save writes the chain to path as {"chain": [<block>, ...]}.
func (c *Chain) Save(path string) error {
	data, err := json.MarshalIndent(chainFile{Chain: c.blocks}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal chain")
	}
	if err := ioutil.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write chain file")
	}
	return nil
}

// ErrChainFileNotFound is returned by LoadChain when path does not exist.
var ErrChainFileNotFound = errors.New("chain file not found")

// LoadChain loads a chain from path. If the file does not exist,
// ErrChainFileNotFound is returned so the caller can decide to start fresh.
// If the file exists but is empty, unreadable, malformed, or its first
// block is not a valid genesis (index 0, previous_hash of 64 zeros), a
// brand new chain with a freshly mined genesis is returned instead of an
// error, matching the reference's load-or-fresh-genesis policy.
//
// Loaded blocks preserve their stored hash and merkle_root verbatim; they
// are not recomputed. Rebuilding the UTXO set from the loaded chain is the
// caller's responsibility.
func LoadChain(path string, consensus Consensus, log *zap.SugaredLogger) (*Chain, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChainFileNotFound
		}
		log.Warnw("chain file unreadable, starting fresh", "path", path, "error", err)
		return NewChain(consensus, log), nil
	}

	var cf chainFile
	if err := json.Unmarshal(data, &cf); err != nil {
		log.Warnw("chain file malformed, starting fresh", "path", path, "error", err)
		return NewChain(consensus, log), nil
	}

	if len(cf.Chain) == 0 {
		log.Warnw("chain file empty, starting fresh", "path", path)
		return NewChain(consensus, log), nil
	}

	genesis := cf.Chain[0]
	if genesis.Index != 0 || genesis.PreviousHash != ZeroHash {
		log.Warnw("chain file first block is not a valid genesis, starting fresh", "path", path)
		return NewChain(consensus, log), nil
	}

	return &Chain{blocks: cf.Chain, consensus: consensus, log: log}, nil
}
