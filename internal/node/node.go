// Package node wires together the chain, UTXO set, mempool, p2p transport,
// and miner into a running node: it dispatches incoming p2p messages,
// re-broadcasts accepted gossip, and drives the mining worker loop.
package node

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/mempool"
	"github.com/ledgerforge/node/internal/miner"
	"github.com/ledgerforge/node/internal/p2p"
	"github.com/ledgerforge/node/internal/wallet"
	"go.uber.org/zap"
)

// Config configures a Node.
type Config struct {
	NodeID        string
	Host          string
	P2PPort       int
	Difficulty    int
	ChainFilePath string
	PeerStoreDir  string
	BootstrapPeers []PeerAddr
}

// PeerAddr is a bootstrap peer's host and P2P port.
type PeerAddr struct {
	Host string
	Port int
}

// Node owns the chain, UTXO set, mempool, p2p transport, primary wallet,
// and managed-wallet map. chainLock guards the chain and UTXO set together
// so commits stay atomic across both; the managed-wallet map is guarded by
// its own lock inside wallet.Manager.
type Node struct {
	cfg Config
	log *zap.SugaredLogger

	chainLock sync.Mutex
	chain     *blockchain.Chain
	utxo      *blockchain.UTXOSet

	mempool *mempool.Mempool
	wallets *wallet.Manager
	primary *wallet.Wallet

	transport *p2p.Transport
	peerStore *p2p.PeerStore
	consensus blockchain.Consensus

	mining   bool
	stopMine chan struct{}
	mineWg   sync.WaitGroup

	ready   bool
	metrics *Metrics
}

// SetMetrics attaches a Metrics set the node updates as it runs.
func (n *Node) SetMetrics(m *Metrics) {
	n.metrics = m
}

// New constructs a Node. It does not start anything; call Start.
func New(cfg Config, log *zap.SugaredLogger) (*Node, error) {
	consensus := blockchain.NewConsensus(cfg.Difficulty)

	n := &Node{
		cfg:       cfg,
		log:       log,
		mempool:   mempool.New(mempool.DefaultMaxSize),
		wallets:   wallet.NewManager(),
		consensus: consensus,
	}

	primary, err := wallet.New()
	if err != nil {
		return nil, err
	}
	n.primary = primary

	chain, err := blockchain.LoadChain(cfg.ChainFilePath, consensus, log.Named("chain"))
	if err == blockchain.ErrChainFileNotFound {
		chain = blockchain.NewChain(consensus, log.Named("chain"))
	} else if err != nil {
		return nil, err
	}
	n.chain = chain
	n.utxo = blockchain.NewUTXOSet()
	n.utxo.Rebuild(chain.Blocks())

	if cfg.PeerStoreDir != "" {
		store, err := p2p.OpenPeerStore(cfg.PeerStoreDir, log.Named("peerstore"))
		if err != nil {
			return nil, err
		}
		n.peerStore = store
	}

	n.transport = p2p.NewTransport(cfg.Host, cfg.P2PPort, cfg.NodeID, n.handleMessage, log.Named("p2p"), n.peerStore)

	n.ready = true
	return n, nil
}

// Ready reports whether the node has finished initializing.
func (n *Node) Ready() bool {
	return n.ready
}

// Start starts the p2p transport and connects to bootstrap and
// previously-known peers.
func (n *Node) Start() error {
	if err := n.transport.Start(); err != nil {
		return err
	}

	for _, p := range n.cfg.BootstrapPeers {
		go n.transport.ConnectToPeer(p.Host, p.Port)
	}
	if n.peerStore != nil {
		for _, p := range n.peerStore.All() {
			go n.transport.ConnectToPeer(p.Host, p.Port)
		}
	}
	return nil
}

// Stop stops mining, stops the p2p transport, and saves the chain to disk.
func (n *Node) Stop() {
	n.StopMining()
	n.transport.Stop()
	if n.peerStore != nil {
		n.peerStore.Close()
	}

	n.chainLock.Lock()
	defer n.chainLock.Unlock()
	if err := n.chain.Save(n.cfg.ChainFilePath); err != nil {
		n.log.Warnw("save chain failed", "error", err)
	}
}

// StartMining starts the mining worker goroutine if it is not already
// running.
func (n *Node) StartMining() {
	if n.mining {
		return
	}
	n.mining = true
	n.stopMine = make(chan struct{})
	n.mineWg.Add(1)
	go n.miningLoop()
}

// StopMining signals the miner to exit and waits for it to stop.
func (n *Node) StopMining() {
	if !n.mining {
		return
	}
	n.mining = false
	close(n.stopMine)
	n.mineWg.Wait()
}

func (n *Node) miningLoop() {
	defer n.mineWg.Done()
	for {
		select {
		case <-n.stopMine:
			return
		default:
		}

		n.chainLock.Lock()
		tail, _ := n.chain.Tail()
		snapshot := n.utxo.Snapshot()
		n.chainLock.Unlock()

		block, ok := miner.MineBlock(miner.Input{
			Mempool:       n.mempool,
			UTXOSnapshot:  snapshot,
			Tail:          tail,
			RewardAddress: n.primary.Address,
			Consensus:     n.consensus,
			Stop:          n.stopMine,
		})

		select {
		case <-n.stopMine:
			return
		default:
		}

		if !ok {
			continue
		}

		n.chainLock.Lock()
		committed := n.chain.AddBlock(block, n.utxo)
		n.chainLock.Unlock()

		if committed {
			if n.metrics != nil {
				n.metrics.BlocksMined.Inc()
			}
			n.log.Infow("mined block", "index", block.Index, "hash", block.Hash)
			ids := make([]string, 0, len(block.Transactions))
			for _, tx := range block.Transactions {
				ids = append(ids, tx.TransactionID)
			}
			n.mempool.Remove(ids)

			if line, err := encodeBlock(block); err == nil {
				n.transport.Broadcast(line, "")
			}
			continue
		}

		select {
		case <-n.stopMine:
			return
		case <-time.After(backoff()):
		}
	}
}

// backoff returns a randomized 2-5s duration, the miner's idle back-off
// when a pass did not commit a block.
func backoff() time.Duration {
	return time.Duration(2000+rand.Intn(3000)) * time.Millisecond
}

func encodeBlock(b blockchain.Block) (string, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return p2p.Encode(p2p.NewBlock, json.RawMessage(payload))
}

// GetBalance returns the primary wallet's balance.
func (n *Node) GetBalance() float64 {
	n.chainLock.Lock()
	defer n.chainLock.Unlock()
	return n.utxo.GetBalance(n.primary.Address)
}

// BalanceOf returns the balance of an arbitrary address.
func (n *Node) BalanceOf(address string) float64 {
	n.chainLock.Lock()
	defer n.chainLock.Unlock()
	return n.utxo.GetBalance(address)
}

// Status is a snapshot of the node's vitals, used by periodic logging and
// the HTTP status endpoint.
type Status struct {
	ChainLength int
	MempoolSize int
	UTXOCount   int
	PeerCount   int
	Mining      bool
	Balance     float64
}

// GetStatus returns a consistent snapshot of the node's vitals.
func (n *Node) GetStatus() Status {
	n.chainLock.Lock()
	chainLen := n.chain.Len()
	utxoCount := n.utxo.Len()
	balance := n.utxo.GetBalance(n.primary.Address)
	n.chainLock.Unlock()

	return Status{
		ChainLength: chainLen,
		MempoolSize: n.mempool.Len(),
		UTXOCount:   utxoCount,
		PeerCount:   n.transport.PeerCount(),
		Mining:      n.mining,
		Balance:     balance,
	}
}

// RunStatusLogger logs periodic status lines until stop is closed,
// mirroring the reference node's 30s status-print loop.
func (n *Node) RunStatusLogger(stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := n.GetStatus()
			if n.metrics != nil {
				n.metrics.Refresh(s)
			}
			n.log.Infow("status",
				"chain_length", s.ChainLength,
				"mempool_size", s.MempoolSize,
				"utxo_count", s.UTXOCount,
				"peer_count", s.PeerCount,
				"balance", s.Balance,
			)
		}
	}
}

// PrimaryWallet returns the node's primary (mining-reward) wallet.
func (n *Node) PrimaryWallet() *wallet.Wallet {
	return n.primary
}

// Wallets returns the node's managed-wallet manager.
func (n *Node) Wallets() *wallet.Manager {
	return n.wallets
}

// Transport returns the node's p2p transport.
func (n *Node) Transport() *p2p.Transport {
	return n.transport
}

// SubmitTransaction builds, signs (via the managed wallet owning sender),
// admits, and broadcasts a transaction.
func (n *Node) SubmitTransaction(sender, recipient string, amount, fee float64) (blockchain.Transaction, error) {
	w, ok := n.wallets.Get(sender)
	if !ok {
		if n.primary.Address == sender {
			w = n.primary
		} else {
			return blockchain.Transaction{}, ErrUnknownWallet
		}
	}

	n.chainLock.Lock()
	snapshot := n.utxo.Snapshot()
	n.chainLock.Unlock()

	tx, err := w.CreateTransaction(recipient, amount, fee, snapshot)
	if err != nil {
		return blockchain.Transaction{}, err
	}

	if !n.mempool.Add(tx) {
		return blockchain.Transaction{}, ErrTransactionRejected
	}

	if line, err := encodeTransaction(tx); err == nil {
		n.transport.Broadcast(line, "")
	}

	return tx, nil
}

func encodeTransaction(tx blockchain.Transaction) (string, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	return p2p.Encode(p2p.NewTransaction, json.RawMessage(payload))
}
