package node

import (
	"encoding/json"

	"github.com/ledgerforge/node/internal/blockchain"
	"github.com/ledgerforge/node/internal/p2p"
	"github.com/pkg/errors"
)

// ErrUnknownWallet is returned when a transaction's sender is not a wallet
// managed by this node.
var ErrUnknownWallet = errors.New("node: sender is not a managed wallet")

// ErrTransactionRejected is returned when the mempool refuses to admit a
// freshly built transaction.
var ErrTransactionRejected = errors.New("node: transaction rejected by mempool")

// handleMessage dispatches one decoded p2p message from peerAddr. On
// accepting a new transaction or block, it re-broadcasts the same message
// to every peer except the sender: simple flood gossip whose only
// deduplication is mempool/chain rejection of already-known data.
func (n *Node) handleMessage(peerAddr string, msg p2p.Message) {
	switch msg.Type {
	case p2p.NewTransaction:
		n.handleNewTransaction(peerAddr, msg.Payload)
	case p2p.NewBlock:
		n.handleNewBlock(peerAddr, msg.Payload)
	case p2p.GetPeers:
		n.handleGetPeers(peerAddr)
	case p2p.SendPeers:
		n.handleSendPeers(msg.Payload)
	case p2p.Ping:
		n.handlePing(peerAddr)
	case p2p.Pong:
		// Reserved for future liveness tracking; no-op.
	case p2p.GetBlocks, p2p.SendBlocks:
		n.log.Debugw("ignoring reserved message type", "type", msg.Type, "peer", peerAddr)
	default:
		n.log.Debugw("unknown message type", "type", msg.Type, "peer", peerAddr)
	}
}

func (n *Node) handleNewTransaction(peerAddr string, payload json.RawMessage) {
	var tx blockchain.Transaction
	if err := json.Unmarshal(payload, &tx); err != nil {
		n.log.Debugw("malformed transaction payload", "peer", peerAddr, "error", err)
		return
	}

	if !n.mempool.Add(tx) {
		return
	}

	if line, err := encodeTransaction(tx); err == nil {
		n.transport.Broadcast(line, peerAddr)
	}
}

func (n *Node) handleNewBlock(peerAddr string, payload json.RawMessage) {
	var block blockchain.Block
	if err := json.Unmarshal(payload, &block); err != nil {
		n.log.Debugw("malformed block payload", "peer", peerAddr, "error", err)
		return
	}

	n.chainLock.Lock()
	committed := n.chain.AddBlock(block, n.utxo)
	n.chainLock.Unlock()

	if !committed {
		if n.metrics != nil {
			n.metrics.BlocksRejected.Inc()
		}
		return
	}

	ids := make([]string, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		ids = append(ids, tx.TransactionID)
	}
	n.mempool.Remove(ids)

	n.log.Infow("accepted block from peer", "peer", peerAddr, "index", block.Index)

	if line, err := encodeBlock(block); err == nil {
		n.transport.Broadcast(line, peerAddr)
	}
}

func (n *Node) handleGetPeers(peerAddr string) {
	peers := n.transport.GetPeerList()
	line, err := p2p.Encode(p2p.SendPeers, p2p.SendPeersPayload{Peers: peers})
	if err != nil {
		return
	}
	n.transport.Send(peerAddr, line)
}

func (n *Node) handleSendPeers(payload json.RawMessage) {
	var body p2p.SendPeersPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return
	}
	for _, addr := range body.Peers {
		host, port, ok := splitHostPort(addr)
		if !ok {
			continue
		}
		go n.transport.ConnectToPeer(host, port)
	}
}

func (n *Node) handlePing(peerAddr string) {
	line, err := p2p.Encode(p2p.Pong, nil)
	if err != nil {
		return
	}
	n.transport.Send(peerAddr, line)
}
