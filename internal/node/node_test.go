package node_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ledgerforge/node/internal/node"
	"go.uber.org/zap"
)

func newTestNode(t *testing.T, port int) *node.Node {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := node.Config{
		NodeID:        "test-node",
		Host:          "127.0.0.1",
		P2PPort:       port,
		Difficulty:    2,
		ChainFilePath: filepath.Join(t.TempDir(), "chain.json"),
		PeerStoreDir:  t.TempDir(),
	}
	n, err := node.New(cfg, log)
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	return n
}

func TestNodeStartStopAndStatus(t *testing.T) {
	n := newTestNode(t, 19001)
	if !n.Ready() {
		t.Fatal("node is not ready after construction")
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	status := n.GetStatus()
	if status.ChainLength != 1 {
		t.Fatalf("ChainLength = %d, want 1 (genesis only)", status.ChainLength)
	}
	if status.Mining {
		t.Fatal("Mining = true before StartMining was called")
	}
}

func TestNodeSubmitTransactionFromPrimaryWallet(t *testing.T) {
	n := newTestNode(t, 19002)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	// The primary wallet owns no UTXOs yet (only genesis exists), so a
	// transaction from it must fail for having no spendable outputs rather
	// than for being an unrecognized sender.
	_, err := n.SubmitTransaction(n.PrimaryWallet().Address, "someone", 1, 0)
	if err == nil {
		t.Fatal("expected an error submitting a transaction with no funds")
	}
	if err == node.ErrUnknownWallet {
		t.Fatal("primary wallet was treated as unknown")
	}
}

func TestNodeSubmitTransactionUnknownWallet(t *testing.T) {
	n := newTestNode(t, 19003)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	_, err := n.SubmitTransaction("not-a-managed-wallet", "someone", 1, 0)
	if err != node.ErrUnknownWallet {
		t.Fatalf("err = %v, want ErrUnknownWallet", err)
	}
}

func TestNodeMiningProducesBalance(t *testing.T) {
	n := newTestNode(t, 19004)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	n.StartMining()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if n.GetBalance() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	n.StopMining()

	if n.GetBalance() <= 0 {
		t.Fatal("primary wallet balance did not grow from mining")
	}
	if n.GetStatus().ChainLength < 2 {
		t.Fatal("chain did not grow past genesis while mining")
	}
}
