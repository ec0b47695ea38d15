package p2p_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ledgerforge/node/internal/p2p"
	"go.uber.org/zap"
)

func TestTransportDeliversMessagesBetweenPeers(t *testing.T) {
	log := zap.NewNop().Sugar()

	var mu sync.Mutex
	var received []p2p.Message

	serverHandler := func(peerAddr string, msg p2p.Message) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	}

	server := p2p.NewTransport("127.0.0.1", 18801, "server", serverHandler, log, nil)
	if err := server.Start(); err != nil {
		t.Fatalf("server Start: %v", err)
	}
	defer server.Stop()

	client := p2p.NewTransport("127.0.0.1", 18802, "client", func(string, p2p.Message) {}, log, nil)
	if err := client.Start(); err != nil {
		t.Fatalf("client Start: %v", err)
	}
	defer client.Stop()

	client.ConnectToPeer("127.0.0.1", 18801)

	line, err := p2p.Encode(p2p.Ping, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.PeerCount() > 0 {
			client.Broadcast(line, "")
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) == 0 {
		t.Fatal("server never received the client's broadcast message")
	}
	// The client connecting also triggers a GET_PEERS frame, so the
	// server's handler may see more than one message; just confirm a PING
	// made it through.
	var sawPing bool
	for _, m := range received {
		if m.Type == p2p.Ping {
			sawPing = true
		}
	}
	if !sawPing {
		t.Fatal("server did not receive the PING message")
	}
}

func TestConnectToPeerSkipsSelf(t *testing.T) {
	log := zap.NewNop().Sugar()
	transport := p2p.NewTransport("127.0.0.1", 18803, "solo", func(string, p2p.Message) {}, log, nil)
	if err := transport.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer transport.Stop()

	transport.ConnectToPeer("127.0.0.1", 18803)
	if transport.PeerCount() != 0 {
		t.Fatalf("PeerCount() = %d, want 0 after self-connect attempt", transport.PeerCount())
	}
}
