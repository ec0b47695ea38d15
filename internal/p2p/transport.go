package p2p

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// inactivityTimeout is the per-socket read deadline. Expiry only causes the
// reader to retry, never to fail the connection.
const inactivityTimeout = 60 * time.Second

// pingInterval is how often the pinger sends PING to every connected peer.
const pingInterval = 30 * time.Second

// Handler processes one decoded message from a peer, identified by its
// "host:port" address string.
type Handler func(peerAddr string, msg Message)

// Transport is the node's TCP gossip transport. Its own mutex guards peers
// and connections, independent of the node coordinator's chain lock.
type Transport struct {
	host    string
	port    int
	nodeID  string
	handler Handler
	log     *zap.SugaredLogger
	store   *PeerStore

	mu          sync.Mutex
	listener    net.Listener
	connections map[string]net.Conn
	running     bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTransport constructs a transport bound to host:port. store may be nil
// if peer-address persistence is not wanted.
func NewTransport(host string, port int, nodeID string, handler Handler, log *zap.SugaredLogger, store *PeerStore) *Transport {
	return &Transport{
		host:        host,
		port:        port,
		nodeID:      nodeID,
		handler:     handler,
		log:         log,
		store:       store,
		connections: make(map[string]net.Conn),
	}
}

// Start binds the listen socket and starts the acceptor and pinger
// goroutines.
func (t *Transport) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", t.host, t.port))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.listener = ln
	t.running = true
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	t.log.Infow("p2p listening", "addr", ln.Addr().String())

	t.wg.Add(2)
	go t.acceptLoop()
	go t.pingLoop()
	return nil
}

// Stop closes the listen socket (breaking Accept) and every peer socket
// (breaking readers), then waits for the acceptor and pinger to exit.
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	if t.listener != nil {
		t.listener.Close()
	}
	peers := make([]string, 0, len(t.connections))
	for addr := range t.connections {
		peers = append(peers, addr)
	}
	t.mu.Unlock()

	for _, addr := range peers {
		t.removePeer(addr)
	}

	t.wg.Wait()
	t.log.Infow("p2p stopped")
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if !t.isRunning() {
				return
			}
			t.log.Warnw("accept error", "error", err)
			return
		}
		addr := conn.RemoteAddr().String()

		t.mu.Lock()
		if _, exists := t.connections[addr]; exists {
			t.mu.Unlock()
			conn.Close()
			continue
		}
		t.connections[addr] = conn
		t.mu.Unlock()

		t.log.Infow("accepted connection", "peer", addr)
		t.wg.Add(1)
		go t.readLoop(addr, conn)
	}
}

func (t *Transport) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Transport) readLoop(addr string, conn net.Conn) {
	defer t.wg.Done()
	reader := bufio.NewReader(conn)

	for t.isRunning() {
		conn.SetReadDeadline(time.Now().Add(inactivityTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			t.log.Infow("peer connection closed", "peer", addr, "error", err)
			break
		}

		msg, ok := Decode(trimNewline(line))
		if !ok {
			continue
		}
		if t.handler != nil {
			t.handler(addr, msg)
		}
	}

	t.removePeer(addr)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// ConnectToPeer dials host:port and starts a reader for the new
// connection. Connecting to self or an already-connected peer is a no-op.
func (t *Transport) ConnectToPeer(host string, port int) {
	if !t.isRunning() {
		return
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	if host == t.host && port == t.port {
		return
	}

	t.mu.Lock()
	if _, exists := t.connections[addr]; exists {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		t.log.Warnw("connect failed", "addr", addr, "error", err)
		return
	}

	t.mu.Lock()
	t.connections[addr] = conn
	t.mu.Unlock()

	if t.store != nil {
		t.store.Remember(host, port)
	}

	t.log.Infow("connected to peer", "addr", addr)
	t.wg.Add(1)
	go t.readLoop(addr, conn)

	if line, err := Encode(GetPeers, nil); err == nil {
		t.Send(addr, line)
	}
}

// Send writes line to the named peer's connection. On failure the peer is
// removed. Returns whether the send succeeded.
func (t *Transport) Send(peerAddr string, line string) bool {
	t.mu.Lock()
	conn, ok := t.connections[peerAddr]
	t.mu.Unlock()
	if !ok {
		return false
	}

	if _, err := conn.Write([]byte(line)); err != nil {
		t.log.Warnw("send failed, removing peer", "peer", peerAddr, "error", err)
		t.removePeer(peerAddr)
		return false
	}
	return true
}

// Broadcast sends line to every connected peer except exclude (pass "" to
// exclude none).
func (t *Transport) Broadcast(line string, exclude string) {
	t.mu.Lock()
	peers := make([]string, 0, len(t.connections))
	for addr := range t.connections {
		peers = append(peers, addr)
	}
	t.mu.Unlock()

	for _, addr := range peers {
		if addr == exclude {
			continue
		}
		t.Send(addr, line)
	}
}

// GetPeerList returns the addresses of currently connected peers.
func (t *Transport) GetPeerList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.connections))
	for addr := range t.connections {
		out = append(out, addr)
	}
	return out
}

// PeerCount returns the number of connected peers.
func (t *Transport) PeerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.connections)
}

func (t *Transport) removePeer(addr string) {
	t.mu.Lock()
	conn, ok := t.connections[addr]
	if ok {
		delete(t.connections, addr)
	}
	t.mu.Unlock()

	if ok {
		conn.Close()
	}
}

func (t *Transport) pingLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			line, err := Encode(Ping, nil)
			if err != nil {
				continue
			}
			t.mu.Lock()
			peers := make([]string, 0, len(t.connections))
			for addr := range t.connections {
				peers = append(peers, addr)
			}
			t.mu.Unlock()

			for _, addr := range peers {
				if !t.Send(addr, line) {
					t.log.Infow("peer failed ping, removed", "peer", addr)
				}
			}
		}
	}
}
