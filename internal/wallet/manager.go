package wallet

import "sync"

// Manager is the node's in-memory map of managed wallets keyed by address.
// Wallet keys are never persisted to disk: this preserves the reference
// node's behavior of keeping managed-wallet keys in memory only.
type Manager struct {
	mu      sync.Mutex
	wallets map[string]*Wallet
}

// NewManager returns an empty wallet manager.
func NewManager() *Manager {
	return &Manager{wallets: make(map[string]*Wallet)}
}

// Create generates a new wallet, registers it, and returns it.
func (m *Manager) Create() (*Wallet, error) {
	w, err := New()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.wallets[w.Address] = w
	m.mu.Unlock()
	return w, nil
}

// Get returns the managed wallet for address, if any.
func (m *Manager) Get(address string) (*Wallet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[address]
	return w, ok
}

// All returns every managed wallet.
func (m *Manager) All() []*Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	return out
}

// Addresses returns the address of every managed wallet.
func (m *Manager) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.wallets))
	for addr := range m.wallets {
		out = append(out, addr)
	}
	return out
}
