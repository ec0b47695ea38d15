package p2p_test

import (
	"testing"

	"github.com/ledgerforge/node/internal/p2p"
	"go.uber.org/zap"
)

func TestPeerStoreRememberAndList(t *testing.T) {
	log := zap.NewNop().Sugar()
	store, err := p2p.OpenPeerStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("OpenPeerStore: %v", err)
	}
	defer store.Close()

	store.Remember("10.0.0.1", 5000)
	store.Remember("10.0.0.2", 5001)

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d peers, want 2", len(all))
	}

	seen := map[string]bool{}
	for _, p := range all {
		seen[p.Host] = true
	}
	if !seen["10.0.0.1"] || !seen["10.0.0.2"] {
		t.Fatalf("unexpected peers: %+v", all)
	}
}
