package p2p

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PeerStore persists known peer addresses to an embedded badger database so
// a restarted node can re-seed its peer list before bootstrap peers
// respond. It is not used for chain or UTXO data: those need cheap
// structurally independent snapshots, which a disk-backed KV store does
// not give cleanly.
type PeerStore struct {
	db  *badger.DB
	log *zap.SugaredLogger
}

// OpenPeerStore opens (creating if needed) a badger database at dir.
func OpenPeerStore(dir string, log *zap.SugaredLogger) (*PeerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open peer store")
	}
	return &PeerStore{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *PeerStore) Close() error {
	return s.db.Close()
}

func peerKey(host string, port int) []byte {
	return []byte(fmt.Sprintf("peer:%s:%d", host, port))
}

// Remember persists a known peer address.
func (s *PeerStore) Remember(host string, port int) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(peerKey(host, port), []byte{1})
	})
	if err != nil {
		s.log.Warnw("peer store write failed", "error", err)
	}
}

// All returns every persisted peer as (host, port) pairs.
func (s *PeerStore) All() []struct {
	Host string
	Port int
} {
	var out []struct {
		Host string
		Port int
	}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("peer:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			rest := strings.TrimPrefix(key, "peer:")
			idx := strings.LastIndex(rest, ":")
			if idx < 0 {
				continue
			}
			host := rest[:idx]
			port, err := strconv.Atoi(rest[idx+1:])
			if err != nil {
				continue
			}
			out = append(out, struct {
				Host string
				Port int
			}{Host: host, Port: port})
		}
		return nil
	})
	if err != nil {
		s.log.Warnw("peer store read failed", "error", err)
	}
	return out
}
