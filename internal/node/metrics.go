package node

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the node coordinator updates as
// it processes chain, mempool, and p2p events.
type Metrics struct {
	ChainLength   prometheus.Gauge
	MempoolSize   prometheus.Gauge
	UTXOCount     prometheus.Gauge
	PeerCount     prometheus.Gauge
	BlocksMined   prometheus.Counter
	BlocksRejected prometheus.Counter
}

// NewMetrics registers and returns a Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_chain_length", Help: "Number of blocks in the local chain.",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_mempool_size", Help: "Number of pending transactions.",
		}),
		UTXOCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_utxo_count", Help: "Number of tracked unspent outputs.",
		}),
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_peer_count", Help: "Number of connected peers.",
		}),
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "node_blocks_mined_total", Help: "Blocks successfully mined and committed locally.",
		}),
		BlocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "node_blocks_rejected_total", Help: "Blocks received from peers that failed validation.",
		}),
	}
	reg.MustRegister(m.ChainLength, m.MempoolSize, m.UTXOCount, m.PeerCount, m.BlocksMined, m.BlocksRejected)
	return m
}

// Refresh updates the gauges from a status snapshot.
func (m *Metrics) Refresh(s Status) {
	m.ChainLength.Set(float64(s.ChainLength))
	m.MempoolSize.Set(float64(s.MempoolSize))
	m.UTXOCount.Set(float64(s.UTXOCount))
	m.PeerCount.Set(float64(s.PeerCount))
}
