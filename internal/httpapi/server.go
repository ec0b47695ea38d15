// Package httpapi exposes the operator-facing control surface: node
// status, balance lookups, managed-wallet creation, and transaction
// submission.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ledgerforge/node/internal/node"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the node's HTTP control surface.
type Server struct {
	node   *node.Node
	log    *zap.SugaredLogger
	router *mux.Router
}

// New builds a Server wrapping n.
func New(n *node.Node, log *zap.SugaredLogger) *Server {
	s := &Server{node: n, log: log, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/status", s.withReady(s.handleStatus)).Methods(http.MethodGet)
	s.router.HandleFunc("/balance/{address}", s.withReady(s.handleBalance)).Methods(http.MethodGet)
	s.router.HandleFunc("/all-balances", s.withReady(s.handleAllBalances)).Methods(http.MethodGet)
	s.router.HandleFunc("/create-wallet", s.withReady(s.handleCreateWallet)).Methods(http.MethodPost)
	s.router.HandleFunc("/wallets", s.withReady(s.handleWallets)).Methods(http.MethodGet)
	s.router.HandleFunc("/create-transaction", s.withReady(s.handleCreateTransaction)).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) withReady(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.node.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "node not ready"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.node.GetStatus()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chain_length": st.ChainLength,
		"mempool_size": st.MempoolSize,
		"utxo_count":   st.UTXOCount,
		"peer_count":   st.PeerCount,
		"mining":       st.Mining,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"balance": s.node.BalanceOf(addr),
	})
}

func (s *Server) handleAllBalances(w http.ResponseWriter, r *http.Request) {
	balances := make(map[string]float64)
	for _, addr := range s.node.Wallets().Addresses() {
		balances[addr] = s.node.BalanceOf(addr)
	}
	balances[s.node.PrimaryWallet().Address] = s.node.BalanceOf(s.node.PrimaryWallet().Address)
	writeJSON(w, http.StatusOK, map[string]interface{}{"balances": balances})
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	wlt, err := s.node.Wallets().Create()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"address":    wlt.Address,
		"public_key": wlt.PublicKeyHex,
	})
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"addresses": s.node.Wallets().Addresses()})
}

type createTransactionRequest struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	tx, err := s.node.SubmitTransaction(req.Sender, req.Recipient, req.Amount, req.Fee)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"transaction_id": tx.TransactionID})
}
