package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ledgerforge/node/internal/httpapi"
	"github.com/ledgerforge/node/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, port int) (*httpapi.Server, *node.Node) {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := node.Config{
		NodeID:        "http-test-node",
		Host:          "127.0.0.1",
		P2PPort:       port,
		Difficulty:    2,
		ChainFilePath: filepath.Join(t.TempDir(), "chain.json"),
		PeerStoreDir:  t.TempDir(),
	}
	n, err := node.New(cfg, log)
	require.NoError(t, err)
	require.NoError(t, n.Start())
	t.Cleanup(n.Stop)

	return httpapi.New(n, log), n
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, 19101)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["chain_length"])
	assert.Equal(t, false, body["mining"])
}

func TestHandleBalanceUnknownAddressIsZero(t *testing.T) {
	srv, _ := newTestServer(t, 19102)
	req := httptest.NewRequest(http.MethodGet, "/balance/unknown-address", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown-address", body["address"])
	assert.EqualValues(t, 0, body["balance"])
}

func TestHandleCreateWallet(t *testing.T) {
	srv, n := newTestServer(t, 19103)
	req := httptest.NewRequest(http.MethodPost, "/create-wallet", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["address"])

	addrs := n.Wallets().Addresses()
	require.Len(t, addrs, 1)
	assert.Equal(t, body["address"], addrs[0])
}

func TestHandleCreateTransactionRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, 19104)
	req := httptest.NewRequest(http.MethodPost, "/create-transaction", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateTransactionRejectsUnknownSender(t *testing.T) {
	srv, _ := newTestServer(t, 19105)
	payload, _ := json.Marshal(map[string]interface{}{
		"sender":    "nobody",
		"recipient": "someone",
		"amount":    1.0,
		"fee":       0.0,
	})
	req := httptest.NewRequest(http.MethodPost, "/create-transaction", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
