package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalpilot/pkg/broker"
)

// Deterministic secp256k1 key for hermetic tests; never used on a network.
const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

func testSigner(t *testing.T) *PrivateKeySigner {
	t.Helper()
	signer, err := NewPrivateKeySigner(testKeyHex)
	require.NoError(t, err)
	return signer
}

func testRequest() broker.ExecutionRequest {
	return broker.ExecutionRequest{
		Symbol:         "BTC",
		Side:           broker.SideBuy,
		NotionalUSD:    100,
		Leverage:       2,
		OrderType:      broker.OrderTypeLimit,
		LimitPrice:     50000,
		TakeProfit:     52000,
		StopLoss:       49000,
		IdempotencyKey: "sig-1",
	}
}

func TestExecute_SubmitsSignedOrder(t *testing.T) {
	var got orderRequest
	var gotIdemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotIdemKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(orderResponse{OK: true, OrderID: "ord-77"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	out, err := c.Execute(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.Equal(t, "ord-77", out.BrokerOrderID)

	assert.Equal(t, "sig-1", gotIdemKey)
	assert.Equal(t, "BTC", got.Order.Symbol)
	assert.Equal(t, "buy", got.Order.Side)
	assert.Equal(t, 50000.0, got.Order.LimitPrice)
	assert.Positive(t, got.Nonce)
	assert.NotEmpty(t, got.Signature.R)
	assert.NotEmpty(t, got.Signature.S)
	assert.Contains(t, []int{27, 28}, got.Signature.V)
	assert.Equal(t, testSigner(t).Address(), got.Address)
}

func TestExecute_ConflictMapsToDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"ok":false,"message":"duplicate"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), testRequest())
	assert.ErrorIs(t, err, broker.ErrDuplicateSubmission)
}

func TestExecute_VenueRejectionIsOutcomeNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ok":false,"message":"insufficient margin"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	out, err := c.Execute(context.Background(), testRequest())
	require.NoError(t, err, "rejection is a defined outcome, not a transport failure")
	assert.False(t, out.OK)
	assert.Equal(t, "insufficient margin", out.Message)
}

func TestExecute_InvalidRequestNeverLeaves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid request must not reach the venue")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	bad := testRequest()
	bad.NotionalUSD = 0
	_, err = c.Execute(context.Background(), bad)
	assert.Error(t, err)
}

func TestOpenPositionCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/positions", r.URL.Path)
		w.Write([]byte(`[{"symbol":"BTC"},{"symbol":"ETH"}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	count, err := c.OpenPositionCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAccountValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/account", r.URL.Path)
		w.Write([]byte(`{"equity_usd":12345.67}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSigner(t))
	require.NoError(t, err)

	equity, err := c.AccountValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12345.67, equity)
}

func TestNewClient_RequiredArgs(t *testing.T) {
	_, err := NewClient("", testSigner(t))
	assert.Error(t, err)
	_, err = NewClient("https://broker.example", nil)
	assert.Error(t, err)
}
