package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrivateKeySigner(t *testing.T) {
	signer, err := NewPrivateKeySigner(testKeyHex)
	require.NoError(t, err)
	// Address of the secp256k1 generator point scalar 1 is well known.
	assert.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", signer.Address())

	// 0x prefix is accepted.
	prefixed, err := NewPrivateKeySigner("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), prefixed.Address())

	_, err = NewPrivateKeySigner("")
	assert.Error(t, err)
	_, err = NewPrivateKeySigner("not-hex")
	assert.Error(t, err)
}

func TestSign(t *testing.T) {
	signer := testSigner(t)

	digest := make([]byte, 32)
	digest[31] = 7
	sig, err := signer.Sign(digest)
	require.NoError(t, err)
	assert.Len(t, sig.R, 66) // 0x + 64 hex chars
	assert.Len(t, sig.S, 66)
	assert.Contains(t, []int{27, 28}, sig.V)

	// Signing is deterministic per RFC 6979.
	again, err := signer.Sign(digest)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	_, err = signer.Sign(make([]byte, 16))
	assert.Error(t, err, "digest must be exactly 32 bytes")
}

func TestRequestDigest(t *testing.T) {
	payload := orderPayload{Symbol: "BTC", Side: "buy", NotionalUSD: 100, Leverage: 1, OrderType: "market"}

	d1, err := requestDigest(payload, 1700000000000)
	require.NoError(t, err)
	assert.Len(t, d1, 32)

	// Same payload and nonce digest identically.
	d2, err := requestDigest(payload, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	// A different nonce changes the digest.
	d3, err := requestDigest(payload, 1700000000001)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	// A different payload changes the digest.
	other := payload
	other.NotionalUSD = 200
	d4, err := requestDigest(other, 1700000000000)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d4)

	_, err = requestDigest(payload, 0)
	assert.Error(t, err)
}
