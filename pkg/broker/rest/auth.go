package rest

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
)

// Signature is the wire form of an ECDSA request signature.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// Signer produces signatures over 32-byte request digests.
type Signer interface {
	Sign(digest []byte) (*Signature, error)
	Address() string
}

// PrivateKeySigner signs digests with an ECDSA private key, the scheme the
// venue uses to authenticate order submissions.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewPrivateKeySigner constructs a signer from a hex-encoded private key.
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, errors.New("rest: empty private key")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("rest: decode private key: %w", err)
	}
	return &PrivateKeySigner{
		privateKey: key,
		address:    strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}, nil
}

// Sign produces an ECDSA signature for a 32-byte digest.
func (s *PrivateKeySigner) Sign(digest []byte) (*Signature, error) {
	if s == nil || s.privateKey == nil {
		return nil, errors.New("rest: signer not initialised")
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("rest: expected 32-byte digest, got %d bytes", len(digest))
	}
	sigBytes, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("rest: sign digest: %w", err)
	}
	return &Signature{
		R: "0x" + hex.EncodeToString(sigBytes[:32]),
		S: "0x" + hex.EncodeToString(sigBytes[32:64]),
		V: int(sigBytes[64]) + 27,
	}, nil
}

// Address returns the signer's wallet address.
func (s *PrivateKeySigner) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// requestDigest computes the keccak-256 digest the venue verifies: the
// msgpack encoding of the action payload followed by the big-endian nonce.
func requestDigest(action any, nonce int64) ([]byte, error) {
	if nonce <= 0 {
		return nil, errors.New("rest: nonce must be positive")
	}
	encoded, err := msgpack.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("rest: msgpack encode action: %w", err)
	}
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], uint64(nonce))

	payload := make([]byte, 0, len(encoded)+len(nonceBytes))
	payload = append(payload, encoded...)
	payload = append(payload, nonceBytes[:]...)
	return crypto.Keccak256(payload), nil
}
