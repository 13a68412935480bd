// Package signer produces publisher-side signatures that the integrity engine verifies.
//
// A signature never covers raw asset bytes. It covers Context followed by the UTF-8 bytes
// of the canonical content hash, so a signature over a bare hash in some other protocol
// cannot be replayed here.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// Context is the fixed domain-separation prefix of every signed payload.
const Context = "assetguard/asset-signature/v1\x00"

// SigningPayload returns the exact bytes covered by a signature for contentHash.
func SigningPayload(contentHash string) []byte {
	payload := make([]byte, 0, len(Context)+len(contentHash))
	payload = append(payload, Context...)
	payload = append(payload, contentHash...)
	return payload
}

// HashMessage computes the canonical content hash label of an arbitrary message.
func HashMessage(message []byte) string {
	sum := sha256.Sum256(message)
	return "sha256:" + hex.EncodeToString(sum[:])
}

type Signer struct {
	kid string
	key ed25519.PrivateKey
}

func New(kid string, key ed25519.PrivateKey) (*Signer, error) {
	if strings.TrimSpace(kid) == "" {
		return nil, errors.New("kid is required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key length")
	}
	return &Signer{kid: kid, key: append(ed25519.PrivateKey(nil), key...)}, nil
}

func (s *Signer) KID() string {
	return s.kid
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// SignHash signs a canonical content hash and returns the wire (base64url) signature.
func (s *Signer) SignHash(contentHash string) (string, error) {
	if contentHash == "" {
		return "", errors.New("content hash is required")
	}
	sig := ed25519.Sign(s.key, SigningPayload(contentHash))
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// SignMessage hashes message and signs the resulting content hash.
func (s *Signer) SignMessage(message []byte) (string, error) {
	return s.SignHash(HashMessage(message))
}

// GenerateKey returns a fresh key pair, the public half in wire encoding.
func GenerateKey() (ed25519.PrivateKey, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", err
	}
	return priv, base64.RawURLEncoding.EncodeToString(pub), nil
}
