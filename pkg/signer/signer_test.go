package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	seed, err := hex.DecodeString(strings.Repeat("07", ed25519.SeedSize))
	require.NoError(t, err)
	return ed25519.NewKeyFromSeed(seed)
}

func TestSigningPayload_PrefixesContext(t *testing.T) {
	payload := SigningPayload("sha256:abc")
	assert.True(t, strings.HasPrefix(string(payload), Context))
	assert.Equal(t, Context+"sha256:abc", string(payload))
}

func TestSignHash_VerifiesOnlyWithContext(t *testing.T) {
	s, err := New("kid-1", testKey(t))
	require.NoError(t, err)

	sigWire, err := s.SignHash("sha256:abc")
	require.NoError(t, err)
	sig, err := base64.RawURLEncoding.DecodeString(sigWire)
	require.NoError(t, err)

	assert.True(t, ed25519.Verify(s.PublicKey(), SigningPayload("sha256:abc"), sig))
	assert.False(t, ed25519.Verify(s.PublicKey(), []byte("sha256:abc"), sig), "bare hash must not verify")
}

func TestSignMessage_HashesFirst(t *testing.T) {
	s, err := New("kid-1", testKey(t))
	require.NoError(t, err)

	fromMessage, err := s.SignMessage([]byte("hello"))
	require.NoError(t, err)
	fromHash, err := s.SignHash(HashMessage([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, fromHash, fromMessage)
	assert.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", HashMessage([]byte("hello")))
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New("", testKey(t))
	assert.Error(t, err)
	_, err = New("kid", ed25519.PrivateKey([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	key := testKey(t)
	parsed, err := ParsePrivateKeyWire(base64.RawURLEncoding.EncodeToString(key.Seed()))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	parsed, err = ParsePrivateKeyHex(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	pub, err := ParsePublicKeyWire(base64.URLEncoding.EncodeToString(key.Public().(ed25519.PublicKey)))
	require.NoError(t, err)
	assert.Equal(t, key.Public(), pub)

	_, err = ParsePublicKeyWire("AAAA")
	assert.Error(t, err)
}
