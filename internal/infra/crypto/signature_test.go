package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"assetguard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWire(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x01}
	decoded, err := DecodeWire(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	decoded, err = DecodeWire(base64.URLEncoding.EncodeToString(raw) + "")
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	_, err = DecodeWire("+/+/")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
	_, err = DecodeWire("  ")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte("payload"))

	require.NoError(t, VerifyEd25519(pub, []byte("payload"), sig))

	err = VerifyEd25519(pub, []byte("other"), sig)
	require.Error(t, err)
	assert.True(t, IsSignatureMismatch(err))
	assert.NotErrorIs(t, err, domain.ErrMalformedInput)

	err = VerifyEd25519(pub[:10], []byte("payload"), sig)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	err = VerifyEd25519(pub, []byte("payload"), sig[:10])
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestCanonicalWire(t *testing.T) {
	raw := []byte{0xfb}
	unpadded := base64.RawURLEncoding.EncodeToString(raw)

	got, err := CanonicalWire(base64.URLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, unpadded, got)

	got, err = CanonicalWire(unpadded)
	require.NoError(t, err)
	assert.Equal(t, unpadded, got)

	// "-x" decodes to the same byte as "-w" under a lenient decoder.
	_, err = CanonicalWire("-x")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}
