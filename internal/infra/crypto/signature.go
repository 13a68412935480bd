package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"assetguard/internal/domain"
)

var wireEncoding = base64.RawURLEncoding.Strict()

// DecodeWire decodes the URL-safe base64 wire encoding used for keys and signatures.
// Padding is optional; non-zero trailing bits are rejected.
func DecodeWire(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty encoding", domain.ErrMalformedInput)
	}
	decoded, err := wireEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64url: %v", domain.ErrMalformedInput, err)
	}
	return decoded, nil
}

func EncodeWire(raw []byte) string {
	return wireEncoding.EncodeToString(raw)
}

// CanonicalWire returns the single unpadded spelling of an encoded value, so records
// keyed by a signature match however the caller padded it.
func CanonicalWire(value string) (string, error) {
	raw, err := DecodeWire(value)
	if err != nil {
		return "", err
	}
	return EncodeWire(raw), nil
}

func ParsePublicKey(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: invalid ed25519 public key length: %d", domain.ErrMalformedInput, len(raw))
	}
	return ed25519.PublicKey(append([]byte(nil), raw...)), nil
}

var errSignatureMismatch = errors.New("signature verification failed")

// VerifyEd25519 checks sig over payload. Structural problems return ErrMalformedInput;
// a well-formed signature that does not verify returns a plain error.
func VerifyEd25519(pubKey []byte, payload []byte, sig []byte) error {
	key, err := ParsePublicKey(pubKey)
	if err != nil {
		return err
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: invalid ed25519 signature length: %d", domain.ErrMalformedInput, len(sig))
	}
	if !ed25519.Verify(key, payload, sig) {
		return errSignatureMismatch
	}
	return nil
}

func IsSignatureMismatch(err error) bool {
	return errors.Is(err, errSignatureMismatch)
}
