package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"
	"assetguard/pkg/signer"
)

type KeyLookup interface {
	Lookup(ctx context.Context, kid string) (domain.SigningKey, error)
}

// SignatureVerifier checks detached signatures over signer.SigningPayload(contentHash).
type SignatureVerifier struct {
	Keys KeyLookup
}

func NewSignatureVerifier(keys KeyLookup) *SignatureVerifier {
	return &SignatureVerifier{Keys: keys}
}

// Verify hashes message and verifies the signature over the domain-separated hash.
func (v *SignatureVerifier) Verify(ctx context.Context, message []byte, signatureWire, kid string) (domain.SignatureResult, error) {
	return v.VerifyHash(ctx, signer.HashMessage(message), signatureWire, kid)
}

// VerifyHash verifies a signature over an already computed content hash label.
// A revoked key short-circuits before any cryptographic work.
func (v *SignatureVerifier) VerifyHash(ctx context.Context, contentHash, signatureWire, kid string) (domain.SignatureResult, error) {
	if v == nil || v.Keys == nil {
		return domain.SignatureResult{}, errors.New("key registry required")
	}
	if strings.TrimSpace(contentHash) == "" {
		return domain.SignatureResult{}, fmt.Errorf("%w: content hash is required", domain.ErrMalformedInput)
	}
	key, err := v.Keys.Lookup(ctx, kid)
	if err != nil {
		return domain.SignatureResult{}, err
	}
	if key.Revoked() {
		return domain.SignatureResult{
			Valid:     false,
			Reason:    domain.SignatureReasonRevoked,
			KID:       key.KID,
			RevokedAt: key.RevokedAt,
		}, nil
	}
	sig, err := cryptoinfra.DecodeWire(signatureWire)
	if err != nil {
		return domain.SignatureResult{}, err
	}
	err = cryptoinfra.VerifyEd25519(key.PublicKey, signer.SigningPayload(contentHash), sig)
	switch {
	case err == nil:
		return domain.SignatureResult{Valid: true, Reason: domain.SignatureReasonOK, KID: key.KID}, nil
	case cryptoinfra.IsSignatureMismatch(err):
		return domain.SignatureResult{Valid: false, Reason: domain.SignatureReasonMismatch, KID: key.KID}, nil
	default:
		return domain.SignatureResult{}, err
	}
}
