package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assetguard/internal/domain"
)

type AuthenticityRequest struct {
	ContentHash string
	Signature   string
	KID         string
}

// AuthenticityService answers third-party authenticity queries: signature and ledger together.
type AuthenticityService struct {
	Verifier *SignatureVerifier
	Ledger   *Ledger
	Policy   VerdictPolicy
	Clock    Clock
}

func NewAuthenticityService(verifier *SignatureVerifier, ledger *Ledger, policy VerdictPolicy, clock Clock) *AuthenticityService {
	return &AuthenticityService{Verifier: verifier, Ledger: ledger, Policy: policy, Clock: clock}
}

func (s *AuthenticityService) Check(ctx context.Context, req AuthenticityRequest) (domain.AuthenticityReport, error) {
	if s == nil || s.Verifier == nil || s.Ledger == nil {
		return domain.AuthenticityReport{}, errors.New("authenticity service not configured")
	}
	sig, err := s.Verifier.VerifyHash(ctx, req.ContentHash, req.Signature, req.KID)
	if err != nil {
		return domain.AuthenticityReport{}, err
	}
	trace, err := s.Ledger.Lookup(ctx, req.ContentHash, req.Signature)
	if err != nil {
		return domain.AuthenticityReport{}, err
	}

	input := domain.PolicyInput{
		SignatureValid: sig.Valid,
		Reason:         string(sig.Reason),
		KeyRevoked:     sig.Reason == domain.SignatureReasonRevoked,
		LedgerIncluded: trace != nil,
	}
	verdict := DefaultVerdict(input)
	if s.Policy != nil {
		eval, err := s.Policy.Evaluate(ctx, input)
		if err != nil {
			return domain.AuthenticityReport{}, fmt.Errorf("evaluate verdict policy: %w", err)
		}
		verdict = eval.Verdict
	}

	checkedAt := time.Now().UTC()
	if s.Clock != nil {
		checkedAt = s.Clock().UTC()
	}
	return domain.AuthenticityReport{
		AssetHash: req.ContentHash,
		Signature: sig,
		Trace:     trace,
		Verdict:   verdict,
		CheckedAt: checkedAt,
	}, nil
}

// DefaultVerdict is the built-in verdict table, used when no policy engine is wired.
// Only a valid signature with a matching trace is trusted.
func DefaultVerdict(in domain.PolicyInput) domain.Verdict {
	switch {
	case in.KeyRevoked:
		return domain.VerdictRevokedKey
	case in.SignatureValid && in.LedgerIncluded:
		return domain.VerdictTrusted
	case in.SignatureValid:
		return domain.VerdictSignatureOnly
	case in.LedgerIncluded:
		return domain.VerdictLedgerOnly
	default:
		return domain.VerdictUntrusted
	}
}
