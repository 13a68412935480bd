package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"
	"assetguard/internal/observability/logger"
)

const tokenNonceBytes = 32

type TokenOptions struct {
	TTL            time.Duration
	StrictOrigin   bool
	AllowedOrigins []string
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

type RedeemResult struct {
	Valid      bool
	RedeemedAt time.Time
}

// TokenService issues single-use, subject-bound, expiring tokens.
type TokenService struct {
	Repo    TokenRepository
	Audit   *AuditEmitter
	Clock   Clock
	Options TokenOptions
	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader
}

func NewTokenService(repo TokenRepository, audit *AuditEmitter, clock Clock, opts TokenOptions) *TokenService {
	return &TokenService{Repo: repo, Audit: audit, Clock: clock, Options: opts}
}

func (s *TokenService) Issue(ctx context.Context, subjectID, origin string) (IssuedToken, error) {
	if s == nil || s.Repo == nil {
		return IssuedToken{}, errors.New("token repository required")
	}
	subjectID = strings.TrimSpace(subjectID)
	origin = strings.TrimSpace(origin)
	if subjectID == "" {
		return IssuedToken{}, fmt.Errorf("%w: subject_id is required", domain.ErrMalformedInput)
	}
	if err := s.checkOrigin(origin); err != nil {
		return IssuedToken{}, err
	}
	if s.Options.TTL <= 0 {
		return IssuedToken{}, errors.New("token ttl must be positive")
	}

	nonce := make([]byte, tokenNonceBytes)
	if _, err := io.ReadFull(s.rand(), nonce); err != nil {
		return IssuedToken{}, fmt.Errorf("read nonce: %w", err)
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.Options.TTL)
	token, err := deriveToken(subjectID, origin, issuedAt, expiresAt, hex.EncodeToString(nonce))
	if err != nil {
		return IssuedToken{}, err
	}
	if err := s.Repo.Create(ctx, domain.VerificationToken{
		Token:     token,
		SubjectID: subjectID,
		Origin:    origin,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}); err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// Redeem consumes a token exactly once. The conditional update is the only write; the
// follow-up read only explains a refusal: ErrInvalidToken, then ErrAlreadyUsed, then ErrExpired.
func (s *TokenService) Redeem(ctx context.Context, token, subjectID string) (RedeemResult, error) {
	if s == nil || s.Repo == nil {
		return RedeemResult{}, errors.New("token repository required")
	}
	token = strings.TrimSpace(token)
	subjectID = strings.TrimSpace(subjectID)
	if token == "" || subjectID == "" {
		return RedeemResult{}, fmt.Errorf("%w: token and subject_id are required", domain.ErrMalformedInput)
	}

	now := s.now()
	ok, err := s.Repo.MarkUsed(ctx, token, subjectID, now)
	if err != nil {
		return RedeemResult{}, err
	}
	if ok {
		return RedeemResult{Valid: true, RedeemedAt: now}, nil
	}

	stored, err := s.Repo.Get(ctx, token, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logRejection(ctx, token, subjectID, "TOKEN_INVALID")
			return RedeemResult{}, domain.ErrInvalidToken
		}
		return RedeemResult{}, err
	}
	switch {
	case stored.Used:
		s.logRejection(ctx, token, subjectID, "TOKEN_ALREADY_USED")
		return RedeemResult{}, domain.ErrAlreadyUsed
	case !now.Before(stored.ExpiresAt):
		s.logRejection(ctx, token, subjectID, "TOKEN_EXPIRED")
		return RedeemResult{}, domain.ErrExpired
	default:
		return RedeemResult{}, domain.ErrConcurrencyConflict
	}
}

func (s *TokenService) checkOrigin(origin string) error {
	if !s.Options.StrictOrigin {
		return nil
	}
	if origin == "" {
		return fmt.Errorf("%w: origin is required", domain.ErrOriginNotAllowed)
	}
	for _, allowed := range s.Options.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/")) {
			return nil
		}
	}
	return domain.ErrOriginNotAllowed
}

func (s *TokenService) logRejection(ctx context.Context, token, subjectID, code string) {
	sideCtx := context.WithoutCancel(ctx)
	logger.From(ctx).Warn("token redemption rejected", logger.Reason(code))
	record(sideCtx, s.Audit, func(e *AuditEmitter) error {
		return e.EmitTokenReplayRejected(sideCtx, subjectID, token, code)
	})
}

// deriveToken digests the canonical issuance tuple; the digest is the bearer value.
func deriveToken(subjectID, origin string, issuedAt, expiresAt time.Time, nonce string) (string, error) {
	canonical, err := cryptoinfra.CanonicalizeAny(map[string]any{
		"subject_id": subjectID,
		"origin":     origin,
		"issued_at":  issuedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": expiresAt.UTC().Format(time.RFC3339Nano),
		"nonce":      nonce,
	})
	if err != nil {
		return "", err
	}
	return cryptoinfra.SHA256Hex(canonical), nil
}

func (s *TokenService) rand() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
