package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"
	"assetguard/internal/observability/logger"
)

// KeyRegistry owns signing keys and their one-way revocation.
type KeyRegistry struct {
	Repo  KeyRepository
	Audit *AuditEmitter
	Clock Clock
}

func NewKeyRegistry(repo KeyRepository, audit *AuditEmitter, clock Clock) *KeyRegistry {
	return &KeyRegistry{Repo: repo, Audit: audit, Clock: clock}
}

// Lookup returns ErrKeyNotFound for unknown kids so callers can tell it apart from a bad signature.
func (r *KeyRegistry) Lookup(ctx context.Context, kid string) (domain.SigningKey, error) {
	if r == nil || r.Repo == nil {
		return domain.SigningKey{}, errors.New("key repository required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return domain.SigningKey{}, fmt.Errorf("%w: kid is required", domain.ErrMalformedInput)
	}
	key, err := r.Repo.GetByKID(ctx, kid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SigningKey{}, domain.ErrKeyNotFound
		}
		return domain.SigningKey{}, err
	}
	return *key, nil
}

func (r *KeyRegistry) Register(ctx context.Context, kid, publicKeyWire, actor string) (domain.SigningKey, error) {
	if r == nil || r.Repo == nil {
		return domain.SigningKey{}, errors.New("key repository required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return domain.SigningKey{}, fmt.Errorf("%w: kid is required", domain.ErrMalformedInput)
	}
	raw, err := cryptoinfra.DecodeWire(publicKeyWire)
	if err != nil {
		return domain.SigningKey{}, err
	}
	if _, err := cryptoinfra.ParsePublicKey(raw); err != nil {
		return domain.SigningKey{}, err
	}
	key := domain.SigningKey{
		KID:       kid,
		Alg:       domain.KeyAlgEd25519,
		PublicKey: raw,
		CreatedAt: r.now(),
	}
	if err := r.Repo.Create(ctx, key); err != nil {
		return domain.SigningKey{}, err
	}
	record(ctx, r.Audit, func(e *AuditEmitter) error {
		return e.EmitKeyRegistered(ctx, domain.AuditActorAdminAPIKey, actor, kid)
	})
	return key, nil
}

// Revoke is idempotent: revoking an already revoked key keeps the first timestamp.
func (r *KeyRegistry) Revoke(ctx context.Context, kid, reason, actor string) (domain.SigningKey, error) {
	if r == nil || r.Repo == nil {
		return domain.SigningKey{}, errors.New("key repository required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return domain.SigningKey{}, fmt.Errorf("%w: kid is required", domain.ErrMalformedInput)
	}
	key, revoked, err := r.Repo.Revoke(ctx, kid, r.now(), reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SigningKey{}, domain.ErrKeyNotFound
		}
		return domain.SigningKey{}, err
	}
	if revoked {
		logger.From(ctx).Info("signing key revoked", logger.KID(kid), logger.Reason(reason))
		record(context.WithoutCancel(ctx), r.Audit, func(e *AuditEmitter) error {
			return e.EmitKeyRevoked(context.WithoutCancel(ctx), domain.AuditActorAdminAPIKey, actor, kid, reason)
		})
	}
	return key, nil
}

func (r *KeyRegistry) now() time.Time {
	if r.Clock != nil {
		return r.Clock().UTC()
	}
	return time.Now().UTC()
}
