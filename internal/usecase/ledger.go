package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"

	"github.com/google/uuid"
)

// Ledger is the append-only public record of registered (hash, signature) pairs.
type Ledger struct {
	Repo  TraceRepository
	Clock Clock
}

func NewLedger(repo TraceRepository, clock Clock) *Ledger {
	return &Ledger{Repo: repo, Clock: clock}
}

// Register is idempotent per (owner, hash, signature): a repeat returns the original trace.
func (l *Ledger) Register(ctx context.Context, assetHash, signature, ownerRef string) (domain.AssetTrace, error) {
	if l == nil || l.Repo == nil {
		return domain.AssetTrace{}, errors.New("trace repository required")
	}
	assetHash = strings.TrimSpace(assetHash)
	ownerRef = strings.TrimSpace(ownerRef)
	if assetHash == "" || ownerRef == "" {
		return domain.AssetTrace{}, fmt.Errorf("%w: asset_hash and owner_ref are required", domain.ErrMalformedInput)
	}
	signature, err := cryptoinfra.CanonicalWire(signature)
	if err != nil {
		return domain.AssetTrace{}, err
	}
	now := time.Now().UTC()
	if l.Clock != nil {
		now = l.Clock().UTC()
	}
	return l.Repo.Register(ctx, domain.AssetTrace{
		TraceID:      uuid.NewString(),
		AssetHash:    assetHash,
		Signature:    signature,
		OwnerRef:     ownerRef,
		RegisteredAt: now,
	})
}

// Lookup returns nil without error when no trace matches.
func (l *Ledger) Lookup(ctx context.Context, assetHash, signature string) (*domain.AssetTrace, error) {
	if l == nil || l.Repo == nil {
		return nil, errors.New("trace repository required")
	}
	assetHash = strings.TrimSpace(assetHash)
	if assetHash == "" || strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: asset_hash and signature are required", domain.ErrMalformedInput)
	}
	signature, err := cryptoinfra.CanonicalWire(signature)
	if err != nil {
		return nil, err
	}
	trace, err := l.Repo.Lookup(ctx, assetHash, signature)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return trace, nil
}
