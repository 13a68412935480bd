package usecase

import (
	"context"
	"time"

	"assetguard/internal/domain"
)

type Clock func() time.Time

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	ListByScope(ctx context.Context, scope string) ([]domain.AuditEvent, error)
}

type KeyRepository interface {
	GetByKID(ctx context.Context, kid string) (*domain.SigningKey, error)
	Create(ctx context.Context, key domain.SigningKey) error
	// Revoke sets revoked_at only when it is unset. revoked reports whether this call did it.
	Revoke(ctx context.Context, kid string, at time.Time, reason string) (key domain.SigningKey, revoked bool, err error)
}

type AssetRepository interface {
	Create(ctx context.Context, asset domain.Asset, hotspots []domain.Hotspot) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	ListHotspots(ctx context.Context, assetID string) ([]domain.Hotspot, error)
	SetRiskScore(ctx context.Context, id string, score int) error
	// TransitionStatus moves the asset to rec.To only if its status is still rec.From and
	// records rec in the same transaction. It returns ErrConcurrencyConflict otherwise.
	TransitionStatus(ctx context.Context, rec domain.StatusTransition) error
	// Finalize writes the hash log entry and flips active -> finalized atomically.
	Finalize(ctx context.Context, entry domain.HashLogEntry, rec domain.StatusTransition) error
	ListTransitions(ctx context.Context, assetID string) ([]domain.StatusTransition, error)
	ListHashLog(ctx context.Context, assetID string) ([]domain.HashLogEntry, error)
}

type TraceRepository interface {
	// Register returns the existing trace when (owner, hash, signature) is already present.
	Register(ctx context.Context, trace domain.AssetTrace) (domain.AssetTrace, error)
	Lookup(ctx context.Context, assetHash, signature string) (*domain.AssetTrace, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	Get(ctx context.Context, token, subjectID string) (*domain.VerificationToken, error)
	// MarkUsed flips used for an unused, unexpired token bound to subjectID in one
	// conditional update. ok is false when no row matched.
	MarkUsed(ctx context.Context, token, subjectID string, now time.Time) (ok bool, err error)
}

type ScanEventRepository interface {
	Append(ctx context.Context, event domain.ScanEvent) error
	ListByAsset(ctx context.Context, assetID string) ([]domain.ScanEvent, error)
}

type VerdictPolicy interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type RiskCache interface {
	Get(key string) (domain.RiskSignal, bool)
	Set(key string, signal domain.RiskSignal)
}
