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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FinalizeResult struct {
	LogID       string
	ContentHash string
	FileHash    string
	CreatedAt   time.Time
}

// Finalizer hashes an asset's file and hotspots and commits the snapshot once.
// A second finalize is rejected with ErrAlreadyFinalized and leaves the first entry untouched.
type Finalizer struct {
	Assets  AssetRepository
	Fetcher domain.ContentFetcher
	Audit   *AuditEmitter
	Clock   Clock
}

func NewFinalizer(assets AssetRepository, fetcher domain.ContentFetcher, audit *AuditEmitter, clock Clock) *Finalizer {
	return &Finalizer{Assets: assets, Fetcher: fetcher, Audit: audit, Clock: clock}
}

func (f *Finalizer) Finalize(ctx context.Context, assetID, actor string) (FinalizeResult, error) {
	if f == nil || f.Assets == nil || f.Fetcher == nil {
		return FinalizeResult{}, errors.New("finalizer not configured")
	}
	asset, err := f.Assets.GetByID(ctx, assetID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if err := finalizePrecondition(asset.Status); err != nil {
		return FinalizeResult{}, err
	}
	if strings.TrimSpace(asset.FileRef) == "" {
		return FinalizeResult{}, fmt.Errorf("%w: asset has no file reference", domain.ErrMalformedInput)
	}

	content, err := f.Fetcher.Fetch(ctx, asset.FileRef)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("%w: %v", domain.ErrUpstreamFetchFailed, err)
	}
	fileHash := cryptoinfra.FileHash(content)

	hotspots, err := f.Assets.ListHotspots(ctx, asset.ID)
	if err != nil {
		return FinalizeResult{}, err
	}
	canonical, err := cryptoinfra.CanonicalizeHotspots(hotspots)
	if err != nil {
		return FinalizeResult{}, err
	}
	contentHash, err := cryptoinfra.ContentHash(canonical)
	if err != nil {
		return FinalizeResult{}, err
	}

	now := f.now()
	entry := domain.HashLogEntry{
		LogID:           uuid.NewString(),
		AssetID:         asset.ID,
		ContentHash:     contentHash,
		FileHash:        fileHash,
		ContentSnapshot: canonical,
		CreatedAt:       now,
	}
	rec := domain.StatusTransition{
		ID:      uuid.NewString(),
		AssetID: asset.ID,
		From:    domain.AssetStatusActive,
		To:      domain.AssetStatusFinalized,
		Cause:   "finalize content_hash=" + contentHash,
		Actor:   actor,
		At:      now,
	}
	if err := f.Assets.Finalize(ctx, entry, rec); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return FinalizeResult{}, f.classifyLostRace(ctx, asset.ID, err)
		}
		return FinalizeResult{}, err
	}

	logger.From(ctx).Info("asset finalized",
		logger.AssetID(asset.ID),
		zap.String("content_hash", contentHash),
		zap.String("file_hash", fileHash),
	)
	sideCtx := context.WithoutCancel(ctx)
	record(sideCtx, f.Audit, func(e *AuditEmitter) error {
		return e.EmitAssetFinalized(sideCtx, actor, scopeFor(asset.OwnerRef), entry)
	})
	return FinalizeResult{
		LogID:       entry.LogID,
		ContentHash: entry.ContentHash,
		FileHash:    entry.FileHash,
		CreatedAt:   entry.CreatedAt,
	}, nil
}

func finalizePrecondition(status domain.AssetStatus) error {
	switch status {
	case domain.AssetStatusFinalized:
		return domain.ErrAlreadyFinalized
	case domain.AssetStatusActive:
		return nil
	default:
		return fmt.Errorf("%w: cannot finalize %s asset", domain.ErrInvalidTransition, status)
	}
}

// classifyLostRace reports why the status precondition failed at commit time.
func (f *Finalizer) classifyLostRace(ctx context.Context, assetID string, cause error) error {
	current, err := f.Assets.GetByID(ctx, assetID)
	if err != nil {
		return cause
	}
	if perr := finalizePrecondition(current.Status); perr != nil {
		return perr
	}
	return cause
}

func (f *Finalizer) now() time.Time {
	if f.Clock != nil {
		return f.Clock().UTC()
	}
	return time.Now().UTC()
}
