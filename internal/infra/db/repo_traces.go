package db

import (
	"context"

	"assetguard/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TraceRepository struct {
	db *gorm.DB
}

func NewTraceRepository(db *gorm.DB) *TraceRepository {
	return &TraceRepository{db: db}
}

func (r *TraceRepository) Register(ctx context.Context, trace domain.AssetTrace) (domain.AssetTrace, error) {
	if r.db == nil {
		return domain.AssetTrace{}, errDBUnavailable
	}
	model := AssetTraceModel{
		TraceID:      trace.TraceID,
		AssetHash:    trace.AssetHash,
		Signature:    trace.Signature,
		OwnerRef:     trace.OwnerRef,
		RegisteredAt: trace.RegisteredAt.UTC(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_ref"}, {Name: "asset_hash"}, {Name: "signature"}},
			DoNothing: true,
		}).
		Create(&model)
	if res.Error != nil {
		return domain.AssetTrace{}, res.Error
	}
	if res.RowsAffected == 1 {
		return traceFromModel(model), nil
	}
	var existing AssetTraceModel
	if err := r.db.WithContext(ctx).
		Where("owner_ref = ? AND asset_hash = ? AND signature = ?", trace.OwnerRef, trace.AssetHash, trace.Signature).
		Take(&existing).Error; err != nil {
		return domain.AssetTrace{}, err
	}
	return traceFromModel(existing), nil
}

func (r *TraceRepository) Lookup(ctx context.Context, assetHash, signature string) (*domain.AssetTrace, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AssetTraceModel
	err := r.db.WithContext(ctx).
		Where("asset_hash = ? AND signature = ?", assetHash, signature).
		Order("registered_at ASC").
		First(&model).Error
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	trace := traceFromModel(model)
	return &trace, nil
}

func traceFromModel(m AssetTraceModel) domain.AssetTrace {
	return domain.AssetTrace{
		TraceID:      m.TraceID,
		AssetHash:    m.AssetHash,
		Signature:    m.Signature,
		OwnerRef:     m.OwnerRef,
		RegisteredAt: m.RegisteredAt.UTC(),
	}
}
