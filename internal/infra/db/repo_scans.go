package db

import (
	"context"
	"encoding/json"

	"assetguard/internal/domain"

	"gorm.io/gorm"
)

type ScanEventRepository struct {
	db *gorm.DB
}

func NewScanEventRepository(db *gorm.DB) *ScanEventRepository {
	return &ScanEventRepository{db: db}
}

func (r *ScanEventRepository) Append(ctx context.Context, event domain.ScanEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	meta := event.ObservedMeta
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	model := ScanEventModel{
		ID:                  event.ID,
		AssetID:             event.AssetID,
		ScannedAt:           event.ScannedAt.UTC(),
		ResolvedDestination: event.ResolvedDestination,
		ObservedMetaJSON:    metaJSON,
		TamperSuspected:     event.TamperSuspected,
		TamperReason:        stringPtrIfNotEmpty(event.TamperReason),
		RiskScoreAtScan:     event.RiskScoreAtScan,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ScanEventRepository) ListByAsset(ctx context.Context, assetID string) ([]domain.ScanEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ScanEventModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("scanned_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ScanEvent, 0, len(models))
	for _, m := range models {
		meta := map[string]string{}
		if len(m.ObservedMetaJSON) > 0 {
			if err := json.Unmarshal(m.ObservedMetaJSON, &meta); err != nil {
				return nil, err
			}
		}
		out = append(out, domain.ScanEvent{
			ID:                  m.ID,
			AssetID:             m.AssetID,
			ScannedAt:           m.ScannedAt.UTC(),
			ResolvedDestination: m.ResolvedDestination,
			ObservedMeta:        meta,
			TamperSuspected:     m.TamperSuspected,
			TamperReason:        stringValue(m.TamperReason),
			RiskScoreAtScan:     m.RiskScoreAtScan,
		})
	}
	return out, nil
}
