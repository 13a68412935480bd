package db

import (
	"context"
	"fmt"

	"assetguard/internal/domain"

	"gorm.io/gorm"
)

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset domain.Asset, hotspots []domain.Hotspot) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := assetModelFromDomain(asset)
		if err := tx.Create(&model).Error; err != nil {
			if duplicateKey(err) {
				return fmt.Errorf("%w: asset %s exists", domain.ErrConcurrencyConflict, asset.ID)
			}
			return err
		}
		if len(hotspots) == 0 {
			return nil
		}
		models := make([]HotspotModel, 0, len(hotspots))
		for _, h := range hotspots {
			models = append(models, HotspotModel{
				ID:          h.ID,
				AssetID:     asset.ID,
				X:           h.X,
				Y:           h.Y,
				Width:       h.Width,
				Height:      h.Height,
				Label:       h.Label,
				Description: h.Description,
				ActionType:  h.ActionType,
				ActionValue: h.ActionValue,
			})
		}
		return tx.Create(&models).Error
	})
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AssetModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	asset := assetFromModel(model)
	return &asset, nil
}

func (r *AssetRepository) ListHotspots(ctx context.Context, assetID string) ([]domain.Hotspot, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if _, err := r.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	var models []HotspotModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Hotspot, 0, len(models))
	for _, m := range models {
		out = append(out, domain.Hotspot{
			ID:          m.ID,
			AssetID:     m.AssetID,
			X:           m.X,
			Y:           m.Y,
			Width:       m.Width,
			Height:      m.Height,
			Label:       m.Label,
			Description: m.Description,
			ActionType:  m.ActionType,
			ActionValue: m.ActionValue,
		})
	}
	return out, nil
}

func (r *AssetRepository) SetRiskScore(ctx context.Context, id string, score int) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&AssetModel{}).
		Where("id = ?", id).
		Update("risk_score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AssetRepository) TransitionStatus(ctx context.Context, rec domain.StatusTransition) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if !domain.CanTransition(rec.From, rec.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rec.From, rec.To)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casStatus(tx, rec); err != nil {
			return err
		}
		return tx.Create(transitionModelFromDomain(rec)).Error
	})
}

func (r *AssetRepository) Finalize(ctx context.Context, entry domain.HashLogEntry, rec domain.StatusTransition) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if rec.From != domain.AssetStatusActive || rec.To != domain.AssetStatusFinalized || rec.AssetID != entry.AssetID {
		return fmt.Errorf("%w: finalize requires active -> finalized", domain.ErrInvalidTransition)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casStatus(tx, rec); err != nil {
			return err
		}
		logModel := HashLogModel{
			LogID:           entry.LogID,
			AssetID:         entry.AssetID,
			ContentHash:     entry.ContentHash,
			FileHash:        entry.FileHash,
			ContentSnapshot: copyBytes(entry.ContentSnapshot),
			CreatedAt:       entry.CreatedAt.UTC(),
		}
		if err := tx.Create(&logModel).Error; err != nil {
			return err
		}
		return tx.Create(transitionModelFromDomain(rec)).Error
	})
}

// casStatus flips the status only while it still equals rec.From.
func casStatus(tx *gorm.DB, rec domain.StatusTransition) error {
	res := tx.Model(&AssetModel{}).
		Where("id = ? AND status = ?", rec.AssetID, string(rec.From)).
		Updates(map[string]any{
			"status":     string(rec.To),
			"updated_at": rec.At.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := tx.Model(&AssetModel{}).Where("id = ?", rec.AssetID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: asset %s is no longer %s", domain.ErrConcurrencyConflict, rec.AssetID, rec.From)
}

func (r *AssetRepository) ListTransitions(ctx context.Context, assetID string) ([]domain.StatusTransition, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []StatusTransitionModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StatusTransition, 0, len(models))
	for _, m := range models {
		out = append(out, domain.StatusTransition{
			ID:      m.ID,
			AssetID: m.AssetID,
			From:    domain.AssetStatus(m.FromStatus),
			To:      domain.AssetStatus(m.ToStatus),
			Cause:   m.Cause,
			Actor:   m.Actor,
			At:      m.At.UTC(),
		})
	}
	return out, nil
}

func (r *AssetRepository) ListHashLog(ctx context.Context, assetID string) ([]domain.HashLogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []HashLogModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.HashLogEntry, 0, len(models))
	for _, m := range models {
		out = append(out, domain.HashLogEntry{
			LogID:           m.LogID,
			AssetID:         m.AssetID,
			ContentHash:     m.ContentHash,
			FileHash:        m.FileHash,
			ContentSnapshot: copyBytes(m.ContentSnapshot),
			CreatedAt:       m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func transitionModelFromDomain(rec domain.StatusTransition) *StatusTransitionModel {
	return &StatusTransitionModel{
		ID:         rec.ID,
		AssetID:    rec.AssetID,
		FromStatus: string(rec.From),
		ToStatus:   string(rec.To),
		Cause:      rec.Cause,
		Actor:      rec.Actor,
		At:         rec.At.UTC(),
	}
}

func assetModelFromDomain(a domain.Asset) AssetModel {
	model := AssetModel{
		ID:            a.ID,
		Kind:          string(a.Kind),
		OwnerRef:      a.OwnerRef,
		Payload:       a.Payload,
		DynamicTarget: stringPtrIfNotEmpty(a.DynamicTarget),
		FileRef:       stringPtrIfNotEmpty(a.FileRef),
		Status:        string(a.Status),
		RiskScore:     a.RiskScore,
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
	if a.Stego != nil {
		model.StegoMethod = stringPtrIfNotEmpty(a.Stego.Method)
		model.StegoExtractionKey = stringPtrIfNotEmpty(a.Stego.ExtractionKey)
	}
	return model
}

func assetFromModel(m AssetModel) domain.Asset {
	asset := domain.Asset{
		ID:            m.ID,
		Kind:          domain.AssetKind(m.Kind),
		OwnerRef:      m.OwnerRef,
		Payload:       m.Payload,
		DynamicTarget: stringValue(m.DynamicTarget),
		FileRef:       stringValue(m.FileRef),
		Status:        domain.AssetStatus(m.Status),
		RiskScore:     m.RiskScore,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
	if m.StegoMethod != nil {
		asset.Stego = &domain.StegoConfig{
			Method:        *m.StegoMethod,
			ExtractionKey: stringValue(m.StegoExtractionKey),
		}
	}
	return asset
}
