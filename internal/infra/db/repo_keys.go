package db

import (
	"context"
	"fmt"
	"time"

	"assetguard/internal/domain"

	"gorm.io/gorm"
)

type SigningKeyRepository struct {
	db *gorm.DB
}

func NewSigningKeyRepository(db *gorm.DB) *SigningKeyRepository {
	return &SigningKeyRepository{db: db}
}

func (r *SigningKeyRepository) GetByKID(ctx context.Context, kid string) (*domain.SigningKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SigningKeyModel
	if err := r.db.WithContext(ctx).Where("kid = ?", kid).Take(&model).Error; err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	key := signingKeyFromModel(model)
	return &key, nil
}

func (r *SigningKeyRepository) Create(ctx context.Context, key domain.SigningKey) error {
	if r.db == nil {
		return errDBUnavailable
	}
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := SigningKeyModel{
		KID:              key.KID,
		Alg:              key.Alg,
		PublicKey:        copyBytes(key.PublicKey),
		RevokedAt:        key.RevokedAt,
		RevocationReason: stringPtrIfNotEmpty(key.RevocationReason),
		CreatedAt:        createdAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if duplicateKey(err) {
			return fmt.Errorf("%w: kid %s already registered", domain.ErrConcurrencyConflict, key.KID)
		}
		return err
	}
	return nil
}

func (r *SigningKeyRepository) Revoke(ctx context.Context, kid string, at time.Time, reason string) (domain.SigningKey, bool, error) {
	if r.db == nil {
		return domain.SigningKey{}, false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&SigningKeyModel{}).
		Where("kid = ? AND revoked_at IS NULL", kid).
		Updates(map[string]any{
			"revoked_at":        at.UTC(),
			"revocation_reason": stringPtrIfNotEmpty(reason),
		})
	if res.Error != nil {
		return domain.SigningKey{}, false, res.Error
	}
	key, err := r.GetByKID(ctx, kid)
	if err != nil {
		return domain.SigningKey{}, false, err
	}
	return *key, res.RowsAffected == 1, nil
}

func signingKeyFromModel(model SigningKeyModel) domain.SigningKey {
	key := domain.SigningKey{
		KID:              model.KID,
		Alg:              model.Alg,
		PublicKey:        copyBytes(model.PublicKey),
		RevocationReason: stringValue(model.RevocationReason),
		CreatedAt:        model.CreatedAt.UTC(),
	}
	if model.RevokedAt != nil {
		revokedAt := model.RevokedAt.UTC()
		key.RevokedAt = &revokedAt
	}
	return key
}
