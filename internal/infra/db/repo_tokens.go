package db

import (
	"context"
	"fmt"
	"time"

	"assetguard/internal/domain"

	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := VerificationTokenModel{
		Token:     token.Token,
		SubjectID: token.SubjectID,
		Origin:    token.Origin,
		IssuedAt:  token.IssuedAt.UTC(),
		ExpiresAt: token.ExpiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if duplicateKey(err) {
			return fmt.Errorf("%w: token collision", domain.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

func (r *TokenRepository) Get(ctx context.Context, token, subjectID string) (*domain.VerificationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VerificationTokenModel
	err := r.db.WithContext(ctx).
		Where("token = ? AND subject_id = ?", token, subjectID).
		Take(&model).Error
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	out := domain.VerificationToken{
		Token:     model.Token,
		SubjectID: model.SubjectID,
		Origin:    model.Origin,
		IssuedAt:  model.IssuedAt.UTC(),
		ExpiresAt: model.ExpiresAt.UTC(),
		Used:      model.Used,
	}
	if model.UsedAt != nil {
		usedAt := model.UsedAt.UTC()
		out.UsedAt = &usedAt
	}
	return &out, nil
}

func (r *TokenRepository) MarkUsed(ctx context.Context, token, subjectID string, now time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&VerificationTokenModel{}).
		Where("token = ? AND subject_id = ? AND used = FALSE AND expires_at > ?", token, subjectID, now).
		Updates(map[string]any{"used": true, "used_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
