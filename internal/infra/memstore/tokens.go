package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assetguard/internal/domain"
)

type TokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.VerificationToken
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]domain.VerificationToken)}
}

func (r *TokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[token.Token]; exists {
		return fmt.Errorf("%w: token collision", domain.ErrConcurrencyConflict)
	}
	token.UsedAt = nil
	token.Used = false
	r.tokens[token.Token] = token
	return nil
}

func (r *TokenRepository) Get(ctx context.Context, token, subjectID string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok || stored.SubjectID != subjectID {
		return nil, domain.ErrNotFound
	}
	if stored.UsedAt != nil {
		t := *stored.UsedAt
		stored.UsedAt = &t
	}
	return &stored, nil
}

func (r *TokenRepository) MarkUsed(ctx context.Context, token, subjectID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok || stored.SubjectID != subjectID || stored.Used || !now.Before(stored.ExpiresAt) {
		return false, nil
	}
	usedAt := now.UTC()
	stored.Used = true
	stored.UsedAt = &usedAt
	r.tokens[token] = stored
	return true, nil
}
