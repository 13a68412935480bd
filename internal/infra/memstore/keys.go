// Package memstore holds mutex-guarded in-memory repositories. They back the no-database
// mode and the tests, with the same compare-and-set semantics as the gorm repositories.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assetguard/internal/domain"
)

type KeyRepository struct {
	mu   sync.Mutex
	keys map[string]domain.SigningKey
}

func NewKeyRepository() *KeyRepository {
	return &KeyRepository{keys: make(map[string]domain.SigningKey)}
}

func (r *KeyRepository) GetByKID(ctx context.Context, kid string) (*domain.SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[kid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyKey(key)
	return &out, nil
}

func (r *KeyRepository) Create(ctx context.Context, key domain.SigningKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[key.KID]; exists {
		return fmt.Errorf("%w: kid %s already registered", domain.ErrConcurrencyConflict, key.KID)
	}
	r.keys[key.KID] = copyKey(key)
	return nil
}

func (r *KeyRepository) Revoke(ctx context.Context, kid string, at time.Time, reason string) (domain.SigningKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[kid]
	if !ok {
		return domain.SigningKey{}, false, domain.ErrNotFound
	}
	if key.RevokedAt != nil {
		return copyKey(key), false, nil
	}
	revokedAt := at.UTC()
	key.RevokedAt = &revokedAt
	key.RevocationReason = reason
	r.keys[kid] = key
	return copyKey(key), true, nil
}

func copyKey(k domain.SigningKey) domain.SigningKey {
	k.PublicKey = append([]byte(nil), k.PublicKey...)
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		k.RevokedAt = &t
	}
	return k
}
