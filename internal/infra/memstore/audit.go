package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"
	"assetguard/internal/usecase"

	"github.com/google/uuid"
)

// AuditEventRepository chains events per scope exactly like the database repository.
type AuditEventRepository struct {
	mu     sync.Mutex
	scopes map[string][]domain.AuditEvent
}

func NewAuditEventRepository() *AuditEventRepository {
	return &AuditEventRepository{scopes: make(map[string][]domain.AuditEvent)}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Scope == "" {
		event.Scope = domain.AuditSystemScope
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.CreatedAt = event.CreatedAt.UTC().Truncate(time.Microsecond)
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	canonical, err := cryptoinfra.CanonicalizeAny(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.Payload = canonical
	event.PayloadHash = cryptoinfra.SHA256Hex(canonical)

	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.scopes[event.Scope]
	event.Seq = int64(len(chain)) + 1
	event.PrevEventHash = usecase.ZeroAuditHash
	if len(chain) > 0 {
		event.PrevEventHash = chain[len(chain)-1].EventHash
	}
	hash, err := usecase.ChainEventHash(event)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.EventHash = hash
	r.scopes[event.Scope] = append(chain, event)
	return event, nil
}

func (r *AuditEventRepository) ListByScope(ctx context.Context, scope string) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.scopes[scope]...), nil
}
