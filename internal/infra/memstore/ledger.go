package memstore

import (
	"context"
	"sync"

	"assetguard/internal/domain"
)

type TraceRepository struct {
	mu     sync.Mutex
	traces []domain.AssetTrace
}

func NewTraceRepository() *TraceRepository {
	return &TraceRepository{}
}

func (r *TraceRepository) Register(ctx context.Context, trace domain.AssetTrace) (domain.AssetTrace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.traces {
		if existing.OwnerRef == trace.OwnerRef && existing.AssetHash == trace.AssetHash && existing.Signature == trace.Signature {
			return existing, nil
		}
	}
	r.traces = append(r.traces, trace)
	return trace, nil
}

func (r *TraceRepository) Lookup(ctx context.Context, assetHash, signature string) (*domain.AssetTrace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.traces {
		if existing.AssetHash == assetHash && existing.Signature == signature {
			out := existing
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}
