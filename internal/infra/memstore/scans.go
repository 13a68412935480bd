package memstore

import (
	"context"
	"sync"

	"assetguard/internal/domain"
)

type ScanEventRepository struct {
	mu     sync.Mutex
	events []domain.ScanEvent
}

func NewScanEventRepository() *ScanEventRepository {
	return &ScanEventRepository{}
}

func (r *ScanEventRepository) Append(ctx context.Context, event domain.ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *ScanEventRepository) ListByAsset(ctx context.Context, assetID string) ([]domain.ScanEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScanEvent
	for _, ev := range r.events {
		if ev.AssetID == assetID {
			out = append(out, ev)
		}
	}
	return out, nil
}
