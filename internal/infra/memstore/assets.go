package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"assetguard/internal/domain"
)

// AssetRepository keeps assets with their hotspots, transitions and hash log under one
// lock so that status flips and their records commit together.
type AssetRepository struct {
	mu          sync.Mutex
	assets      map[string]domain.Asset
	hotspots    map[string][]domain.Hotspot
	transitions map[string][]domain.StatusTransition
	hashLog     map[string][]domain.HashLogEntry
}

func NewAssetRepository() *AssetRepository {
	return &AssetRepository{
		assets:      make(map[string]domain.Asset),
		hotspots:    make(map[string][]domain.Hotspot),
		transitions: make(map[string][]domain.StatusTransition),
		hashLog:     make(map[string][]domain.HashLogEntry),
	}
}

func (r *AssetRepository) Create(ctx context.Context, asset domain.Asset, hotspots []domain.Hotspot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assets[asset.ID]; exists {
		return fmt.Errorf("%w: asset %s exists", domain.ErrConcurrencyConflict, asset.ID)
	}
	r.assets[asset.ID] = copyAsset(asset)
	r.hotspots[asset.ID] = append([]domain.Hotspot(nil), hotspots...)
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyAsset(asset)
	return &out, nil
}

func (r *AssetRepository) ListHotspots(ctx context.Context, assetID string) ([]domain.Hotspot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[assetID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.Hotspot(nil), r.hotspots[assetID]...), nil
}

func (r *AssetRepository) SetRiskScore(ctx context.Context, id string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return domain.ErrNotFound
	}
	asset.RiskScore = &score
	r.assets[id] = asset
	return nil
}

func (r *AssetRepository) TransitionStatus(ctx context.Context, rec domain.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.casLocked(rec); err != nil {
		return err
	}
	r.transitions[rec.AssetID] = append(r.transitions[rec.AssetID], rec)
	return nil
}

func (r *AssetRepository) Finalize(ctx context.Context, entry domain.HashLogEntry, rec domain.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.From != domain.AssetStatusActive || rec.To != domain.AssetStatusFinalized || rec.AssetID != entry.AssetID {
		return fmt.Errorf("%w: finalize requires active -> finalized", domain.ErrInvalidTransition)
	}
	if err := r.casLocked(rec); err != nil {
		return err
	}
	entry.ContentSnapshot = append([]byte(nil), entry.ContentSnapshot...)
	r.hashLog[entry.AssetID] = append(r.hashLog[entry.AssetID], entry)
	r.transitions[rec.AssetID] = append(r.transitions[rec.AssetID], rec)
	return nil
}

func (r *AssetRepository) casLocked(rec domain.StatusTransition) error {
	asset, ok := r.assets[rec.AssetID]
	if !ok {
		return domain.ErrNotFound
	}
	if asset.Status != rec.From {
		return fmt.Errorf("%w: asset %s is %s, expected %s", domain.ErrConcurrencyConflict, rec.AssetID, asset.Status, rec.From)
	}
	if !domain.CanTransition(rec.From, rec.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rec.From, rec.To)
	}
	asset.Status = rec.To
	asset.UpdatedAt = rec.At
	r.assets[rec.AssetID] = asset
	return nil
}

func (r *AssetRepository) ListTransitions(ctx context.Context, assetID string) ([]domain.StatusTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.StatusTransition(nil), r.transitions[assetID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (r *AssetRepository) ListHashLog(ctx context.Context, assetID string) ([]domain.HashLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.HashLogEntry(nil), r.hashLog[assetID]...), nil
}

func copyAsset(a domain.Asset) domain.Asset {
	if a.RiskScore != nil {
		v := *a.RiskScore
		a.RiskScore = &v
	}
	if a.Stego != nil {
		s := *a.Stego
		a.Stego = &s
	}
	return a
}
