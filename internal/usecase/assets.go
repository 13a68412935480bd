package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/observability/logger"

	"github.com/google/uuid"
)

type CreateAssetInput struct {
	Kind          domain.AssetKind
	OwnerRef      string
	Payload       string
	DynamicTarget string
	FileRef       string
	Stego         *domain.StegoConfig
	Hotspots      []domain.Hotspot
}

// AssetService drives the draft -> active -> {revoked, finalized} lifecycle. Every
// transition is recorded with its cause and actor.
type AssetService struct {
	Assets AssetRepository
	Risk   *RiskScorer
	Audit  *AuditEmitter
	Clock  Clock
}

func NewAssetService(assets AssetRepository, risk *RiskScorer, audit *AuditEmitter, clock Clock) *AssetService {
	return &AssetService{Assets: assets, Risk: risk, Audit: audit, Clock: clock}
}

func (s *AssetService) Create(ctx context.Context, in CreateAssetInput) (domain.Asset, error) {
	if s == nil || s.Assets == nil {
		return domain.Asset{}, errors.New("asset repository required")
	}
	if !in.Kind.Valid() {
		return domain.Asset{}, fmt.Errorf("%w: unknown asset kind %q", domain.ErrMalformedInput, in.Kind)
	}
	if strings.TrimSpace(in.OwnerRef) == "" {
		return domain.Asset{}, fmt.Errorf("%w: owner_ref is required", domain.ErrMalformedInput)
	}
	switch in.Kind {
	case domain.AssetKindInteractiveImage:
		if strings.TrimSpace(in.FileRef) == "" {
			return domain.Asset{}, fmt.Errorf("%w: file_ref is required for interactive images", domain.ErrMalformedInput)
		}
	default:
		if strings.TrimSpace(in.Payload) == "" {
			return domain.Asset{}, fmt.Errorf("%w: payload is required", domain.ErrMalformedInput)
		}
		if len(in.Hotspots) > 0 {
			return domain.Asset{}, fmt.Errorf("%w: hotspots are only valid on interactive images", domain.ErrMalformedInput)
		}
	}
	if in.Stego != nil && strings.TrimSpace(in.Stego.Method) == "" {
		return domain.Asset{}, fmt.Errorf("%w: stego method is required", domain.ErrMalformedInput)
	}

	now := s.now()
	asset := domain.Asset{
		ID:            uuid.NewString(),
		Kind:          in.Kind,
		OwnerRef:      strings.TrimSpace(in.OwnerRef),
		Payload:       strings.TrimSpace(in.Payload),
		DynamicTarget: strings.TrimSpace(in.DynamicTarget),
		FileRef:       strings.TrimSpace(in.FileRef),
		Status:        domain.AssetStatusDraft,
		Stego:         in.Stego,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	hotspots := make([]domain.Hotspot, 0, len(in.Hotspots))
	for _, h := range in.Hotspots {
		h.ID = uuid.NewString()
		h.AssetID = asset.ID
		hotspots = append(hotspots, h)
	}
	if err := s.Assets.Create(ctx, asset, hotspots); err != nil {
		return domain.Asset{}, err
	}
	return asset, nil
}

func (s *AssetService) Get(ctx context.Context, id string) (domain.Asset, []domain.Hotspot, error) {
	asset, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, nil, err
	}
	hotspots, err := s.Assets.ListHotspots(ctx, id)
	if err != nil {
		return domain.Asset{}, nil, err
	}
	return *asset, hotspots, nil
}

// Publish activates a draft. Codes are risk-scored first; an unscorable payload stays draft.
func (s *AssetService) Publish(ctx context.Context, id, actor string) (domain.Asset, error) {
	asset, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, err
	}
	if !domain.CanTransition(asset.Status, domain.AssetStatusActive) {
		return domain.Asset{}, fmt.Errorf("%w: cannot publish %s asset", domain.ErrInvalidTransition, asset.Status)
	}
	if s.Risk != nil && asset.Kind != domain.AssetKindInteractiveImage {
		payload := asset.ExpectedDestination()
		assessment, err := s.Risk.Score(ctx, payload, payloadTypeOf(payload))
		if err != nil {
			return domain.Asset{}, err
		}
		if err := s.Assets.SetRiskScore(ctx, asset.ID, assessment.Score); err != nil {
			return domain.Asset{}, err
		}
		asset.RiskScore = &assessment.Score
	}
	if err := s.transition(ctx, *asset, domain.AssetStatusActive, "publish", actor, domain.AuditActorSubject); err != nil {
		return domain.Asset{}, err
	}
	asset.Status = domain.AssetStatusActive
	return *asset, nil
}

// Revoke is the administrative path to revoked. Revoking a revoked asset is a no-op.
func (s *AssetService) Revoke(ctx context.Context, id, reason, actor string) (domain.Asset, error) {
	asset, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, err
	}
	if asset.Status == domain.AssetStatusRevoked {
		return *asset, nil
	}
	if !domain.CanTransition(asset.Status, domain.AssetStatusRevoked) {
		return domain.Asset{}, fmt.Errorf("%w: cannot revoke %s asset", domain.ErrInvalidTransition, asset.Status)
	}
	cause := "admin"
	if reason = strings.TrimSpace(reason); reason != "" {
		cause = "admin: " + reason
	}
	err = s.transition(context.WithoutCancel(ctx), *asset, domain.AssetStatusRevoked, cause, actor, domain.AuditActorAdminAPIKey)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		current, gerr := s.Assets.GetByID(ctx, id)
		if gerr == nil && current.Status == domain.AssetStatusRevoked {
			return *current, nil
		}
	}
	if err != nil {
		return domain.Asset{}, err
	}
	asset.Status = domain.AssetStatusRevoked
	return *asset, nil
}

func (s *AssetService) Transitions(ctx context.Context, id string) ([]domain.StatusTransition, error) {
	if _, err := s.Assets.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Assets.ListTransitions(ctx, id)
}

func (s *AssetService) HashLog(ctx context.Context, id string) ([]domain.HashLogEntry, error) {
	if _, err := s.Assets.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Assets.ListHashLog(ctx, id)
}

func (s *AssetService) transition(ctx context.Context, asset domain.Asset, to domain.AssetStatus, cause, actor string, actorType domain.AuditActorType) error {
	rec := domain.StatusTransition{
		ID:      uuid.NewString(),
		AssetID: asset.ID,
		From:    asset.Status,
		To:      to,
		Cause:   cause,
		Actor:   actor,
		At:      s.now(),
	}
	if err := s.Assets.TransitionStatus(ctx, rec); err != nil {
		return err
	}
	logger.From(ctx).Info("asset status changed", logger.AssetID(asset.ID), logger.Reason(cause))
	record(ctx, s.Audit, func(e *AuditEmitter) error {
		return e.EmitStatusChanged(ctx, actorType, scopeFor(asset.OwnerRef), rec)
	})
	return nil
}

func (s *AssetService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
