package usecase

import (
	"context"
	"errors"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/observability/logger"

	"go.uber.org/zap"
)

type AuditEmitter struct {
	Repo  AuditEventRepository
	Clock Clock
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{
		Repo:  repo,
		Clock: clock,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.TargetType == "" || event.Result == "" || event.ActorType == "" {
		return domain.AuditEvent{}, errors.New("audit event missing required fields")
	}
	if event.Scope == "" {
		event.Scope = domain.AuditSystemScope
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

func (e *AuditEmitter) EmitKeyRegistered(ctx context.Context, actorType domain.AuditActorType, actorID, kid string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ActorType:   actorType,
		ActorIDHash: hashString(actorID),
		EventType:   domain.AuditEventKeyRegistered,
		Payload:     map[string]any{"kid": kid},
		TargetType:  domain.AuditTargetKey,
		TargetID:    kid,
		Result:      domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitKeyRevoked(ctx context.Context, actorType domain.AuditActorType, actorID, kid, reason string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ActorType:   actorType,
		ActorIDHash: hashString(actorID),
		EventType:   domain.AuditEventKeyRevoked,
		Payload:     map[string]any{"kid": kid, "reason": reason},
		TargetType:  domain.AuditTargetKey,
		TargetID:    kid,
		Result:      domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitStatusChanged(ctx context.Context, actorType domain.AuditActorType, scope string, rec domain.StatusTransition) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		Scope:       scope,
		ActorType:   actorType,
		ActorIDHash: hashString(rec.Actor),
		EventType:   domain.AuditEventAssetStatusChanged,
		Payload: map[string]any{
			"asset_id": rec.AssetID,
			"from":     string(rec.From),
			"to":       string(rec.To),
			"cause":    rec.Cause,
		},
		TargetType: domain.AuditTargetAsset,
		TargetID:   rec.AssetID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitTamperFlagged(ctx context.Context, scope, assetID, observed, reason string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		Scope:     scope,
		ActorType: domain.AuditActorScanner,
		EventType: domain.AuditEventTamperFlagged,
		Payload: map[string]any{
			"asset_id": assetID,
			"observed": observed,
			"reason":   reason,
		},
		TargetType: domain.AuditTargetAsset,
		TargetID:   assetID,
		Result:     domain.AuditResultFailure,
		ErrorCode:  "TAMPER_SUSPECTED",
	})
	return err
}

func (e *AuditEmitter) EmitAssetFinalized(ctx context.Context, actorID, scope string, entry domain.HashLogEntry) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		Scope:       scope,
		ActorType:   domain.AuditActorSubject,
		ActorIDHash: hashString(actorID),
		EventType:   domain.AuditEventAssetFinalized,
		Payload: map[string]any{
			"asset_id":     entry.AssetID,
			"log_id":       entry.LogID,
			"content_hash": entry.ContentHash,
			"file_hash":    entry.FileHash,
		},
		TargetType: domain.AuditTargetAsset,
		TargetID:   entry.AssetID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitTokenReplayRejected(ctx context.Context, subjectID, token, errorCode string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ActorType:   domain.AuditActorSubject,
		ActorIDHash: hashString(subjectID),
		EventType:   domain.AuditEventTokenReplayRejected,
		Payload:     map[string]any{"token_hash": hashString(token)},
		TargetType:  domain.AuditTargetToken,
		TargetID:    hashString(token),
		Result:      domain.AuditResultFailure,
		ErrorCode:   errorCode,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

// record runs an emit call and logs instead of failing the caller; the primary
// record (transition row, scan event) is already durable when it runs.
func record(ctx context.Context, e *AuditEmitter, emit func(*AuditEmitter) error) {
	if e == nil {
		return
	}
	if err := emit(e); err != nil {
		logger.From(ctx).Error("audit emit failed", zap.Error(err))
	}
}

func hashString(value string) string {
	if value == "" {
		return ""
	}
	return sha256Hex([]byte(value))
}

func scopeFor(ownerRef string) string {
	if ownerRef == "" {
		return domain.AuditSystemScope
	}
	return ownerRef
}
