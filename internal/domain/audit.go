package domain

import "time"

type AuditActorType string

const (
	// AuditSystemScope is the chain used for events not owned by a specific asset owner.
	AuditSystemScope  = "__system__"
	AuditChainVersion = "audit_chain_v1"

	AuditActorSystem      AuditActorType = "system"
	AuditActorAdminAPIKey AuditActorType = "admin_api_key"
	AuditActorScanner     AuditActorType = "scanner"
	AuditActorSubject     AuditActorType = "subject"
)

type AuditEventType string

const (
	AuditEventKeyRegistered       AuditEventType = "key_registered"
	AuditEventKeyRevoked          AuditEventType = "key_revoked"
	AuditEventAssetStatusChanged  AuditEventType = "asset_status_changed"
	AuditEventTamperFlagged       AuditEventType = "tamper_flagged"
	AuditEventAssetFinalized      AuditEventType = "asset_finalized"
	AuditEventTokenReplayRejected AuditEventType = "token_replay_rejected"
)

type AuditTargetType string

const (
	AuditTargetKey   AuditTargetType = "key"
	AuditTargetAsset AuditTargetType = "asset"
	AuditTargetToken AuditTargetType = "token"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

type AuditEvent struct {
	ID            string
	Scope         string
	Seq           int64
	EventType     AuditEventType
	Payload       any
	PayloadHash   string
	ActorType     AuditActorType
	ActorIDHash   string
	TargetType    AuditTargetType
	TargetID      string
	Result        AuditResult
	ErrorCode     string
	PrevEventHash string
	EventHash     string
	CreatedAt     time.Time
}
