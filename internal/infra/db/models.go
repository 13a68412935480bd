package db

import "time"

type SigningKeyModel struct {
	KID              string `gorm:"primaryKey"`
	Alg              string `gorm:"not null"`
	PublicKey        []byte `gorm:"type:bytea;not null"`
	RevokedAt        *time.Time
	RevocationReason *string
	CreatedAt        time.Time `gorm:"not null"`
}

func (SigningKeyModel) TableName() string { return "signing_keys" }

type AssetModel struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	Kind               string `gorm:"not null"`
	OwnerRef           string `gorm:"index;not null"`
	Payload            string `gorm:"not null"`
	DynamicTarget      *string
	FileRef            *string
	Status             string `gorm:"index;not null"`
	RiskScore          *int
	StegoMethod        *string
	StegoExtractionKey *string
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (AssetModel) TableName() string { return "assets" }

type HotspotModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	AssetID     string  `gorm:"type:uuid;index;not null"`
	X           float64 `gorm:"not null"`
	Y           float64 `gorm:"not null"`
	Width       float64 `gorm:"not null"`
	Height      float64 `gorm:"not null"`
	Label       string
	Description string
	ActionType  string
	ActionValue string
}

func (HotspotModel) TableName() string { return "asset_hotspots" }

type StatusTransitionModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	AssetID    string    `gorm:"type:uuid;index;not null"`
	FromStatus string    `gorm:"not null"`
	ToStatus   string    `gorm:"not null"`
	Cause      string    `gorm:"not null"`
	Actor      string    `gorm:"not null"`
	At         time.Time `gorm:"not null"`
}

func (StatusTransitionModel) TableName() string { return "asset_status_transitions" }

type HashLogModel struct {
	LogID           string    `gorm:"type:uuid;primaryKey"`
	AssetID         string    `gorm:"type:uuid;index;not null"`
	ContentHash     string    `gorm:"not null"`
	FileHash        string    `gorm:"not null"`
	ContentSnapshot []byte    `gorm:"type:bytea"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (HashLogModel) TableName() string { return "asset_hash_log" }

type AssetTraceModel struct {
	TraceID      string    `gorm:"type:uuid;primaryKey"`
	AssetHash    string    `gorm:"not null"`
	Signature    string    `gorm:"not null"`
	OwnerRef     string    `gorm:"not null"`
	RegisteredAt time.Time `gorm:"not null"`
}

func (AssetTraceModel) TableName() string { return "asset_traces" }

type VerificationTokenModel struct {
	Token     string    `gorm:"primaryKey"`
	SubjectID string    `gorm:"index;not null"`
	Origin    string    `gorm:"not null"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null"`
	UsedAt    *time.Time
}

func (VerificationTokenModel) TableName() string { return "verification_tokens" }

type ScanEventModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	AssetID             string    `gorm:"type:uuid;index;not null"`
	ScannedAt           time.Time `gorm:"not null"`
	ResolvedDestination string    `gorm:"not null"`
	ObservedMetaJSON    []byte    `gorm:"column:observed_meta;type:jsonb;not null"`
	TamperSuspected     bool      `gorm:"not null"`
	TamperReason        *string
	RiskScoreAtScan     *int
}

func (ScanEventModel) TableName() string { return "scan_events" }

type AuditEventModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Scope         string `gorm:"index;not null"`
	Seq           int64  `gorm:"not null"`
	EventType     string `gorm:"not null"`
	PayloadJSON   []byte `gorm:"column:payload_json;type:jsonb;not null"`
	PayloadHash   string `gorm:"not null"`
	ActorType     string `gorm:"not null"`
	ActorIDHash   *string
	TargetType    string `gorm:"not null"`
	TargetID      *string
	Result        string `gorm:"not null"`
	ErrorCode     *string
	PrevEventHash string    `gorm:"not null"`
	EventHash     string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }
