package domain

import "time"

type AssetKind string

const (
	AssetKindStaticCode       AssetKind = "static_code"
	AssetKindDynamicCode      AssetKind = "dynamic_code"
	AssetKindInteractiveImage AssetKind = "interactive_image"
)

func (k AssetKind) Valid() bool {
	switch k {
	case AssetKindStaticCode, AssetKindDynamicCode, AssetKindInteractiveImage:
		return true
	}
	return false
}

type AssetStatus string

const (
	AssetStatusDraft     AssetStatus = "draft"
	AssetStatusActive    AssetStatus = "active"
	AssetStatusRevoked   AssetStatus = "revoked"
	AssetStatusFinalized AssetStatus = "finalized"
)

// CanTransition reports whether the lifecycle allows moving from one status to another.
// revoked and finalized are terminal.
func CanTransition(from, to AssetStatus) bool {
	switch from {
	case AssetStatusDraft:
		return to == AssetStatusActive
	case AssetStatusActive:
		return to == AssetStatusRevoked || to == AssetStatusFinalized
	}
	return false
}

// StegoConfig declares a secondary hidden layer embedded in the published artifact.
type StegoConfig struct {
	Method        string `json:"method"`
	ExtractionKey string `json:"extraction_key,omitempty"`
}

type Asset struct {
	ID       string
	Kind     AssetKind
	OwnerRef string
	// Payload is the registered destination encoded into the code.
	Payload string
	// DynamicTarget is the currently-resolved target of a rule-based code.
	DynamicTarget string
	FileRef       string
	Status        AssetStatus
	RiskScore     *int
	Stego         *StegoConfig
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExpectedDestination is where a scan of the asset should land.
func (a Asset) ExpectedDestination() string {
	if a.Kind == AssetKindDynamicCode && a.DynamicTarget != "" {
		return a.DynamicTarget
	}
	return a.Payload
}

// Hotspot is an interactive region of an annotated image.
type Hotspot struct {
	ID          string
	AssetID     string
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Label       string
	Description string
	ActionType  string
	ActionValue string
}

type StatusTransition struct {
	ID      string
	AssetID string
	From    AssetStatus
	To      AssetStatus
	Cause   string
	Actor   string
	At      time.Time
}
