package domain

type RiskLevel string

const (
	RiskLevelSafe     RiskLevel = "safe"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelUnknown  RiskLevel = "unknown"
)

type PayloadType string

const (
	PayloadTypeURL   PayloadType = "url"
	PayloadTypeText  PayloadType = "text"
	PayloadTypeWiFi  PayloadType = "wifi"
	PayloadTypeVCard PayloadType = "vcard"
	PayloadTypeEmail PayloadType = "email"
	PayloadTypePhone PayloadType = "phone"
)

// StaticReport is the deterministic heuristic verdict on a payload.
type StaticReport struct {
	Suspicious bool
	Issues     []string
}

// RiskSignal is a well-formed answer from the semantic risk oracle.
type RiskSignal struct {
	Score       int
	ThreatTypes []string
	Explanation string
}

type RiskAssessment struct {
	Score         int
	Level         RiskLevel
	ThreatTypes   []string
	Explanation   string
	Static        StaticReport
	ExternalScore int
	Capped        bool
}

// StegoExtraction is the answer of the hidden-layer extraction oracle.
type StegoExtraction struct {
	HiddenPayload  string
	TamperDetected bool
	Confidence     float64
}
