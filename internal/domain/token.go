package domain

import "time"

type VerificationToken struct {
	Token     string
	SubjectID string
	Origin    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
}

type ScanEvent struct {
	ID                  string
	AssetID             string
	ScannedAt           time.Time
	ResolvedDestination string
	ObservedMeta        map[string]string
	TamperSuspected     bool
	TamperReason        string
	RiskScoreAtScan     *int
}
