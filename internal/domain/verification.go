package domain

import "time"

type SignatureReason string

const (
	SignatureReasonOK       SignatureReason = "ok"
	SignatureReasonRevoked  SignatureReason = "key_revoked"
	SignatureReasonMismatch SignatureReason = "signature_mismatch"
)

type SignatureResult struct {
	Valid     bool
	Reason    SignatureReason
	KID       string
	RevokedAt *time.Time
}

type Verdict string

const (
	VerdictTrusted       Verdict = "trusted"
	VerdictSignatureOnly Verdict = "signature_only"
	VerdictLedgerOnly    Verdict = "ledger_only"
	VerdictRevokedKey    Verdict = "revoked_key"
	VerdictUntrusted     Verdict = "untrusted"
)

// AuthenticityReport keeps the partial states distinct instead of collapsing them to a bool.
type AuthenticityReport struct {
	AssetHash string
	Signature SignatureResult
	Trace     *AssetTrace
	Verdict   Verdict
	CheckedAt time.Time
}
