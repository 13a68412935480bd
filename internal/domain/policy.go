package domain

type PolicyInput struct {
	SignatureValid bool   `json:"signature_valid"`
	Reason         string `json:"reason"`
	KeyRevoked     bool   `json:"key_revoked"`
	LedgerIncluded bool   `json:"ledger_included"`
}

type PolicyEvaluation struct {
	BundleHash string  `json:"bundle_hash"`
	Verdict    Verdict `json:"verdict"`
}
