package memstore

// Store bundles one instance of every repository.
type Store struct {
	Keys   *KeyRepository
	Assets *AssetRepository
	Traces *TraceRepository
	Tokens *TokenRepository
	Scans  *ScanEventRepository
	Audit  *AuditEventRepository
}

func New() *Store {
	return &Store{
		Keys:   NewKeyRepository(),
		Assets: NewAssetRepository(),
		Traces: NewTraceRepository(),
		Tokens: NewTokenRepository(),
		Scans:  NewScanEventRepository(),
		Audit:  NewAuditEventRepository(),
	}
}
