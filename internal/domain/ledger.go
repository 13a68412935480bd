package domain

import "time"

// AssetTrace is a public registration of a (hash, signature) pair. Append-only.
type AssetTrace struct {
	TraceID      string
	AssetHash    string
	Signature    string
	OwnerRef     string
	RegisteredAt time.Time
}

// HashLogEntry is the audit record written once per finalize.
type HashLogEntry struct {
	LogID           string
	AssetID         string
	ContentHash     string
	FileHash        string
	ContentSnapshot []byte
	CreatedAt       time.Time
}
