package domain

import "time"

const KeyAlgEd25519 = "ed25519"

// SigningKey is immutable once issued except for the one-way move to revoked.
type SigningKey struct {
	KID              string
	Alg              string
	PublicKey        []byte
	RevokedAt        *time.Time
	RevocationReason string
	CreatedAt        time.Time
}

func (k SigningKey) Revoked() bool {
	return k.RevokedAt != nil
}
