package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

const DigestAlg = "sha256"

func SHA256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// FileHash is the digest recorded for the raw bytes of a published file.
func FileHash(content []byte) string {
	return DigestAlg + ":" + SHA256Hex(content)
}
