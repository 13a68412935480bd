package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const adminActor = "admin-key"

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

// actorFrom names the caller for transition records. Unauthenticated callers are
// identified by a hash of their address.
func actorFrom(c *gin.Context, fallback string) string {
	if actor := strings.TrimSpace(c.GetHeader("X-Actor")); actor != "" && len(actor) <= 128 {
		return actor
	}
	if fallback != "" {
		return fallback
	}
	sum := sha256.Sum256([]byte(c.ClientIP()))
	return "client:" + hex.EncodeToString(sum[:8])
}
