package http

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"
	"assetguard/internal/usecase"

	"github.com/gin-gonic/gin"
)

type registerKeyRequest struct {
	KID       string `json:"kid"`
	PublicKey string `json:"public_key"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type keyResponse struct {
	KID              string     `json:"kid"`
	Alg              string     `json:"alg"`
	PublicKey        string     `json:"public_key"`
	CreatedAt        time.Time  `json:"created_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

type verifySignatureRequest struct {
	KID         string `json:"kid"`
	Signature   string `json:"signature"`
	ContentHash string `json:"content_hash,omitempty"`
	// Message is standard base64; it is hashed to a content hash before verification.
	Message string `json:"message,omitempty"`
}

type signatureResponse struct {
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason"`
	KID       string     `json:"kid"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type authenticityRequest struct {
	ContentHash string `json:"content_hash"`
	Signature   string `json:"signature"`
	KID         string `json:"kid"`
}

type authenticityResponse struct {
	AssetHash string            `json:"asset_hash"`
	Signature signatureResponse `json:"signature"`
	Trace     *traceResponse    `json:"trace,omitempty"`
	Verdict   string            `json:"verdict"`
	CheckedAt time.Time         `json:"checked_at"`
}

type ledgerRegisterRequest struct {
	AssetHash string `json:"asset_hash"`
	Signature string `json:"signature"`
	OwnerRef  string `json:"owner_ref"`
}

type traceResponse struct {
	TraceID      string    `json:"trace_id"`
	AssetHash    string    `json:"asset_hash"`
	Signature    string    `json:"signature"`
	OwnerRef     string    `json:"owner_ref"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (s *Server) handleRegisterKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req registerKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	key, err := s.deps.Keys.Register(c.Request.Context(), req.KID, req.PublicKey, adminActor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildKeyResponse(key))
}

func (s *Server) handleGetKey(c *gin.Context) {
	key, err := s.deps.Keys.Lookup(c.Request.Context(), c.Param("kid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildKeyResponse(key))
}

func (s *Server) handleRevokeKey(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req revokeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	wasRevoked := false
	if before, err := s.deps.Keys.Lookup(c.Request.Context(), c.Param("kid")); err == nil {
		wasRevoked = before.Revoked()
	}
	key, err := s.deps.Keys.Revoke(c.Request.Context(), c.Param("kid"), req.Reason, adminActor)
	if err != nil {
		writeError(c, err)
		return
	}
	if !wasRevoked {
		s.deps.Metrics.Revocation("key", "admin")
	}
	c.JSON(http.StatusOK, buildKeyResponse(key))
}

func (s *Server) handleVerifySignature(c *gin.Context) {
	var req verifySignatureRequest
	if !bindJSON(c, &req) {
		return
	}
	var (
		result domain.SignatureResult
		err    error
	)
	switch {
	case req.ContentHash != "":
		result, err = s.deps.Verifier.VerifyHash(c.Request.Context(), req.ContentHash, req.Signature, req.KID)
	case req.Message != "":
		message, decodeErr := base64.StdEncoding.DecodeString(req.Message)
		if decodeErr != nil {
			writeErrorCode(c, http.StatusBadRequest, "MALFORMED_INPUT", "message must be base64")
			return
		}
		result, err = s.deps.Verifier.Verify(c.Request.Context(), message, req.Signature, req.KID)
	default:
		writeErrorCode(c, http.StatusBadRequest, "MALFORMED_INPUT", "content_hash or message is required")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildSignatureResponse(result))
}

func (s *Server) handleAuthenticity(c *gin.Context) {
	var req authenticityRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := s.deps.Authenticity.Check(c.Request.Context(), usecase.AuthenticityRequest{
		ContentHash: req.ContentHash,
		Signature:   req.Signature,
		KID:         req.KID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.deps.Metrics.Verification(report.Verdict)
	out := authenticityResponse{
		AssetHash: report.AssetHash,
		Signature: buildSignatureResponse(report.Signature),
		Verdict:   string(report.Verdict),
		CheckedAt: report.CheckedAt,
	}
	if report.Trace != nil {
		trace := buildTraceResponse(*report.Trace)
		out.Trace = &trace
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleLedgerRegister(c *gin.Context) {
	var req ledgerRegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	trace, err := s.deps.Ledger.Register(c.Request.Context(), req.AssetHash, req.Signature, req.OwnerRef)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTraceResponse(trace))
}

func (s *Server) handleLedgerLookup(c *gin.Context) {
	assetHash := strings.TrimSpace(c.Query("asset_hash"))
	signature := strings.TrimSpace(c.Query("signature"))
	if assetHash == "" || signature == "" {
		writeErrorCode(c, http.StatusBadRequest, "MALFORMED_INPUT", "asset_hash and signature are required")
		return
	}
	trace, err := s.deps.Ledger.Lookup(c.Request.Context(), assetHash, signature)
	if err != nil {
		writeError(c, err)
		return
	}
	if trace == nil {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "trace not found")
		return
	}
	c.JSON(http.StatusOK, buildTraceResponse(*trace))
}

func (s *Server) handleAuditVerify(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	scope := strings.TrimSpace(c.Query("scope"))
	if scope == "" {
		scope = domain.AuditSystemScope
	}
	if s.deps.AuditLog == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	count, err := usecase.VerifyAuditChain(c.Request.Context(), s.deps.AuditLog, scope)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"scope": scope, "valid": false, "events": count, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope": scope, "valid": true, "events": count})
}

func buildKeyResponse(key domain.SigningKey) keyResponse {
	return keyResponse{
		KID:              key.KID,
		Alg:              key.Alg,
		PublicKey:        cryptoinfra.EncodeWire(key.PublicKey),
		CreatedAt:        key.CreatedAt,
		RevokedAt:        key.RevokedAt,
		RevocationReason: key.RevocationReason,
	}
}

func buildSignatureResponse(result domain.SignatureResult) signatureResponse {
	return signatureResponse{
		Valid:     result.Valid,
		Reason:    string(result.Reason),
		KID:       result.KID,
		RevokedAt: result.RevokedAt,
	}
}

func buildTraceResponse(trace domain.AssetTrace) traceResponse {
	return traceResponse{
		TraceID:      trace.TraceID,
		AssetHash:    trace.AssetHash,
		Signature:    trace.Signature,
		OwnerRef:     trace.OwnerRef,
		RegisteredAt: trace.RegisteredAt,
	}
}
