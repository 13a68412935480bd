package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"assetguard/internal/domain"

	"github.com/gin-gonic/gin"
)

type issueTokenRequest struct {
	SubjectID string `json:"subject_id"`
	Origin    string `json:"origin"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type redeemTokenRequest struct {
	Token     string `json:"token"`
	SubjectID string `json:"subject_id"`
}

type redeemTokenResponse struct {
	Valid      bool      `json:"valid"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

func (s *Server) handleIssueToken(c *gin.Context) {
	var req issueTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.enforceRateLimit(c, "tokens_issue") {
		return
	}
	origin := strings.TrimSpace(req.Origin)
	if origin == "" {
		origin = c.GetHeader("Origin")
	}
	issued, err := s.deps.Tokens.Issue(c.Request.Context(), req.SubjectID, origin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, issueTokenResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

func (s *Server) handleRedeemToken(c *gin.Context) {
	var req redeemTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.deps.Tokens.Redeem(c.Request.Context(), req.Token, req.SubjectID)
	if err != nil {
		s.deps.Metrics.Redemption(redemptionOutcome(err))
		writeError(c, err)
		return
	}
	s.deps.Metrics.Redemption("ok")
	c.JSON(http.StatusOK, redeemTokenResponse{Valid: result.Valid, RedeemedAt: result.RedeemedAt})
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, domain.ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	}
	return "error"
}
