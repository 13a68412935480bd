package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"assetguard/internal/config"
	"assetguard/internal/domain"
	"assetguard/internal/infra/metrics"
	"assetguard/internal/observability/logger"
	"assetguard/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Keys         *usecase.KeyRegistry
	Verifier     *usecase.SignatureVerifier
	Ledger       *usecase.Ledger
	Authenticity *usecase.AuthenticityService
	Assets       *usecase.AssetService
	Finalizer    *usecase.Finalizer
	Scans        *usecase.ScanService
	Risk         *usecase.RiskScorer
	Tokens       *usecase.TokenService
	AuditLog     usecase.AuditEventRepository
	RateLimiter  domain.RateLimiter
	Metrics      *metrics.Metrics
	// StoreMode is reported by /healthz: "db" or "memory".
	StoreMode string
}

type Server struct {
	cfg  config.Config
	deps Deps
	r    *gin.Engine

	adminAPIKey string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, deps Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	// Forwarding headers are honoured only from configured proxies; rate-limit keys
	// depend on the client IP.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.L().Warn("invalid trusted proxies, ignoring forwarding headers", logger.Err(err))
		_ = r.SetTrustedProxies(nil)
	}

	s := &Server{
		cfg:                 cfg,
		deps:                deps,
		r:                   r,
		adminAPIKey:         cfg.AdminAPIKey,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow,
		rateLimitFailClosed: cfg.RateLimitFailClosed,
	}
	if s.rateLimitWindow <= 0 {
		s.rateLimitWindow = time.Minute
	}
	r.Use(s.requestLogger(), s.observe())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := s.deps.StoreMode
		if mode == "" {
			mode = "memory"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})
	if s.deps.Metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := s.r.Group("/v1")
	{
		v1.POST("/keys", s.handleRegisterKey)
		v1.GET("/keys/:kid", s.handleGetKey)
		v1.POST("/keys/:kid/revoke", s.handleRevokeKey)

		v1.POST("/signatures/verify", s.handleVerifySignature)
		v1.POST("/authenticity", s.handleAuthenticity)

		v1.POST("/ledger", s.handleLedgerRegister)
		v1.GET("/ledger", s.handleLedgerLookup)

		v1.POST("/assets", s.handleCreateAsset)
		v1.GET("/assets/:id", s.handleGetAsset)
		v1.GET("/assets/:id/transitions", s.handleAssetTransitions)
		v1.GET("/assets/:id/hash-log", s.handleAssetHashLog)
		v1.POST("/assets/:id/publish", s.handlePublishAsset)
		v1.POST("/assets/:id/revoke", s.handleRevokeAsset)
		v1.POST("/assets/:id/finalize", s.handleFinalizeAsset)
		v1.POST("/assets/:id/scan", s.handleScanAsset)

		v1.POST("/risk/score", s.handleRiskScore)

		v1.POST("/tokens/issue", s.handleIssueToken)
		v1.POST("/tokens/redeem", s.handleRedeemToken)

		v1.GET("/audit/verify", s.handleAuditVerify)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", logger.Path(s.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
