package http

import (
	"context"
	"fmt"
	"time"

	"assetguard/internal/config"
	"assetguard/internal/domain"
	"assetguard/internal/infra/cachemem"
	"assetguard/internal/infra/db"
	"assetguard/internal/infra/fetch"
	"assetguard/internal/infra/memstore"
	"assetguard/internal/infra/metrics"
	"assetguard/internal/infra/oracle"
	"assetguard/internal/infra/policyopa"
	"assetguard/internal/infra/ratelimit"
	"assetguard/internal/observability/logger"
	"assetguard/internal/usecase"

	"go.uber.org/zap"
)

type Repositories struct {
	Keys   usecase.KeyRepository
	Assets usecase.AssetRepository
	Traces usecase.TraceRepository
	Tokens usecase.TokenRepository
	Scans  usecase.ScanEventRepository
	Audit  usecase.AuditEventRepository
	Mode   string
}

func MemoryRepositories(m *memstore.Store) Repositories {
	return Repositories{
		Keys:   m.Keys,
		Assets: m.Assets,
		Traces: m.Traces,
		Tokens: m.Tokens,
		Scans:  m.Scans,
		Audit:  m.Audit,
		Mode:   "memory",
	}
}

func DBRepositories(s *db.Store) Repositories {
	return Repositories{
		Keys:   s.Keys,
		Assets: s.Assets,
		Traces: s.Traces,
		Tokens: s.Tokens,
		Scans:  s.Scans,
		Audit:  s.Audit,
		Mode:   "db",
	}
}

// Externals are the collaborators that live outside the process.
type Externals struct {
	RiskOracle  domain.RiskOracle
	StegoOracle domain.StegoOracle
	Fetcher     domain.ContentFetcher
	Policy      usecase.VerdictPolicy
	RateLimiter domain.RateLimiter
}

// ExternalsFromConfig builds oracle clients only for configured URLs. Without a risk
// oracle every scoring call reports upstream unavailable.
func ExternalsFromConfig(ctx context.Context, cfg config.Config) (Externals, error) {
	log := logger.Named("wiring")
	var ext Externals

	if cfg.RiskOracleURL != "" {
		client, err := oracle.NewRiskClient(cfg.RiskOracleURL, cfg.RiskOracleTimeout, nil)
		if err != nil {
			return Externals{}, err
		}
		ext.RiskOracle = client
	} else {
		log.Warn("RISK_ORACLE_URL not set; risk scoring will report upstream unavailable")
	}
	if cfg.StegoOracleURL != "" {
		client, err := oracle.NewStegoClient(cfg.StegoOracleURL, cfg.StegoOracleTimeout, nil)
		if err != nil {
			return Externals{}, err
		}
		ext.StegoOracle = client
	}

	fetcher, err := fetch.NewHTTPFetcher(cfg.ContentBaseURL, cfg.ContentFetchTimeout, cfg.ContentFetchMaxBytes, nil)
	if err != nil {
		return Externals{}, err
	}
	ext.Fetcher = fetcher

	engine, err := policyopa.NewEngine(ctx, cfg.PolicyPath)
	if err != nil {
		return Externals{}, fmt.Errorf("load verdict policy: %w", err)
	}
	log.Info("verdict policy loaded", zap.String("bundle_hash", engine.BundleHash()))
	ext.Policy = engine

	if cfg.RateLimitRequests > 0 {
		if cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
			if err != nil {
				return Externals{}, err
			}
			ext.RateLimiter = limiter
		} else {
			ext.RateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
		}
	}
	return ext, nil
}

// BuildDeps wires every use case over repos. clock may be nil.
func BuildDeps(cfg config.Config, repos Repositories, ext Externals, m *metrics.Metrics, clock usecase.Clock) Deps {
	audit := usecase.NewAuditEmitter(repos.Audit, clock)
	keys := usecase.NewKeyRegistry(repos.Keys, audit, clock)
	verifier := usecase.NewSignatureVerifier(keys)
	ledger := usecase.NewLedger(repos.Traces, clock)

	cacheTTL := cfg.RiskCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	risk := usecase.NewRiskScorer(
		usecase.StaticAnalyzer{MaxPayloadLength: cfg.RiskMaxPayloadLen},
		m.InstrumentRiskOracle(ext.RiskOracle),
		cachemem.New(cacheTTL),
		usecase.RiskOptions{
			StaticCap: cfg.RiskStaticCap,
			Timeout:   cfg.RiskOracleTimeout,
			Thresholds: usecase.RiskThresholds{
				SafeMin:   cfg.RiskSafeMin,
				LowMin:    cfg.RiskLowMin,
				MediumMin: cfg.RiskMediumMin,
				HighMin:   cfg.RiskHighMin,
			},
		},
	)
	tamper := usecase.NewTamperDetector(repos.Assets, repos.Scans, m.InstrumentStegoOracle(ext.StegoOracle), audit, clock, usecase.TamperOptions{
		MinSessionLength:     cfg.ScanSessionMinLength,
		WarningURL:           cfg.WarningURL,
		TrackingParams:       cfg.TrackingParams,
		StegoMinConfidence:   cfg.StegoMinConfidence,
		DefaultExtractionKey: cfg.StegoExtractionKey,
	})

	return Deps{
		Keys:         keys,
		Verifier:     verifier,
		Ledger:       ledger,
		Authenticity: usecase.NewAuthenticityService(verifier, ledger, ext.Policy, clock),
		Assets:       usecase.NewAssetService(repos.Assets, risk, audit, clock),
		Finalizer:    usecase.NewFinalizer(repos.Assets, ext.Fetcher, audit, clock),
		Scans:        usecase.NewScanService(repos.Assets, tamper, risk),
		Risk:         risk,
		Tokens: usecase.NewTokenService(repos.Tokens, audit, clock, usecase.TokenOptions{
			TTL:            cfg.TokenTTL,
			StrictOrigin:   cfg.TokenStrictOrigin,
			AllowedOrigins: cfg.TokenAllowedOrigins,
		}),
		AuditLog:    repos.Audit,
		RateLimiter: ext.RateLimiter,
		Metrics:     m,
		StoreMode:   repos.Mode,
	}
}
