// Package db holds the Postgres-backed repositories. Every status or usage flip is a
// conditional UPDATE whose RowsAffected decides who won.
package db

import (
	"fmt"
	"time"

	"assetguard/internal/config"
	"assetguard/internal/usecase"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	_ usecase.KeyRepository        = (*SigningKeyRepository)(nil)
	_ usecase.AssetRepository      = (*AssetRepository)(nil)
	_ usecase.TraceRepository      = (*TraceRepository)(nil)
	_ usecase.TokenRepository      = (*TokenRepository)(nil)
	_ usecase.ScanEventRepository  = (*ScanEventRepository)(nil)
	_ usecase.AuditEventRepository = (*AuditEventRepository)(nil)
)

type Store struct {
	DB     *gorm.DB
	Keys   *SigningKeyRepository
	Assets *AssetRepository
	Traces *TraceRepository
	Tokens *TokenRepository
	Scans  *ScanEventRepository
	Audit  *AuditEventRepository
}

// NewStore returns a Store with a nil DB when POSTGRES_DSN is unset. Callers then fall
// back to the in-memory repositories.
func NewStore(cfg config.Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN not set; running without a database")
		return &Store{}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info("postgres connected")
	return newStore(gdb), nil
}

func newStore(gdb *gorm.DB) *Store {
	return &Store{
		DB:     gdb,
		Keys:   NewSigningKeyRepository(gdb),
		Assets: NewAssetRepository(gdb),
		Traces: NewTraceRepository(gdb),
		Tokens: NewTokenRepository(gdb),
		Scans:  NewScanEventRepository(gdb),
		Audit:  NewAuditEventRepository(gdb),
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
