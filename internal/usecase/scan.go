package usecase

import (
	"context"
	"errors"
	"net/url"

	"assetguard/internal/domain"

	"golang.org/x/sync/errgroup"
)

type ScanReport struct {
	Tamper    TamperResult
	Risk      *domain.RiskAssessment
	RiskLevel domain.RiskLevel
	// RiskError is set when scoring failed; the level is then unknown, never guessed.
	RiskError error
}

// ScanService runs tamper detection and risk scoring side by side for one scan.
type ScanService struct {
	Assets AssetRepository
	Tamper *TamperDetector
	Risk   *RiskScorer
}

func NewScanService(assets AssetRepository, tamper *TamperDetector, risk *RiskScorer) *ScanService {
	return &ScanService{Assets: assets, Tamper: tamper, Risk: risk}
}

// Scan fails only when the tamper path fails; a risk failure degrades to RiskLevelUnknown.
func (s *ScanService) Scan(ctx context.Context, req TamperCheckRequest) (ScanReport, error) {
	if s == nil || s.Tamper == nil || s.Assets == nil {
		return ScanReport{}, errors.New("scan service not configured")
	}
	asset, err := s.Assets.GetByID(ctx, req.AssetID)
	if err != nil {
		return ScanReport{}, err
	}

	var (
		report    ScanReport
		tamperErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Tamper, tamperErr = s.Tamper.Check(gctx, req)
		return nil
	})
	g.Go(func() error {
		if s.Risk == nil {
			report.RiskError = domain.ErrUpstreamUnavailable
			return nil
		}
		payload := asset.ExpectedDestination()
		assessment, err := s.Risk.Score(gctx, payload, payloadTypeOf(payload))
		if err != nil {
			report.RiskError = err
			return nil
		}
		report.Risk = &assessment
		return nil
	})
	_ = g.Wait()

	report.RiskLevel = domain.RiskLevelUnknown
	if report.Risk != nil {
		report.RiskLevel = report.Risk.Level
	}
	if tamperErr != nil {
		return report, tamperErr
	}
	return report, nil
}

func payloadTypeOf(payload string) domain.PayloadType {
	if u, err := url.Parse(payload); err == nil && u.Scheme != "" && u.Host != "" {
		return domain.PayloadTypeURL
	}
	return domain.PayloadTypeText
}
