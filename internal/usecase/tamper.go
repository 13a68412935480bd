package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/observability/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tamperActor = "tamper_detector"

type TamperOptions struct {
	MinSessionLength     int
	WarningURL           string
	TrackingParams       []string
	StegoMinConfidence   float64
	DefaultExtractionKey string
}

type TamperCheckRequest struct {
	AssetID             string
	ObservedDestination string
	ObservedMeta        map[string]string
	SessionToken        string
}

type TamperResult struct {
	TamperSuspected bool
	Reason          string
	Reasons         []string
	NewStatus       domain.AssetStatus
	// RedirectTo is the warning surface whenever the asset is revoked or suspected.
	RedirectTo  string
	ScanEventID string
}

// TamperDetector compares expected and observed destinations, cross-checks a declared
// hidden layer, logs every scan and revokes active assets on suspicion.
type TamperDetector struct {
	Assets  AssetRepository
	Scans   ScanEventRepository
	Stego   domain.StegoOracle
	Audit   *AuditEmitter
	Clock   Clock
	Options TamperOptions

	normalizer DestinationNormalizer
}

func NewTamperDetector(assets AssetRepository, scans ScanEventRepository, stego domain.StegoOracle, audit *AuditEmitter, clock Clock, opts TamperOptions) *TamperDetector {
	return &TamperDetector{
		Assets:     assets,
		Scans:      scans,
		Stego:      stego,
		Audit:      audit,
		Clock:      clock,
		Options:    opts,
		normalizer: NewDestinationNormalizer(opts.TrackingParams),
	}
}

var errStegoOracleMissing = errors.New("no stego oracle configured")

// Check never rolls back its side effects: the scan event and any revocation are written
// on a context detached from the caller's cancellation.
func (d *TamperDetector) Check(ctx context.Context, req TamperCheckRequest) (TamperResult, error) {
	if d == nil || d.Assets == nil || d.Scans == nil {
		return TamperResult{}, errors.New("tamper detector not configured")
	}
	if len(strings.TrimSpace(req.SessionToken)) < d.minSessionLength() {
		return TamperResult{}, fmt.Errorf("%w: scan session token too short", domain.ErrUnauthorized)
	}
	asset, err := d.Assets.GetByID(ctx, req.AssetID)
	if err != nil {
		return TamperResult{}, err
	}

	var reasons []string
	if same, reason := d.normalizer.Same(asset.ExpectedDestination(), req.ObservedDestination); !same {
		reasons = append(reasons, reason)
	}

	var stegoErr error
	switch {
	case asset.Stego == nil:
	case d.Stego == nil:
		stegoErr = errStegoOracleMissing
	default:
		reason, err := d.crossCheck(ctx, *asset)
		if err != nil {
			stegoErr = err
		} else if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	sideCtx := context.WithoutCancel(ctx)
	now := d.now()
	suspected := len(reasons) > 0
	result := TamperResult{
		TamperSuspected: suspected,
		Reasons:         reasons,
		Reason:          strings.Join(reasons, "; "),
		NewStatus:       asset.Status,
	}

	event := domain.ScanEvent{
		ID:                  uuid.NewString(),
		AssetID:             asset.ID,
		ScannedAt:           now,
		ResolvedDestination: req.ObservedDestination,
		ObservedMeta:        req.ObservedMeta,
		TamperSuspected:     suspected,
		TamperReason:        result.Reason,
		RiskScoreAtScan:     asset.RiskScore,
	}
	if err := d.Scans.Append(sideCtx, event); err != nil {
		return TamperResult{}, fmt.Errorf("append scan event: %w", err)
	}
	result.ScanEventID = event.ID

	if suspected {
		logger.From(ctx).Warn("tamper suspected",
			logger.AssetID(asset.ID),
			logger.Reason(result.Reason),
			zap.String("observed", req.ObservedDestination),
		)
		record(sideCtx, d.Audit, func(e *AuditEmitter) error {
			return e.EmitTamperFlagged(sideCtx, scopeFor(asset.OwnerRef), asset.ID, req.ObservedDestination, result.Reason)
		})
		status, err := d.revoke(sideCtx, *asset, result.Reason, now)
		if err != nil {
			return TamperResult{}, err
		}
		result.NewStatus = status
	}

	if suspected || result.NewStatus == domain.AssetStatusRevoked {
		result.RedirectTo = d.Options.WarningURL
	} else {
		result.RedirectTo = asset.ExpectedDestination()
	}

	if stegoErr != nil {
		return result, fmt.Errorf("%w: stego extraction: %v", domain.ErrUpstreamUnavailable, stegoErr)
	}
	return result, nil
}

// crossCheck returns a non-empty reason when the hidden layer looks tampered.
func (d *TamperDetector) crossCheck(ctx context.Context, asset domain.Asset) (string, error) {
	cfg := *asset.Stego
	if cfg.ExtractionKey == "" {
		cfg.ExtractionKey = d.Options.DefaultExtractionKey
	}
	extraction, err := d.Stego.Extract(ctx, asset.Payload, cfg)
	if err != nil {
		return "", err
	}
	switch {
	case extraction.TamperDetected:
		return "hidden layer reports tampering", nil
	case extraction.Confidence < d.Options.StegoMinConfidence:
		return fmt.Sprintf("hidden layer confidence %.2f below %.2f", extraction.Confidence, d.Options.StegoMinConfidence), nil
	}
	return "", nil
}

// revoke moves an active asset to revoked. Losing the race to another scan is not an error.
func (d *TamperDetector) revoke(ctx context.Context, asset domain.Asset, reason string, at time.Time) (domain.AssetStatus, error) {
	if asset.Status != domain.AssetStatusActive {
		return asset.Status, nil
	}
	rec := domain.StatusTransition{
		ID:      uuid.NewString(),
		AssetID: asset.ID,
		From:    domain.AssetStatusActive,
		To:      domain.AssetStatusRevoked,
		Cause:   "tamper: " + reason,
		Actor:   tamperActor,
		At:      at,
	}
	err := d.Assets.TransitionStatus(ctx, rec)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		current, gerr := d.Assets.GetByID(ctx, asset.ID)
		if gerr != nil {
			return "", gerr
		}
		return current.Status, nil
	}
	if err != nil {
		return "", fmt.Errorf("revoke asset: %w", err)
	}
	logger.From(ctx).Warn("asset revoked", logger.AssetID(asset.ID), logger.Reason(rec.Cause))
	record(ctx, d.Audit, func(e *AuditEmitter) error {
		return e.EmitStatusChanged(ctx, domain.AuditActorScanner, scopeFor(asset.OwnerRef), rec)
	})
	return domain.AssetStatusRevoked, nil
}

func (d *TamperDetector) minSessionLength() int {
	if d.Options.MinSessionLength > 0 {
		return d.Options.MinSessionLength
	}
	return 1
}

func (d *TamperDetector) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}
