package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/observability/logger"

	"go.uber.org/zap"
)

var insecureSchemes = map[string]struct{}{
	"http":       {},
	"ftp":        {},
	"javascript": {},
	"data":       {},
	"vbscript":   {},
}

// StaticAnalyzer is the deterministic half of risk scoring.
type StaticAnalyzer struct {
	MaxPayloadLength int
}

func (a StaticAnalyzer) Analyze(payload string, payloadType domain.PayloadType) domain.StaticReport {
	var issues []string
	if a.MaxPayloadLength > 0 && len(payload) > a.MaxPayloadLength {
		issues = append(issues, fmt.Sprintf("payload length %d exceeds %d", len(payload), a.MaxPayloadLength))
	}
	if payloadType == domain.PayloadTypeURL || looksLikeLocator(payload) {
		if u, err := url.Parse(strings.TrimSpace(payload)); err == nil && u.Scheme != "" {
			scheme := strings.ToLower(u.Scheme)
			if _, bad := insecureSchemes[scheme]; bad {
				issues = append(issues, "insecure scheme: "+scheme)
			}
			if isNumericHost(u.Hostname()) {
				issues = append(issues, "numeric address destination: "+u.Hostname())
			}
		}
	}
	return domain.StaticReport{Suspicious: len(issues) > 0, Issues: issues}
}

func looksLikeLocator(payload string) bool {
	i := strings.Index(payload, ":")
	return i > 0 && !strings.ContainsAny(payload[:i], " \t\n")
}

// isNumericHost catches IP literals and the integer or hex spellings browsers accept.
func isNumericHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	labels := strings.Split(strings.TrimSuffix(strings.ToLower(host), "."), ".")
	if len(labels) > 4 {
		return false
	}
	for _, label := range labels {
		if !isNumericLabel(label) {
			return false
		}
	}
	return true
}

// isNumericLabel accepts decimal, octal (leading zero) and 0x-prefixed hex parts.
func isNumericLabel(label string) bool {
	digits, hex := label, false
	if rest, ok := strings.CutPrefix(label, "0x"); ok {
		digits, hex = rest, true
	}
	if digits == "" {
		return hex
	}
	for _, r := range digits {
		switch {
		case r >= '0' && r <= '9':
		case hex && r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

type RiskThresholds struct {
	SafeMin   int
	LowMin    int
	MediumMin int
	HighMin   int
}

// Level buckets a score monotonically; higher scores are safer.
func (t RiskThresholds) Level(score int) domain.RiskLevel {
	switch {
	case score >= t.SafeMin:
		return domain.RiskLevelSafe
	case score >= t.LowMin:
		return domain.RiskLevelLow
	case score >= t.MediumMin:
		return domain.RiskLevelMedium
	case score >= t.HighMin:
		return domain.RiskLevelHigh
	default:
		return domain.RiskLevelCritical
	}
}

type RiskOptions struct {
	StaticCap  int
	Timeout    time.Duration
	Thresholds RiskThresholds
}

// RiskScorer fuses static heuristics with the semantic oracle. Heuristics can only lower the score.
type RiskScorer struct {
	Static  StaticAnalyzer
	Oracle  domain.RiskOracle
	Cache   RiskCache
	Options RiskOptions
}

func NewRiskScorer(static StaticAnalyzer, oracle domain.RiskOracle, cache RiskCache, opts RiskOptions) *RiskScorer {
	return &RiskScorer{Static: static, Oracle: oracle, Cache: cache, Options: opts}
}

func (s *RiskScorer) Score(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskAssessment, error) {
	if s == nil {
		return domain.RiskAssessment{}, errors.New("risk scorer not configured")
	}
	if strings.TrimSpace(payload) == "" {
		return domain.RiskAssessment{}, fmt.Errorf("%w: payload is required", domain.ErrMalformedInput)
	}
	if !validPayloadType(payloadType) {
		return domain.RiskAssessment{}, fmt.Errorf("%w: unknown payload type %q", domain.ErrMalformedInput, payloadType)
	}

	static := s.Static.Analyze(payload, payloadType)
	signal, err := s.assess(ctx, payload, payloadType)
	if err != nil {
		return domain.RiskAssessment{Level: domain.RiskLevelUnknown, Static: static}, err
	}

	out := domain.RiskAssessment{
		Score:         signal.Score,
		ThreatTypes:   append([]string(nil), signal.ThreatTypes...),
		Explanation:   signal.Explanation,
		Static:        static,
		ExternalScore: signal.Score,
	}
	if static.Suspicious {
		if out.Score > s.Options.StaticCap {
			out.Score = s.Options.StaticCap
			out.Capped = true
		}
		out.ThreatTypes = append(out.ThreatTypes, "static_heuristic")
	}
	out.Level = s.Options.Thresholds.Level(out.Score)
	return out, nil
}

func (s *RiskScorer) assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	if s.Oracle == nil {
		return domain.RiskSignal{}, fmt.Errorf("%w: risk oracle not configured", domain.ErrUpstreamUnavailable)
	}
	key := string(payloadType) + ":" + sha256Hex([]byte(payload))
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(key); ok {
			return cached, nil
		}
	}

	callCtx := ctx
	if s.Options.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Options.Timeout)
		defer cancel()
	}
	signal, err := s.Oracle.Assess(callCtx, payload, payloadType)
	if err != nil {
		logger.From(ctx).Warn("risk oracle failed", zap.Error(err))
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return domain.RiskSignal{}, err
		}
		return domain.RiskSignal{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if signal.Score < 0 || signal.Score > 100 {
		return domain.RiskSignal{}, fmt.Errorf("%w: risk score %d out of range", domain.ErrUpstreamUnavailable, signal.Score)
	}
	if s.Cache != nil {
		s.Cache.Set(key, signal)
	}
	return signal, nil
}

func validPayloadType(t domain.PayloadType) bool {
	switch t {
	case domain.PayloadTypeURL, domain.PayloadTypeText, domain.PayloadTypeWiFi,
		domain.PayloadTypeVCard, domain.PayloadTypeEmail, domain.PayloadTypePhone:
		return true
	}
	return false
}
