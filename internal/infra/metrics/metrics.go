// Package metrics exposes prometheus collectors for the HTTP surface and the engine outcomes.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"assetguard/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	scansTotal          *prometheus.CounterVec
	revocationsTotal    *prometheus.CounterVec
	redemptionsTotal    *prometheus.CounterVec
	verificationsTotal  *prometheus.CounterVec
	oracleDuration      *prometheus.HistogramVec
}

// New registers every collector on reg. A nil reg gets a private registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetguard_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assetguard_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetguard_scans_total",
			Help: "Scans by tamper outcome and risk level.",
		}, []string{"tamper", "risk_level"}),
		revocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetguard_revocations_total",
			Help: "Asset and key revocations by cause.",
		}, []string{"target", "cause"}),
		redemptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetguard_token_redemptions_total",
			Help: "One-time token redemptions by result.",
		}, []string{"result"}),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetguard_verifications_total",
			Help: "Authenticity checks by verdict.",
		}, []string{"verdict"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assetguard_oracle_duration_seconds",
			Help:    "External oracle call latency by oracle and outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"oracle", "outcome"}),
	}
	var err error
	if m.httpRequestsTotal, err = register(reg, m.httpRequestsTotal); err != nil {
		return nil, err
	}
	if m.httpRequestDuration, err = register(reg, m.httpRequestDuration); err != nil {
		return nil, err
	}
	if m.scansTotal, err = register(reg, m.scansTotal); err != nil {
		return nil, err
	}
	if m.revocationsTotal, err = register(reg, m.revocationsTotal); err != nil {
		return nil, err
	}
	if m.redemptionsTotal, err = register(reg, m.redemptionsTotal); err != nil {
		return nil, err
	}
	if m.verificationsTotal, err = register(reg, m.verificationsTotal); err != nil {
		return nil, err
	}
	if m.oracleDuration, err = register(reg, m.oracleDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the already registered collector when an identical one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) Scan(tamperSuspected bool, level domain.RiskLevel) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(strconv.FormatBool(tamperSuspected), string(level)).Inc()
}

func (m *Metrics) Revocation(target, cause string) {
	if m == nil {
		return
	}
	m.revocationsTotal.WithLabelValues(target, cause).Inc()
}

func (m *Metrics) Redemption(result string) {
	if m == nil {
		return
	}
	m.redemptionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Verification(verdict domain.Verdict) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(string(verdict)).Inc()
}

func (m *Metrics) observeOracle(oracle string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.oracleDuration.WithLabelValues(oracle, outcome).Observe(time.Since(start).Seconds())
}

type riskOracle struct {
	next domain.RiskOracle
	m    *Metrics
}

// InstrumentRiskOracle records the latency of every risk oracle call.
func (m *Metrics) InstrumentRiskOracle(next domain.RiskOracle) domain.RiskOracle {
	if m == nil || next == nil {
		return next
	}
	return riskOracle{next: next, m: m}
}

func (o riskOracle) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	start := time.Now()
	signal, err := o.next.Assess(ctx, payload, payloadType)
	o.m.observeOracle("risk", start, err)
	return signal, err
}

type stegoOracle struct {
	next domain.StegoOracle
	m    *Metrics
}

func (m *Metrics) InstrumentStegoOracle(next domain.StegoOracle) domain.StegoOracle {
	if m == nil || next == nil {
		return next
	}
	return stegoOracle{next: next, m: m}
}

func (o stegoOracle) Extract(ctx context.Context, basePayload string, cfg domain.StegoConfig) (domain.StegoExtraction, error) {
	start := time.Now()
	res, err := o.next.Extract(ctx, basePayload, cfg)
	o.m.observeOracle("stego", start, err)
	return res, err
}
