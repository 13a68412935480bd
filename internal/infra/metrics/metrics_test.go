package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assetguard/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingOracle struct{}

func (failingOracle) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	return domain.RiskSignal{}, errors.New("down")
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Scan(true, domain.RiskLevelUnknown)
	m.Redemption("already_used")
	m.Verification(domain.VerdictTrusted)
	m.ObserveHTTP("POST", "/v1/tokens/redeem", 409, 5*time.Millisecond)

	_, err = m.InstrumentRiskOracle(failingOracle{}).Assess(context.Background(), "x", domain.PayloadTypeText)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `assetguard_scans_total{risk_level="unknown",tamper="true"} 1`))
	assert.True(t, strings.Contains(body, `assetguard_token_redemptions_total{result="already_used"} 1`))
	assert.True(t, strings.Contains(body, `assetguard_verifications_total{verdict="trusted"} 1`))
	assert.True(t, strings.Contains(body, `assetguard_oracle_duration_seconds_count{oracle="risk",outcome="error"} 1`))
}

func TestMetrics_RegisterTwiceIsTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.Redemption("ok")
	rec := httptest.NewRecorder()
	first.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `assetguard_token_redemptions_total{result="ok"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Scan(false, domain.RiskLevelSafe)
	m.Redemption("ok")
	assert.Nil(t, m.InstrumentStegoOracle(nil))
}
