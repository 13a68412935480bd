package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assetguard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRiskClient_Assess(t *testing.T) {
	var got assessRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/assess", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"risk_score":42,"threat_types":["phishing"],"explanation":"lookalike domain"}`))
	}))
	defer srv.Close()

	c, err := NewRiskClient(srv.URL, time.Second, nil)
	require.NoError(t, err)
	signal, err := c.Assess(context.Background(), "https://x.com", domain.PayloadTypeURL)
	require.NoError(t, err)
	assert.Equal(t, 42, signal.Score)
	assert.Equal(t, []string{"phishing"}, signal.ThreatTypes)
	assert.Equal(t, "lookalike domain", signal.Explanation)
	assert.Equal(t, "url", got.PayloadType)
}

func TestRiskClient_FailuresAreUpstreamUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		delay  time.Duration
	}{
		{"server error", http.StatusBadGateway, `{}`, 0},
		{"tagged error", http.StatusOK, `{"error":{"kind":"quota","message":"exhausted"}}`, 0},
		{"missing score", http.StatusOK, `{"threat_types":[]}`, 0},
		{"out of range", http.StatusOK, `{"risk_score":101}`, 0},
		{"not json", http.StatusOK, `<html>`, 0},
		{"timeout", http.StatusOK, `{"risk_score":100}`, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, tc.status, tc.body, tc.delay)
			c, err := NewRiskClient(srv.URL, 50*time.Millisecond, nil)
			require.NoError(t, err)
			_, err = c.Assess(context.Background(), "https://x.com", domain.PayloadTypeURL)
			assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		})
	}
}

func TestStegoClient_Extract(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hidden_payload":"sig","tamper_detected":false,"confidence":0.93}`, 0)
	c, err := NewStegoClient(srv.URL, time.Second, nil)
	require.NoError(t, err)

	res, err := c.Extract(context.Background(), "https://x.com", domain.StegoConfig{Method: "lsb", ExtractionKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "sig", res.HiddenPayload)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.False(t, res.TamperDetected)

	bad := serve(t, http.StatusOK, `{"hidden_payload":"sig"}`, 0)
	c, err = NewStegoClient(bad.URL, time.Second, nil)
	require.NoError(t, err)
	_, err = c.Extract(context.Background(), "https://x.com", domain.StegoConfig{Method: "lsb"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewRiskClient(" ", time.Second, nil)
	assert.Error(t, err)
}
