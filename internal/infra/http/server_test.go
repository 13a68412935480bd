package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assetguard/internal/config"
	"assetguard/internal/domain"
	"assetguard/internal/infra/memstore"
	"assetguard/internal/infra/metrics"
	"assetguard/internal/infra/policyopa"
	"assetguard/internal/infra/ratelimit"
	"assetguard/pkg/signer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminKey = "admin-secret"
	testSession  = "session-0123456789abcdef"
)

type fixedRiskOracle struct {
	score int
	err   error
}

func (o fixedRiskOracle) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	if o.err != nil {
		return domain.RiskSignal{}, o.err
	}
	return domain.RiskSignal{Score: o.score, Explanation: "stub"}, nil
}

type staticFetcher struct{ content []byte }

func (f staticFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f.content, nil
}

func testConfig() config.Config {
	return config.Config{
		AdminAPIKey:          testAdminKey,
		TokenTTL:             15 * time.Minute,
		ScanSessionMinLength: 16,
		WarningURL:           "https://assetguard.example/warning",
		RiskStaticCap:        30,
		RiskMaxPayloadLen:    2048,
		RiskSafeMin:          80,
		RiskLowMin:           60,
		RiskMediumMin:        40,
		RiskHighMin:          20,
		StegoMinConfidence:   0.7,
		RateLimitWindow:      time.Minute,
		RateLimitFailClosed:  true,
	}
}

func newTestServer(t *testing.T, cfg config.Config, ext Externals) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if ext.RiskOracle == nil {
		ext.RiskOracle = fixedRiskOracle{score: 95}
	}
	if ext.Fetcher == nil {
		ext.Fetcher = staticFetcher{content: []byte("image-bytes")}
	}
	if ext.Policy == nil {
		engine, err := policyopa.NewEngine(context.Background(), "")
		require.NoError(t, err)
		ext.Policy = engine
	}
	m, err := metrics.New(nil)
	require.NoError(t, err)
	deps := BuildDeps(cfg, MemoryRepositories(memstore.New()), ext, m, nil)
	return NewServer(cfg, deps)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var admin = map[string]string{"X-Admin-Key": testAdminKey}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"memory"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestKeysRequireAdmin(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	_, pub, err := signer.GenerateKey()
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/v1/keys", registerKeyRequest{KID: "k1", PublicKey: pub}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, s, http.MethodPost, "/v1/keys", registerKeyRequest{KID: "k1", PublicKey: pub}, map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/keys", registerKeyRequest{KID: "k1", PublicKey: pub}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doJSON(t, s, http.MethodPost, "/v1/keys", registerKeyRequest{KID: "k1", PublicKey: pub}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/keys/k1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pub, decode[keyResponse](t, rec).PublicKey)

	rec = doJSON(t, s, http.MethodGet, "/v1/keys/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "KEY_NOT_FOUND", decode[errorResponse](t, rec).Code)
}

func TestAuthenticityVerdicts(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	priv, pub, err := signer.GenerateKey()
	require.NoError(t, err)
	sg, err := signer.New("publisher-1", priv)
	require.NoError(t, err)
	rec := doJSON(t, s, http.MethodPost, "/v1/keys", registerKeyRequest{KID: sg.KID(), PublicKey: pub}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	hash := signer.HashMessage([]byte("poster artwork"))
	sig, err := sg.SignHash(hash)
	require.NoError(t, err)
	check := authenticityRequest{ContentHash: hash, Signature: sig, KID: sg.KID()}

	rec = doJSON(t, s, http.MethodPost, "/v1/signatures/verify", verifySignatureRequest{KID: sg.KID(), Signature: sig, ContentHash: hash}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[signatureResponse](t, rec).Valid)

	rec = doJSON(t, s, http.MethodPost, "/v1/authenticity", check, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signature_only", decode[authenticityResponse](t, rec).Verdict)

	rec = doJSON(t, s, http.MethodPost, "/v1/ledger", ledgerRegisterRequest{AssetHash: hash, Signature: sig, OwnerRef: "owner-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/v1/ledger?asset_hash="+hash+"&signature="+sig, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-1", decode[traceResponse](t, rec).OwnerRef)

	rec = doJSON(t, s, http.MethodPost, "/v1/authenticity", check, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[authenticityResponse](t, rec)
	assert.Equal(t, "trusted", report.Verdict)
	require.NotNil(t, report.Trace)

	rec = doJSON(t, s, http.MethodPost, "/v1/keys/"+sg.KID()+"/revoke", revokeRequest{Reason: "compromised"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/authenticity", check, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report = decode[authenticityResponse](t, rec)
	assert.Equal(t, "revoked_key", report.Verdict)
	assert.False(t, report.Signature.Valid)

	rec = doJSON(t, s, http.MethodGet, "/v1/audit/verify", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func createActiveCode(t *testing.T, s *Server, payload string) assetResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/v1/assets", createAssetRequest{
		Kind:     string(domain.AssetKindStaticCode),
		OwnerRef: "owner-1",
		Payload:  payload,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[assetResponse](t, rec)
	assert.Equal(t, "draft", created.Status)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+created.ID+"/publish", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decode[assetResponse](t, rec)
	require.Equal(t, "active", published.Status)
	return published
}

func TestScanFlow(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	asset := createActiveCode(t, s, "https://shop.example.com/menu")
	require.NotNil(t, asset.RiskScore)
	assert.Equal(t, 95, *asset.RiskScore)
	session := map[string]string{scanSessionHeader: testSession}

	rec := doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/scan", scanRequest{ObservedDestination: "https://shop.example.com/menu"}, map[string]string{scanSessionHeader: "short"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/scan", scanRequest{
		ObservedDestination: "HTTPS://shop.example.com:443/menu?utm_source=flyer",
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	clean := decode[scanResponse](t, rec)
	assert.False(t, clean.TamperSuspected)
	assert.Equal(t, "https://shop.example.com/menu", clean.RedirectTo)
	assert.Equal(t, "safe", clean.RiskLevel)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/scan", scanRequest{
		ObservedDestination: "https://evil.example.net/login",
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tampered := decode[scanResponse](t, rec)
	assert.True(t, tampered.TamperSuspected)
	assert.Equal(t, "revoked", tampered.Status)
	assert.Equal(t, "https://assetguard.example/warning", tampered.RedirectTo)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/scan", scanRequest{
		ObservedDestination: "https://shop.example.com/menu",
	}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://assetguard.example/warning", decode[scanResponse](t, rec).RedirectTo)

	rec = doJSON(t, s, http.MethodGet, "/v1/assets/"+asset.ID+"/transitions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"to":"revoked"`)

	rec = doJSON(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `assetguard_revocations_total{cause="tamper",target="asset"} 1`)
}

func TestScanReportsRiskUnavailable(t *testing.T) {
	oracle := &switchableOracle{}
	cfg := testConfig()
	cfg.RiskCacheTTL = time.Nanosecond
	s := newTestServer(t, cfg, Externals{RiskOracle: oracle})
	asset := createActiveCode(t, s, "https://cafe.example.com/")

	oracle.err = errors.New("oracle down")
	rec := doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/scan", scanRequest{
		ObservedDestination: "https://cafe.example.com/",
	}, map[string]string{scanSessionHeader: testSession})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[scanResponse](t, rec)
	assert.Equal(t, "unknown", out.RiskLevel)
	require.NotNil(t, out.RiskError)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", out.RiskError.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/risk/score", riskRequest{Payload: "https://other.example.com/"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"risk_level":"unknown"`)
}

type switchableOracle struct {
	err error
}

func (o *switchableOracle) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	if o.err != nil {
		return domain.RiskSignal{}, o.err
	}
	return domain.RiskSignal{Score: 85}, nil
}

func TestRiskScoreStaticCap(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	rec := doJSON(t, s, http.MethodPost, "/v1/risk/score", riskRequest{Payload: "http://192.168.0.10/pay", PayloadType: "url"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[riskResponse](t, rec)
	assert.Equal(t, 30, out.Score)
	assert.True(t, out.Capped)
	assert.Equal(t, "high", out.Level)
	assert.Contains(t, out.ThreatTypes, "static_heuristic")
}

func TestFinalizeFlow(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	rec := doJSON(t, s, http.MethodPost, "/v1/assets", createAssetRequest{
		Kind:     string(domain.AssetKindInteractiveImage),
		OwnerRef: "owner-1",
		FileRef:  "https://cdn.example.com/poster.png",
		Hotspots: []hotspotInput{{X: 10, Y: 20, Width: 30, Height: 40, Label: "Buy"}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	asset := decode[assetResponse](t, rec)
	require.Len(t, asset.Hotspots, 1)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/finalize", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorResponse](t, rec).Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/publish", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/finalize", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[hashLogResponse](t, rec)
	assert.True(t, strings.HasPrefix(entry.ContentHash, "sha256:"))

	rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/finalize", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_FINALIZED", decode[errorResponse](t, rec).Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/assets/"+asset.ID+"/hash-log", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), entry.LogID)
}

func TestTokenRedeemOnce(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	rec := doJSON(t, s, http.MethodPost, "/v1/tokens/issue", issueTokenRequest{SubjectID: "user-1", Origin: "https://app.example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := decode[issueTokenResponse](t, rec)
	require.Len(t, issued.Token, 64)

	rec = doJSON(t, s, http.MethodPost, "/v1/tokens/redeem", redeemTokenRequest{Token: issued.Token, SubjectID: "user-2"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", decode[errorResponse](t, rec).Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/tokens/redeem", redeemTokenRequest{Token: issued.Token, SubjectID: "user-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[redeemTokenResponse](t, rec).Valid)

	rec = doJSON(t, s, http.MethodPost, "/v1/tokens/redeem", redeemTokenRequest{Token: issued.Token, SubjectID: "user-1"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TOKEN_ALREADY_USED", decode[errorResponse](t, rec).Code)
}

func issueFrom(t *testing.T, s *Server, remoteAddr, subject string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(issueTokenRequest{SubjectID: subject})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens/issue", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestTokenIssueRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 2
	s := newTestServer(t, cfg, Externals{RateLimiter: ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})})

	for i := 0; i < 2; i++ {
		rec := issueFrom(t, s, "192.0.2.1:4000", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	}
	rec := issueFrom(t, s, "192.0.2.1:4000", "user-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errorResponse](t, rec).Code)

	rec = issueFrom(t, s, "198.51.100.7:4000", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenIssueLimitIgnoresRotatingSubjects(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 3
	s := newTestServer(t, cfg, Externals{RateLimiter: ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})})

	var limited int
	for i := 0; i < 10; i++ {
		forwarded := map[string]string{"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1)}
		rec := issueFrom(t, s, "192.0.2.1:4000", fmt.Sprintf("user-%d", i), forwarded)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 7, limited)
}

func TestRevokeAssetIsIdempotent(t *testing.T) {
	s := newTestServer(t, testConfig(), Externals{})
	asset := createActiveCode(t, s, "https://shop.example.com/")

	rec := doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/revoke", revokeRequest{Reason: "reported"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 2; i++ {
		rec = doJSON(t, s, http.MethodPost, "/v1/assets/"+asset.ID+"/revoke", revokeRequest{Reason: "reported"}, admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "revoked", decode[assetResponse](t, rec).Status)
	}
}

func TestClassify(t *testing.T) {
	status, code := classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", code)

	status, code = classify(errors.Join(domain.ErrUpstreamFetchFailed, errors.New("dial")))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "UPSTREAM_FETCH_FAILED", code)
}
