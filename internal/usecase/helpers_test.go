package usecase_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/infra/memstore"
	"assetguard/internal/usecase"
	"assetguard/pkg/signer"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock safe for concurrent readers.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubFetcher struct {
	content map[string][]byte
	err     error
	calls   atomic.Int32
}

func (f *stubFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.content[ref]
	if !ok {
		return nil, errors.New("no such object")
	}
	return body, nil
}

type stubRiskOracle struct {
	signal domain.RiskSignal
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (o *stubRiskOracle) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	o.calls.Add(1)
	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return domain.RiskSignal{}, ctx.Err()
		}
	}
	if o.err != nil {
		return domain.RiskSignal{}, o.err
	}
	return o.signal, nil
}

type stubStegoOracle struct {
	result domain.StegoExtraction
	err    error
	got    domain.StegoConfig
}

func (o *stubStegoOracle) Extract(ctx context.Context, basePayload string, cfg domain.StegoConfig) (domain.StegoExtraction, error) {
	o.got = cfg
	if o.err != nil {
		return domain.StegoExtraction{}, o.err
	}
	return o.result, nil
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]domain.RiskSignal
}

func (c *mapCache) Get(key string) (domain.RiskSignal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Set(key string, signal domain.RiskSignal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]domain.RiskSignal{}
	}
	c.m[key] = signal
}

type harness struct {
	store *memstore.Store
	clock *testClock
	audit *usecase.AuditEmitter
	keys  *usecase.KeyRegistry
}

func newHarness() *harness {
	store := memstore.New()
	clock := newTestClock()
	audit := usecase.NewAuditEmitter(store.Audit, clock.Now)
	return &harness{
		store: store,
		clock: clock,
		audit: audit,
		keys:  usecase.NewKeyRegistry(store.Keys, audit, clock.Now),
	}
}

func (h *harness) registerSigner(t *testing.T, kid string) *signer.Signer {
	t.Helper()
	priv, _, err := signer.GenerateKey()
	require.NoError(t, err)
	s, err := signer.New(kid, priv)
	require.NoError(t, err)
	_, err = h.keys.Register(context.Background(), kid, encodePub(s.PublicKey()), "admin")
	require.NoError(t, err)
	return s
}

// activeAsset creates and publishes an asset without risk scoring.
func (h *harness) activeAsset(t *testing.T, in usecase.CreateAssetInput) domain.Asset {
	t.Helper()
	svc := usecase.NewAssetService(h.store.Assets, nil, h.audit, h.clock.Now)
	asset, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	asset, err = svc.Publish(context.Background(), asset.ID, "owner")
	require.NoError(t, err)
	return asset
}

func encodePub(pub ed25519.PublicKey) string {
	return signer.EncodePublicKey(pub)
}
