package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"assetguard/internal/domain"
	"assetguard/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "scan-session-0123456789"

func tamperOptions() usecase.TamperOptions {
	return usecase.TamperOptions{
		MinSessionLength:   16,
		WarningURL:         "https://guard.example/warning",
		StegoMinConfidence: 0.7,
	}
}

func codeInput(payload string) usecase.CreateAssetInput {
	return usecase.CreateAssetInput{Kind: domain.AssetKindStaticCode, OwnerRef: "owner-1", Payload: payload}
}

func newDetector(h *harness, stego domain.StegoOracle) *usecase.TamperDetector {
	return usecase.NewTamperDetector(h.store.Assets, h.store.Scans, stego, h.audit, h.clock.Now, tamperOptions())
}

func TestTamper_TrackingParametersTolerated(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)

	res, err := d.Check(context.Background(), usecase.TamperCheckRequest{
		AssetID:             asset.ID,
		ObservedDestination: "https://x.com/a?utm_source=ig",
		SessionToken:        session,
	})
	require.NoError(t, err)
	assert.False(t, res.TamperSuspected)
	assert.Equal(t, domain.AssetStatusActive, res.NewStatus)
	assert.Equal(t, "https://x.com/a", res.RedirectTo)
}

func TestTamper_MismatchFlagsAndRevokes(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)

	res, err := d.Check(context.Background(), usecase.TamperCheckRequest{
		AssetID:             asset.ID,
		ObservedDestination: "https://evil.com/a",
		SessionToken:        session,
	})
	require.NoError(t, err)
	assert.True(t, res.TamperSuspected)
	assert.Contains(t, res.Reason, "destination mismatch")
	assert.Equal(t, domain.AssetStatusRevoked, res.NewStatus)
	assert.Equal(t, "https://guard.example/warning", res.RedirectTo)

	transitions, err := h.store.Assets.ListTransitions(context.Background(), asset.ID)
	require.NoError(t, err)
	last := transitions[len(transitions)-1]
	assert.Equal(t, domain.AssetStatusRevoked, last.To)
	assert.Contains(t, last.Cause, "tamper")
}

func TestTamper_RevocationIsMonotone(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)
	ctx := context.Background()

	_, err := d.Check(ctx, usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://evil.com/a", SessionToken: session})
	require.NoError(t, err)

	for _, observed := range []string{"https://x.com/a", "https://x.com/a?utm_medium=x", "https://evil.com/b"} {
		res, err := d.Check(ctx, usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: observed, SessionToken: session})
		require.NoError(t, err)
		assert.Equal(t, domain.AssetStatusRevoked, res.NewStatus)
		assert.Equal(t, "https://guard.example/warning", res.RedirectTo)
	}

	scans, err := h.store.Scans.ListByAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, scans, 4)
	transitions, err := h.store.Assets.ListTransitions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, transitions, 2) // publish, revoke
}

func TestTamper_ConcurrentScansRevokeOnce(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://evil.com", SessionToken: session})
			if err == nil && res.NewStatus != domain.AssetStatusRevoked {
				err = errors.New("expected revoked status")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	transitions, err := h.store.Assets.ListTransitions(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, transitions, 2)
}

func TestTamper_SessionGate(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)

	_, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://x.com/a", SessionToken: "short"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	scans, err := h.store.Scans.ListByAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestTamper_StegoSignalsMergeWithDestinationCheck(t *testing.T) {
	cases := []struct {
		name       string
		extraction domain.StegoExtraction
		suspected  bool
	}{
		{"confident", domain.StegoExtraction{Confidence: 0.95}, false},
		{"low confidence", domain.StegoExtraction{Confidence: 0.4}, true},
		{"oracle flag", domain.StegoExtraction{Confidence: 0.99, TamperDetected: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			in := codeInput("https://x.com/a")
			in.Stego = &domain.StegoConfig{Method: "lsb"}
			asset := h.activeAsset(t, in)
			oracle := &stubStegoOracle{result: tc.extraction}
			opts := tamperOptions()
			opts.DefaultExtractionKey = "default-key"
			d := usecase.NewTamperDetector(h.store.Assets, h.store.Scans, oracle, h.audit, h.clock.Now, opts)

			res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://x.com/a", SessionToken: session})
			require.NoError(t, err)
			assert.Equal(t, tc.suspected, res.TamperSuspected)
			assert.Equal(t, "default-key", oracle.got.ExtractionKey)
		})
	}
}

func TestTamper_StegoFailureStillLogsScan(t *testing.T) {
	h := newHarness()
	in := codeInput("https://x.com/a")
	in.Stego = &domain.StegoConfig{Method: "lsb", ExtractionKey: "k"}
	asset := h.activeAsset(t, in)
	d := newDetector(h, &stubStegoOracle{err: errors.New("timeout")})

	res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://evil.com/a", SessionToken: session})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.True(t, res.TamperSuspected)

	scans, err := h.store.Scans.ListByAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
	got, err := h.store.Assets.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusRevoked, got.Status)
}

func TestTamper_SideEffectsSurviveCancellation(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, codeInput("https://x.com/a"))
	d := newDetector(h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Check(ctx, usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://evil.com/a", SessionToken: session})
	require.NoError(t, err)

	got, err := h.store.Assets.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusRevoked, got.Status)
}

func TestTamper_DynamicAssetsUseResolvedTarget(t *testing.T) {
	h := newHarness()
	asset := h.activeAsset(t, usecase.CreateAssetInput{
		Kind:          domain.AssetKindDynamicCode,
		OwnerRef:      "owner-1",
		Payload:       "https://short.example/r/abc",
		DynamicTarget: "https://shop.example/spring",
	})
	d := newDetector(h, nil)

	res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://shop.example/spring?fbclid=1", SessionToken: session})
	require.NoError(t, err)
	assert.False(t, res.TamperSuspected)
}

func TestTamper_UnparsableQueryIsFlagged(t *testing.T) {
	for _, observed := range []string{
		"https://x.com/login?next=https://evil.com/;",
		"https://x.com/login?next=%zzevil",
	} {
		t.Run(observed, func(t *testing.T) {
			h := newHarness()
			asset := h.activeAsset(t, codeInput("https://x.com/login"))
			d := newDetector(h, nil)

			res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: observed, SessionToken: session})
			require.NoError(t, err)
			assert.True(t, res.TamperSuspected)
			assert.Contains(t, res.Reason, "malformed")
			assert.Equal(t, domain.AssetStatusRevoked, res.NewStatus)
			assert.Equal(t, "https://guard.example/warning", res.RedirectTo)
		})
	}
}

func TestTamper_HiddenLayerWithoutOracleIsUnavailable(t *testing.T) {
	h := newHarness()
	in := codeInput("https://x.com/a")
	in.Stego = &domain.StegoConfig{Method: "lsb"}
	asset := h.activeAsset(t, in)
	d := newDetector(h, nil)

	res, err := d.Check(context.Background(), usecase.TamperCheckRequest{AssetID: asset.ID, ObservedDestination: "https://x.com/a", SessionToken: session})
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.NotEmpty(t, res.ScanEventID)

	scans, err := h.store.Scans.ListByAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
}
