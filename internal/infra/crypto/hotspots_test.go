package crypto

import (
	"testing"

	"assetguard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHotspots() []domain.Hotspot {
	return []domain.Hotspot{
		{ID: "h1", X: 1, Y: 1, Width: 10, Height: 10, Label: "Buy", Description: "Shop", ActionType: "link", ActionValue: "https://x.com/shop"},
		{ID: "h2", X: 20.5, Y: 3, Width: 5, Height: 5, Label: "Info", ActionType: "text", ActionValue: "hello"},
		{ID: "h3", X: 7, Y: 9, Width: 1, Height: 2, Label: "Call", ActionType: "phone", ActionValue: "+100"},
	}
}

func TestCanonicalizeHotspots_OrderIndependent(t *testing.T) {
	hotspots := sampleHotspots()
	reference, err := CanonicalizeHotspots(hotspots)
	require.NoError(t, err)

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range permutations {
		shuffled := make([]domain.Hotspot, 0, len(perm))
		for _, idx := range perm {
			shuffled = append(shuffled, hotspots[idx])
		}
		out, err := CanonicalizeHotspots(shuffled)
		require.NoError(t, err)
		assert.Equal(t, string(reference), string(out), "permutation %v", perm)
	}
}

func TestCanonicalizeHotspots_IgnoresRecordIdentity(t *testing.T) {
	a := sampleHotspots()[:1]
	b := []domain.Hotspot{a[0]}
	b[0].ID = "another-id"
	b[0].AssetID = "another-asset"

	outA, err := CanonicalizeHotspots(a)
	require.NoError(t, err)
	outB, err := CanonicalizeHotspots(b)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestCanonicalizeHotspots_Shape(t *testing.T) {
	out, err := CanonicalizeHotspots([]domain.Hotspot{{X: 1, Y: 1, Width: 2, Height: 3, Label: "L", Description: "D", ActionType: "link", ActionValue: "v"}})
	require.NoError(t, err)
	assert.Equal(t,
		`{"hotspots":[{"action_type":"link","action_value":"v","description":"D","height":3,"label":"L","width":2,"x":1,"y":1}],"schema":"hotspots_v1"}`,
		string(out))

	empty, err := CanonicalizeHotspots(nil)
	require.NoError(t, err)
	assert.Equal(t, `{"hotspots":[],"schema":"hotspots_v1"}`, string(empty))
}

func TestContentHash_ChangesWithContent(t *testing.T) {
	a, err := CanonicalizeHotspots(sampleHotspots())
	require.NoError(t, err)
	changed := sampleHotspots()
	changed[1].Label = "Info!"
	b, err := CanonicalizeHotspots(changed)
	require.NoError(t, err)

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
	assert.Contains(t, ha, "sha256:")
}
