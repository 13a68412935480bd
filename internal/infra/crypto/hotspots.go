package crypto

import (
	"bytes"
	"errors"
	"sort"

	"assetguard/internal/domain"
)

const hotspotSchema = "hotspots_v1"

type canonicalHotspot struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	ActionType  string  `json:"action_type"`
	ActionValue string  `json:"action_value"`
}

// CanonicalizeHotspots builds the canonical content structure for an interactive image.
// Values are taken verbatim; entries are ordered by their canonical encoding so the result
// does not depend on the order the records were fetched in.
func CanonicalizeHotspots(hotspots []domain.Hotspot) ([]byte, error) {
	entries := make([][]byte, 0, len(hotspots))
	for _, h := range hotspots {
		encoded, err := CanonicalizeAny(canonicalHotspot{
			X:           h.X,
			Y:           h.Y,
			Width:       h.Width,
			Height:      h.Height,
			Label:       h.Label,
			Description: h.Description,
			ActionType:  h.ActionType,
			ActionValue: h.ActionValue,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, encoded)
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i], entries[j]) < 0
	})

	var buf bytes.Buffer
	buf.WriteString(`{"hotspots":[`)
	for i, entry := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(entry)
	}
	buf.WriteString(`],"schema":`)
	encodeString(&buf, hotspotSchema)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ContentHash returns the digest label of canonical content bytes.
func ContentHash(canonical []byte) (string, error) {
	if len(canonical) == 0 {
		return "", errors.New("canonical content is empty")
	}
	return DigestAlg + ":" + SHA256Hex(canonical), nil
}
