package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"assetguard/internal/domain"
)

// ZeroAuditHash is the prev_event_hash of the first event in every scope.
const ZeroAuditHash = "0000000000000000000000000000000000000000000000000000000000000000"

// VerifyAuditChain re-derives every link of a scope's chain. An empty chain is valid.
func VerifyAuditChain(ctx context.Context, repo AuditEventRepository, scope string) (int, error) {
	if repo == nil {
		return 0, errors.New("audit repository required")
	}
	if scope == "" {
		scope = domain.AuditSystemScope
	}
	events, err := repo.ListByScope(ctx, scope)
	if err != nil {
		return 0, err
	}

	expectedSeq := int64(1)
	prevHash := ZeroAuditHash
	for _, event := range events {
		if event.Scope != scope {
			return 0, fmt.Errorf("audit chain scope mismatch at seq %d", event.Seq)
		}
		if event.Seq != expectedSeq {
			return 0, fmt.Errorf("audit chain seq mismatch: expected %d got %d", expectedSeq, event.Seq)
		}
		if event.PrevEventHash != prevHash {
			return 0, fmt.Errorf("audit chain prev hash mismatch at seq %d", event.Seq)
		}
		payloadJSON, err := payloadBytes(event.Payload)
		if err != nil {
			return 0, fmt.Errorf("audit chain payload decode failed at seq %d: %w", event.Seq, err)
		}
		if sha256Hex(payloadJSON) != event.PayloadHash {
			return 0, fmt.Errorf("audit chain payload hash mismatch at seq %d", event.Seq)
		}
		if event.CreatedAt.IsZero() {
			return 0, fmt.Errorf("audit chain missing created_at at seq %d", event.Seq)
		}
		expectedHash, err := ChainEventHash(event)
		if err != nil {
			return 0, fmt.Errorf("audit chain hash compute failed at seq %d: %w", event.Seq, err)
		}
		if expectedHash != event.EventHash {
			return 0, fmt.Errorf("audit chain hash mismatch at seq %d", event.Seq)
		}
		prevHash = event.EventHash
		expectedSeq++
	}
	return len(events), nil
}

// ChainEventHash is the digest linking an event to its predecessor. Stores call it on
// append; VerifyAuditChain calls it on read.
func ChainEventHash(event domain.AuditEvent) (string, error) {
	if event.Scope == "" || event.EventType == "" {
		return "", errors.New("audit event missing scope or event_type")
	}
	if event.PayloadHash == "" || event.PrevEventHash == "" {
		return "", errors.New("audit event missing payload_hash or prev_event_hash")
	}
	payload := chainPayload{
		Version:       domain.AuditChainVersion,
		Scope:         event.Scope,
		Seq:           event.Seq,
		EventType:     string(event.EventType),
		PayloadHash:   event.PayloadHash,
		PrevEventHash: event.PrevEventHash,
		CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return sha256Hex(payload.CanonicalJSON()), nil
}

func payloadBytes(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("payload_json must be []byte")
	}
}

func sha256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

type chainPayload struct {
	Version       string
	Scope         string
	Seq           int64
	EventType     string
	PayloadHash   string
	PrevEventHash string
	CreatedAt     string
}

func (c chainPayload) CanonicalJSON() []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	writeKV(buf, "created_at", c.CreatedAt, false)
	writeKV(buf, "event_type", c.EventType, false)
	writeKV(buf, "payload_hash", c.PayloadHash, false)
	writeKV(buf, "prev_event_hash", c.PrevEventHash, false)
	writeKV(buf, "scope", c.Scope, false)
	writeKVNumber(buf, "seq", c.Seq, false)
	writeKV(buf, "v", c.Version, true)
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeKV(buf *bytes.Buffer, key, value string, last bool) {
	writeJSONString(buf, key)
	buf.WriteByte(':')
	writeJSONString(buf, value)
	if !last {
		buf.WriteByte(',')
	}
}

func writeKVNumber(buf *bytes.Buffer, key string, value int64, last bool) {
	writeJSONString(buf, key)
	buf.WriteByte(':')
	buf.WriteString(strconv.FormatInt(value, 10))
	if !last {
		buf.WriteByte(',')
	}
}

func writeJSONString(buf *bytes.Buffer, value string) {
	buf.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

var hexLower = []byte("0123456789abcdef")
