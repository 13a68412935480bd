package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assetguard/internal/domain"
)

type StegoClient struct {
	client
}

func NewStegoClient(baseURL string, timeout time.Duration, httpClient *http.Client) (*StegoClient, error) {
	c, err := newClient(baseURL, timeout, httpClient)
	if err != nil {
		return nil, err
	}
	return &StegoClient{client: c}, nil
}

type extractRequest struct {
	BasePayload   string `json:"base_payload"`
	Method        string `json:"method"`
	ExtractionKey string `json:"extraction_key"`
}

type extractResponse struct {
	HiddenPayload  string   `json:"hidden_payload"`
	TamperDetected *bool    `json:"tamper_detected"`
	Confidence     *float64 `json:"confidence"`
}

func (c *StegoClient) Extract(ctx context.Context, basePayload string, cfg domain.StegoConfig) (domain.StegoExtraction, error) {
	var resp extractResponse
	req := extractRequest{BasePayload: basePayload, Method: cfg.Method, ExtractionKey: cfg.ExtractionKey}
	if err := c.postJSON(ctx, "/v1/extract", req, &resp); err != nil {
		return domain.StegoExtraction{}, err
	}
	if resp.Confidence == nil || resp.TamperDetected == nil {
		return domain.StegoExtraction{}, fmt.Errorf("%w: response missing confidence or tamper_detected", domain.ErrUpstreamUnavailable)
	}
	return domain.StegoExtraction{
		HiddenPayload:  resp.HiddenPayload,
		TamperDetected: *resp.TamperDetected,
		Confidence:     *resp.Confidence,
	}, nil
}
