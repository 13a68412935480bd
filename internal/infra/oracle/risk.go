package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assetguard/internal/domain"
)

type RiskClient struct {
	client
}

func NewRiskClient(baseURL string, timeout time.Duration, httpClient *http.Client) (*RiskClient, error) {
	c, err := newClient(baseURL, timeout, httpClient)
	if err != nil {
		return nil, err
	}
	return &RiskClient{client: c}, nil
}

type assessRequest struct {
	Payload     string `json:"payload"`
	PayloadType string `json:"payload_type"`
}

// assessResponse uses pointers so absent fields are detected instead of read as zero.
type assessResponse struct {
	RiskScore   *int     `json:"risk_score"`
	ThreatTypes []string `json:"threat_types"`
	Explanation *string  `json:"explanation"`
}

func (c *RiskClient) Assess(ctx context.Context, payload string, payloadType domain.PayloadType) (domain.RiskSignal, error) {
	var resp assessResponse
	if err := c.postJSON(ctx, "/v1/assess", assessRequest{Payload: payload, PayloadType: string(payloadType)}, &resp); err != nil {
		return domain.RiskSignal{}, err
	}
	if resp.RiskScore == nil {
		return domain.RiskSignal{}, fmt.Errorf("%w: response missing risk_score", domain.ErrUpstreamUnavailable)
	}
	if *resp.RiskScore < 0 || *resp.RiskScore > 100 {
		return domain.RiskSignal{}, fmt.Errorf("%w: risk_score %d out of range", domain.ErrUpstreamUnavailable, *resp.RiskScore)
	}
	signal := domain.RiskSignal{Score: *resp.RiskScore, ThreatTypes: resp.ThreatTypes}
	if resp.Explanation != nil {
		signal.Explanation = *resp.Explanation
	}
	return signal, nil
}
