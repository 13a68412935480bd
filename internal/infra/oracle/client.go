// Package oracle holds HTTP clients for the external semantic risk and hidden-layer
// extraction services. Both calls are bounded by a timeout and never guess a result.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"assetguard/internal/domain"
)

const maxResponseBytes = 64 * 1024

type client struct {
	baseURL string
	timeout time.Duration
	httpDo  func(*http.Request) (*http.Response, error)
}

func newClient(baseURL string, timeout time.Duration, httpClient *http.Client) (client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return client{}, errors.New("oracle base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpDo:  doer,
	}, nil
}

// errorBody is the Err arm of the oracle's tagged result.
type errorBody struct {
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// postJSON sends body and decodes a 2xx response into out. Every failure is
// ErrUpstreamUnavailable so callers never mistake it for an answer.
func (c client) postJSON(ctx context.Context, path string, body any, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpDo(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(respBody) > maxResponseBytes {
		return fmt.Errorf("%w: response too large", domain.ErrUpstreamUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var tagged errorBody
	if err := json.Unmarshal(respBody, &tagged); err != nil {
		return fmt.Errorf("%w: malformed response: %v", domain.ErrUpstreamUnavailable, err)
	}
	if tagged.Error != nil {
		return fmt.Errorf("%w: oracle error %s: %s", domain.ErrUpstreamUnavailable, tagged.Error.Kind, tagged.Error.Message)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}
