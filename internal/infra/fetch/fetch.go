// Package fetch retrieves the raw bytes behind an asset's file reference.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assetguard/internal/domain"
)

var ErrUnreachable = errors.New("content unreachable")

type HTTPFetcher struct {
	baseURL  *url.URL
	timeout  time.Duration
	maxBytes int64
	httpDo   func(*http.Request) (*http.Response, error)
}

// NewHTTPFetcher resolves relative references against baseURL; absolute http(s)
// references are fetched as given.
func NewHTTPFetcher(baseURL string, timeout time.Duration, maxBytes int64, httpClient *http.Client) (*HTTPFetcher, error) {
	f := &HTTPFetcher{timeout: timeout, maxBytes: maxBytes, httpDo: http.DefaultClient.Do}
	if httpClient != nil {
		f.httpDo = httpClient.Do
	}
	if strings.TrimSpace(baseURL) != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse content base url: %w", err)
		}
		f.baseURL = u
	}
	return f, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpDo(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("content exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

func (f *HTTPFetcher) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty file reference", domain.ErrMalformedInput)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrMalformedInput, u.Scheme)
		}
		return u.String(), nil
	}
	if f.baseURL == nil {
		return "", fmt.Errorf("%w: relative reference without CONTENT_BASE_URL", domain.ErrMalformedInput)
	}
	return f.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String(), nil
}
