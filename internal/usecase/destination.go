package usecase

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var defaultTrackingParams = []string{"fbclid", "gclid", "igshid", "mc_cid", "mc_eid", "yclid", "msclkid"}

var errOpaqueDestination = errors.New("destination is not an absolute locator")

// DestinationNormalizer strips tracking noise so benign redirector additions compare equal.
type DestinationNormalizer struct {
	extra map[string]struct{}
}

func NewDestinationNormalizer(extraParams []string) DestinationNormalizer {
	extra := make(map[string]struct{}, len(defaultTrackingParams)+len(extraParams))
	for _, p := range append(append([]string{}, defaultTrackingParams...), extraParams...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			extra[p] = struct{}{}
		}
	}
	return DestinationNormalizer{extra: extra}
}

func (n DestinationNormalizer) isTracking(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := n.extra[key]
	return ok
}

// Normalize returns the canonical form of an absolute locator: lowercase scheme and host,
// default port dropped, fragment dropped, tracking parameters removed, query sorted and
// an empty path rendered as "/".
func (n DestinationNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errOpaqueDestination
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	for key := range query {
		if n.isTracking(key) {
			query.Del(key)
		}
	}
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var qb strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, v := range values {
			if qb.Len() > 0 {
				qb.WriteByte('&')
			}
			qb.WriteString(url.QueryEscape(key))
			qb.WriteByte('=')
			qb.WriteString(url.QueryEscape(v))
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	out := scheme + "://" + host + path
	if qb.Len() > 0 {
		out += "?" + qb.String()
	}
	return out, nil
}

// Same reports whether expected and observed name the same destination. Structured
// locators compare in normalized form; opaque payloads compare verbatim. An observed
// value that cannot be parsed never matches a structured expectation.
func (n DestinationNormalizer) Same(expected, observed string) (bool, string) {
	exp, expErr := n.Normalize(expected)
	obs, obsErr := n.Normalize(observed)
	switch {
	case expErr == nil && obsErr == nil:
		if exp == obs {
			return true, ""
		}
		return false, "destination mismatch: possible overlay or substitution"
	case expErr != nil && obsErr != nil && errors.Is(expErr, errOpaqueDestination) && errors.Is(obsErr, errOpaqueDestination):
		if strings.TrimSpace(expected) == strings.TrimSpace(observed) {
			return true, ""
		}
		return false, "payload mismatch: possible overlay or substitution"
	case obsErr != nil && !errors.Is(obsErr, errOpaqueDestination):
		return false, "observed destination is malformed"
	default:
		return false, "destination mismatch: possible overlay or substitution"
	}
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
