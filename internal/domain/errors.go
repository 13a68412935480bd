package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrKeyNotFound         = errors.New("key not found")
	ErrMalformedInput      = errors.New("malformed input")
	ErrKeyRevoked          = errors.New("key revoked")
	ErrInvalidToken        = errors.New("token invalid")
	ErrAlreadyUsed         = errors.New("token already used")
	ErrExpired             = errors.New("token expired")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrAlreadyFinalized    = errors.New("asset already finalized")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrOriginNotAllowed    = errors.New("origin not allowed")
	ErrRateLimited         = errors.New("rate limited")
)
