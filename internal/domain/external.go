package domain

import "context"

type ContentFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type RiskOracle interface {
	Assess(ctx context.Context, payload string, payloadType PayloadType) (RiskSignal, error)
}

type StegoOracle interface {
	Extract(ctx context.Context, basePayload string, cfg StegoConfig) (StegoExtraction, error)
}
