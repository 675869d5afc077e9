package health

import "context"

// CachePinger checks vector store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks LLM provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
