// Package health aggregates component availability for the health endpoint.
// The process itself always reports; failing dependencies degrade the
// status, they never make the endpoint error out.
package health

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure of all checked components.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status      Status
	CacheStatus domain.CacheStatus
	Checks      map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache    CachePinger
	provider ProviderChecker
}

// New creates a Service. cache may be nil when no store is configured;
// that counts as a permanently failing cache check.
func New(cache CachePinger, provider ProviderChecker) *Service {
	return &Service{cache: cache, provider: provider}
}

// Check probes every component.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	cacheStatus := domain.CacheActive
	if s.cache == nil {
		checks["cache"] = CheckError
		cacheStatus = domain.CacheDegraded
	} else if err := s.cache.Ping(ctx); err != nil {
		checks["cache"] = CheckError
		cacheStatus = domain.CacheDegraded
	} else {
		checks["cache"] = CheckOK
	}

	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			checks["llm"] = CheckError
		} else {
			checks["llm"] = CheckOK
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks) && failed > 0:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, CacheStatus: cacheStatus, Checks: checks}
}
