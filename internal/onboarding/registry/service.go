// internal/onboarding/registry/service.go
// Package registry resolves carrier identity records from the external
// authority registry by docket number.
package registry

import (
	"context"
	"strings"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/metrics"
	"carrier-onboarding/internal/models"
)

// Client resolves one registry record. Implementations return
// REGISTRY_NOT_FOUND when no record matches and REGISTRY_UNAVAILABLE for
// transient failures.
type Client interface {
	Lookup(ctx context.Context, docketNumber string) (*models.CarrierRegistryRecord, error)
}

// NormalizeDocket strips everything but digits from a free-text docket
// number ("MC-482019" -> "482019").
func NormalizeDocket(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Service struct {
	client Client
	logger logger.Logger
}

func NewService(client Client, log logger.Logger) *Service {
	return &Service{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "registry-lookup"}),
	}
}

// Lookup normalizes the input and resolves the record. Repeated lookups
// with the same number are idempotent absent upstream changes.
func (s *Service) Lookup(ctx context.Context, rawDocket string) (*models.CarrierRegistryRecord, error) {
	normalized := NormalizeDocket(rawDocket)
	if normalized == "" {
		return nil, errors.NewValidationFailedError("docket number must contain at least one digit")
	}

	start := time.Now()
	record, err := s.client.Lookup(ctx, normalized)
	metrics.ExternalCallDuration.WithLabelValues("registry").Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.NewRegistryUnavailableError(ctx.Err())
		}
		stdErr := errors.AsStandard(err)
		if stdErr == nil {
			err = errors.NewRegistryUnavailableError(err)
			stdErr = errors.AsStandard(err)
		}
		metrics.ExternalCallFailures.WithLabelValues("registry", string(stdErr.Code)).Inc()
		s.logger.Warn("registry lookup failed", map[string]interface{}{
			"docketNumber": normalized,
			"errorCode":    string(stdErr.Code),
		})
		return nil, err
	}

	s.logger.Info("registry record resolved", map[string]interface{}{
		"docketNumber": normalized,
		"legalName":    record.LegalName,
		"fleetSize":    record.FleetSize,
	})
	return record, nil
}
