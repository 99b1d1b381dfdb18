// internal/onboarding/registry/service_test.go
package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// stubClient resolves canned records, keyed by normalized docket number.
type stubClient struct {
	records map[string]*models.CarrierRegistryRecord
	err     error
	delay   time.Duration
	calls   []string
}

func (c *stubClient) Lookup(ctx context.Context, docketNumber string) (*models.CarrierRegistryRecord, error) {
	c.calls = append(c.calls, docketNumber)

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	record, ok := c.records[docketNumber]
	if !ok {
		return nil, errors.NewRegistryNotFoundError(docketNumber)
	}
	return record, nil
}

func createStubClient() *stubClient {
	return &stubClient{
		records: map[string]*models.CarrierRegistryRecord{
			"777777": {
				DocketNumber:       "777777",
				LegalName:          "Golden State Freight LLC",
				AuthorityStatus:    models.AuthorityActive,
				AuthorityGrantedAt: time.Date(2015, 5, 20, 0, 0, 0, 0, time.UTC),
				FleetSize:          45,
				SafetyRating:       models.SafetySatisfactory,
				ContactEmail:       "dispatch@goldenstatefreight.com",
			},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNormalizeDocket(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"777777", "777777"},
		{"MC-777777", "777777"},
		{"mc 777 777", "777777"},
		{"  777-777  ", "777777"},
		{"MC#777.777", "777777"},
		{"no digits", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDocket(tt.input), "input %q", tt.input)
	}
}

func TestService_Lookup_ResolvesRecord(t *testing.T) {
	client := createStubClient()
	svc := NewService(client, logger.NewTestLogger(t))

	record, err := svc.Lookup(context.Background(), "MC-777777")

	require.NoError(t, err)
	assert.Equal(t, "777777", record.DocketNumber)
	assert.Equal(t, "Golden State Freight LLC", record.LegalName)
	assert.Equal(t, []string{"777777"}, client.calls)
}

func TestService_Lookup_IsIdempotent(t *testing.T) {
	client := createStubClient()
	svc := NewService(client, logger.NewTestLogger(t))

	first, err := svc.Lookup(context.Background(), "777777")
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), "MC 777777")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestService_Lookup_NotFound(t *testing.T) {
	client := createStubClient()
	svc := NewService(client, logger.NewTestLogger(t))

	record, err := svc.Lookup(context.Background(), "000001")

	assert.Nil(t, record)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryNotFound))
	assert.False(t, errors.IsRetryable(err))
}

func TestService_Lookup_RejectsInputWithoutDigits(t *testing.T) {
	client := createStubClient()
	svc := NewService(client, logger.NewTestLogger(t))

	_, err := svc.Lookup(context.Background(), "not a number")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Empty(t, client.calls, "no lookup should be attempted")
}

func TestService_Lookup_WrapsTransportErrors(t *testing.T) {
	client := createStubClient()
	client.err = fmt.Errorf("connection refused")
	svc := NewService(client, logger.NewTestLogger(t))

	_, err := svc.Lookup(context.Background(), "777777")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryUnavailable))
	assert.True(t, errors.IsRetryable(err))
}

func TestService_Lookup_TimeoutBecomesRetryable(t *testing.T) {
	client := createStubClient()
	client.delay = 200 * time.Millisecond
	svc := NewService(client, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Lookup(ctx, "777777")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryUnavailable))
	assert.True(t, errors.IsRetryable(err))
}
