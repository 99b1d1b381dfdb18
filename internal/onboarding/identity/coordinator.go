// internal/onboarding/identity/coordinator.go
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/metrics"
)

// Delivery sends identity-verification mail on behalf of the workflow.
type Delivery interface {
	SendCode(ctx context.Context, email, code string) error
	SendAttestationRequest(ctx context.Context, agentEmail, carrierName string) error
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Coordinator runs the two identity-verification paths: direct one-time
// codes mailed to the registry contact, and attestation requests mailed
// to the carrier's insurance agent.
type Coordinator struct {
	codes       CodeStore
	delivery    Delivery
	codeTTL     time.Duration
	maxAttempts int
	logger      logger.Logger
}

func NewCoordinator(codes CodeStore, delivery Delivery, codeTTL time.Duration, maxAttempts int, log logger.Logger) *Coordinator {
	return &Coordinator{
		codes:       codes,
		delivery:    delivery,
		codeTTL:     codeTTL,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

// SendCode issues a fresh six-digit code for the email and delivers it.
// Any previously issued code for the same email is invalidated, whether
// or not delivery succeeds.
func (c *Coordinator) SendCode(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return errors.NewCodeDeliveryFailedError(err)
	}

	start := time.Now()
	if err := c.delivery.SendCode(ctx, email, code); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("email", string(errors.ErrCodeCodeDeliveryFailed)).Inc()
		c.logger.WithError(err).Error("verification code delivery failed", map[string]interface{}{
			"email": email,
		})
		return errors.NewCodeDeliveryFailedError(err)
	}
	metrics.ExternalCallDuration.WithLabelValues("email").Observe(time.Since(start).Seconds())

	if err := c.codes.Put(ctx, email, code, c.codeTTL); err != nil {
		// The mail went out but the code is not confirmable; the caller
		// retries, which issues and delivers a new code.
		return errors.NewCodeDeliveryFailedError(err)
	}

	c.logger.Info("verification code issued", map[string]interface{}{
		"email":      email,
		"ttlSeconds": int(c.codeTTL.Seconds()),
	})
	return nil
}

// Confirm checks the entered code against the one issued in the current
// cycle. A wrong code returns (false, nil); input that is not six digits
// is a validation error; too many wrong attempts invalidates the cycle.
func (c *Coordinator) Confirm(ctx context.Context, email, entered string) (bool, error) {
	if !codePattern.MatchString(entered) {
		return false, errors.NewValidationFailedError("code must be exactly six digits")
	}

	issued, err := c.codes.Get(ctx, email)
	if err == ErrNoActiveCode {
		return false, errors.NewValidationFailedError("no verification code has been issued for this email")
	}
	if err != nil {
		return false, errors.NewStateStoreFailedError(err)
	}

	attempts, err := c.codes.IncrementAttempts(ctx, email)
	if err != nil {
		return false, errors.NewStateStoreFailedError(err)
	}
	if attempts > c.maxAttempts {
		if clearErr := c.codes.Clear(ctx, email); clearErr != nil {
			c.logger.WithError(clearErr).Warn("failed to clear locked verification code", nil)
		}
		c.logger.Warn("verification code locked after too many attempts", map[string]interface{}{
			"email":    email,
			"attempts": attempts,
		})
		return false, errors.NewValidationFailedError("too many incorrect attempts, request a new code")
	}

	if entered != issued {
		return false, nil
	}

	if err := c.codes.Clear(ctx, email); err != nil {
		c.logger.WithError(err).Warn("failed to clear confirmed verification code", nil)
	}
	return true, nil
}

// RequestAttestation asks the carrier's insurance agent to vouch for the
// applicant. Delivery failure is retryable and leaves no partial state.
func (c *Coordinator) RequestAttestation(ctx context.Context, agentEmail, carrierName string) error {
	start := time.Now()
	if err := c.delivery.SendAttestationRequest(ctx, agentEmail, carrierName); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("email", string(errors.ErrCodeAttestationSendFailed)).Inc()
		c.logger.WithError(err).Error("attestation request delivery failed", map[string]interface{}{
			"agentEmail": agentEmail,
			"carrier":    carrierName,
		})
		return errors.NewAttestationSendFailedError(err)
	}
	metrics.ExternalCallDuration.WithLabelValues("email").Observe(time.Since(start).Seconds())

	c.logger.Info("attestation request sent", map[string]interface{}{
		"agentEmail": agentEmail,
		"carrier":    carrierName,
	})
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
