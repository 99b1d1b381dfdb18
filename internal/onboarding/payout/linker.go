// internal/onboarding/payout/linker.go
package payout

import (
	"context"
	"fmt"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/metrics"
	"carrier-onboarding/internal/models"
)

// AccountLinker exchanges a carrier-supplied public token for a linked
// payout account at the external banking provider.
type AccountLinker interface {
	Link(ctx context.Context, carrierID, publicToken string) (accountRef string, err error)
}

// Linker manages the two payout paths: an instantly-eligible linked
// account, or manual banking documents reviewed by an operator.
type Linker struct {
	accounts AccountLinker
	logger   logger.Logger
}

func NewLinker(accounts AccountLinker, log logger.Logger) *Linker {
	return &Linker{accounts: accounts, logger: log}
}

// ChooseMethod selects a payout path. Switching paths discards whatever
// partial progress the other path had accumulated.
func (l *Linker) ChooseMethod(state *models.OnboardingState, method models.PayoutMethod) error {
	switch method {
	case models.PayoutMethodLinkedAccount, models.PayoutMethodManualDocuments:
	default:
		return errors.NewValidationFailedError(fmt.Sprintf("unknown payout method: %s", method))
	}

	if state.PayoutMethod == method {
		return nil
	}

	state.PayoutMethod = method
	state.PayoutConnected = false
	state.InstantEligible = false
	if method == models.PayoutMethodLinkedAccount {
		delete(state.Documents, models.SlotBankTaxForm)
		delete(state.Documents, models.SlotVoidedCheck)
	}

	l.logger.Info("payout method selected", map[string]interface{}{
		"carrierId": state.CarrierID,
		"method":    string(method),
	})
	return nil
}

// LinkAccount completes the linked-account path. Success marks the
// carrier connected and eligible for instant payouts.
func (l *Linker) LinkAccount(ctx context.Context, state *models.OnboardingState, publicToken string) error {
	if state.PayoutMethod != models.PayoutMethodLinkedAccount {
		return errors.NewValidationFailedError("linked-account path is not selected")
	}
	if publicToken == "" {
		return errors.NewValidationFailedError("bank link token is required")
	}

	start := time.Now()
	accountRef, err := l.accounts.Link(ctx, state.CarrierID, publicToken)
	if err != nil {
		metrics.ExternalCallFailures.WithLabelValues("bank_link", string(errors.ErrCodeBankLinkFailed)).Inc()
		l.logger.WithError(err).Error("bank account link failed", map[string]interface{}{
			"carrierId": state.CarrierID,
		})
		return errors.NewBankLinkFailedError(err)
	}
	metrics.ExternalCallDuration.WithLabelValues("bank_link").Observe(time.Since(start).Seconds())

	state.PayoutConnected = true
	state.InstantEligible = true

	l.logger.Info("bank account linked", map[string]interface{}{
		"carrierId":  state.CarrierID,
		"accountRef": accountRef,
	})
	return nil
}

// RefreshManual marks the manual path connected once both banking
// documents are in place. Instant payouts stay off on this path.
func (l *Linker) RefreshManual(state *models.OnboardingState) {
	if state.PayoutMethod != models.PayoutMethodManualDocuments {
		return
	}
	connected := state.BankDocumentsComplete()
	if connected && !state.PayoutConnected {
		l.logger.Info("manual banking documents complete", map[string]interface{}{
			"carrierId": state.CarrierID,
		})
	}
	state.PayoutConnected = connected
	state.InstantEligible = false
}
