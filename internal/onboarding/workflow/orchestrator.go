// internal/onboarding/workflow/orchestrator.go
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/metrics"
	"carrier-onboarding/internal/common/validation"
	"carrier-onboarding/internal/models"
	"carrier-onboarding/internal/onboarding/documents"
	"carrier-onboarding/internal/onboarding/gate"
	"carrier-onboarding/internal/onboarding/identity"
	"carrier-onboarding/internal/onboarding/payout"
	"carrier-onboarding/internal/onboarding/registry"
)

// DefaultCallTimeout bounds every external call made by an operation.
const DefaultCallTimeout = 15 * time.Second

// Orchestrator owns the onboarding state machine. Every operation loads
// the carrier's state, validates the stage guard, performs at most one
// external call, and commits the state only on success; a failure leaves
// the persisted state exactly as it was before the call.
type Orchestrator struct {
	store      StateStore
	registry   *registry.Service
	identity   *identity.Coordinator
	documents  *documents.Tracker
	payout     *payout.Linker
	finalizer  ProfileFinalizer
	events     DecisionPublisher
	thresholds gate.Thresholds

	callTimeout time.Duration
	logger      logger.Logger
	now         func() time.Time
}

// Deps carries the orchestrator's collaborators. Events may be nil when
// no decision topic is configured; everything else is required.
type Deps struct {
	Store     StateStore
	Registry  *registry.Service
	Identity  *identity.Coordinator
	Documents *documents.Tracker
	Payout    *payout.Linker
	Finalizer ProfileFinalizer
	Events    DecisionPublisher

	Thresholds  gate.Thresholds
	CallTimeout time.Duration
	Logger      logger.Logger
	Now         func() time.Time
}

func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		store:       deps.Store,
		registry:    deps.Registry,
		identity:    deps.Identity,
		documents:   deps.Documents,
		payout:      deps.Payout,
		finalizer:   deps.Finalizer,
		events:      deps.Events,
		thresholds:  deps.Thresholds,
		callTimeout: deps.CallTimeout,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if o.thresholds == (gate.Thresholds{}) {
		o.thresholds = gate.DefaultThresholds()
	}
	if o.callTimeout <= 0 {
		o.callTimeout = DefaultCallTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// ==========================
// Lifecycle
// ==========================

// Begin starts onboarding for the carrier, or resumes the existing one.
// An empty carrierID gets a generated id.
func (o *Orchestrator) Begin(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	if carrierID == "" {
		carrierID = uuid.NewString()
	}

	existing, err := o.store.Load(ctx, carrierID)
	if err == nil {
		return existing, nil
	}
	if err != ErrStateNotFound {
		return nil, errors.NewStateStoreFailedError(err)
	}

	state := models.NewOnboardingState(carrierID, o.now())
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	o.logger.Info("onboarding started", map[string]interface{}{
		"carrierId": carrierID,
	})
	return state, nil
}

// Reset returns the carrier to the first stage with all workflow state
// cleared. Valid from every stage, including the terminal ones.
func (o *Orchestrator) Reset(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}

	fresh := models.NewOnboardingState(carrierID, o.now())
	fresh.CreatedAt = state.CreatedAt
	if err := o.commit(ctx, fresh); err != nil {
		return nil, err
	}

	metrics.StageTransitions.WithLabelValues(string(state.Stage), string(models.StageEmailVerification)).Inc()
	o.logger.Info("onboarding reset", map[string]interface{}{
		"carrierId": carrierID,
		"fromStage": string(state.Stage),
	})
	return fresh, nil
}

// ==========================
// Email verification
// ==========================

// SubmitBusinessEmail validates the email as a plausible business address
// and advances to the lookup stage. This is a coarse pre-filter only.
func (o *Orchestrator) SubmitBusinessEmail(ctx context.Context, carrierID, email string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageEmailVerification {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "submit_business_email")
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if !validation.ValidateEmail(email) {
		return nil, errors.NewValidationFailedError("email address is not syntactically valid")
	}
	if !validation.IsBusinessEmail(email) {
		return nil, errors.NewValidationFailedError("a business email address is required; consumer mail domains are not accepted")
	}

	state.BusinessEmail = email
	if err := o.advance(state, EventEmailVerified); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ==========================
// Lookup and gate evaluation
// ==========================

// Lookup resolves the registry record for the entered docket number and
// runs the admission gates. Passing advances to identity verification;
// failing lands in the rejected terminal stage with the gate reasons.
//
// The entered number is committed before the call; if a newer number is
// committed while the call is in flight, the resolved result is stale and
// discarded rather than applied.
func (o *Orchestrator) Lookup(ctx context.Context, carrierID, docket string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageLookup {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "lookup")
	}

	normalized := registry.NormalizeDocket(docket)
	if normalized == "" {
		return nil, errors.NewValidationFailedError("identifying number must contain digits")
	}

	state.DocketNumber = normalized
	state.Registry = nil
	state.Gates = nil
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	record, err := o.registry.Lookup(callCtx, normalized)
	cancel()
	if err != nil {
		return nil, err
	}

	state, err = o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageLookup || state.DocketNumber != normalized {
		return nil, errors.NewStaleRequestError("lookup")
	}

	evaluation := gate.EvaluateWith(record, o.now(), o.thresholds)
	state.Registry = record
	state.Gates = &evaluation
	state.RiskScore = computeRiskScore(state)

	if evaluation.Passed {
		if err := o.advance(state, EventGatesPassed); err != nil {
			return nil, err
		}
		if err := o.commit(ctx, state); err != nil {
			return nil, err
		}
		return state, nil
	}

	recordGateRejections(&evaluation)
	state.RejectionReasons = evaluation.FailureReasons
	if err := o.advance(state, EventGatesFailed); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	o.publishDecision(ctx, state, DecisionRejected, evaluation.FailureReasons)
	return state, nil
}

// ==========================
// Identity verification
// ==========================

// ChooseIdentityMethod selects one of the two identity paths. Switching
// discards the abandoned path's in-progress state.
func (o *Orchestrator) ChooseIdentityMethod(ctx context.Context, carrierID string, method models.IdentityMethod) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageIdentityVerification {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "choose_identity_method")
	}

	switch method {
	case models.IdentityMethodDirectCode, models.IdentityMethodAttestation:
	default:
		return nil, errors.NewValidationFailedError(fmt.Sprintf("unknown identity method: %s", method))
	}

	if state.IdentityMethod != method {
		state.IdentityMethod = method
		state.CodeRequested = false
		state.IdentityVerified = false
		state.AttestationRequested = false
		state.RiskScore = computeRiskScore(state)
		if err := o.commit(ctx, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// SendVerificationCode mails a one-time code to the contact email on file
// in the registry record.
func (o *Orchestrator) SendVerificationCode(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageIdentityVerification || state.IdentityMethod != models.IdentityMethodDirectCode {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "send_verification_code")
	}
	if state.Registry == nil || state.Registry.ContactEmail == "" {
		return nil, errors.NewValidationFailedError("no contact email on file for this carrier")
	}

	contactEmail := state.Registry.ContactEmail
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.identity.SendCode(callCtx, contactEmail)
	cancel()
	if err != nil {
		return nil, err
	}

	state, err = o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageIdentityVerification ||
		state.IdentityMethod != models.IdentityMethodDirectCode ||
		state.Registry == nil || state.Registry.ContactEmail != contactEmail {
		return nil, errors.NewStaleRequestError("send_verification_code")
	}

	state.CodeRequested = true
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ConfirmVerificationCode checks the entered code. A wrong code reports
// confirmed=false and mutates nothing; the correct code marks identity
// verified and advances to the documents stage.
func (o *Orchestrator) ConfirmVerificationCode(ctx context.Context, carrierID, code string) (*models.OnboardingState, bool, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, false, err
	}
	if state.Stage != models.StageIdentityVerification || state.IdentityMethod != models.IdentityMethodDirectCode {
		return nil, false, errors.NewInvalidTransitionError(string(state.Stage), "confirm_verification_code")
	}
	if !state.CodeRequested {
		return nil, false, errors.NewValidationFailedError("no verification code has been requested")
	}

	confirmed, err := o.identity.Confirm(ctx, state.Registry.ContactEmail, code)
	if err != nil {
		return nil, false, err
	}
	if !confirmed {
		return state, false, nil
	}

	state.IdentityVerified = true
	state.RiskScore = computeRiskScore(state)
	if err := o.advance(state, EventIdentitySatisfied); err != nil {
		return nil, false, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// RequestAttestation mails the carrier's insurance agent and advances
// optimistically; the identity stays visibly unconfirmed downstream.
func (o *Orchestrator) RequestAttestation(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageIdentityVerification || state.IdentityMethod != models.IdentityMethodAttestation {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "request_attestation")
	}
	if state.Registry == nil || state.Registry.InsuranceAgentEmail == "" {
		return nil, errors.NewValidationFailedError("no insurance agent email on file for this carrier")
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.identity.RequestAttestation(callCtx, state.Registry.InsuranceAgentEmail, state.Registry.LegalName)
	cancel()
	if err != nil {
		return nil, err
	}

	state, err = o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageIdentityVerification || state.IdentityMethod != models.IdentityMethodAttestation {
		return nil, errors.NewStaleRequestError("request_attestation")
	}

	state.AttestationRequested = true
	state.RiskScore = computeRiskScore(state)
	if err := o.advance(state, EventIdentitySatisfied); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ==========================
// Documents
// ==========================

// AttachDocument uploads a compliance document. The attach that completes
// the required set advances to the bank-connection stage.
func (o *Orchestrator) AttachDocument(ctx context.Context, carrierID string, slot models.DocumentSlot, filename string, data []byte) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageDocuments {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "attach_document")
	}
	if !slotIn(slot, models.CarrierDocumentSlots) {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("slot %s is not a compliance document", slot))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.documents.Attach(callCtx, state, slot, filename, data, o.now())
	cancel()
	if err != nil {
		return nil, err
	}

	if state.DocumentsComplete() {
		if err := o.advance(state, EventDocumentsComplete); err != nil {
			return nil, err
		}
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ClearDocument empties a compliance document slot before submission.
func (o *Orchestrator) ClearDocument(ctx context.Context, carrierID string, slot models.DocumentSlot) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageDocuments {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "clear_document")
	}
	if !slotIn(slot, models.CarrierDocumentSlots) {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("slot %s is not a compliance document", slot))
	}

	if err := o.documents.Clear(ctx, state, slot); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ==========================
// Payout
// ==========================

// ChoosePayoutMethod selects a payout path; switching discards the
// abandoned path's progress.
func (o *Orchestrator) ChoosePayoutMethod(ctx context.Context, carrierID string, method models.PayoutMethod) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageBankConnection {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "choose_payout_method")
	}

	if err := o.payout.ChooseMethod(state, method); err != nil {
		return nil, err
	}
	state.RiskScore = computeRiskScore(state)
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// LinkAccount completes the linked-account payout path and advances to
// review.
func (o *Orchestrator) LinkAccount(ctx context.Context, carrierID, publicToken string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageBankConnection {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "link_account")
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.payout.LinkAccount(callCtx, state, publicToken)
	cancel()
	if err != nil {
		return nil, err
	}

	if err := o.advance(state, EventPayoutConnected); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// AttachBankDocument uploads a banking document on the manual path. The
// upload that completes both slots marks the payout connected, without
// instant settlement, and advances to review.
func (o *Orchestrator) AttachBankDocument(ctx context.Context, carrierID string, slot models.DocumentSlot, filename string, data []byte) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageBankConnection {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "attach_bank_document")
	}
	if state.PayoutMethod != models.PayoutMethodManualDocuments {
		return nil, errors.NewValidationFailedError("manual-documents path is not selected")
	}
	if !slotIn(slot, models.BankDocumentSlots) {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("slot %s is not a banking document", slot))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.documents.Attach(callCtx, state, slot, filename, data, o.now())
	cancel()
	if err != nil {
		return nil, err
	}

	o.payout.RefreshManual(state)
	state.RiskScore = computeRiskScore(state)
	if state.PayoutConnected {
		if err := o.advance(state, EventPayoutConnected); err != nil {
			return nil, err
		}
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ==========================
// Submission
// ==========================

// Submit finalizes the consolidated profile to the system of record and
// completes the workflow. On persist failure the carrier stays in review
// and may retry.
func (o *Orchestrator) Submit(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	if state.Stage != models.StageReview {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), "submit")
	}
	if !state.CanSubmit() {
		return nil, errors.NewValidationFailedError("onboarding is not complete; every stage must be finished before submission")
	}

	profile := buildProfile(state, o.now())
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	err = o.finalizer.Finalize(callCtx, profile)
	cancel()
	if err != nil {
		metrics.ExternalCallFailures.WithLabelValues("system_of_record", string(errors.ErrCodeProfilePersistFailed)).Inc()
		return nil, errors.NewProfilePersistFailedError(err)
	}

	if err := o.advance(state, EventSubmitted); err != nil {
		return nil, err
	}
	if err := o.commit(ctx, state); err != nil {
		return nil, err
	}
	o.publishDecision(ctx, state, DecisionCompleted, nil)

	if err := o.store.Delete(ctx, carrierID); err != nil {
		o.logger.WithError(err).Warn("failed to clear completed onboarding state", map[string]interface{}{
			"carrierId": carrierID,
		})
	}

	o.logger.Info("onboarding completed", map[string]interface{}{
		"carrierId": carrierID,
		"docket":    state.DocketNumber,
		"riskScore": state.RiskScore,
	})
	return state, nil
}

// ==========================
// Internals
// ==========================

func (o *Orchestrator) load(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	state, err := o.store.Load(ctx, carrierID)
	if err == ErrStateNotFound {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("no onboarding in progress for carrier %s", carrierID))
	}
	if err != nil {
		return nil, errors.NewStateStoreFailedError(err)
	}
	return state, nil
}

func (o *Orchestrator) commit(ctx context.Context, state *models.OnboardingState) error {
	state.UpdatedAt = o.now()
	if err := o.store.Save(ctx, state); err != nil {
		return errors.NewStateStoreFailedError(err)
	}
	return nil
}

func (o *Orchestrator) advance(state *models.OnboardingState, event Event) error {
	to, err := nextStage(state.Stage, event)
	if err != nil {
		return err
	}
	metrics.StageTransitions.WithLabelValues(string(state.Stage), string(to)).Inc()
	o.logger.Info("stage transition", map[string]interface{}{
		"carrierId": state.CarrierID,
		"from":      string(state.Stage),
		"to":        string(to),
		"event":     string(event),
	})
	state.Stage = to
	return nil
}

// publishDecision emits a decision event after the transition committed.
// Publish failure is logged and never undoes the transition.
func (o *Orchestrator) publishDecision(ctx context.Context, state *models.OnboardingState, decision string, reasons []string) {
	if o.events == nil {
		return
	}
	event := DecisionEvent{
		CarrierID:  state.CarrierID,
		Decision:   decision,
		Reasons:    reasons,
		RiskScore:  state.RiskScore,
		OccurredAt: o.now(),
	}
	if err := o.events.PublishDecision(ctx, event); err != nil {
		o.logger.WithError(err).Warn("failed to publish decision event", map[string]interface{}{
			"carrierId": state.CarrierID,
			"decision":  decision,
		})
	}
}

// computeRiskScore derives the review risk score from the current state.
func computeRiskScore(state *models.OnboardingState) int {
	score := 0
	if state.IdentityUnconfirmed() {
		score += 25
	}
	if state.PayoutMethod == models.PayoutMethodManualDocuments {
		score += 10
	}
	if state.Registry != nil && state.Registry.SafetyRating == models.SafetyNone {
		score += 15
	}
	return score
}

func recordGateRejections(evaluation *models.GateEvaluation) {
	if !evaluation.Age.Passed {
		metrics.GateRejections.WithLabelValues("age").Inc()
	}
	if !evaluation.FleetSize.Passed {
		metrics.GateRejections.WithLabelValues("size").Inc()
	}
	if !evaluation.Safety.Passed {
		metrics.GateRejections.WithLabelValues("safety").Inc()
	}
	if !evaluation.Stability.Passed {
		metrics.GateRejections.WithLabelValues("stability").Inc()
	}
}

func slotIn(slot models.DocumentSlot, slots []models.DocumentSlot) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
