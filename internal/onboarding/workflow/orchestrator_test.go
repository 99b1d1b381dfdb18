// internal/onboarding/workflow/orchestrator_test.go
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/models"
	"carrier-onboarding/internal/onboarding/documents"
	"carrier-onboarding/internal/onboarding/identity"
	"carrier-onboarding/internal/onboarding/payout"
	"carrier-onboarding/internal/onboarding/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

// ==========================
// Test Doubles
// ==========================

// memoryStateStore keeps JSON-cloned states so returned values never
// alias the stored ones, matching the row-store the orchestrator runs
// against in production.
type memoryStateStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[string][]byte)}
}

func (s *memoryStateStore) Load(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.states[carrierID]
	if !ok {
		return nil, ErrStateNotFound
	}
	var state models.OnboardingState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	if state.Documents == nil {
		state.Documents = make(map[models.DocumentSlot]models.StoredDocument)
	}
	return &state, nil
}

func (s *memoryStateStore) Save(ctx context.Context, state *models.OnboardingState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.CarrierID] = raw
	return nil
}

func (s *memoryStateStore) Delete(ctx context.Context, carrierID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, carrierID)
	return nil
}

// registryStub serves canned records for the fixture dockets. The hook,
// when set, runs while the lookup is in flight, before the result is
// returned to the orchestrator.
type registryStub struct {
	records map[string]*models.CarrierRegistryRecord
	hook    func(docket string)
}

func (r *registryStub) Lookup(ctx context.Context, docketNumber string) (*models.CarrierRegistryRecord, error) {
	if r.hook != nil {
		r.hook(docketNumber)
	}
	record, ok := r.records[docketNumber]
	if !ok {
		return nil, errors.NewRegistryNotFoundError(docketNumber)
	}
	clone := *record
	return &clone, nil
}

func createRegistryStub() *registryStub {
	compliant := models.CarrierRegistryRecord{
		DocketNumber:        "777777",
		LegalName:           "Golden State Freight LLC",
		AuthorityStatus:     models.AuthorityActive,
		AuthorityGrantedAt:  time.Date(2015, 5, 20, 0, 0, 0, 0, time.UTC),
		FleetSize:           45,
		SafetyRating:        models.SafetySatisfactory,
		ContactEmail:        "dispatch@goldenstatefreight.com",
		InsuranceAgentEmail: "agent@coastalinsurance.com",
	}

	smallFleet := compliant
	smallFleet.DocketNumber = "111111"
	smallFleet.LegalName = "One Truck Hauling"
	smallFleet.FleetSize = 1

	unstable := compliant
	unstable.DocketNumber = "999999"
	unstable.LegalName = "Shifting Sands Logistics"
	unstable.RecentContactChanges = true

	return &registryStub{
		records: map[string]*models.CarrierRegistryRecord{
			"777777": &compliant,
			"111111": &smallFleet,
			"999999": &unstable,
		},
	}
}

// fixedCodeStore always issues "123456" regardless of the generated code,
// so confirmation can be driven deterministically.
type fixedCodeStore struct {
	code     string
	attempts int
	active   bool
}

func (s *fixedCodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	s.code = "123456"
	s.attempts = 0
	s.active = true
	return nil
}

func (s *fixedCodeStore) Get(ctx context.Context, email string) (string, error) {
	if !s.active {
		return "", identity.ErrNoActiveCode
	}
	return s.code, nil
}

func (s *fixedCodeStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	s.attempts++
	return s.attempts, nil
}

func (s *fixedCodeStore) Clear(ctx context.Context, email string) error {
	s.active = false
	return nil
}

type fakeDelivery struct {
	codeEmails   []string
	attestations []string
	err          error
}

func (d *fakeDelivery) SendCode(ctx context.Context, email, code string) error {
	if d.err != nil {
		return d.err
	}
	d.codeEmails = append(d.codeEmails, email)
	return nil
}

func (d *fakeDelivery) SendAttestationRequest(ctx context.Context, agentEmail, carrierName string) error {
	if d.err != nil {
		return d.err
	}
	d.attestations = append(d.attestations, agentEmail)
	return nil
}

type fakeStorage struct {
	err error
}

func (s *fakeStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "s3://test-bucket/" + key, nil
}

func (s *fakeStorage) Remove(ctx context.Context, key string) error {
	return nil
}

type fakeAccountLinker struct {
	err error
}

func (f *fakeAccountLinker) Link(ctx context.Context, carrierID, publicToken string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "acct-9f3", nil
}

type fakeFinalizer struct {
	err      error
	profiles []*CarrierProfile
}

func (f *fakeFinalizer) Finalize(ctx context.Context, profile *CarrierProfile) error {
	if f.err != nil {
		return f.err
	}
	f.profiles = append(f.profiles, profile)
	return nil
}

type fakePublisher struct {
	events []DecisionEvent
	err    error
}

func (p *fakePublisher) PublishDecision(ctx context.Context, event DecisionEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// harness bundles the orchestrator with every test double behind it.
type harness struct {
	orch      *Orchestrator
	store     *memoryStateStore
	registry  *registryStub
	delivery  *fakeDelivery
	codes     *fixedCodeStore
	storage   *fakeStorage
	accounts  *fakeAccountLinker
	finalizer *fakeFinalizer
	events    *fakePublisher
}

func createHarness(t *testing.T) *harness {
	log := logger.NewTestLogger(t)
	h := &harness{
		store:     newMemoryStateStore(),
		registry:  createRegistryStub(),
		delivery:  &fakeDelivery{},
		codes:     &fixedCodeStore{},
		storage:   &fakeStorage{},
		accounts:  &fakeAccountLinker{},
		finalizer: &fakeFinalizer{},
		events:    &fakePublisher{},
	}
	h.orch = New(Deps{
		Store:     h.store,
		Registry:  registry.NewService(h.registry, log),
		Identity:  identity.NewCoordinator(h.codes, h.delivery, 10*time.Minute, 5, log),
		Documents: documents.NewTracker(h.storage, log),
		Payout:    payout.NewLinker(h.accounts, log),
		Finalizer: h.finalizer,
		Events:    h.events,
		Logger:    log,
		Now:       func() time.Time { return testNow },
	})
	return h
}

// driveTo walks a fresh carrier forward to the given stage along the
// linked-account happy path.
func (h *harness) driveTo(t *testing.T, carrierID string, target models.Stage) *models.OnboardingState {
	ctx := context.Background()
	state, err := h.orch.Begin(ctx, carrierID)
	require.NoError(t, err)
	if target == models.StageEmailVerification {
		return state
	}

	state, err = h.orch.SubmitBusinessEmail(ctx, carrierID, "dispatch@goldenstatefreight.com")
	require.NoError(t, err)
	if target == models.StageLookup {
		return state
	}

	state, err = h.orch.Lookup(ctx, carrierID, "777777")
	require.NoError(t, err)
	if target == models.StageIdentityVerification {
		return state
	}

	_, err = h.orch.ChooseIdentityMethod(ctx, carrierID, models.IdentityMethodDirectCode)
	require.NoError(t, err)
	_, err = h.orch.SendVerificationCode(ctx, carrierID)
	require.NoError(t, err)
	state, confirmed, err := h.orch.ConfirmVerificationCode(ctx, carrierID, "123456")
	require.NoError(t, err)
	require.True(t, confirmed)
	if target == models.StageDocuments {
		return state
	}

	_, err = h.orch.AttachDocument(ctx, carrierID, models.SlotInsuranceCertificate, "coi.pdf", []byte("pdf"))
	require.NoError(t, err)
	state, err = h.orch.AttachDocument(ctx, carrierID, models.SlotTaxForm, "w9.pdf", []byte("pdf"))
	require.NoError(t, err)
	if target == models.StageBankConnection {
		return state
	}

	_, err = h.orch.ChoosePayoutMethod(ctx, carrierID, models.PayoutMethodLinkedAccount)
	require.NoError(t, err)
	state, err = h.orch.LinkAccount(ctx, carrierID, "public-token-1")
	require.NoError(t, err)
	require.Equal(t, target, state.Stage)
	return state
}

// ==========================
// End-to-End Scenarios
// ==========================

func TestOnboarding_LinkedAccountHappyPath(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	state := h.driveTo(t, "carrier-42", models.StageReview)
	assert.True(t, state.PayoutConnected)
	assert.True(t, state.InstantEligible)
	assert.True(t, state.CanSubmit())
	assert.Equal(t, 0, state.RiskScore)

	state, err := h.orch.Submit(ctx, "carrier-42")
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, state.Stage)
	assert.Equal(t, 100, state.Progress())

	require.Len(t, h.finalizer.profiles, 1)
	profile := h.finalizer.profiles[0]
	assert.Equal(t, "777777", profile.DocketNumber)
	assert.Equal(t, "Golden State Freight LLC", profile.LegalName)
	assert.False(t, profile.IdentityUnconfirmed)
	assert.Len(t, profile.Documents, 2)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, DecisionCompleted, h.events.events[0].Decision)

	// Completed state is cleared from the store.
	_, err = h.store.Load(ctx, "carrier-42")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestOnboarding_GatePassZeroReasons(t *testing.T) {
	h := createHarness(t)

	state := h.driveTo(t, "carrier-42", models.StageIdentityVerification)

	require.NotNil(t, state.Gates)
	assert.True(t, state.Gates.Passed)
	assert.Empty(t, state.Gates.FailureReasons)
}

func TestOnboarding_RejectedOnFleetSize(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)
	state, err := h.orch.Lookup(ctx, "carrier-42", "111111")
	require.NoError(t, err)

	assert.Equal(t, models.StageRejected, state.Stage)
	require.Len(t, state.RejectionReasons, 1)
	assert.Contains(t, state.RejectionReasons[0], "fleet size")
	assert.Contains(t, state.RejectionReasons[0], "5")
	assert.Contains(t, state.RejectionReasons[0], "1")

	require.Len(t, h.events.events, 1)
	assert.Equal(t, DecisionRejected, h.events.events[0].Decision)
	assert.Equal(t, state.RejectionReasons, h.events.events[0].Reasons)
}

func TestOnboarding_RejectedOnStability(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)
	state, err := h.orch.Lookup(ctx, "carrier-42", "999999")
	require.NoError(t, err)

	assert.Equal(t, models.StageRejected, state.Stage)
	require.Len(t, state.RejectionReasons, 1)
	assert.Contains(t, state.RejectionReasons[0], "contact")
}

func TestOnboarding_RejectedCanResetAndRetry(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)
	_, err := h.orch.Lookup(ctx, "carrier-42", "111111")
	require.NoError(t, err)

	state, err := h.orch.Reset(ctx, "carrier-42")
	require.NoError(t, err)
	assert.Equal(t, models.StageEmailVerification, state.Stage)

	_, err = h.orch.SubmitBusinessEmail(ctx, "carrier-42", "dispatch@goldenstatefreight.com")
	require.NoError(t, err)
	state, err = h.orch.Lookup(ctx, "carrier-42", "777777")
	require.NoError(t, err)
	assert.Equal(t, models.StageIdentityVerification, state.Stage)
}

func TestOnboarding_CodeConfirmScenario(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageIdentityVerification)
	_, err := h.orch.ChooseIdentityMethod(ctx, "carrier-42", models.IdentityMethodDirectCode)
	require.NoError(t, err)
	_, err = h.orch.SendVerificationCode(ctx, "carrier-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"dispatch@goldenstatefreight.com"}, h.delivery.codeEmails)

	state, confirmed, err := h.orch.ConfirmVerificationCode(ctx, "carrier-42", "000000")
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.False(t, state.IdentityVerified)
	assert.Equal(t, models.StageIdentityVerification, state.Stage)

	state, confirmed, err = h.orch.ConfirmVerificationCode(ctx, "carrier-42", "123456")
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.True(t, state.IdentityVerified)
	assert.Equal(t, models.StageDocuments, state.Stage)
}

func TestOnboarding_AttestationPathIsVisiblyUnconfirmed(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageIdentityVerification)
	_, err := h.orch.ChooseIdentityMethod(ctx, "carrier-42", models.IdentityMethodAttestation)
	require.NoError(t, err)

	state, err := h.orch.RequestAttestation(ctx, "carrier-42")
	require.NoError(t, err)

	assert.Equal(t, models.StageDocuments, state.Stage)
	assert.True(t, state.AttestationRequested)
	assert.False(t, state.IdentityVerified)
	assert.True(t, state.IdentityUnconfirmed())
	assert.Equal(t, 25, state.RiskScore)
	assert.Equal(t, []string{"agent@coastalinsurance.com"}, h.delivery.attestations)
}

func TestOnboarding_ManualBankDocumentsPath(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageBankConnection)
	_, err := h.orch.ChoosePayoutMethod(ctx, "carrier-42", models.PayoutMethodManualDocuments)
	require.NoError(t, err)

	state, err := h.orch.AttachBankDocument(ctx, "carrier-42", models.SlotBankTaxForm, "bank-w9.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, models.StageBankConnection, state.Stage)
	assert.False(t, state.PayoutConnected)

	state, err = h.orch.AttachBankDocument(ctx, "carrier-42", models.SlotVoidedCheck, "check.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, models.StageReview, state.Stage)
	assert.True(t, state.PayoutConnected)
	assert.False(t, state.InstantEligible)
	assert.Equal(t, 10, state.RiskScore)
}

// ==========================
// Guards and Failure Semantics
// ==========================

func TestSubmitBusinessEmail_RejectsConsumerDomain(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageEmailVerification)
	_, err := h.orch.SubmitBusinessEmail(ctx, "carrier-42", "owner@gmail.com")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	state, loadErr := h.store.Load(ctx, "carrier-42")
	require.NoError(t, loadErr)
	assert.Equal(t, models.StageEmailVerification, state.Stage)
	assert.Empty(t, state.BusinessEmail)
}

func TestLookup_NotFoundLeavesStageUnchanged(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)
	_, err := h.orch.Lookup(ctx, "carrier-42", "000001")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryNotFound))

	state, loadErr := h.store.Load(ctx, "carrier-42")
	require.NoError(t, loadErr)
	assert.Equal(t, models.StageLookup, state.Stage)
	assert.Nil(t, state.Registry)
	assert.Empty(t, h.events.events)
}

func TestLookup_StaleResultDiscarded(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)

	// A newer docket is committed while the first lookup is in flight.
	h.registry.hook = func(docket string) {
		if docket != "777777" {
			return
		}
		h.registry.hook = nil
		state, err := h.store.Load(ctx, "carrier-42")
		require.NoError(t, err)
		state.DocketNumber = "111111"
		require.NoError(t, h.store.Save(ctx, state))
	}

	_, err := h.orch.Lookup(ctx, "carrier-42", "777777")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStaleRequest))

	state, loadErr := h.store.Load(ctx, "carrier-42")
	require.NoError(t, loadErr)
	assert.Equal(t, "111111", state.DocketNumber, "the newer input wins")
	assert.Nil(t, state.Registry, "the stale record is never applied")
	assert.Equal(t, models.StageLookup, state.Stage)
}

func TestAttachDocument_StorageFailureLeavesSlotAbsent(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageDocuments)
	h.storage.err = fmt.Errorf("bucket unavailable")

	_, err := h.orch.AttachDocument(ctx, "carrier-42", models.SlotInsuranceCertificate, "coi.pdf", []byte("pdf"))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentStorageFailed))
	assert.True(t, errors.IsRetryable(err))

	state, loadErr := h.store.Load(ctx, "carrier-42")
	require.NoError(t, loadErr)
	assert.Equal(t, models.StageDocuments, state.Stage)
	assert.False(t, state.Documents[models.SlotInsuranceCertificate].Present)

	// The same action succeeds once storage recovers.
	h.storage.err = nil
	state, err = h.orch.AttachDocument(ctx, "carrier-42", models.SlotInsuranceCertificate, "coi.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.True(t, state.Documents[models.SlotInsuranceCertificate].Present)
}

func TestClearDocument_FlipsCompletionBack(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageDocuments)
	state, err := h.orch.AttachDocument(ctx, "carrier-42", models.SlotInsuranceCertificate, "coi.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.False(t, state.DocumentsComplete())

	state, err = h.orch.ClearDocument(ctx, "carrier-42", models.SlotInsuranceCertificate)
	require.NoError(t, err)
	assert.False(t, state.Documents[models.SlotInsuranceCertificate].Present)
	assert.False(t, state.DocumentsComplete())
}

func TestActions_InvalidInCurrentStage(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)

	tests := []struct {
		name string
		call func() error
	}{
		{"submit email again", func() error {
			_, err := h.orch.SubmitBusinessEmail(ctx, "carrier-42", "dispatch@goldenstatefreight.com")
			return err
		}},
		{"choose identity method", func() error {
			_, err := h.orch.ChooseIdentityMethod(ctx, "carrier-42", models.IdentityMethodDirectCode)
			return err
		}},
		{"send code", func() error {
			_, err := h.orch.SendVerificationCode(ctx, "carrier-42")
			return err
		}},
		{"attach document", func() error {
			_, err := h.orch.AttachDocument(ctx, "carrier-42", models.SlotTaxForm, "w9.pdf", []byte("pdf"))
			return err
		}},
		{"choose payout", func() error {
			_, err := h.orch.ChoosePayoutMethod(ctx, "carrier-42", models.PayoutMethodLinkedAccount)
			return err
		}},
		{"link account", func() error {
			_, err := h.orch.LinkAccount(ctx, "carrier-42", "public-token-1")
			return err
		}},
		{"submit", func() error {
			_, err := h.orch.Submit(ctx, "carrier-42")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))

			state, loadErr := h.store.Load(ctx, "carrier-42")
			require.NoError(t, loadErr)
			assert.Equal(t, models.StageLookup, state.Stage)
		})
	}
}

func TestSubmit_PersistFailureStaysInReview(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageReview)
	h.finalizer.err = fmt.Errorf("system of record unavailable")

	_, err := h.orch.Submit(ctx, "carrier-42")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProfilePersistFailed))
	assert.True(t, errors.IsRetryable(err))
	assert.Empty(t, h.events.events)

	state, loadErr := h.store.Load(ctx, "carrier-42")
	require.NoError(t, loadErr)
	assert.Equal(t, models.StageReview, state.Stage)

	// User-initiated retry succeeds once the system of record is back.
	h.finalizer.err = nil
	state, err = h.orch.Submit(ctx, "carrier-42")
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, state.Stage)
	assert.Len(t, h.events.events, 1)
}

func TestSubmit_PublishFailureDoesNotUndoCompletion(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageReview)
	h.events.err = fmt.Errorf("topic unavailable")

	state, err := h.orch.Submit(ctx, "carrier-42")

	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, state.Stage)
	require.Len(t, h.finalizer.profiles, 1)
}

func TestReset_FromAnyStage(t *testing.T) {
	stages := []models.Stage{
		models.StageLookup,
		models.StageIdentityVerification,
		models.StageDocuments,
		models.StageBankConnection,
		models.StageReview,
	}

	for _, target := range stages {
		t.Run(string(target), func(t *testing.T) {
			h := createHarness(t)
			ctx := context.Background()
			carrierID := "carrier-" + string(target)

			h.driveTo(t, carrierID, target)
			state, err := h.orch.Reset(ctx, carrierID)

			require.NoError(t, err)
			assert.Equal(t, models.StageEmailVerification, state.Stage)
			assert.Equal(t, 0, state.Progress())
			assert.Empty(t, state.BusinessEmail)
			assert.Nil(t, state.Registry)
			assert.Nil(t, state.Gates)
			assert.False(t, state.IdentitySatisfied())
			assert.False(t, state.DocumentsComplete())
			assert.False(t, state.PayoutConnected)
			assert.False(t, state.CanSubmit())
			assert.Equal(t, 0, state.RiskScore)
		})
	}
}

func TestBegin_IsIdempotent(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageDocuments)
	state, err := h.orch.Begin(ctx, "carrier-42")

	require.NoError(t, err)
	assert.Equal(t, models.StageDocuments, state.Stage, "begin resumes existing onboarding")
}

func TestBegin_GeneratesCarrierID(t *testing.T) {
	h := createHarness(t)

	state, err := h.orch.Begin(context.Background(), "")

	require.NoError(t, err)
	assert.NotEmpty(t, state.CarrierID)
	assert.Equal(t, models.StageEmailVerification, state.Stage)
}

func TestSnapshot_ProgressAndFlags(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageDocuments)
	snapshot, err := h.orch.Snapshot(ctx, "carrier-42")
	require.NoError(t, err)

	assert.Equal(t, models.StageDocuments, snapshot.Stage)
	assert.Equal(t, 50, snapshot.Progress)
	assert.Equal(t, "Golden State Freight LLC", snapshot.LegalName)
	assert.True(t, snapshot.GatesEvaluated)
	assert.True(t, snapshot.GatesPassed)
	assert.True(t, snapshot.IdentityVerified)
	assert.False(t, snapshot.IdentityUnconfirmed)
	assert.False(t, snapshot.DocumentsComplete)
	assert.False(t, snapshot.CanSubmit)
}

func TestSnapshot_RejectedReadsAsLookupProgress(t *testing.T) {
	h := createHarness(t)
	ctx := context.Background()

	h.driveTo(t, "carrier-42", models.StageLookup)
	_, err := h.orch.Lookup(ctx, "carrier-42", "111111")
	require.NoError(t, err)

	snapshot, err := h.orch.Snapshot(ctx, "carrier-42")
	require.NoError(t, err)

	assert.Equal(t, models.StageRejected, snapshot.Stage)
	assert.Equal(t, 17, snapshot.Progress)
	assert.True(t, snapshot.GatesEvaluated)
	assert.False(t, snapshot.GatesPassed)
	require.Len(t, snapshot.GateFailureReasons, 1)
}
