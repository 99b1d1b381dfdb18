// internal/models/onboarding.go
package models

import (
	"math"
	"time"
)

// Stage is the closed set of onboarding workflow stages.
type Stage string

const (
	StageEmailVerification    Stage = "email_verification"
	StageLookup               Stage = "lookup"
	StageIdentityVerification Stage = "identity_verification"
	StageDocuments            Stage = "documents"
	StageBankConnection       Stage = "bank_connection"
	StageReview               Stage = "review"
	StageCompleted            Stage = "completed"
	StageRejected             Stage = "rejected"
)

// OrderedStages is the forward path through the workflow. StageRejected is
// a parallel terminal state and deliberately not part of the order.
var OrderedStages = []Stage{
	StageEmailVerification,
	StageLookup,
	StageIdentityVerification,
	StageDocuments,
	StageBankConnection,
	StageReview,
	StageCompleted,
}

// Ordinal returns the stage's index in OrderedStages, or -1 for StageRejected.
func (s Stage) Ordinal() int {
	for i, stage := range OrderedStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// IdentityMethod selects one of the two mutually exclusive identity paths.
type IdentityMethod string

const (
	IdentityMethodNone        IdentityMethod = ""
	IdentityMethodDirectCode  IdentityMethod = "direct_code"
	IdentityMethodAttestation IdentityMethod = "attestation"
)

// PayoutMethod selects one of the two mutually exclusive payout paths.
type PayoutMethod string

const (
	PayoutMethodNone            PayoutMethod = ""
	PayoutMethodLinkedAccount   PayoutMethod = "linked_account"
	PayoutMethodManualDocuments PayoutMethod = "manual_documents"
)

// DocumentSlot names one required document. The set is fixed and closed.
type DocumentSlot string

const (
	SlotInsuranceCertificate DocumentSlot = "insurance_certificate"
	SlotTaxForm              DocumentSlot = "tax_form"
	SlotBankTaxForm          DocumentSlot = "bank_tax_form"
	SlotVoidedCheck          DocumentSlot = "voided_check"
)

// CarrierDocumentSlots are the compliance documents collected in the
// documents stage.
var CarrierDocumentSlots = []DocumentSlot{SlotInsuranceCertificate, SlotTaxForm}

// BankDocumentSlots are the banking documents required by the
// manual-documents payout path.
var BankDocumentSlots = []DocumentSlot{SlotBankTaxForm, SlotVoidedCheck}

// StoredDocument tracks one document slot. A slot either has a stored
// location or it doesn't; uploads are atomic from the tracker's view.
type StoredDocument struct {
	Present    bool      `json:"present"`
	Filename   string    `json:"filename,omitempty"`
	Location   string    `json:"location,omitempty"`
	UploadedAt time.Time `json:"uploadedAt,omitempty"`
}

// OnboardingState is the persisted workflow state for one carrier. It is an
// explicit value owned by the orchestrator: components receive it, mutate
// their own fields, and the orchestrator commits it.
type OnboardingState struct {
	CarrierID     string `json:"carrierId"`
	Stage         Stage  `json:"stage"`
	BusinessEmail string `json:"businessEmail,omitempty"`

	DocketNumber string                 `json:"docketNumber,omitempty"`
	Registry     *CarrierRegistryRecord `json:"registry,omitempty"`
	Gates        *GateEvaluation        `json:"gates,omitempty"`

	IdentityMethod       IdentityMethod `json:"identityMethod"`
	CodeRequested        bool           `json:"codeRequested"`
	IdentityVerified     bool           `json:"identityVerified"`
	AttestationRequested bool           `json:"attestationRequested"`

	Documents map[DocumentSlot]StoredDocument `json:"documents"`

	PayoutMethod    PayoutMethod `json:"payoutMethod"`
	PayoutConnected bool         `json:"payoutConnected"`
	InstantEligible bool         `json:"instantEligible"`

	RiskScore        int      `json:"riskScore"`
	RejectionReasons []string `json:"rejectionReasons,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewOnboardingState creates an empty state at the first stage.
func NewOnboardingState(carrierID string, now time.Time) *OnboardingState {
	return &OnboardingState{
		CarrierID: carrierID,
		Stage:     StageEmailVerification,
		Documents: make(map[DocumentSlot]StoredDocument),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IdentitySatisfied reports whether the identity stage requirement is met:
// a confirmed code, or an optimistically-sent attestation request.
func (s *OnboardingState) IdentitySatisfied() bool {
	return s.IdentityVerified || s.AttestationRequested
}

// IdentityUnconfirmed reports an attested-but-never-confirmed identity.
// Surfaced as a review flag so the optimistic path is visible downstream.
func (s *OnboardingState) IdentityUnconfirmed() bool {
	return s.AttestationRequested && !s.IdentityVerified
}

// DocumentsComplete reports whether every compliance document slot is present.
func (s *OnboardingState) DocumentsComplete() bool {
	return s.slotsComplete(CarrierDocumentSlots)
}

// BankDocumentsComplete reports whether every banking document slot is present.
func (s *OnboardingState) BankDocumentsComplete() bool {
	return s.slotsComplete(BankDocumentSlots)
}

func (s *OnboardingState) slotsComplete(slots []DocumentSlot) bool {
	for _, slot := range slots {
		if !s.Documents[slot].Present {
			return false
		}
	}
	return true
}

// CanSubmit is the aggregate submit-eligibility predicate: every prior
// stage's completion flag must be true.
func (s *OnboardingState) CanSubmit() bool {
	return s.Stage == StageReview &&
		s.Registry != nil &&
		s.Gates != nil && s.Gates.Passed &&
		s.IdentitySatisfied() &&
		s.DocumentsComplete() &&
		s.PayoutConnected
}

// Progress returns the completion percentage derived from the current
// stage's position in OrderedStages. A rejected application reads as the
// lookup stage, where rejection occurs.
func (s *OnboardingState) Progress() int {
	stage := s.Stage
	if stage == StageRejected {
		stage = StageLookup
	}
	idx := stage.Ordinal()
	if idx < 0 {
		return 0
	}
	return int(math.Round(float64(idx) / float64(len(OrderedStages)-1) * 100))
}
