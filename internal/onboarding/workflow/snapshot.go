// internal/onboarding/workflow/snapshot.go
package workflow

import (
	"context"
	"time"

	"carrier-onboarding/internal/models"
)

// Snapshot is the derived read model served to the onboarding UI: the
// current stage, progress, per-stage completion flags and review flags.
type Snapshot struct {
	CarrierID string       `json:"carrierId"`
	Stage     models.Stage `json:"stage"`
	Progress  int          `json:"progress"`

	BusinessEmail string `json:"businessEmail,omitempty"`
	DocketNumber  string `json:"docketNumber,omitempty"`
	LegalName     string `json:"legalName,omitempty"`

	GatesEvaluated     bool     `json:"gatesEvaluated"`
	GatesPassed        bool     `json:"gatesPassed"`
	GateFailureReasons []string `json:"gateFailureReasons,omitempty"`

	IdentityMethod      models.IdentityMethod `json:"identityMethod"`
	CodeRequested       bool                  `json:"codeRequested"`
	IdentityVerified    bool                  `json:"identityVerified"`
	IdentityUnconfirmed bool                  `json:"identityUnconfirmed"`

	Documents         map[models.DocumentSlot]bool `json:"documents"`
	DocumentsComplete bool                         `json:"documentsComplete"`

	PayoutMethod    models.PayoutMethod `json:"payoutMethod"`
	PayoutConnected bool                `json:"payoutConnected"`
	InstantEligible bool                `json:"instantEligible"`

	RiskScore int  `json:"riskScore"`
	CanSubmit bool `json:"canSubmit"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot builds the read model for the carrier's current state.
func (o *Orchestrator) Snapshot(ctx context.Context, carrierID string) (*Snapshot, error) {
	state, err := o.load(ctx, carrierID)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(state), nil
}

func buildSnapshot(state *models.OnboardingState) *Snapshot {
	snapshot := &Snapshot{
		CarrierID:           state.CarrierID,
		Stage:               state.Stage,
		Progress:            state.Progress(),
		BusinessEmail:       state.BusinessEmail,
		DocketNumber:        state.DocketNumber,
		IdentityMethod:      state.IdentityMethod,
		CodeRequested:       state.CodeRequested,
		IdentityVerified:    state.IdentityVerified,
		IdentityUnconfirmed: state.IdentityUnconfirmed(),
		Documents:           make(map[models.DocumentSlot]bool, len(state.Documents)),
		DocumentsComplete:   state.DocumentsComplete(),
		PayoutMethod:        state.PayoutMethod,
		PayoutConnected:     state.PayoutConnected,
		InstantEligible:     state.InstantEligible,
		RiskScore:           state.RiskScore,
		CanSubmit:           state.CanSubmit(),
		UpdatedAt:           state.UpdatedAt,
	}
	if state.Registry != nil {
		snapshot.LegalName = state.Registry.LegalName
	}
	if state.Gates != nil {
		snapshot.GatesEvaluated = true
		snapshot.GatesPassed = state.Gates.Passed
		snapshot.GateFailureReasons = state.Gates.FailureReasons
	}
	for slot, doc := range state.Documents {
		snapshot.Documents[slot] = doc.Present
	}
	return snapshot
}
