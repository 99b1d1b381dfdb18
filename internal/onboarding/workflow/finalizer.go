// internal/onboarding/workflow/finalizer.go
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"carrier-onboarding/internal/models"
)

// CarrierProfile is the consolidated record written to the system of
// record when an application is submitted.
type CarrierProfile struct {
	CarrierID           string                `json:"carrierId"`
	DocketNumber        string                `json:"docketNumber"`
	LegalName           string                `json:"legalName"`
	BusinessEmail       string                `json:"businessEmail"`
	IdentityMethod      models.IdentityMethod `json:"identityMethod"`
	IdentityUnconfirmed bool                  `json:"identityUnconfirmed"`
	PayoutMethod        models.PayoutMethod   `json:"payoutMethod"`
	InstantEligible     bool                  `json:"instantEligible"`
	RiskScore           int                   `json:"riskScore"`
	Documents           []ProfileDocument     `json:"documents"`
	SubmittedAt         time.Time             `json:"submittedAt"`
}

// ProfileDocument is one stored document reference on the final profile.
type ProfileDocument struct {
	Slot     models.DocumentSlot `json:"slot"`
	Filename string              `json:"filename"`
	Location string              `json:"location"`
}

// ProfileFinalizer writes the consolidated profile to the system of record.
type ProfileFinalizer interface {
	Finalize(ctx context.Context, profile *CarrierProfile) error
}

// buildProfile consolidates a submit-eligible state into a profile.
func buildProfile(state *models.OnboardingState, now time.Time) *CarrierProfile {
	profile := &CarrierProfile{
		CarrierID:           state.CarrierID,
		DocketNumber:        state.DocketNumber,
		BusinessEmail:       state.BusinessEmail,
		IdentityMethod:      state.IdentityMethod,
		IdentityUnconfirmed: state.IdentityUnconfirmed(),
		PayoutMethod:        state.PayoutMethod,
		InstantEligible:     state.InstantEligible,
		RiskScore:           state.RiskScore,
		SubmittedAt:         now,
	}
	if state.Registry != nil {
		profile.LegalName = state.Registry.LegalName
	}
	for _, slot := range append(append([]models.DocumentSlot{}, models.CarrierDocumentSlots...), models.BankDocumentSlots...) {
		doc, ok := state.Documents[slot]
		if !ok || !doc.Present {
			continue
		}
		profile.Documents = append(profile.Documents, ProfileDocument{
			Slot:     slot,
			Filename: doc.Filename,
			Location: doc.Location,
		})
	}
	return profile
}

// PostgresFinalizer upserts the profile into the carrier_profiles table,
// the marketplace's system of record for admitted carriers.
type PostgresFinalizer struct {
	db *sql.DB
}

func NewPostgresFinalizer(db *sql.DB) *PostgresFinalizer {
	return &PostgresFinalizer{db: db}
}

const createProfileTableSQL = `
CREATE TABLE IF NOT EXISTS carrier_profiles (
	carrier_id    TEXT PRIMARY KEY,
	docket_number TEXT NOT NULL,
	legal_name    TEXT NOT NULL,
	profile       JSONB NOT NULL,
	submitted_at  TIMESTAMPTZ NOT NULL
)`

// Init creates the backing table if it is missing.
func (f *PostgresFinalizer) Init(ctx context.Context) error {
	if _, err := f.db.ExecContext(ctx, createProfileTableSQL); err != nil {
		return fmt.Errorf("create carrier_profiles table: %w", err)
	}
	return nil
}

func (f *PostgresFinalizer) Finalize(ctx context.Context, profile *CarrierProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode carrier profile: %w", err)
	}

	_, err = f.db.ExecContext(ctx, `
		INSERT INTO carrier_profiles (carrier_id, docket_number, legal_name, profile, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (carrier_id)
		DO UPDATE SET docket_number = $2, legal_name = $3, profile = $4, submitted_at = $5`,
		profile.CarrierID, profile.DocketNumber, profile.LegalName, raw, profile.SubmittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("persist carrier profile: %w", err)
	}
	return nil
}
