// internal/onboarding/workflow/transitions.go
package workflow

import (
	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/models"
)

// Event is something that happened to the workflow and may move it to a
// new stage.
type Event string

const (
	EventEmailVerified     Event = "email_verified"
	EventGatesPassed       Event = "gates_passed"
	EventGatesFailed       Event = "gates_failed"
	EventIdentitySatisfied Event = "identity_satisfied"
	EventDocumentsComplete Event = "documents_complete"
	EventPayoutConnected   Event = "payout_connected"
	EventSubmitted         Event = "submitted"
	EventReset             Event = "reset"
)

// transitions is the closed stage machine: from-stage x event -> to-stage.
// Pairs not listed here are invalid and rejected, never coerced.
var transitions = map[models.Stage]map[Event]models.Stage{
	models.StageEmailVerification: {
		EventEmailVerified: models.StageLookup,
	},
	models.StageLookup: {
		EventGatesPassed: models.StageIdentityVerification,
		EventGatesFailed: models.StageRejected,
	},
	models.StageIdentityVerification: {
		EventIdentitySatisfied: models.StageDocuments,
	},
	models.StageDocuments: {
		EventDocumentsComplete: models.StageBankConnection,
	},
	models.StageBankConnection: {
		EventPayoutConnected: models.StageReview,
	},
	models.StageReview: {
		EventSubmitted: models.StageCompleted,
	},
}

// nextStage resolves the transition table. EventReset is valid from every
// stage and always lands on the first one.
func nextStage(from models.Stage, event Event) (models.Stage, error) {
	if event == EventReset {
		return models.StageEmailVerification, nil
	}
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return "", errors.NewInvalidTransitionError(string(from), string(event))
}
