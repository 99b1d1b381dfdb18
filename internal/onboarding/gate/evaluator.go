// internal/onboarding/gate/evaluator.go
// Package gate implements the four-gate admission check applied to a
// resolved carrier registry record. Evaluation is a pure function: same
// record and same clock reading always yield the identical result, with no
// I/O and no side effects.
package gate

import (
	"fmt"
	"math"
	"time"

	"carrier-onboarding/internal/models"
)

const (
	// DefaultMinAuthorityYears is the minimum operating-authority age.
	DefaultMinAuthorityYears = 4.0
	// DefaultMinFleetSize is the minimum reported fleet size.
	DefaultMinFleetSize = 5

	// hoursPerYear uses the average year length (365.25 days).
	hoursPerYear = 365.25 * 24
)

// Thresholds holds the tunable gate thresholds. Safety and stability gates
// are not tunable: an UNSATISFACTORY rating or a recent contact change
// always fails.
type Thresholds struct {
	MinAuthorityYears float64
	MinFleetSize      int
}

// DefaultThresholds returns the production admission thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAuthorityYears: DefaultMinAuthorityYears,
		MinFleetSize:      DefaultMinFleetSize,
	}
}

// Evaluate applies the default thresholds.
func Evaluate(record *models.CarrierRegistryRecord, now time.Time) models.GateEvaluation {
	return EvaluateWith(record, now, DefaultThresholds())
}

// EvaluateWith applies the four admission gates to the record. Failure
// reasons are produced in fixed order (age, size, safety, stability),
// one per failed gate, none for passed gates.
func EvaluateWith(record *models.CarrierRegistryRecord, now time.Time, th Thresholds) models.GateEvaluation {
	age := evaluateAge(record.AuthorityGrantedAt, now, th.MinAuthorityYears)
	size := evaluateFleetSize(record.FleetSize, th.MinFleetSize)
	safety := evaluateSafety(record.SafetyRating)
	stability := evaluateStability(record.RecentContactChanges)

	eval := models.GateEvaluation{
		Age:       age,
		FleetSize: size,
		Safety:    safety,
		Stability: stability,
		Passed:    age.Passed && size.Passed && safety.Passed && stability.Passed,
	}

	if !age.Passed {
		eval.FailureReasons = append(eval.FailureReasons,
			fmt.Sprintf("operating authority must be at least %s old, observed %s", age.Required, age.Observed))
	}
	if !size.Passed {
		eval.FailureReasons = append(eval.FailureReasons,
			fmt.Sprintf("fleet size must be at least %s, observed %s", size.Required, size.Observed))
	}
	if !safety.Passed {
		eval.FailureReasons = append(eval.FailureReasons,
			fmt.Sprintf("safety rating must be %s, observed %s", safety.Required, safety.Observed))
	}
	if !stability.Passed {
		eval.FailureReasons = append(eval.FailureReasons,
			fmt.Sprintf("contact information must show %s, observed %s", stability.Required, stability.Observed))
	}

	return eval
}

// AuthorityYears returns the exact elapsed time since grant divided by the
// average year length, truncated to one decimal.
func AuthorityYears(grantedAt, now time.Time) float64 {
	years := now.Sub(grantedAt).Hours() / hoursPerYear
	return math.Trunc(years*10) / 10
}

func evaluateAge(grantedAt, now time.Time, minYears float64) models.GateOutcome {
	years := AuthorityYears(grantedAt, now)
	return models.GateOutcome{
		Passed:   years >= minYears,
		Observed: fmt.Sprintf("%.1f years", years),
		Required: fmt.Sprintf("%.1f years", minYears),
	}
}

func evaluateFleetSize(fleetSize, minSize int) models.GateOutcome {
	return models.GateOutcome{
		Passed:   fleetSize >= minSize,
		Observed: fmt.Sprintf("%d trucks", fleetSize),
		Required: fmt.Sprintf("%d trucks", minSize),
	}
}

func evaluateSafety(rating models.SafetyRating) models.GateOutcome {
	// NONE and SATISFACTORY both pass; only UNSATISFACTORY fails.
	return models.GateOutcome{
		Passed:   rating != models.SafetyUnsatisfactory,
		Observed: string(rating),
		Required: "not UNSATISFACTORY",
	}
}

func evaluateStability(recentContactChanges bool) models.GateOutcome {
	observed := "no recent changes"
	if recentContactChanges {
		observed = "a recent change"
	}
	return models.GateOutcome{
		Passed:   !recentContactChanges,
		Observed: observed,
		Required: "no recent changes",
	}
}
