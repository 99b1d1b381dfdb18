// internal/models/gates.go
package models

// GateOutcome is the result of one independently-evaluated admission gate.
type GateOutcome struct {
	Passed   bool   `json:"passed"`
	Observed string `json:"observed"`
	Required string `json:"required"`
}

// GateEvaluation is the derived admission decision for one registry record.
// Passed is true iff every individual gate passed; FailureReasons carries
// one entry per failed gate in declaration order (age, size, safety,
// stability).
type GateEvaluation struct {
	Age            GateOutcome `json:"age"`
	FleetSize      GateOutcome `json:"fleetSize"`
	Safety         GateOutcome `json:"safety"`
	Stability      GateOutcome `json:"stability"`
	Passed         bool        `json:"passed"`
	FailureReasons []string    `json:"failureReasons,omitempty"`
}
