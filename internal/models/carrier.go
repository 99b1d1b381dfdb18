// internal/models/carrier.go
package models

import "time"

// AuthorityStatus is the operating-authority status reported by the registry.
type AuthorityStatus string

const (
	AuthorityActive   AuthorityStatus = "ACTIVE"
	AuthorityInactive AuthorityStatus = "INACTIVE"
)

// SafetyRating is the registry safety rating.
type SafetyRating string

const (
	SafetySatisfactory   SafetyRating = "SATISFACTORY"
	SafetyNone           SafetyRating = "NONE"
	SafetyUnsatisfactory SafetyRating = "UNSATISFACTORY"
)

// CarrierRegistryRecord is an immutable snapshot fetched from the external
// authority registry for one docket number. It is never mutated; a fresh
// lookup with a different number supersedes it.
type CarrierRegistryRecord struct {
	DocketNumber         string          `json:"docketNumber"`
	LegalName            string          `json:"legalName"`
	TradeName            string          `json:"tradeName,omitempty"`
	AuthorityStatus      AuthorityStatus `json:"authorityStatus"`
	AuthorityGrantedAt   time.Time       `json:"authorityGrantedAt"`
	FleetSize            int             `json:"fleetSize"`
	SafetyRating         SafetyRating    `json:"safetyRating"`
	ContactEmail         string          `json:"contactEmail"`
	ContactPhone         string          `json:"contactPhone"`
	RecentContactChanges bool            `json:"recentContactChanges"`
	Address              string          `json:"address"`
	InsuranceAgentEmail  string          `json:"insuranceAgentEmail"`
}
