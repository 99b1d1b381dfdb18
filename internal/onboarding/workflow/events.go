// internal/onboarding/workflow/events.go
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carrier-onboarding/internal/common/aws"
)

// DecisionEvent is published when an application reaches a terminal
// decision: admitted to the marketplace or rejected at the gates.
type DecisionEvent struct {
	CarrierID  string    `json:"carrierId"`
	Decision   string    `json:"decision"`
	Reasons    []string  `json:"reasons,omitempty"`
	RiskScore  int       `json:"riskScore"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	DecisionCompleted = "completed"
	DecisionRejected  = "rejected"
)

// DecisionPublisher emits decision events to downstream consumers.
// Publishing happens after the state transition commits and is never
// allowed to block or undo it.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, event DecisionEvent) error
}

// SNSDecisionPublisher publishes decision events to an SNS topic.
type SNSDecisionPublisher struct {
	sns      *aws.SNSClient
	topicARN string
}

func NewSNSDecisionPublisher(sns *aws.SNSClient, topicARN string) *SNSDecisionPublisher {
	return &SNSDecisionPublisher{sns: sns, topicARN: topicARN}
}

func (p *SNSDecisionPublisher) PublishDecision(ctx context.Context, event DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}
	return p.sns.PublishJSON(ctx, p.topicARN, string(payload))
}
