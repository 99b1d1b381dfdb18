// internal/onboarding/identity/mailer.go
package identity

import (
	"context"
	"fmt"

	"carrier-onboarding/internal/common/aws"
)

// SESDelivery sends verification mail through Amazon SES.
type SESDelivery struct {
	ses  *aws.SESClient
	from string
}

func NewSESDelivery(ses *aws.SESClient, from string) *SESDelivery {
	return &SESDelivery{ses: ses, from: from}
}

func (d *SESDelivery) SendCode(ctx context.Context, email, code string) error {
	body := fmt.Sprintf(
		"Your carrier onboarding verification code is %s.\n\n"+
			"Enter it in the onboarding form to confirm your identity. "+
			"The code expires shortly and is valid for a limited number of attempts.",
		code,
	)
	return d.ses.SendText(ctx, d.from, email, "Your verification code", body)
}

func (d *SESDelivery) SendAttestationRequest(ctx context.Context, agentEmail, carrierName string) error {
	subject := fmt.Sprintf("Identity confirmation requested for %s", carrierName)
	body := fmt.Sprintf(
		"An applicant claiming to represent %s is onboarding to the marketplace "+
			"and named you as their insurance agent.\n\n"+
			"Please reply to confirm you hold an active policy for this carrier, "+
			"attaching a current certificate of insurance.",
		carrierName,
	)
	return d.ses.SendText(ctx, d.from, agentEmail, subject, body)
}
