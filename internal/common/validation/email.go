// internal/common/validation/email.go
package validation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// consumerMailDomains lists free consumer mail providers rejected by the
// business-email pre-filter. It is a coarse denylist, not a registry check.
var consumerMailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"yahoo.co.uk":    true,
	"ymail.com":      true,
	"hotmail.com":    true,
	"hotmail.co.uk":  true,
	"outlook.com":    true,
	"live.com":       true,
	"msn.com":        true,
	"aol.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"mac.com":        true,
	"mail.com":       true,
	"gmx.com":        true,
	"protonmail.com": true,
	"proton.me":      true,
	"zoho.com":       true,
	"yandex.com":     true,
}

// IsBusinessEmail reports whether email is syntactically valid and not on
// the consumer-domain denylist.
func IsBusinessEmail(email string) bool {
	if !ValidateEmail(email) {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	return !consumerMailDomains[domain]
}
