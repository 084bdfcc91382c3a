package logger

import "strings"

// MaskEmail hides the local part of an email for logging: "jane@acme.com" -> "ja***@acme.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		if len(email) < 3 {
			return "***"
		}
		return email[:2] + "***"
	}
	if len(local) < 3 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}
