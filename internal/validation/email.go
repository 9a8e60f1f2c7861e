package validation

import (
	"net/mail"
	"strings"
)

// isBareAddress accepts "user@host.tld" only; display names and angle brackets
// are rejected so the stored value is exactly what the identity provider sees.
func isBareAddress(e string) bool {
	addr, err := mail.ParseAddress(e)
	if err != nil {
		return false
	}
	if addr.Address != e || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(e, "@")
	return at > 0 && strings.Contains(e[at+1:], ".")
}
