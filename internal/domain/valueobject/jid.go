package valueobject

import (
	"strings"

	"wabridge/internal/domain/errors"
)

// userServer is the domain suffix for individual WhatsApp chat jids.
const userServer = "s.whatsapp.net"

// JID is a canonical WhatsApp recipient identifier, "<digits>@s.whatsapp.net".
type JID string

// NewJID normalizes a raw recipient string (phone number, jid, or jid with a
// device suffix) into a canonical JID. It rejects anything with fewer than
// eight digits, per the send pipeline's admission step.
func NewJID(raw string) (JID, error) {
	digits := ExtractPhone(raw)
	if countDigits(digits) < 8 {
		return "", errors.ErrInvalidJID
	}
	return JID(digits + "@" + userServer), nil
}

// String returns the jid as a string.
func (j JID) String() string {
	return string(j)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ExtractPhone extracts the digit-only phone number from a raw jid, phone
// number string, or jid-with-device-suffix.
// Example: "+1 (201) 021-3475:98@s.whatsapp.net" -> "12010213475"
func ExtractPhone(jid string) string {
	if jid == "" {
		return ""
	}

	userPart := strings.SplitN(jid, "@", 2)[0]
	if idx := strings.Index(userPart, ":"); idx != -1 {
		userPart = userPart[:idx]
	}

	var b strings.Builder
	for _, r := range userPart {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
