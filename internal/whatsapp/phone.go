package whatsapp

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("whatsapp: invalid phone number")

// normalizePhone reduces raw to the "+<digits>" form the contact lookup
// expects. A JID suffix is stripped. Spaces, dashes, dots and parentheses
// are dropped; any other non-digit rejects the input.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if user, _, ok := strings.Cut(raw, "@"); ok {
		raw = user
	}
	raw = strings.TrimPrefix(raw, "+")
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	if b.Len() < 2 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
