// Package msisdn canonicalizes user-entered phone numbers into strict
// international format and derives jurisdiction-scoped pseudonymous
// identifiers from them.
package msisdn

import "strings"

// Prefix selects the international prefix style of a canonical number.
type Prefix string

const (
	PrefixPlus  Prefix = "+"
	PrefixZeros Prefix = "00"
)

// DefaultCountryCode is assumed for numbers entered in national format
// with a single leading zero.
const DefaultCountryCode = "41"

// Normalizer converts arbitrary phone number input into canonical
// international format. The zero value uses DefaultCountryCode.
type Normalizer struct {
	CountryCode string
}

// Normalize returns the canonical form of raw with the requested prefix
// style. It never fails: input too short to be a phone number passes
// through with only the character cleanup applied, leaving validity
// checks to the caller.
//
// Normalize is idempotent on its own output: re-normalizing a
// 00-prefixed canonical number yields the same number, up to the
// requested prefix style.
func (n Normalizer) Normalize(raw string, prefix Prefix) string {
	cc := n.CountryCode
	if cc == "" {
		cc = DefaultCountryCode
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == '+':
			b.WriteString("00")
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) > 5 {
		// A single leading zero means national format.
		if digits[0] == '0' && digits[1] != '0' {
			digits = cc + digits[1:]
		}
		digits = strings.TrimLeft(digits, "0")
	}

	return string(prefix) + digits
}

// Normalize canonicalizes raw with the default country code.
func Normalize(raw string, prefix Prefix) string {
	return Normalizer{}.Normalize(raw, prefix)
}
