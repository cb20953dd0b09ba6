package msisdn

import "strings"

const (
	// pseudonymHeader and pseudonymScheme form the fixed identifier
	// prefix 1100-7 of every derived pseudonym.
	pseudonymHeader = "1100"
	pseudonymScheme = "7"

	// pseudonymWidth is the total digit count of a valid pseudonym.
	pseudonymWidth = 16

	pseudonymGroup = 4
)

// Jurisdiction is one entry of the country allow-list: a country
// calling code and the subscriber digit count expected after it.
type Jurisdiction struct {
	CountryCode      string
	SubscriberDigits int
}

// DefaultJurisdictions returns the built-in allow-list: Switzerland
// and the NANP area.
func DefaultJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		{CountryCode: "41", SubscriberDigits: 9},
		{CountryCode: "1", SubscriberDigits: 10},
	}
}

// Deriver derives pseudonymous identifiers from phone numbers whose
// country code is on its allow-list. Entries are matched in order, so
// overlapping country codes must list the longer code first.
type Deriver struct {
	norm          Normalizer
	jurisdictions []Jurisdiction
}

func NewDeriver(norm Normalizer, jurisdictions []Jurisdiction) *Deriver {
	if len(jurisdictions) == 0 {
		jurisdictions = DefaultJurisdictions()
	}
	return &Deriver{norm: norm, jurisdictions: jurisdictions}
}

// Derive returns the dash-grouped pseudonym for raw, or "" if the
// number is too short or its country code is not on the allow-list.
// The derivation is deterministic: the same number always yields the
// same pseudonym.
func (d *Deriver) Derive(raw string) string {
	canonical := d.norm.Normalize(raw, PrefixZeros)
	if !strings.HasPrefix(canonical, "00") {
		return ""
	}
	number := canonical[2:]
	if len(number) <= 5 {
		return ""
	}

	for _, j := range d.jurisdictions {
		if !strings.HasPrefix(number, j.CountryCode) {
			continue
		}
		subscriber := number[len(j.CountryCode):]
		if len(subscriber) > j.SubscriberDigits {
			return ""
		}
		subscriber = strings.Repeat("0", j.SubscriberDigits-len(subscriber)) + subscriber

		id := pseudonymHeader + pseudonymScheme + j.CountryCode + subscriber
		if len(id) != pseudonymWidth {
			return ""
		}
		return group(id)
	}
	return ""
}

func group(id string) string {
	parts := make([]string, 0, len(id)/pseudonymGroup)
	for i := 0; i < len(id); i += pseudonymGroup {
		parts = append(parts, id[i:i+pseudonymGroup])
	}
	return strings.Join(parts, "-")
}
