// Package mid models the mobile operator's signature service: the
// blocking signature call, its raw status and fault codes, and the
// classification of those codes into user-facing failure categories
// versus operator configuration faults.
package mid

// Raw status codes returned by the signature service.
const (
	StatusWrongParam            = "WRONG_PARAM"
	StatusMissingParam          = "MISSING_PARAM"
	StatusWrongDataLength       = "WRONG_DATA_LENGTH"
	StatusInappropriateData     = "INAPPROPRIATE_DATA"
	StatusIncompatibleInterface = "INCOMPATIBLE_INTERFACE"
	StatusUnsupportedProfile    = "UNSUPPORTED_PROFILE"
	StatusUnauthorizedAccess    = "UNAUTHORIZED_ACCESS"

	StatusUnknownClient      = "UNKNOWN_CLIENT"
	StatusExpiredTransaction = "EXPIRED_TRANSACTION"
	StatusUserCancel         = "USER_CANCEL"
	StatusPINBlocked         = "PIN_NR_BLOCKED"
	StatusCardBlocked        = "CARD_BLOCKED"
	StatusRevokedCertificate = "REVOKED_CERTIFICATE"
	StatusNoKeyFound         = "NO_KEY_FOUND"
	StatusSignatureProcess   = "PB_SIGNATURE_PROCESS"
)

// CodeInternalError is the catch-all code returned to the login form
// for any status outside the two fixed sets.
const CodeInternalError = "INTERNAL_ERROR"

// FaultSubcodeTimeout is the SOAP fault subcode the service uses when
// the signing transaction times out waiting on the handset.
const FaultSubcodeTimeout = "208"

// Category tells the caller how to treat a classified service status.
type Category int

const (
	// CategoryConfiguration marks a fault in the deployment's own
	// request or operator account. Fatal, never shown to the end user
	// as a login failure.
	CategoryConfiguration Category = iota

	// CategoryUserFacing marks an expected authentication failure the
	// login form can re-render with a localized message.
	CategoryUserFacing

	// CategoryDefault covers every status not in either fixed set.
	CategoryDefault
)

// Classification is the result of classifying one raw status code.
// Code carries the stable code to surface: the raw code itself for
// user-facing failures, CodeInternalError otherwise.
type Classification struct {
	Category Category
	Code     string
}

var configurationFaults = map[string]struct{}{
	StatusWrongParam:            {},
	StatusMissingParam:          {},
	StatusWrongDataLength:       {},
	StatusInappropriateData:     {},
	StatusIncompatibleInterface: {},
	StatusUnsupportedProfile:    {},
	StatusUnauthorizedAccess:    {},
}

var userFacingFailures = map[string]struct{}{
	StatusUnknownClient:      {},
	StatusExpiredTransaction: {},
	StatusUserCancel:         {},
	StatusPINBlocked:         {},
	StatusCardBlocked:        {},
	StatusRevokedCertificate: {},
	StatusNoKeyFound:         {},
	StatusSignatureProcess:   {},
}

// Classify maps a raw service status code to its category. Codes the
// service introduces in the future fall into CategoryDefault instead
// of failing closed.
func Classify(code string) Classification {
	if _, ok := configurationFaults[code]; ok {
		return Classification{Category: CategoryConfiguration, Code: code}
	}
	if _, ok := userFacingFailures[code]; ok {
		return Classification{Category: CategoryUserFacing, Code: code}
	}
	return Classification{Category: CategoryDefault, Code: CodeInternalError}
}

// ConfigurationFaults returns the fixed configuration-fault code set.
func ConfigurationFaults() []string {
	return codes(configurationFaults)
}

// UserFacingFailures returns the fixed user-facing code set.
func UserFacingFailures() []string {
	return codes(userFacingFailures)
}

func codes(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	return out
}
