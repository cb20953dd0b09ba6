package auth

// AuthnContextClassRef marks a completed handshake as a two-factor
// mobile-signature authentication towards the host.
const AuthnContextClassRef = "urn:oasis:names:tc:SAML:2.0:ac:classes:MobileTwoFactorContract"

// Attribute names released to the host after a successful handshake.
const (
	AttrUID               = "uid"
	AttrMobile            = "mobile"
	AttrPseudonym         = "noredupersonnin"
	AttrTargetedID        = "edupersontargetedid"
	AttrPreferredLanguage = "preferredLanguage"
)

// Attributes is the verified identity attribute set of one subscriber,
// keyed by attribute name.
type Attributes map[string][]string
