package utils

import (
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// CanonicalDomain returns a domain in the form used for rule matching and
// traffic keys:
// - Trimmed of surrounding whitespace
// - Lowercased, with internationalised labels converted to their ASCII form
// - No trailing dot
//
// Names idna rejects (underscores, bare labels) are kept as lowercase text.
func CanonicalDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	if name == "" {
		return name
	}
	if ascii, err := idna.Lookup.ToASCII(name); err == nil && ascii != "" {
		return ascii
	}
	return name
}

// ApexDomain returns the registrable domain (eTLD+1) for name, or the
// canonical name itself when it has none.
func ApexDomain(name string) string {
	name = CanonicalDomain(name)
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return apex
}
