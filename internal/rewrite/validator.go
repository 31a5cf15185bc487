// Package rewrite implements host validation and manifest/URL rewriting:
// the proxy only ever forwards requests to a fixed allow-list of upstream
// domains, and every upstream URL embedded in a manifest or redirect must
// be re-pointed back at this proxy before it reaches the client.
package rewrite

import "regexp"

// domainRE extracts the registrable domain (second-level + TLD) from a
// hostname, e.g. "rr1---sn-abc.googlevideo.com" -> "googlevideo.com".
var domainRE = regexp.MustCompile(`^(?:[a-z0-9.-]*\.)?([a-z0-9-]*\.[a-z0-9-]*)$`)

// allowedDomains is the fixed set of upstream hosts this proxy will ever
// dial. ajay.app is Odysee's current CDN domain, added after the original
// 7-entry allow-list this proxy's behavior is grounded on.
var allowedDomains = map[string]struct{}{
	"youtube.com":           {},
	"googlevideo.com":       {},
	"ytimg.com":             {},
	"ggpht.com":             {},
	"googleusercontent.com": {},
	"lbryplayer.xyz":        {},
	"odycdn.com":            {},
	"ajay.app":              {},
}

// ValidateHost reports whether host resolves to an allowed registrable
// domain, and returns that domain. host is matched case-insensitively by
// the caller; ValidateHost itself expects a lowercase host.
func ValidateHost(host string) (domain string, ok bool) {
	m := domainRE.FindStringSubmatch(host)
	if m == nil {
		return "", false
	}
	domain = m[1]
	_, allowed := allowedDomains[domain]
	return domain, allowed
}
