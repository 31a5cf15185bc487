// Package headers implements the shared allow/deny policy applied to both
// outbound (proxy-to-origin) and inbound (origin-to-client) headers, plus
// the CORS headers this proxy injects on every response.
package headers

import (
	"net/http"
	"strings"
)

// denylist holds every header name (lowercase) this proxy strips in both
// directions, independent of the "starts with access-control" rule.
var denylist = map[string]struct{}{
	"host":                      {},
	"content-length":            {},
	"set-cookie":                {},
	"alt-svc":                   {},
	"accept-ch":                 {},
	"report-to":                 {},
	"strict-transport-security": {},
	"user-agent":                {},
	"range":                     {},
	"transfer-encoding":         {},
	"x-real-ip":                 {},
	"origin":                    {},
	"referer":                   {},
	"x-title":                   {},
}

// IsAllowed reports whether header may be copied across the proxy boundary.
// The check is case-insensitive.
func IsAllowed(header string) bool {
	lower := strings.ToLower(header)
	if strings.HasPrefix(lower, "access-control") {
		return false
	}
	_, denied := denylist[lower]
	return !denied
}

// Copy copies every allowed header from src into dst, preserving multi-value
// headers.
func Copy(dst, src http.Header) {
	for key, values := range src {
		if !IsAllowed(key) {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// AddCORS injects the proxy's own CORS response headers, overwriting
// whatever the origin set for the same names (none of which ever survive
// Copy, since they all begin with "access-control").
func AddCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Allow-Methods", "*")
	h.Set("Access-Control-Max-Age", "1728000")
}

// AndroidUserAgent is substituted for the outbound User-Agent on
// /videoplayback requests carrying c=ANDROID.
const AndroidUserAgent = "com.google.android.youtube/1537338816 (Linux; U; Android 13; en_US; ; Build/TQ2A.230505.002; Cronet/113.0.5672.24)"

// DefaultUserAgent is the outbound User-Agent used for every other request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:102.0) Gecko/20100101 Firefox/102.0"
