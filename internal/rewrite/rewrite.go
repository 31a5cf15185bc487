package rewrite

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/alxayo/media-proxy/internal/qhash"
)

// manifestURIRE matches the quoted URI attribute on an HLS tag line, e.g.
// #EXT-X-STREAM-INF:...
// URI="https://rr1---sn-abc.googlevideo.com/videoplayback?..."
var manifestURIRE = regexp.MustCompile(`URI="([^"]+)"`)

// dashBaseURLRE matches the absolute URL inside a DASH <BaseURL> element.
var dashBaseURLRE = regexp.MustCompile(`BaseURL>(https://[^<]+)</BaseURL`)

// Secret carries the qhash signing material; a zero-value Secret (empty
// string) disables MAC issuance and finalizeURL falls back to a bare
// localized URL, matching the upstream's optional HASH_SECRET behaviour.
type Secret string

func (s Secret) enabled() bool { return s != "" }

// finalizeURL builds "path?query..." from query, appending a qhash MAC
// computed over query/path/secret when secret is non-empty.
func finalizeURL(path string, query url.Values, secret Secret) string {
	if secret.enabled() {
		q := map[string][]string(query)
		query = cloneValues(query)
		query.Set("qhash", qhash.Compute(q, path, string(secret)))
	}
	return path + "?" + encodeSortedValues(query)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// encodeSortedValues renders query in ascending key order, matching the
// BTreeMap-backed query serialization this behaviour is grounded on.
func encodeSortedValues(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	first := true
	for _, k := range keys {
		for _, val := range v[k] {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// LocalizeURL rewrites a single URL reference found inside a manifest so
// it points back at this proxy: absolute https URLs become
// "<path>?host=<authority>&<original query>", relative .m3u8/.ts segment
// URLs get a "host" query param appended, and anything else passes
// through unchanged.
func LocalizeURL(raw string, host string, secret Secret) string {
	if strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		query := u.Query()
		query.Set("host", u.Hostname())
		return finalizeURL(u.Path, query, secret)
	}
	if strings.HasSuffix(raw, ".m3u8") || strings.HasSuffix(raw, ".ts") {
		query := url.Values{"host": {host}}
		return finalizeURL(raw, query, secret)
	}
	return raw
}

// RewriteHLS rewrites every URI="..." reference in an HLS playlist body
// and localizes any bare line that is itself a segment/manifest URL.
func RewriteHLS(body string, host string, secret Secret) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if m := manifestURIRE.FindStringSubmatch(line); m != nil {
			original := m[1]
			if strings.HasPrefix(original, "https://") {
				lines[i] = strings.Replace(line, original, LocalizeURL(original, host, secret), 1)
				continue
			}
		}
		lines[i] = LocalizeURL(line, host, secret)
	}
	return strings.Join(lines, "\n")
}

// RewriteDASH rewrites every <BaseURL>...</BaseURL> reference in a DASH
// manifest body, XML-escaping the localized replacement.
func RewriteDASH(body string, host string, secret Secret) string {
	matches := dashBaseURLRE.FindAllStringSubmatch(body, -1)
	result := body
	for _, m := range matches {
		original := m[1]
		localized := EscapeXML(LocalizeURL(original, host, secret))
		result = strings.Replace(result, original, localized, 1)
	}
	return result
}

// EscapeXML escapes the five XML-significant characters.
func EscapeXML(raw string) string {
	if !strings.ContainsAny(raw, `<>&'"`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		switch c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '\'':
			b.WriteString("&apos;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
