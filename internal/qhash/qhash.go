// Package qhash implements the proxy's per-URL integrity MAC: an 8-hex
// truncated BLAKE3 digest over a canonical form of the request's query
// pairs and path, salted with a shared secret known only to this proxy.
//
// Mirrors original_source/src/utils.rs's finalize_url: the secret is mixed
// in as trailing hashed data rather than passed through BLAKE3's dedicated
// keying parameter, so this package uses the unkeyed constructor the same
// way.
package qhash

import (
	"encoding/hex"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// excludedKeys never participate in the canonical form: qhash so the MAC
// doesn't cover itself, range and rewrite because the dispatcher varies
// them per-request without invalidating a previously-issued URL.
var excludedKeys = map[string]struct{}{
	"qhash":   {},
	"range":   {},
	"rewrite": {},
}

// CanonicalPath truncates path at (and including) the slash preceding a
// "range" path segment, per spec: paths like "/videoplayback/range/0-100"
// canonicalise to "/videoplayback/".
func CanonicalPath(path string) string {
	idx := strings.Index(path, "/range/")
	if idx < 0 {
		return path
	}
	return path[:idx+1]
}

// Compute returns the first 8 lowercase hex characters of the digest over
// query (excluding qhash/range/rewrite, fed in lexicographic key order),
// the canonical path, and secret.
func Compute(query map[string][]string, path string, secret string) string {
	type pair struct{ k, v string }
	var pairs []pair
	for k, values := range query {
		if _, excluded := excludedKeys[k]; excluded {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, pair{k, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	h := blake3.New(32, nil)
	for _, p := range pairs {
		h.Write([]byte(p.k))
		h.Write([]byte(p.v))
	}
	h.Write([]byte(CanonicalPath(path)))
	h.Write([]byte(secret))

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:4])
}

// Verify reports whether provided equals Compute(query, path, secret): it
// must be exactly 8 lowercase hex characters and match byte-for-byte.
func Verify(provided string, query map[string][]string, path string, secret string) bool {
	if len(provided) != 8 {
		return false
	}
	for _, c := range provided {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return provided == Compute(query, path, secret)
}
