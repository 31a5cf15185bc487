package headers

import (
	"net/http"
	"testing"
)

func TestIsAllowedDenylist(t *testing.T) {
	denied := []string{
		"Host", "Content-Length", "Set-Cookie", "Alt-Svc", "Accept-CH",
		"Report-To", "Strict-Transport-Security", "User-Agent", "Range",
		"Transfer-Encoding", "X-Real-IP", "Origin", "Referer", "X-Title",
		"Access-Control-Allow-Origin", "access-control-foo",
	}
	for _, h := range denied {
		if IsAllowed(h) {
			t.Errorf("expected %q to be denied", h)
		}
	}
}

func TestIsAllowedPassesThroughOthers(t *testing.T) {
	allowed := []string{"Content-Type", "Cache-Control", "ETag", "X-Custom"}
	for _, h := range allowed {
		if !IsAllowed(h) {
			t.Errorf("expected %q to be allowed", h)
		}
	}
}

func TestCopyOmitsDeniedHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "video/mp4")
	src.Set("Set-Cookie", "a=b")
	src.Set("Access-Control-Allow-Origin", "evil.example")

	dst := http.Header{}
	Copy(dst, src)

	if dst.Get("Content-Type") != "video/mp4" {
		t.Fatalf("expected content-type to survive copy")
	}
	if dst.Get("Set-Cookie") != "" {
		t.Fatalf("set-cookie must not survive copy")
	}
	if dst.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("access-control-* must not survive copy")
	}
}

func TestAddCORSSetsExpectedHeaders(t *testing.T) {
	h := http.Header{}
	AddCORS(h)
	if h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected ACAO: %q", h.Get("Access-Control-Allow-Origin"))
	}
	if h.Get("Access-Control-Max-Age") != "1728000" {
		t.Fatalf("unexpected max-age: %q", h.Get("Access-Control-Max-Age"))
	}
}
