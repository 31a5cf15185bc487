package upstream

import (
	"net/http"
	"testing"
)

func TestNewClientNoProxy(t *testing.T) {
	c, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.Proxy != nil {
		t.Fatalf("expected no proxy configured")
	}
}

func TestNewClientWithProxyAndAuth(t *testing.T) {
	c, err := NewClient(Config{ProxyURL: "http://proxy.example:8080", ProxyUser: "u", ProxyPass: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := c.Transport.(*http.Transport)
	if tr.Proxy == nil {
		t.Fatalf("expected proxy func to be set")
	}
	req, _ := http.NewRequest(http.MethodGet, "https://googlevideo.com/videoplayback", nil)
	proxyURL, err := tr.Proxy(req)
	if err != nil {
		t.Fatalf("unexpected error resolving proxy: %v", err)
	}
	if proxyURL == nil || proxyURL.User == nil {
		t.Fatalf("expected proxy URL with basic auth set")
	}
	if user := proxyURL.User.Username(); user != "u" {
		t.Fatalf("expected proxy user %q, got %q", "u", user)
	}
}

func TestNewClientInvalidProxyURL(t *testing.T) {
	if _, err := NewClient(Config{ProxyURL: "://not-a-url"}); err == nil {
		t.Fatalf("expected error for invalid proxy URL")
	}
}
