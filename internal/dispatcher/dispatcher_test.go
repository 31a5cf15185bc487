package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/panjf2000/ants/v2"

	"github.com/alxayo/media-proxy/internal/config"
)

func newTestDispatcher(t *testing.T, client *http.Client, cfg *config.Config) *Dispatcher {
	t.Helper()
	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("failed to build pool: %v", err)
	}
	t.Cleanup(pool.Release)
	return New(client, cfg, pool)
}

func TestServeHTTPOptionsReturnsCORSOnly(t *testing.T) {
	d := newTestDispatcher(t, http.DefaultClient, &config.Config{})
	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header")
	}
}

func TestServeHTTPRejectsUnsupportedMethod(t *testing.T) {
	d := newTestDispatcher(t, http.DefaultClient, &config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/videoplayback", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServeHTTPRejectsMissingHost(t *testing.T) {
	d := newTestDispatcher(t, http.DefaultClient, &config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/videoplayback", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServeHTTPRejectsDisallowedDomain(t *testing.T) {
	d := newTestDispatcher(t, http.DefaultClient, &config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/videoplayback?host=evil.example.com", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServeHTTPRejectsBadQhash(t *testing.T) {
	cfg := &config.Config{HashSecret: "s3cret"}
	d := newTestDispatcher(t, http.DefaultClient, cfg)
	req := httptest.NewRequest(http.MethodGet, "/videoplayback?host=googlevideo.com&qhash=deadbeef", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad qhash, got %d", rec.Code)
	}
}

func TestServeHTTPStreamsVerbatimResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload-bytes"))
	}))
	defer upstream.Close()

	upstreamURL, _ := url.Parse(upstream.URL)
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = upstreamURL.Scheme
			req.URL.Host = upstreamURL.Host
			req.Host = upstreamURL.Host
			return http.DefaultTransport.RoundTrip(req)
		}),
	}

	d := newTestDispatcher(t, client, &config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/videoplayback?host=googlevideo.com&itag=137", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "payload-bytes") {
		t.Fatalf("expected upstream body forwarded, got %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header on proxied response")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
