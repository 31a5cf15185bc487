// Package dispatcher implements the proxy's single HTTP entry point: the
// 13-step request/response pipeline that validates a request, builds and
// executes the outbound call, and returns a rewritten or verbatim response.
package dispatcher

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/alxayo/media-proxy/internal/config"
	protoerrors "github.com/alxayo/media-proxy/internal/errors"
	"github.com/alxayo/media-proxy/internal/headers"
	"github.com/alxayo/media-proxy/internal/logger"
	"github.com/alxayo/media-proxy/internal/qhash"
	"github.com/alxayo/media-proxy/internal/rewrite"
	"github.com/alxayo/media-proxy/internal/transcode"
	"github.com/alxayo/media-proxy/internal/ump"
)

// Dispatcher is the proxy's top-level http.Handler.
type Dispatcher struct {
	client *http.Client
	cfg    *config.Config
	pool   *ants.Pool
}

// New builds a Dispatcher. pool is used to offload CPU-bound work (qhash
// verification, image transcoding) off the request-handling goroutine.
func New(client *http.Client, cfg *config.Config, pool *ants.Pool) *Dispatcher {
	return &Dispatcher{client: client, cfg: cfg, pool: pool}
}

// run submits fn to the blocking pool and waits for it to finish, returning
// whatever error fn produced. Used for CPU-bound steps that would otherwise
// block the request goroutine.
func (d *Dispatcher) run(fn func() error) error {
	done := make(chan error, 1)
	if err := d.pool.Submit(func() { done <- fn() }); err != nil {
		return err
	}
	return <-done
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := logger.WithRequest(logger.Logger(), requestID, r.Method, r.URL.Path)

	// Step 1: method filter.
	if r.Method == http.MethodOptions {
		headers.AddCORS(w.Header())
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		headers.AddCORS(w.Header())
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	// Step 2: qhash verification.
	if d.cfg.QhashEnabled() {
		provided := query.Get("qhash")
		var ok bool
		err := d.run(func() error {
			ok = qhash.Verify(provided, map[string][]string(query), r.URL.Path, d.cfg.HashSecret)
			return nil
		})
		if err != nil || !ok {
			writeInputError(w, "qhash verification failed")
			return
		}
	}

	// Step 3: require + validate host.
	host := query.Get("host")
	if host == "" {
		writeInputError(w, "missing host parameter")
		return
	}
	if _, ok := rewrite.ValidateHost(strings.ToLower(host)); !ok {
		writeInputError(w, "domain not allowed")
		return
	}

	isVideoPlayback := r.URL.Path == "/videoplayback"
	clientType := query.Get("c")

	// Step 4: special endpoint handling.
	if isVideoPlayback {
		if expire := query.Get("expire"); expire != "" {
			if epoch, err := strconv.ParseInt(expire, 10, 64); err == nil {
				if time.Unix(epoch, 0).Before(time.Now()) {
					writeInputError(w, "expired request")
					return
				}
			}
		}
	}

	isAndroid := isVideoPlayback && clientType == "ANDROID"
	isWeb := isVideoPlayback && clientType == "WEB"
	wantsUMP := isVideoPlayback && query.Has("ump")

	// Step 5: range negotiation.
	if isVideoPlayback && query.Get("range") == "" {
		if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
			if start, end, ok := parseRangeHeader(rangeHeader, query.Get("clen")); ok && end != 0 {
				query.Set("range", strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10))
			}
		} else if clen := query.Get("clen"); clen != "" {
			if n, err := strconv.ParseInt(clen, 10, 64); err == nil && n > 0 {
				query.Set("range", "0-"+strconv.FormatInt(n-1, 10))
			}
		}
	}

	// Step 6: build outbound URL.
	outboundQuery := url.Values{}
	for k, vs := range query {
		if k == "host" || k == "rewrite" || k == "qhash" {
			continue
		}
		outboundQuery[k] = vs
	}
	outboundURL := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     r.URL.Path,
		RawQuery: outboundQuery.Encode(),
	}

	method := r.Method
	var body io.Reader
	if isWeb {
		method = http.MethodPost
		body = strings.NewReader("x\x00")
	}

	outboundReq, err := http.NewRequestWithContext(r.Context(), method, outboundURL.String(), body)
	if err != nil {
		writeInputError(w, "failed to build outbound request")
		return
	}

	// Step 7: copy headers, apply special UA / body overrides.
	headers.Copy(outboundReq.Header, r.Header)
	if isAndroid {
		outboundReq.Header.Set("User-Agent", headers.AndroidUserAgent)
	} else if outboundReq.Header.Get("User-Agent") == "" {
		outboundReq.Header.Set("User-Agent", headers.DefaultUserAgent)
	}

	// Step 8: execute.
	resp, err := d.client.Do(outboundReq)
	if err != nil {
		log.Error("upstream request failed", "error", err)
		writeUpstreamError(w, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	// Step 9: build client response.
	headers.Copy(w.Header(), resp.Header)
	headers.AddCORS(w.Header())

	rewriteEnabled := query.Get("rewrite") != "false"
	contentType := resp.Header.Get("Content-Type")

	// Step 10: content-type driven rewriting.
	if rewriteEnabled {
		switch {
		case !d.cfg.DisallowImageTranscoding && (contentType == "image/webp" || (contentType == "image/jpeg" && query.Get("avif") == "true")):
			d.serveTranscoded(w, resp, transcode.ToAVIF)
			return
		case !d.cfg.DisallowImageTranscoding && contentType == "image/jpeg":
			d.serveTranscoded(w, resp, transcode.ToWebP)
			return
		case contentType == "application/x-mpegurl" || contentType == "application/vnd.apple.mpegurl":
			d.serveManifest(w, resp, host, rewrite.RewriteHLS)
			return
		case contentType == "video/vnd.mpeg.dash.mpd" || contentType == "application/dash+xml":
			d.serveManifest(w, resp, host, rewrite.RewriteDASH)
			return
		}
	}

	// Step 11: content-length passthrough.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}

	// Step 12: UMP piping.
	if wantsUMP && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.serveUMP(w, r, resp, query)
		return
	}

	// Step 13: verbatim streaming.
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func writeInputError(w http.ResponseWriter, msg string) {
	headers.AddCORS(w.Header())
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, msg)
}

func writeUpstreamError(w http.ResponseWriter, msg string) {
	headers.AddCORS(w.Header())
	w.WriteHeader(http.StatusBadGateway)
	io.WriteString(w, msg)
}

// parseRangeHeader parses "bytes=<start>-<end>" as described in §4.K step
// 5: end falls back to clen-1 when not numeric, then to 0.
func parseRangeHeader(header, clen string) (start, end int64, ok bool) {
	v := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(v, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if parts[1] != "" {
		if e, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			return start, e, true
		}
	}
	if clen != "" {
		if n, err := strconv.ParseInt(clen, 10, 64); err == nil {
			return start, n - 1, true
		}
	}
	return start, 0, true
}

func (d *Dispatcher) serveTranscoded(w http.ResponseWriter, resp *http.Response, fn func([]byte) (transcode.Result, error)) {
	src, err := io.ReadAll(resp.Body)
	if err != nil {
		writeUpstreamError(w, "failed to read response body")
		return
	}
	var result transcode.Result
	err = d.run(func() error {
		var terr error
		result, terr = fn(src)
		return terr
	})
	if err != nil && !protoerrors.IsDispatcherError(err) {
		logger.Warn("transcode failed, serving original", "error", err)
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	w.Write(result.Bytes)
}

func (d *Dispatcher) serveManifest(w http.ResponseWriter, resp *http.Response, host string, rewriteFn func(string, string, rewrite.Secret) string) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeUpstreamError(w, "failed to read manifest body")
		return
	}
	var secret rewrite.Secret
	if d.cfg.QhashEnabled() {
		secret = rewrite.Secret(d.cfg.HashSecret)
	}
	rewritten := rewriteFn(string(body), host, secret)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	io.WriteString(w, rewritten)
}

func (d *Dispatcher) serveUMP(w http.ResponseWriter, r *http.Request, resp *http.Response, query url.Values) {
	if mime := query.Get("mime"); mime != "" {
		w.Header().Set("Content-Type", mime)
	}

	status := resp.StatusCode
	if r.Header.Get("Range") != "" {
		if clen := query.Get("clen"); clen != "" {
			if n, err := strconv.ParseInt(clen, 10, 64); err == nil {
				start, end, ok := parseRangeHeader(r.Header.Get("Range"), clen)
				if ok && !(start == 0 && end == n-1) {
					status = http.StatusPartialContent
					w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
				}
			}
		}
	}

	w.WriteHeader(status)

	transformer := ump.NewTransformer()
	defer transformer.Close()

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			out, terr := transformer.Push(buf[:n])
			if terr != nil {
				logger.Error("ump transform failed", "error", terr)
				return
			}
			if len(out) > 0 {
				w.Write(out)
			}
		}
		if err != nil {
			return
		}
	}
}
