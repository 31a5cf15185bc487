package dispatcher

import (
	"io"
	"net/http"
	"strings"

	"github.com/alxayo/media-proxy/internal/headers"
	"github.com/alxayo/media-proxy/internal/transcode"
)

// ImageSource names a fixed thumbnail CDN this proxy fronts directly,
// bypassing the host/qhash query-parameter scheme used by /videoplayback.
type ImageSource int

const (
	ImageSourceYtImg ImageSource = iota
	ImageSourceGgPht
)

func (s ImageSource) baseURL() string {
	switch s {
	case ImageSourceGgPht:
		return "https://yt3.ggpht.com"
	default:
		return "https://i.ytimg.com"
	}
}

// stripPathPrefix removes the "/ggpht" routing prefix this proxy's own
// path carries for the ggpht source; ytimg paths pass through unchanged.
func (s ImageSource) stripPathPrefix(path string) string {
	if s == ImageSourceGgPht {
		return strings.TrimPrefix(path, "/ggpht")
	}
	return path
}

const maxResSegment = "/maxres.jpg"

var maxResFallbackFormats = []string{"/maxresdefault.jpg", "/sddefault.jpg", "/hqdefault.jpg"}
const maxResDefaultFormat = "/mqdefault.jpg"

// ServeImage proxies a thumbnail request to src, applying the maxres.jpg
// fallback cascade for YtImg and the (optional) transcode step shared with
// the main dispatcher pipeline.
func (d *Dispatcher) ServeImage(w http.ResponseWriter, r *http.Request, src ImageSource) {
	path := src.stripPathPrefix(r.URL.Path)

	var resp *http.Response
	var err error
	if src == ImageSourceYtImg && strings.HasSuffix(path, maxResSegment) {
		resp, err = d.getMaxResThumbnail(r, path)
	} else {
		resp, err = d.fetchImage(r, src.baseURL()+path+queryOrEmpty(r))
	}
	if err != nil || resp == nil {
		writeUpstreamError(w, "failed to fetch thumbnail")
		return
	}
	defer resp.Body.Close()

	headers.Copy(w.Header(), resp.Header)
	headers.AddCORS(w.Header())

	if !d.cfg.DisallowImageTranscoding {
		contentType := resp.Header.Get("Content-Type")
		avif := r.URL.Query().Get("avif") == "true"
		if contentType == "image/webp" || (contentType == "image/jpeg" && avif) {
			d.serveTranscoded(w, resp, transcode.ToAVIF)
			return
		}
		if contentType == "image/jpeg" {
			d.serveTranscoded(w, resp, transcode.ToWebP)
			return
		}
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func (d *Dispatcher) getMaxResThumbnail(r *http.Request, reqPath string) (*http.Response, error) {
	withoutFormat := strings.TrimSuffix(reqPath, maxResSegment)
	qs := queryOrEmpty(r)

	for _, format := range maxResFallbackFormats {
		resp, err := d.fetchImage(r, ImageSourceYtImg.baseURL()+withoutFormat+format+qs)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
	}
	return d.fetchImage(r, ImageSourceYtImg.baseURL()+withoutFormat+maxResDefaultFormat+qs)
}

func (d *Dispatcher) fetchImage(r *http.Request, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	headers.Copy(req.Header, r.Header)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", headers.DefaultUserAgent)
	}
	return d.client.Do(req)
}

func queryOrEmpty(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return ""
	}
	return "?" + r.URL.RawQuery
}
