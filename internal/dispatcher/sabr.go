package dispatcher

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alxayo/media-proxy/internal/headers"
	protosabr "github.com/alxayo/media-proxy/internal/sabr"
)

// sabrRequestBody is the JSON body accepted by ServeSabr, mirroring the
// fields the upstream client sends on its SABR playback endpoint.
type sabrRequestBody struct {
	PlayerTimeMs                 float64        `json:"playerTimeMs"`
	BandwidthEstimate            float64        `json:"bandwidthEstimate"`
	ClientViewportWidth          float64        `json:"clientViewportWidth"`
	ClientViewportHeight         float64        `json:"clientViewportHeight"`
	PlaybackRate                 float64        `json:"playbackRate"`
	HasAudio                     *bool          `json:"hasAudio"`
	SelectedAudioFormatIds       []jsonFormatID `json:"selectedAudioFormatIds"`
	SelectedVideoFormatIds       []jsonFormatID `json:"selectedVideoFormatIds"`
	BufferedRanges               []jsonBuffered `json:"bufferedRanges"`
	VideoPlaybackUstreamerConfig string         `json:"videoPlaybackUstreamerConfig"`
	PoToken                      string         `json:"poToken"`
	PlaybackCookie               string         `json:"playbackCookie"`
}

type jsonFormatID struct {
	Itag         int32  `json:"itag"`
	LastModified int64  `json:"lastModified"`
	Xtags        string `json:"xtags"`
}

type jsonBuffered struct {
	FormatId          jsonFormatID `json:"formatId"`
	StartTimeMs       int64        `json:"startTimeMs"`
	DurationMs        int64        `json:"durationMs"`
	StartSegmentIndex int32        `json:"startSegmentIndex"`
	EndSegmentIndex   int32        `json:"endSegmentIndex"`
}

func (f jsonFormatID) toFormatID() protosabr.FormatId {
	return protosabr.NewFormatId(f.Itag, f.LastModified, f.Xtags)
}

// ServeSabr implements the full SABR JSON-body HTTP endpoint: it builds a
// VideoPlaybackAbrRequest from the client-supplied JSON and query string,
// POSTs its protobuf encoding upstream, parses the UMP/SABR response, and
// returns the concatenated media bytes with diagnostic headers.
func (d *Dispatcher) ServeSabr(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	host := query.Get("host")
	if host == "" {
		writeInputError(w, "missing host parameter")
		return
	}

	var data sabrRequestBody
	hasBody := r.ContentLength != 0
	if hasBody {
		defer r.Body.Close()
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeInputError(w, "failed to read request body")
			return
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &data); err != nil {
				writeInputError(w, "malformed sabr request body")
				return
			}
		} else {
			hasBody = false
		}
	}

	builder := protosabr.NewBuilder().
		WithClientInfo(protosabr.ClientInfoFromQuery(query.Get("c"), query.Get("cver")))

	if hasBody {
		audioFormats := toFormatIDs(data.SelectedAudioFormatIds)
		videoFormats := toFormatIDs(data.SelectedVideoFormatIds)
		hasAudio := true
		if data.HasAudio != nil {
			hasAudio = *data.HasAudio
		}
		trackTypes := int32(2)
		if hasAudio {
			trackTypes = 1
		}

		bandwidth := int64(data.BandwidthEstimate)
		if bandwidth == 0 {
			bandwidth = 1000000
		}
		viewportW := int32(data.ClientViewportWidth)
		if viewportW == 0 {
			viewportW = 1920
		}
		viewportH := int32(data.ClientViewportHeight)
		if viewportH == 0 {
			viewportH = 1080
		}
		rate := float32(data.PlaybackRate)
		if rate == 0 {
			rate = 1.0
		}

		builder = builder.
			WithPlayerTimeMs(int64(data.PlayerTimeMs)).
			WithBandwidthEstimate(bandwidth).
			WithViewportSize(viewportW, viewportH).
			WithPlaybackRate(rate).
			WithEnabledTrackTypes(trackTypes).
			WithAudioFormats(audioFormats).
			WithVideoFormats(videoFormats).
			WithBufferedRanges(bufferedRangesOrFallback(data.BufferedRanges, audioFormats, videoFormats))

		if cfg, err := base64.StdEncoding.DecodeString(data.VideoPlaybackUstreamerConfig); err == nil && len(cfg) > 0 {
			builder = builder.WithUstreamerConfig(cfg)
		}
		if tok, err := base64.StdEncoding.DecodeString(data.PoToken); err == nil && len(tok) > 0 {
			builder = builder.WithPoToken(tok)
		}
		if cookie, err := base64.StdEncoding.DecodeString(data.PlaybackCookie); err == nil && len(cookie) > 0 {
			builder = builder.WithPlaybackCookie(cookie)
		}
	}

	req := builder.Build()
	encoded := req.Marshal()

	outboundQuery := url.Values{}
	for k, vs := range query {
		if k == "host" || k == "rewrite" || k == "qhash" || k == "sabr" {
			continue
		}
		outboundQuery[k] = vs
	}

	outboundURL := url.URL{Scheme: "https", Host: host, Path: r.URL.Path, RawQuery: outboundQuery.Encode()}
	outboundReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, outboundURL.String(), bytes.NewReader(encoded))
	if err != nil {
		writeInputError(w, "failed to build sabr request")
		return
	}
	outboundReq.Header.Set("Content-Type", "application/x-protobuf")
	outboundReq.Header.Set("User-Agent", headers.DefaultUserAgent)

	resp, err := d.client.Do(outboundReq)
	if err != nil {
		writeUpstreamError(w, "sabr upstream request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		headers.AddCORS(w.Header())
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "sabr request failed with status "+strconv.Itoa(resp.StatusCode)+": "+string(body))
		return
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		writeUpstreamError(w, "failed to read sabr response")
		return
	}

	parser := protosabr.NewParser()
	parsed, err := parser.ParseResponse(respBytes)
	if err != nil {
		writeUpstreamError(w, "failed to parse sabr response")
		return
	}

	headers.AddCORS(w.Header())

	if cookie := parser.PlaybackCookie(); cookie != nil {
		w.Header().Set("X-Playback-Cookie", base64.StdEncoding.EncodeToString(cookie.Marshal()))
	}

	var audioRanges, videoRanges []string
	var combined bytes.Buffer
	for _, format := range parsed.InitializedFormats {
		isAudio := format.MimeType != nil && strings.HasPrefix(*format.MimeType, "audio/")
		for _, chunk := range format.MediaChunks {
			rng := "bytes=0-" + strconv.Itoa(len(chunk)-1)
			if isAudio {
				audioRanges = append(audioRanges, rng)
			} else {
				videoRanges = append(videoRanges, rng)
			}
			combined.Write(chunk)
		}
	}
	if len(audioRanges) > 0 {
		w.Header().Set("X-Audio-Content-Ranges", strings.Join(audioRanges, ","))
	}
	if len(videoRanges) > 0 {
		w.Header().Set("X-Video-Content-Ranges", strings.Join(videoRanges, ","))
	}

	w.WriteHeader(http.StatusOK)
	w.Write(combined.Bytes())
}

func toFormatIDs(in []jsonFormatID) []protosabr.FormatId {
	if len(in) == 0 {
		return nil
	}
	out := make([]protosabr.FormatId, len(in))
	for i, f := range in {
		out[i] = f.toFormatID()
	}
	return out
}

// bufferedRangesOrFallback synthesizes default buffered ranges matching a
// known-working reference request when the client supplied none: a single
// audio range and two video ranges with fixed timing.
func bufferedRangesOrFallback(explicit []jsonBuffered, audio, video []protosabr.FormatId) []protosabr.BufferedRange {
	if len(explicit) > 0 {
		out := make([]protosabr.BufferedRange, len(explicit))
		for i, r := range explicit {
			out[i] = protosabr.NewBufferedRange(r.FormatId.toFormatID(), r.StartTimeMs, r.DurationMs, r.StartSegmentIndex, r.EndSegmentIndex)
		}
		return out
	}

	var ranges []protosabr.BufferedRange
	if len(audio) > 0 {
		ranges = append(ranges, protosabr.NewBufferedRange(audio[0], 0, 20000, 1, 2))
	}
	if len(video) > 0 {
		ranges = append(ranges,
			protosabr.NewBufferedRange(video[0], 0, 15021, 1, 3),
			protosabr.NewBufferedRange(video[0], 10014, 10014, 3, 4),
		)
	}
	return ranges
}
