package sabr

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultQuality is the sticky/last-manual resolution the builder assumes
// absent an explicit override.
const DefaultQuality = 720

// defaultClientVersion and friends mirror the origin web client's reported
// identity; overriding them is legitimate (see ClientInfoFromQuery) but a
// freshly built request without overrides must look like a real client.
const (
	defaultClientVersion = "2.2040620.05.00"
	defaultOSName        = "Windows"
	defaultOSVersion     = "10.0"
)

// Client name codes as reported by the origin's client_info.client_name
// field, keyed by the proxy's own `c` query parameter convention.
const (
	ClientNameWeb     int32 = 1
	ClientNameAndroid int32 = 3
	ClientNameIOS     int32 = 5
)

// ClientInfo identifies the requesting client and its display metrics.
// Field numbers match the origin wire protocol exactly so a hand-rolled
// encoder stays byte-compatible with real SABR traffic.
type ClientInfo struct {
	DeviceMake          *string
	DeviceModel         *string
	ClientName          *int32
	ClientVersion       *string
	OsName              *string
	OsVersion           *string
	AcceptLanguage      *string
	AcceptRegion        *string
	ScreenWidthPoints   *int32
	ScreenHeightPoints  *int32
	ScreenWidthInches   *float32
	ScreenHeightInches  *float32
	ScreenPixelDensity  *int32
	ClientFormFactor    *int32
	GmscoreVersionCode  *int32
	WindowWidthPoints   *int32
	WindowHeightPoints  *int32
	AndroidSdkVersion   *int32
	ScreenDensityFloat  *float32
	UtcOffsetMinutes    *int64
	TimeZone            *string
	Chipset             *string
}

// StreamerContext carries client identity plus the opaque authenticator
// blobs the origin expects on every SABR request.
type StreamerContext struct {
	ClientInfo     *ClientInfo
	PoToken        []byte
	PlaybackCookie []byte
	Gp             []byte
}

// BufferedRange declares that the client already holds
// [StartTimeMs, StartTimeMs+DurationMs) of a format, across the given
// segment range.
type BufferedRange struct {
	FormatId          FormatId
	StartTimeMs       int64
	DurationMs        int64
	StartSegmentIndex int32
	EndSegmentIndex   int32
	TimeRange         *TimeRange
}

// ClientAbrState carries the ABR engine's view of playback: viewport and
// bandwidth, the currently sticky resolution, playback rate, and a long
// tail of additional knobs the origin's ABR heuristics read. Field numbers
// follow the origin wire protocol; several (tagged "opaque" below) have no
// documented semantics beyond their wire position and are preserved
// unmodified for forward compatibility rather than reinterpreted.
type ClientAbrState struct {
	TimeSinceLastManualFormatSelectionMs *int32
	LastManualDirection                  *int32
	LastManualSelectedResolution         *int32
	DetailedNetworkType                  *int32
	ClientViewportWidth                  *int32
	ClientViewportHeight                 *int32
	ClientBitrateCapBytesPerSec          *int64
	StickyResolution                     *int32
	ClientViewportIsFlexible             *bool
	BandwidthEstimate                    *int64
	MinAudioQuality                      *int32
	MaxAudioQuality                      *int32
	VideoQualitySetting                  *int32
	AudioRoute                           *int32
	PlayerTimeMs                         *int64
	TimeSinceLastSeek                    *int64
	DataSaverMode                        *bool
	NetworkMeteredState                  *int32
	Visibility                           *int32
	PlaybackRate                         *float32
	ElapsedWallTimeMs                    *int64
	MediaCapabilities                    []byte
	TimeSinceLastActionMs                *int64
	EnabledTrackTypesBitfield            *int32
	MaxPacingRate                        *int32
	PlayerState                          *int32
	DrcEnabled                           *bool
	PreferVp9                            *bool
	IsPrefetch                           *bool
	SabrSupportQualityConstraints        *bool
	SabrLicenseConstraint                []byte
	AllowProximaLiveLatency              *bool
	SabrForceProxima                     *bool
	SabrForceMaxNetworkInterruptionMs    *int32
	AudioTrackId                         *string

	// Opaque fields: present on the wire at these tags in real traffic but
	// with no documented meaning. Preserved as raw varints/bytes so a
	// request we forward is indistinguishable from one the real client
	// sent, without inventing semantics for them.
	Opaque48 *int32
	Opaque50 *int32
	Opaque51 *int32
	Opaque54 []byte
	Opaque56 *bool
	Opaque57 *int32
	Opaque59 *int32
	Opaque60 *int32
	Opaque67 *int32
}

// VideoPlaybackAbrRequest is the top-level SABR request message.
type VideoPlaybackAbrRequest struct {
	ClientAbrState               ClientAbrState
	SelectedFormatIds            []FormatId
	BufferedRanges               []BufferedRange
	PlayerTimeMs                 int64
	VideoPlaybackUstreamerConfig []byte
	SelectedAudioFormatIds       []FormatId
	SelectedVideoFormatIds       []FormatId
	StreamerContext              StreamerContext
}

func appendOptInt32(b []byte, num protowire.Number, v *int32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(uint32(*v)))
}

func appendOptInt64(b []byte, num protowire.Number, v *int64) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendOptBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	var i uint64
	if *v {
		i = 1
	}
	return protowire.AppendVarint(b, i)
}

func appendOptString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *v)
}

func appendOptBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendOptFixed32(b []byte, num protowire.Number, v *float32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(*v))
}

// Marshal encodes the ClientInfo message.
func (c *ClientInfo) Marshal() []byte {
	var b []byte
	b = appendOptString(b, 12, c.DeviceMake)
	b = appendOptString(b, 13, c.DeviceModel)
	b = appendOptInt32(b, 16, c.ClientName)
	b = appendOptString(b, 17, c.ClientVersion)
	b = appendOptString(b, 18, c.OsName)
	b = appendOptString(b, 19, c.OsVersion)
	b = appendOptString(b, 21, c.AcceptLanguage)
	b = appendOptString(b, 22, c.AcceptRegion)
	b = appendOptInt32(b, 37, c.ScreenWidthPoints)
	b = appendOptInt32(b, 38, c.ScreenHeightPoints)
	b = appendOptFixed32(b, 39, c.ScreenWidthInches)
	b = appendOptFixed32(b, 40, c.ScreenHeightInches)
	b = appendOptInt32(b, 41, c.ScreenPixelDensity)
	b = appendOptInt32(b, 46, c.ClientFormFactor)
	b = appendOptInt32(b, 50, c.GmscoreVersionCode)
	b = appendOptInt32(b, 55, c.WindowWidthPoints)
	b = appendOptInt32(b, 56, c.WindowHeightPoints)
	b = appendOptInt32(b, 64, c.AndroidSdkVersion)
	b = appendOptFixed32(b, 65, c.ScreenDensityFloat)
	b = appendOptInt64(b, 67, c.UtcOffsetMinutes)
	b = appendOptString(b, 80, c.TimeZone)
	b = appendOptString(b, 92, c.Chipset)
	return b
}

// Marshal encodes the StreamerContext message.
func (s *StreamerContext) Marshal() []byte {
	var b []byte
	if s.ClientInfo != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, s.ClientInfo.Marshal())
	}
	b = appendOptBytes(b, 2, s.PoToken)
	b = appendOptBytes(b, 3, s.PlaybackCookie)
	b = appendOptBytes(b, 4, s.Gp)
	return b
}

// Marshal encodes the BufferedRange message.
func (r *BufferedRange) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, r.FormatId.Marshal())
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.StartTimeMs))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.DurationMs))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(uint32(r.StartSegmentIndex)))
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(uint32(r.EndSegmentIndex)))
	if r.TimeRange != nil {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, r.TimeRange.Marshal())
	}
	return b
}

// Marshal encodes the ClientAbrState message.
func (s *ClientAbrState) Marshal() []byte {
	var b []byte
	b = appendOptInt32(b, 13, s.TimeSinceLastManualFormatSelectionMs)
	b = appendOptInt32(b, 14, s.LastManualDirection)
	b = appendOptInt32(b, 16, s.LastManualSelectedResolution)
	b = appendOptInt32(b, 17, s.DetailedNetworkType)
	b = appendOptInt32(b, 18, s.ClientViewportWidth)
	b = appendOptInt32(b, 19, s.ClientViewportHeight)
	b = appendOptInt64(b, 20, s.ClientBitrateCapBytesPerSec)
	b = appendOptInt32(b, 21, s.StickyResolution)
	b = appendOptBool(b, 22, s.ClientViewportIsFlexible)
	b = appendOptInt64(b, 23, s.BandwidthEstimate)
	b = appendOptInt32(b, 24, s.MinAudioQuality)
	b = appendOptInt32(b, 25, s.MaxAudioQuality)
	b = appendOptInt32(b, 26, s.VideoQualitySetting)
	b = appendOptInt32(b, 27, s.AudioRoute)
	b = appendOptInt64(b, 28, s.PlayerTimeMs)
	b = appendOptInt64(b, 29, s.TimeSinceLastSeek)
	b = appendOptBool(b, 30, s.DataSaverMode)
	b = appendOptInt32(b, 32, s.NetworkMeteredState)
	b = appendOptInt32(b, 34, s.Visibility)
	b = appendOptFixed32(b, 35, s.PlaybackRate)
	b = appendOptInt64(b, 36, s.ElapsedWallTimeMs)
	b = appendOptBytes(b, 38, s.MediaCapabilities)
	b = appendOptInt64(b, 39, s.TimeSinceLastActionMs)
	b = appendOptInt32(b, 40, s.EnabledTrackTypesBitfield)
	b = appendOptInt32(b, 43, s.MaxPacingRate)
	b = appendOptInt32(b, 44, s.PlayerState)
	b = appendOptBool(b, 46, s.DrcEnabled)
	b = appendOptInt32(b, 48, s.Opaque48)
	b = appendOptInt32(b, 50, s.Opaque50)
	b = appendOptInt32(b, 51, s.Opaque51)
	b = appendOptBytes(b, 54, s.Opaque54)
	b = appendOptBool(b, 56, s.Opaque56)
	b = appendOptInt32(b, 57, s.Opaque57)
	b = appendOptBool(b, 58, s.PreferVp9)
	b = appendOptInt32(b, 59, s.Opaque59)
	b = appendOptInt32(b, 60, s.Opaque60)
	b = appendOptBool(b, 61, s.IsPrefetch)
	b = appendOptBool(b, 62, s.SabrSupportQualityConstraints)
	b = appendOptBytes(b, 63, s.SabrLicenseConstraint)
	b = appendOptBool(b, 64, s.AllowProximaLiveLatency)
	b = appendOptBool(b, 66, s.SabrForceProxima)
	b = appendOptInt32(b, 67, s.Opaque67)
	b = appendOptInt32(b, 68, s.SabrForceMaxNetworkInterruptionMs)
	b = appendOptString(b, 69, s.AudioTrackId)
	return b
}

// Marshal encodes the top-level VideoPlaybackAbrRequest message.
func (r *VideoPlaybackAbrRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, r.ClientAbrState.Marshal())
	for _, f := range r.SelectedFormatIds {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	for _, br := range r.BufferedRanges {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, br.Marshal())
	}
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.PlayerTimeMs))
	if r.VideoPlaybackUstreamerConfig != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, r.VideoPlaybackUstreamerConfig)
	}
	for _, f := range r.SelectedAudioFormatIds {
		b = protowire.AppendTag(b, 16, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	for _, f := range r.SelectedVideoFormatIds {
		b = protowire.AppendTag(b, 17, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	b = protowire.AppendTag(b, 19, protowire.BytesType)
	b = protowire.AppendBytes(b, r.StreamerContext.Marshal())
	return b
}

// Builder assembles a VideoPlaybackAbrRequest via a fluent chain starting
// from the defaults the origin web client reports on a cold request.
type Builder struct {
	clientAbrState               ClientAbrState
	clientInfo                   ClientInfo
	poToken                      []byte
	playbackCookie               []byte
	videoPlaybackUstreamerConfig []byte
	selectedAudioFormatIds       []FormatId
	selectedVideoFormatIds       []FormatId
	bufferedRanges               []BufferedRange
}

func i32(v int32) *int32     { return &v }
func i64(v int64) *int64     { return &v }
func f32(v float32) *float32 { return &v }

// NewBuilder returns a Builder seeded with the origin web client's default
// identity and ABR state.
func NewBuilder() *Builder {
	b := &Builder{
		clientAbrState: ClientAbrState{
			TimeSinceLastManualFormatSelectionMs: i32(0),
			LastManualDirection:                  i32(0),
			LastManualSelectedResolution:         i32(DefaultQuality),
			StickyResolution:                     i32(DefaultQuality),
			PlayerTimeMs:                         i64(0),
			Visibility:                           i32(0),
			EnabledTrackTypesBitfield:             i32(0),
		},
		clientInfo: ClientInfo{
			ClientName:    i32(ClientNameWeb),
			ClientVersion: strp(defaultClientVersion),
			OsName:        strp(defaultOSName),
			OsVersion:     strp(defaultOSVersion),
		},
	}
	return b
}

func strp(s string) *string { return &s }

// WithClientInfo replaces the builder's client identity wholesale (used by
// ClientInfoFromQuery for the `c`/`cver` query-derived identity).
func (b *Builder) WithClientInfo(ci ClientInfo) *Builder {
	b.clientInfo = ci
	return b
}

// WithPoToken sets the opaque platform authenticator token.
func (b *Builder) WithPoToken(tok []byte) *Builder {
	b.poToken = tok
	return b
}

// WithPlaybackCookie sets the opaque cookie echoed back from a prior
// NextRequestPolicy.
func (b *Builder) WithPlaybackCookie(cookie []byte) *Builder {
	b.playbackCookie = cookie
	return b
}

// WithUstreamerConfig sets the opaque bytes the platform issued alongside
// the initial player response.
func (b *Builder) WithUstreamerConfig(cfg []byte) *Builder {
	b.videoPlaybackUstreamerConfig = cfg
	return b
}

// WithPlayerTimeMs sets the ABR state's player_time_ms (the top-level
// request field is always 0 regardless of this override; see Build).
func (b *Builder) WithPlayerTimeMs(ms int64) *Builder {
	b.clientAbrState.PlayerTimeMs = i64(ms)
	return b
}

// WithResolution sets both the last-manual-selected and sticky resolution.
func (b *Builder) WithResolution(height int32) *Builder {
	b.clientAbrState.LastManualSelectedResolution = i32(height)
	b.clientAbrState.StickyResolution = i32(height)
	return b
}

// WithViewportSize sets the client viewport dimensions.
func (b *Builder) WithViewportSize(width, height int32) *Builder {
	b.clientAbrState.ClientViewportWidth = i32(width)
	b.clientAbrState.ClientViewportHeight = i32(height)
	return b
}

// WithBandwidthEstimate sets the client's current bandwidth estimate, in
// bytes per second.
func (b *Builder) WithBandwidthEstimate(bps int64) *Builder {
	b.clientAbrState.BandwidthEstimate = i64(bps)
	return b
}

// WithAudioFormats sets the previously-selected audio format list.
func (b *Builder) WithAudioFormats(ids []FormatId) *Builder {
	b.selectedAudioFormatIds = ids
	return b
}

// WithVideoFormats sets the previously-selected video format list.
func (b *Builder) WithVideoFormats(ids []FormatId) *Builder {
	b.selectedVideoFormatIds = ids
	return b
}

// WithBufferedRanges sets the client's already-buffered ranges.
func (b *Builder) WithBufferedRanges(ranges []BufferedRange) *Builder {
	b.bufferedRanges = ranges
	return b
}

// WithEnabledTrackTypes sets the enabled-track-types bitfield (1 = audio
// only, 2 = video only is never sent alone in practice; the dispatcher
// passes has_audio ? 1 : 2 per the supplemented SABR JSON endpoint).
func (b *Builder) WithEnabledTrackTypes(bitfield int32) *Builder {
	b.clientAbrState.EnabledTrackTypesBitfield = i32(bitfield)
	return b
}

// WithVisibility sets the player visibility state.
func (b *Builder) WithVisibility(v int32) *Builder {
	b.clientAbrState.Visibility = i32(v)
	return b
}

// WithPlaybackRate sets the playback speed multiplier.
func (b *Builder) WithPlaybackRate(rate float32) *Builder {
	b.clientAbrState.PlaybackRate = f32(rate)
	return b
}

// Build assembles the final request. selected_format_ids is always empty:
// it represents formats the client has already initialised, which on a
// fresh request is none. The top-level player_time_ms is always 0
// regardless of WithPlayerTimeMs, which only affects client_abr_state —
// this mirrors a quirk of the origin's own request construction.
func (b *Builder) Build() VideoPlaybackAbrRequest {
	ci := b.clientInfo
	return VideoPlaybackAbrRequest{
		ClientAbrState:               b.clientAbrState,
		SelectedFormatIds:            nil,
		BufferedRanges:               b.bufferedRanges,
		PlayerTimeMs:                 0,
		VideoPlaybackUstreamerConfig: b.videoPlaybackUstreamerConfig,
		SelectedAudioFormatIds:       b.selectedAudioFormatIds,
		SelectedVideoFormatIds:       b.selectedVideoFormatIds,
		StreamerContext: StreamerContext{
			ClientInfo:     &ci,
			PoToken:        b.poToken,
			PlaybackCookie: b.playbackCookie,
		},
	}
}

// ClientInfoFromQuery maps the `c` (client name) and `cver` (client
// version) query parameters the dispatcher's SABR endpoint accepts onto a
// ClientInfo, following the origin's WEB/ANDROID/IOS convention. An
// unrecognised or missing `c` defaults to WEB.
func ClientInfoFromQuery(c, cver string) ClientInfo {
	name := ClientNameWeb
	switch c {
	case "ANDROID":
		name = ClientNameAndroid
	case "IOS":
		name = ClientNameIOS
	}
	version := cver
	if version == "" {
		version = defaultClientVersion
	}
	return ClientInfo{
		ClientName:    i32(name),
		ClientVersion: strp(version),
		OsName:        strp(defaultOSName),
		OsVersion:     strp(defaultOSVersion),
	}
}

// NewFormatId builds a FormatId from its constituent parts.
func NewFormatId(itag int32, lastModified int64, xtags string) FormatId {
	fid := FormatId{Itag: i32(itag), LastModified: i64(lastModified)}
	if xtags != "" {
		fid.Xtags = &xtags
	}
	return fid
}

// NewBufferedRange builds a BufferedRange from its constituent parts.
func NewBufferedRange(formatId FormatId, startTimeMs, durationMs int64, startSegmentIndex, endSegmentIndex int32) BufferedRange {
	return BufferedRange{
		FormatId:          formatId,
		StartTimeMs:       startTimeMs,
		DurationMs:        durationMs,
		StartSegmentIndex: startSegmentIndex,
		EndSegmentIndex:   endSegmentIndex,
	}
}
