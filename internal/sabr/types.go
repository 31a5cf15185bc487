package sabr

import "strconv"

// FormatId identifies a media format on the origin platform: an itag, a
// last-modified version stamp, and an optional opaque tag string.
type FormatId struct {
	Itag         *int32
	LastModified *int64
	Xtags        *string
}

// Key returns the canonical format key used to index InitializedFormat
// entries: "<itag>;<last_modified>;".
func (f FormatId) Key() string {
	var itag int32
	if f.Itag != nil {
		itag = *f.Itag
	}
	var lmt int64
	if f.LastModified != nil {
		lmt = *f.LastModified
	}
	return formatKey(itag, lmt)
}

// TimeRange is a [start, end) pair expressed in the platform's native time
// units (milliseconds, unless the carrying message says otherwise).
type TimeRange struct {
	Start *int64
	End   *int64
}

// MediaHeader (UMP type 20) announces a format and assigns it a header_id
// that subsequent Media (type 21) frames reference until a MediaEnd (type
// 22) frame retires the mapping.
type MediaHeader struct {
	HeaderId              *uint32
	VideoId                *string
	Itag                  *int32
	Lmt                   *uint64
	Xtags                  *string
	StartRange             *int64
	CompressionAlgorithm    *int32
	IsInitSeg              *bool
	SequenceNumber         *int64
	Field10                *int64
	StartMs                *int64
	DurationMs             *int64
	FormatId               *FormatId
	ContentLength          *int64
	TimeRange              *TimeRange
}

// SabrError reports an upstream-originated playback error.
type SabrError struct {
	ErrorType *string
	Code      *int32
}

// SabrRedirect asks the client to re-issue the SABR request against a
// different URL.
type SabrRedirect struct {
	Url *string
}

// StreamProtectionStatus communicates the origin's DRM/protection state for
// the stream.
type StreamProtectionStatus struct {
	Status *int32
}

// PlaybackCookie is an opaque blob the client must echo on subsequent SABR
// requests; it is encoded into NextRequestPolicy and must round-trip
// byte-for-byte even though most of its fields are not interpreted here.
type PlaybackCookie struct {
	Field1    *int32
	Field2    *int32
	VideoFmt  *FormatId
	AudioFmt  *FormatId
}

// NextRequestPolicy advises the client on readahead targets, backoff, and
// carries the PlaybackCookie to echo on the next request.
type NextRequestPolicy struct {
	TargetAudioReadaheadMs *int32
	TargetVideoReadaheadMs *int32
	BackoffTimeMs          *int32
	PlaybackCookie         *PlaybackCookie
	VideoId                *string
}

// FormatInitializationMetadata announces a format's duration, MIME type,
// and final segment number, independent of (and sometimes ahead of) any
// MediaHeader for that format.
type FormatInitializationMetadata struct {
	FormatId          *FormatId
	DurationMs        *int64
	MimeType          *string
	EndSegmentNumber  *int64
}

// Sequence is one MediaHeader-derived descriptor appended to a format's
// sequence list every time a MediaHeader frame is seen for it.
type Sequence struct {
	Itag             int32
	FormatId         FormatId
	IsInitSegment    bool
	DurationMs       int64
	StartMs          int64
	StartDataRange   int64
	SequenceNumber   int64
	ContentLength    int64
	TimeRange        TimeRange
}

// InitializedFormat accumulates everything the parser has learned about one
// format across the frames of a single response (or, for sequence/chunk
// lists, a single call to Parser.ParseResponse).
type InitializedFormat struct {
	FormatId      FormatId
	FormatKey     string
	DurationMs    *int64
	MimeType      *string
	SequenceCount *int64
	SequenceList  []Sequence
	MediaChunks   [][]byte
}

// Response is everything Parser.ParseResponse extracted from one UMP byte
// stream: the formats touched, plus whichever control messages were
// present.
type Response struct {
	InitializedFormats      []InitializedFormat
	StreamProtectionStatus  *StreamProtectionStatus
	SabrRedirect            *SabrRedirect
	SabrError               *SabrError
	NextRequestPolicy       *NextRequestPolicy
}

func formatKey(itag int32, lastModified int64) string {
	return strconv.FormatInt(int64(itag), 10) + ";" + strconv.FormatInt(lastModified, 10) + ";"
}
