// Package sabr implements the SABR (Server Adaptive BitRate) control/data
// protocol: its protobuf message schema, a fluent request builder, and a
// stateful response parser that demultiplexes a UMP byte stream into
// per-format media and control data.
package sabr

// PartType enumerates the UMP frame types a SABR response may carry. Part
// values are distinct identifiers from the message struct types of the
// same name (MediaHeader the struct vs. PartMediaHeader the frame type
// tag), since both live in this package.
type PartType int32

const (
	PartOnesieHeader                   PartType = 10
	PartOnesieData                     PartType = 11
	PartMediaHeader                    PartType = 20
	PartMedia                          PartType = 21
	PartMediaEnd                       PartType = 22
	PartLiveMetadata                   PartType = 31
	PartHostnameChangeHint             PartType = 32
	PartLiveMetadataPromise            PartType = 33
	PartLiveMetadataPromiseCancellation PartType = 34
	PartNextRequestPolicy              PartType = 35
	PartUstreamerVideoAndFormatData    PartType = 36
	PartFormatSelectionConfig          PartType = 37
	PartUstreamerSelectedMediaStream   PartType = 38
	PartFormatInitializationMetadata   PartType = 42
	PartSabrRedirect                   PartType = 43
	PartSabrError                      PartType = 44
	PartSabrSeek                       PartType = 45
	PartReloadPlayerResponse           PartType = 46
	PartPlaybackStartPolicy            PartType = 47
	PartAllowedCachedFormats           PartType = 48
	PartStartBwSamplingHint            PartType = 49
	PartPauseBwSamplingHint            PartType = 50
	PartSelectableFormats              PartType = 51
	PartRequestIdentifier              PartType = 52
	PartRequestCancellationPolicy      PartType = 53
	PartOnesiePrefetchRejection        PartType = 54
	PartTimelineContext                PartType = 55
	PartRequestPipelining              PartType = 56
	PartSabrContextUpdate              PartType = 57
	PartStreamProtectionStatus         PartType = 58
	PartSabrContextSendingPolicy       PartType = 59
	PartLawnmowerPolicy                PartType = 60
	PartSabrAck                        PartType = 61
	PartEndOfTrack                     PartType = 62
	PartCacheLoadPolicy                PartType = 63
	PartLawnmowerMessagingPolicy       PartType = 64
	PartPrewarmConnection              PartType = 65
)

// knownPartTypes lists every part type the parser recognises by name, for
// diagnostics only; any type not in this set is tolerated and ignored per
// the response parser's "any other type: ignore" rule, not an error.
var knownPartTypes = map[PartType]string{
	PartOnesieHeader:                    "OnesieHeader",
	PartOnesieData:                      "OnesieData",
	PartMediaHeader:                     "MediaHeader",
	PartMedia:                           "Media",
	PartMediaEnd:                        "MediaEnd",
	PartLiveMetadata:                    "LiveMetadata",
	PartHostnameChangeHint:              "HostnameChangeHint",
	PartLiveMetadataPromise:             "LiveMetadataPromise",
	PartLiveMetadataPromiseCancellation: "LiveMetadataPromiseCancellation",
	PartNextRequestPolicy:               "NextRequestPolicy",
	PartUstreamerVideoAndFormatData:     "UstreamerVideoAndFormatData",
	PartFormatSelectionConfig:           "FormatSelectionConfig",
	PartUstreamerSelectedMediaStream:    "UstreamerSelectedMediaStream",
	PartFormatInitializationMetadata:    "FormatInitializationMetadata",
	PartSabrRedirect:                    "SabrRedirect",
	PartSabrError:                       "SabrError",
	PartSabrSeek:                        "SabrSeek",
	PartReloadPlayerResponse:            "ReloadPlayerResponse",
	PartPlaybackStartPolicy:             "PlaybackStartPolicy",
	PartAllowedCachedFormats:            "AllowedCachedFormats",
	PartStartBwSamplingHint:             "StartBwSamplingHint",
	PartPauseBwSamplingHint:             "PauseBwSamplingHint",
	PartSelectableFormats:               "SelectableFormats",
	PartRequestIdentifier:               "RequestIdentifier",
	PartRequestCancellationPolicy:       "RequestCancellationPolicy",
	PartOnesiePrefetchRejection:         "OnesiePrefetchRejection",
	PartTimelineContext:                 "TimelineContext",
	PartRequestPipelining:               "RequestPipelining",
	PartSabrContextUpdate:               "SabrContextUpdate",
	PartStreamProtectionStatus:          "StreamProtectionStatus",
	PartSabrContextSendingPolicy:        "SabrContextSendingPolicy",
	PartLawnmowerPolicy:                 "LawnmowerPolicy",
	PartSabrAck:                         "SabrAck",
	PartEndOfTrack:                      "EndOfTrack",
	PartCacheLoadPolicy:                 "CacheLoadPolicy",
	PartLawnmowerMessagingPolicy:        "LawnmowerMessagingPolicy",
	PartPrewarmConnection:               "PrewarmConnection",
}

func (t PartType) String() string {
	if name, ok := knownPartTypes[t]; ok {
		return name
	}
	return "Unknown"
}
