package sabr

import (
	"sort"

	"github.com/alxayo/media-proxy/internal/ump"
)

// Parser is a stateful SABR response demultiplexer. It is not safe for
// concurrent use; a dispatcher request that issues multiple SABR requests
// in sequence (e.g. following a SabrRedirect) reuses the same Parser so
// that format continuity and the playback cookie carry across responses.
type Parser struct {
	headerIDToFormatKey map[uint32]string
	formatsByKey        map[string]*InitializedFormat
	playbackCookie      *PlaybackCookie
}

// NewParser returns a Parser with no formats known yet.
func NewParser() *Parser {
	return &Parser{
		headerIDToFormatKey: make(map[uint32]string),
		formatsByKey:        make(map[string]*InitializedFormat),
	}
}

// PlaybackCookie returns the most recently observed playback cookie, or nil
// if no NextRequestPolicy carrying one has been seen yet.
func (p *Parser) PlaybackCookie() *PlaybackCookie {
	return p.playbackCookie
}

// ParseResponse decodes one UMP byte stream into a Response. The
// header_id→format_key map and the per-format sequence and media-chunk
// lists are cleared at the start of every call so that each response's
// accounting is self-contained, while the format entries themselves
// persist across calls on the same Parser so that cross-response
// continuity — and the cached playback cookie — survive a SabrRedirect.
// Media frames whose header_id was announced only in an earlier call are
// dropped.
//
// A malformed recognised part (a control frame whose payload fails to
// decode as its expected message) surfaces as an error; an unrecognised
// part type is tolerated and ignored. A truncated trailing frame ends
// parsing gracefully and returns whatever was accumulated so far.
func (p *Parser) ParseResponse(data []byte) (Response, error) {
	p.headerIDToFormatKey = make(map[uint32]string)
	for _, f := range p.formatsByKey {
		f.SequenceList = nil
		f.MediaChunks = nil
	}

	var resp Response

	offset := 0
	for offset < len(data) {
		frame, n, err := ump.ReadFrame(data, offset)
		if err != nil {
			if err == ump.ErrUnexpectedEOF {
				break
			}
			return resp, err
		}
		offset += n

		switch PartType(frame.Type) {
		case PartMediaHeader:
			h, err := UnmarshalMediaHeader(frame.Payload)
			if err != nil {
				return resp, err
			}
			p.processMediaHeader(h)
		case PartMedia:
			p.processMediaData(frame.Payload)
		case PartMediaEnd:
			p.processMediaEnd(frame.Payload)
		case PartNextRequestPolicy:
			pol, err := UnmarshalNextRequestPolicy(frame.Payload)
			if err != nil {
				return resp, err
			}
			if pol.PlaybackCookie != nil {
				p.playbackCookie = pol.PlaybackCookie
			}
			resp.NextRequestPolicy = &pol
		case PartFormatInitializationMetadata:
			meta, err := UnmarshalFormatInitializationMetadata(frame.Payload)
			if err != nil {
				return resp, err
			}
			p.processFormatInitialization(meta)
		case PartSabrError:
			e, err := UnmarshalSabrError(frame.Payload)
			if err != nil {
				return resp, err
			}
			resp.SabrError = &e
		case PartSabrRedirect:
			r, err := UnmarshalSabrRedirect(frame.Payload)
			if err != nil {
				return resp, err
			}
			resp.SabrRedirect = &r
		case PartStreamProtectionStatus:
			s, err := UnmarshalStreamProtectionStatus(frame.Payload)
			if err != nil {
				return resp, err
			}
			resp.StreamProtectionStatus = &s
		default:
			// Unrecognised or intentionally-ignored part type.
		}
	}

	resp.InitializedFormats = p.sortedFormats()
	return resp, nil
}

func (p *Parser) sortedFormats() []InitializedFormat {
	out := make([]InitializedFormat, 0, len(p.formatsByKey))
	for _, f := range p.formatsByKey {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormatKey < out[j].FormatKey })
	return out
}

func (p *Parser) registerFormat(id FormatId) *InitializedFormat {
	key := id.Key()
	if f, ok := p.formatsByKey[key]; ok {
		return f
	}
	f := &InitializedFormat{FormatId: id, FormatKey: key}
	p.formatsByKey[key] = f
	return f
}

func (p *Parser) processMediaHeader(h MediaHeader) {
	if h.FormatId == nil {
		return
	}
	f := p.registerFormat(*h.FormatId)
	if h.HeaderId != nil {
		p.headerIDToFormatKey[*h.HeaderId] = f.FormatKey
	}

	seq := Sequence{FormatId: *h.FormatId}
	if h.Itag != nil {
		seq.Itag = *h.Itag
	}
	if h.IsInitSeg != nil {
		seq.IsInitSegment = *h.IsInitSeg
	}
	if h.DurationMs != nil {
		seq.DurationMs = *h.DurationMs
	}
	if h.StartMs != nil {
		seq.StartMs = *h.StartMs
	}
	if h.StartRange != nil {
		seq.StartDataRange = *h.StartRange
	}
	if h.SequenceNumber != nil {
		seq.SequenceNumber = *h.SequenceNumber
	}
	if h.ContentLength != nil {
		seq.ContentLength = *h.ContentLength
	}
	if h.TimeRange != nil {
		seq.TimeRange = *h.TimeRange
	}
	f.SequenceList = append(f.SequenceList, seq)
}

func (p *Parser) processMediaData(payload []byte) {
	if len(payload) == 0 {
		return
	}
	headerID := uint32(payload[0])
	key, ok := p.headerIDToFormatKey[headerID]
	if !ok {
		return
	}
	f, ok := p.formatsByKey[key]
	if !ok {
		return
	}
	f.MediaChunks = append(f.MediaChunks, payload[1:])
}

func (p *Parser) processMediaEnd(payload []byte) {
	if len(payload) == 0 {
		return
	}
	delete(p.headerIDToFormatKey, uint32(payload[0]))
}

func (p *Parser) processFormatInitialization(meta FormatInitializationMetadata) {
	if meta.FormatId == nil {
		return
	}
	f := p.registerFormat(*meta.FormatId)
	f.MimeType = meta.MimeType
	f.DurationMs = meta.DurationMs
	f.SequenceCount = meta.EndSegmentNumber
}
