package sabr

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	protoerrors "github.com/alxayo/media-proxy/internal/errors"
)

// This file hand-implements wire-format Marshal/Unmarshal for every SABR
// message against protowire directly. protoc is not available in this
// environment, so there is no generated .pb.go; protowire is the same
// low-level, stable package a generated message would use internally, which
// keeps the wire bytes compatible with real SABR traffic.

func decodeErr(op string, err error) error {
	return protoerrors.NewDecodeError(op, fmt.Errorf("%w: %v", errMalformed, err))
}

// --- FormatId ---

func (f *FormatId) Marshal() []byte {
	var b []byte
	if f.Itag != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(*f.Itag)))
	}
	if f.LastModified != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*f.LastModified))
	}
	if f.Xtags != nil {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, *f.Xtags)
	}
	return b
}

func UnmarshalFormatId(data []byte) (FormatId, error) {
	var f FormatId
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return f, decodeErr("sabr.FormatId", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return f, decodeErr("sabr.FormatId.itag", protowire.ParseError(n))
			}
			itag := int32(v)
			f.Itag = &itag
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return f, decodeErr("sabr.FormatId.last_modified", protowire.ParseError(n))
			}
			lmt := int64(v)
			f.LastModified = &lmt
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return f, decodeErr("sabr.FormatId.xtags", protowire.ParseError(n))
			}
			f.Xtags = &v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return f, decodeErr("sabr.FormatId.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return f, nil
}

// --- TimeRange ---

func (r *TimeRange) Marshal() []byte {
	var b []byte
	if r.Start != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.Start))
	}
	if r.End != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.End))
	}
	return b
}

func UnmarshalTimeRange(data []byte) (TimeRange, error) {
	var r TimeRange
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, decodeErr("sabr.TimeRange", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, decodeErr("sabr.TimeRange.start", protowire.ParseError(n))
			}
			start := int64(v)
			r.Start = &start
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, decodeErr("sabr.TimeRange.end", protowire.ParseError(n))
			}
			end := int64(v)
			r.End = &end
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, decodeErr("sabr.TimeRange.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}

// --- MediaHeader ---

func UnmarshalMediaHeader(data []byte) (MediaHeader, error) {
	var h MediaHeader
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return h, decodeErr("sabr.MediaHeader", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.header_id", protowire.ParseError(n))
			}
			id := uint32(v)
			h.HeaderId = &id
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.video_id", protowire.ParseError(n))
			}
			h.VideoId = &v
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.itag", protowire.ParseError(n))
			}
			itag := int32(v)
			h.Itag = &itag
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.lmt", protowire.ParseError(n))
			}
			h.Lmt = &v
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.xtags", protowire.ParseError(n))
			}
			h.Xtags = &v
			data = data[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.start_range", protowire.ParseError(n))
			}
			sr := int64(v)
			h.StartRange = &sr
			data = data[n:]
		case num == 7 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.compression_algorithm", protowire.ParseError(n))
			}
			ca := int32(v)
			h.CompressionAlgorithm = &ca
			data = data[n:]
		case num == 8 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.is_init_seg", protowire.ParseError(n))
			}
			b := v != 0
			h.IsInitSeg = &b
			data = data[n:]
		case num == 9 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.sequence_number", protowire.ParseError(n))
			}
			sn := int64(v)
			h.SequenceNumber = &sn
			data = data[n:]
		case num == 10 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.field10", protowire.ParseError(n))
			}
			f10 := int64(v)
			h.Field10 = &f10
			data = data[n:]
		case num == 11 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.start_ms", protowire.ParseError(n))
			}
			sm := int64(v)
			h.StartMs = &sm
			data = data[n:]
		case num == 12 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.duration_ms", protowire.ParseError(n))
			}
			dm := int64(v)
			h.DurationMs = &dm
			data = data[n:]
		case num == 13 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.format_id", protowire.ParseError(n))
			}
			fid, err := UnmarshalFormatId(v)
			if err != nil {
				return h, err
			}
			h.FormatId = &fid
			data = data[n:]
		case num == 14 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.content_length", protowire.ParseError(n))
			}
			cl := int64(v)
			h.ContentLength = &cl
			data = data[n:]
		case num == 15 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.time_range", protowire.ParseError(n))
			}
			tr, err := UnmarshalTimeRange(v)
			if err != nil {
				return h, err
			}
			h.TimeRange = &tr
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return h, decodeErr("sabr.MediaHeader.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return h, nil
}

// --- SabrError ---

func UnmarshalSabrError(data []byte) (SabrError, error) {
	var e SabrError
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return e, decodeErr("sabr.SabrError", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return e, decodeErr("sabr.SabrError.error_type", protowire.ParseError(n))
			}
			e.ErrorType = &v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return e, decodeErr("sabr.SabrError.code", protowire.ParseError(n))
			}
			c := int32(v)
			e.Code = &c
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return e, decodeErr("sabr.SabrError.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return e, nil
}

// --- SabrRedirect ---

func UnmarshalSabrRedirect(data []byte) (SabrRedirect, error) {
	var r SabrRedirect
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, decodeErr("sabr.SabrRedirect", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return r, decodeErr("sabr.SabrRedirect.url", protowire.ParseError(n))
			}
			r.Url = &v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, decodeErr("sabr.SabrRedirect.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}

// --- StreamProtectionStatus ---

func UnmarshalStreamProtectionStatus(data []byte) (StreamProtectionStatus, error) {
	var s StreamProtectionStatus
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return s, decodeErr("sabr.StreamProtectionStatus", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, decodeErr("sabr.StreamProtectionStatus.status", protowire.ParseError(n))
			}
			st := int32(v)
			s.Status = &st
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return s, decodeErr("sabr.StreamProtectionStatus.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return s, nil
}

// --- PlaybackCookie ---

func (c *PlaybackCookie) Marshal() []byte {
	var b []byte
	if c.Field1 != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(*c.Field1)))
	}
	if c.Field2 != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(*c.Field2)))
	}
	if c.VideoFmt != nil {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, c.VideoFmt.Marshal())
	}
	if c.AudioFmt != nil {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, c.AudioFmt.Marshal())
	}
	return b
}

func UnmarshalPlaybackCookie(data []byte) (PlaybackCookie, error) {
	var c PlaybackCookie
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, decodeErr("sabr.PlaybackCookie", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return c, decodeErr("sabr.PlaybackCookie.field1", protowire.ParseError(n))
			}
			f1 := int32(v)
			c.Field1 = &f1
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return c, decodeErr("sabr.PlaybackCookie.field2", protowire.ParseError(n))
			}
			f2 := int32(v)
			c.Field2 = &f2
			data = data[n:]
		case num == 7 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return c, decodeErr("sabr.PlaybackCookie.video_fmt", protowire.ParseError(n))
			}
			fid, err := UnmarshalFormatId(v)
			if err != nil {
				return c, err
			}
			c.VideoFmt = &fid
			data = data[n:]
		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return c, decodeErr("sabr.PlaybackCookie.audio_fmt", protowire.ParseError(n))
			}
			fid, err := UnmarshalFormatId(v)
			if err != nil {
				return c, err
			}
			c.AudioFmt = &fid
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return c, decodeErr("sabr.PlaybackCookie.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}

// --- NextRequestPolicy ---

func UnmarshalNextRequestPolicy(data []byte) (NextRequestPolicy, error) {
	var p NextRequestPolicy
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, decodeErr("sabr.NextRequestPolicy", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.target_audio_readahead_ms", protowire.ParseError(n))
			}
			t := int32(v)
			p.TargetAudioReadaheadMs = &t
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.target_video_readahead_ms", protowire.ParseError(n))
			}
			t := int32(v)
			p.TargetVideoReadaheadMs = &t
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.backoff_time_ms", protowire.ParseError(n))
			}
			b := int32(v)
			p.BackoffTimeMs = &b
			data = data[n:]
		case num == 7 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.playback_cookie", protowire.ParseError(n))
			}
			pc, err := UnmarshalPlaybackCookie(v)
			if err != nil {
				return p, err
			}
			p.PlaybackCookie = &pc
			data = data[n:]
		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.video_id", protowire.ParseError(n))
			}
			p.VideoId = &v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, decodeErr("sabr.NextRequestPolicy.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return p, nil
}

// --- FormatInitializationMetadata ---

func UnmarshalFormatInitializationMetadata(data []byte) (FormatInitializationMetadata, error) {
	var m FormatInitializationMetadata
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m, decodeErr("sabr.FormatInitializationMetadata", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return m, decodeErr("sabr.FormatInitializationMetadata.format_id", protowire.ParseError(n))
			}
			fid, err := UnmarshalFormatId(v)
			if err != nil {
				return m, err
			}
			m.FormatId = &fid
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return m, decodeErr("sabr.FormatInitializationMetadata.duration_ms", protowire.ParseError(n))
			}
			d := int64(v)
			m.DurationMs = &d
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return m, decodeErr("sabr.FormatInitializationMetadata.mime_type", protowire.ParseError(n))
			}
			m.MimeType = &v
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return m, decodeErr("sabr.FormatInitializationMetadata.end_segment_number", protowire.ParseError(n))
			}
			e := int64(v)
			m.EndSegmentNumber = &e
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return m, decodeErr("sabr.FormatInitializationMetadata.unknown", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}
