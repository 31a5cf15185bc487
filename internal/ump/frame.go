package ump

import (
	"fmt"

	protoerrors "github.com/alxayo/media-proxy/internal/errors"
)

// PartType identifies the kind of a UMP frame. Type 21 (Media) carries raw
// media bytes; every other type is a control frame whose payload is itself
// a SABR protobuf message (see internal/sabr).
type PartType int32

// Media is the only UMP part type the Transformer treats specially; every
// other value is a control frame it skips. ReadFrame and ReadAllFrames
// return media and control frames alike.
const Media PartType = 21

// Frame is one decoded UMP part: a type, the declared payload length, and
// the payload bytes themselves (a sub-slice of the input, not copied).
type Frame struct {
	Type    PartType
	Length  uint32
	Payload []byte
}

// ReadFrame reads exactly one UMP frame (two varints — type and length —
// followed by length payload bytes) from data starting at offset. It
// returns the decoded frame and the total number of bytes consumed,
// including the header varints.
//
// ReadFrame returns ErrUnexpectedEOF if data is truncated before a complete
// header or a complete payload is available; callers reading from a
// streaming source treat this as "wait for more bytes" rather than a fatal
// error.
func ReadFrame(data []byte, offset int) (Frame, int, error) {
	start := offset

	typeVal, n, err := ReadVarint(data, offset)
	if err != nil {
		return Frame{}, 0, err
	}
	offset += n

	length, n, err := ReadVarint(data, offset)
	if err != nil {
		return Frame{}, 0, err
	}
	offset += n

	if offset+int(length) > len(data) {
		return Frame{}, 0, ErrUnexpectedEOF
	}
	payload := data[offset : offset+int(length)]
	offset += int(length)

	return Frame{Type: PartType(typeVal), Length: length, Payload: payload}, offset - start, nil
}

// WriteFrame appends the UMP encoding of a frame with the given type and
// payload to dst and returns the extended slice.
func WriteFrame(dst []byte, partType PartType, payload []byte) []byte {
	dst = AppendVarint(dst, uint32(partType))
	dst = AppendVarint(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// ReadAllFrames decodes every complete frame present in data, returning
// them in stream order. A final incomplete frame at the tail of data is not
// an error: it is simply left unconsumed, and the returned consumed count
// reflects only the complete frames.
func ReadAllFrames(data []byte) (frames []Frame, consumed int, err error) {
	offset := 0
	for offset < len(data) {
		f, n, ferr := ReadFrame(data, offset)
		if ferr != nil {
			if ferr == ErrUnexpectedEOF {
				break
			}
			return frames, offset, protoerrors.NewDecodeError("ump.frame", fmt.Errorf("at offset %d: %w", offset, ferr))
		}
		frames = append(frames, f)
		offset += n
	}
	return frames, offset, nil
}
