// Package ump implements the platform's UMP (framed media transport) wire
// format: the variable-length integer codec, the frame demultiplexer, and
// the pull-based transform stream that extracts media payload bytes from a
// mixed control/media byte stream.
package ump

import (
	"fmt"

	protoerrors "github.com/alxayo/media-proxy/internal/errors"
)

// leadingOnes returns the count of consecutive leading 1-bits in b, capped
// at 5 (a count of 5 indicates an invalid prefix byte).
func leadingOnes(b byte) int {
	n := 0
	for n < 5 && b&(0x80>>n) != 0 {
		n++
	}
	return n
}

// VarintSize returns the total encoded width in bytes for a value, in the
// range [1,5].
func VarintSize(v uint32) int {
	switch {
	case v <= 0x7F:
		return 1
	case v <= 0x3FFF:
		return 2
	case v <= 0x1FFFFF:
		return 3
	case v <= 0xFFFFFFF:
		return 4
	default:
		return 5
	}
}

// AppendVarint appends the UMP variable-length encoding of v to dst and
// returns the extended slice.
func AppendVarint(dst []byte, v uint32) []byte {
	switch VarintSize(v) {
	case 1:
		return append(dst, byte(v))
	case 2:
		return append(dst,
			0x80|byte(v&0x3F),
			byte(v>>6),
		)
	case 3:
		return append(dst,
			0xC0|byte(v&0x1F),
			byte(v>>5),
			byte(v>>13),
		)
	case 4:
		return append(dst,
			0xE0|byte(v&0x0F),
			byte(v>>4),
			byte(v>>12),
			byte(v>>20),
		)
	default:
		return append(dst,
			0xF0,
			byte(v),
			byte(v>>8),
			byte(v>>16),
			byte(v>>24),
		)
	}
}

// ReadVarint decodes one UMP variable-length integer from data starting at
// offset. It returns the decoded value and the number of bytes consumed.
// Reading fails with a DecodeError wrapping ErrInvalidData if the leading-one
// run in the first byte exceeds 4, or with ErrUnexpectedEOF if fewer bytes
// remain than the width the prefix byte indicates.
func ReadVarint(data []byte, offset int) (value uint32, consumed int, err error) {
	if offset >= len(data) {
		return 0, 0, ErrUnexpectedEOF
	}
	first := data[offset]
	width := leadingOnes(first) + 1
	if width > 5 {
		return 0, 0, protoerrors.NewDecodeError("ump.varint", fmt.Errorf("%w: prefix byte 0x%02x", ErrInvalidData, first))
	}
	if offset+width > len(data) {
		return 0, 0, ErrUnexpectedEOF
	}
	switch width {
	case 1:
		value = uint32(first)
	case 2:
		value = uint32(first&0x3F) | uint32(data[offset+1])<<6
	case 3:
		value = uint32(first&0x1F) | uint32(data[offset+1])<<5 | uint32(data[offset+2])<<13
	case 4:
		value = uint32(first&0x0F) | uint32(data[offset+1])<<4 | uint32(data[offset+2])<<12 | uint32(data[offset+3])<<20
	case 5:
		// The low bits of the prefix byte are ignored for a 5-byte varint;
		// this mirrors the platform's wire format and is normative, not a bug.
		value = uint32(data[offset+1]) | uint32(data[offset+2])<<8 | uint32(data[offset+3])<<16 | uint32(data[offset+4])<<24
	}
	return value, width, nil
}
