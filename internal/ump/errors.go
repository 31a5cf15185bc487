package ump

import "errors"

// ErrInvalidData indicates a malformed varint prefix or an otherwise
// structurally invalid UMP frame header.
var ErrInvalidData = errors.New("ump: invalid data")

// ErrUnexpectedEOF indicates the input ended before a complete varint,
// frame header, or frame payload could be read. Callers that stream input
// incrementally treat this as "need more bytes", not as a hard failure.
var ErrUnexpectedEOF = errors.New("ump: unexpected eof")
