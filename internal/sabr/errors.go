package sabr

import "errors"

// errMalformed wraps any protowire-level parse failure (bad tag, truncated
// varint, truncated length-delimited field) inside a DecodeError.
var errMalformed = errors.New("sabr: malformed protobuf field")
