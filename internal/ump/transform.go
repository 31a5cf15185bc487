package ump

import (
	"fmt"

	"github.com/alxayo/media-proxy/internal/bufpool"
	protoerrors "github.com/alxayo/media-proxy/internal/errors"
)

// Transformer extracts the media payload (type-21 frame bytes, minus each
// frame's one-byte header_id prefix) out of a mixed control/media UMP byte
// stream, in stream order. It is pull-free: callers push inbound chunks via
// Push and receive the bytes ready for forwarding to the client.
//
// A Transformer is not safe for concurrent use; each proxied response gets
// its own instance.
type Transformer struct {
	buf          []byte // carry-over bytes not yet resolved into a frame
	insideMedia  bool
	remaining    uint32
	pooledBuf    []byte // backing array borrowed from bufpool, returned on Close
}

// NewTransformer returns a Transformer ready to accept inbound chunks.
func NewTransformer() *Transformer {
	pooled := bufpool.Get(4096)
	return &Transformer{buf: pooled[:0], pooledBuf: pooled}
}

// Close returns the Transformer's internal buffer to the shared pool. It is
// safe to call Close more than once.
func (t *Transformer) Close() {
	if t.pooledBuf != nil {
		bufpool.Put(t.pooledBuf)
		t.pooledBuf = nil
		t.buf = nil
	}
}

// Push feeds one inbound chunk and returns the bytes, if any, that should be
// forwarded downstream immediately. The returned slice is only valid until
// the next call to Push; callers that need to retain it must copy.
//
// Push returns a DecodeError wrapping ErrInvalidData if a frame header in
// the stream is malformed. Once an error is returned the Transformer must
// not be reused.
func (t *Transformer) Push(chunk []byte) ([]byte, error) {
	var out []byte

	if t.insideMedia {
		n := len(chunk)
		if uint32(n) > t.remaining {
			n = int(t.remaining)
		}
		out = append(out, chunk[:n]...)
		t.remaining -= uint32(n)
		if t.remaining == 0 {
			t.insideMedia = false
			if n < len(chunk) {
				t.buf = append(t.buf, chunk[n:]...)
			}
		} else {
			// remaining > 0 means the whole chunk was media and consumed.
			return out, nil
		}
	} else {
		t.buf = append(t.buf, chunk...)
	}

	for !t.insideMedia && len(t.buf) > 0 {
		typeVal, n1, err := ReadVarint(t.buf, 0)
		if err != nil {
			if err == ErrUnexpectedEOF {
				break
			}
			return out, err
		}
		length, n2, err := ReadVarint(t.buf, n1)
		if err != nil {
			if err == ErrUnexpectedEOF {
				break
			}
			return out, err
		}
		headerLen := n1 + n2

		if PartType(typeVal) != Media {
			if headerLen+int(length) > len(t.buf) {
				// Full control frame not yet buffered; wait for more input.
				break
			}
			t.buf = t.buf[headerLen+int(length):]
			continue
		}

		if length == 0 {
			return out, protoerrors.NewDecodeError("ump.transform", fmt.Errorf("%w: zero-length media frame", ErrInvalidData))
		}

		// Consume the header plus the one-byte header_id prefix; the
		// remaining length-1 bytes are media payload.
		consumed := headerLen + 1
		if consumed > len(t.buf) {
			// header_id prefix not yet available; wait for more input.
			break
		}
		t.remaining = length - 1
		t.insideMedia = true
		t.buf = t.buf[consumed:]

		n := len(t.buf)
		if uint32(n) > t.remaining {
			n = int(t.remaining)
		}
		out = append(out, t.buf[:n]...)
		t.remaining -= uint32(n)
		t.buf = t.buf[n:]
		if t.remaining == 0 {
			t.insideMedia = false
		}
		// Either remaining == 0 (loop continues to parse the next header
		// from whatever is left in buf) or remaining > 0 (buf is now
		// empty and we must wait for the next Push).
	}

	return out, nil
}
