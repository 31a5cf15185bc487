package ump

import (
	"bytes"
	"testing"
)

// mediaFrame builds a type-21 UMP frame whose payload is a one-byte
// header_id followed by the given media bytes, matching the wire shape the
// transform stream must strip.
func mediaFrame(headerID byte, media []byte) []byte {
	payload := append([]byte{headerID}, media...)
	return WriteFrame(nil, Media, payload)
}

func TestTransformerExtractsSingleMediaFrame(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	frame := mediaFrame(7, []byte("payload-bytes"))
	out, err := tr.Push(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, []byte("payload-bytes")) {
		t.Fatalf("got %q, want %q", out, "payload-bytes")
	}
}

func TestTransformerSkipsControlFrames(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	var buf []byte
	buf = WriteFrame(buf, PartType(20), []byte("some-control-payload"))
	buf = append(buf, mediaFrame(1, []byte("AAA"))...)
	buf = WriteFrame(buf, PartType(22), nil)
	buf = append(buf, mediaFrame(1, []byte("BBB"))...)

	out, err := tr.Push(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, []byte("AAABBB")) {
		t.Fatalf("got %q, want %q", out, "AAABBB")
	}
}

func TestTransformerHandlesMediaSplitAcrossChunks(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	full := mediaFrame(2, []byte("0123456789"))
	mid := len(full) / 2

	var out []byte
	o1, err := tr.Push(full[:mid])
	if err != nil {
		t.Fatalf("chunk 1: unexpected error: %v", err)
	}
	out = append(out, o1...)

	o2, err := tr.Push(full[mid:])
	if err != nil {
		t.Fatalf("chunk 2: unexpected error: %v", err)
	}
	out = append(out, o2...)

	if !bytes.Equal(out, []byte("0123456789")) {
		t.Fatalf("got %q, want %q", out, "0123456789")
	}
}

func TestTransformerHandlesHeaderSplitAcrossChunks(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	full := mediaFrame(3, []byte("media-bytes"))

	var out []byte
	for i := 0; i < len(full); i++ {
		o, err := tr.Push(full[i : i+1])
		if err != nil {
			t.Fatalf("byte %d: unexpected error: %v", i, err)
		}
		out = append(out, o...)
	}

	if !bytes.Equal(out, []byte("media-bytes")) {
		t.Fatalf("got %q, want %q", out, "media-bytes")
	}
}

func TestTransformerPreservesOrderAcrossMultipleMediaFrames(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	var buf []byte
	buf = append(buf, mediaFrame(1, []byte("first-"))...)
	buf = append(buf, mediaFrame(1, []byte("second-"))...)
	buf = append(buf, mediaFrame(1, []byte("third"))...)

	out, err := tr.Push(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, []byte("first-second-third")) {
		t.Fatalf("got %q, want %q", out, "first-second-third")
	}
}

func TestTransformerRejectsZeroLengthMediaFrame(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	// A type-21 frame must carry at least the header_id byte.
	buf := WriteFrame(nil, Media, nil)
	if _, err := tr.Push(buf); err == nil {
		t.Fatalf("expected error for zero-length media frame")
	}
}

func TestTransformerWaitsOnIncompleteHeader(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	// Single byte: the type varint is complete, the length varint is not.
	out, err := tr.Push([]byte{21})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no output yet, got %q", out)
	}

	full := mediaFrame(9, []byte("tail"))
	out, err = tr.Push(full[1:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, []byte("tail")) {
		t.Fatalf("got %q, want %q", out, "tail")
	}
}
