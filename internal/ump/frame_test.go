package ump

import (
	"bytes"
	"testing"
)

func TestReadFrameRoundTrip(t *testing.T) {
	payload := []byte("hello media")
	buf := WriteFrame(nil, Media, payload)

	f, n, err := ReadFrame(buf, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if f.Type != Media {
		t.Fatalf("type = %d, want %d", f.Type, Media)
	}
	if f.Length != uint32(len(payload)) {
		t.Fatalf("length = %d, want %d", f.Length, len(payload))
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("payload = %q, want %q", f.Payload, payload)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	full := WriteFrame(nil, Media, []byte("0123456789"))
	truncated := full[:len(full)-3]
	if _, _, err := ReadFrame(truncated, 0); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	// Only the type varint is present, not the length varint.
	if _, _, err := ReadFrame([]byte{21}, 0); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadAllFramesStreamOrder(t *testing.T) {
	var buf []byte
	buf = WriteFrame(buf, PartType(20), []byte("header"))
	buf = WriteFrame(buf, Media, []byte("media-1"))
	buf = WriteFrame(buf, PartType(22), nil)

	frames, consumed, err := ReadAllFrames(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed %d, want %d", consumed, len(buf))
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Type != PartType(20) || frames[1].Type != Media || frames[2].Type != PartType(22) {
		t.Fatalf("unexpected frame type order: %+v", frames)
	}
	if !bytes.Equal(frames[1].Payload, []byte("media-1")) {
		t.Fatalf("unexpected media payload: %q", frames[1].Payload)
	}
}

func TestReadAllFramesLeavesTrailingIncompleteFrame(t *testing.T) {
	complete := WriteFrame(nil, Media, []byte("abc"))
	partial := WriteFrame(nil, PartType(20), []byte("0123456789"))
	partial = partial[:len(partial)-4]

	input := append(append([]byte{}, complete...), partial...)
	frames, consumed, err := ReadAllFrames(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(frames))
	}
	if consumed != len(complete) {
		t.Fatalf("consumed %d, want %d (only the complete frame)", consumed, len(complete))
	}
}
