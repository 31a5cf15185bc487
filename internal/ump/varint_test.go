package ump

import (
	"bytes"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 63, 64, 127, 128, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, 0xFFFFFFF, 0x10000000, 0xFFFFFFFF}
	for _, v := range cases {
		enc := AppendVarint(nil, v)
		if len(enc) != VarintSize(v) {
			t.Fatalf("value %d: encoded width %d != VarintSize %d", v, len(enc), VarintSize(v))
		}
		got, n, err := ReadVarint(enc, 0)
		if err != nil {
			t.Fatalf("value %d: decode error: %v", v, err)
		}
		if n != len(enc) {
			t.Fatalf("value %d: consumed %d != encoded width %d", v, n, len(enc))
		}
		if got != v {
			t.Fatalf("round trip mismatch: encoded %d, decoded %d", v, got)
		}
	}
}

func TestVarintWidthBoundaries(t *testing.T) {
	widths := map[uint32]int{
		0:          1,
		0x7F:       1,
		0x80:       2,
		0x3FFF:     2,
		0x4000:     3,
		0x1FFFFF:   3,
		0x200000:   4,
		0xFFFFFFF:  4,
		0x10000000: 5,
		0xFFFFFFFF: 5,
	}
	for v, want := range widths {
		if got := VarintSize(v); got != want {
			t.Fatalf("VarintSize(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestReadVarintIgnoresLowBitsOnFiveByteForm(t *testing.T) {
	// A 5-byte varint ignores the low bits of its prefix byte; every
	// 11110xxx prefix (0xF0-0xF7) should decode identically. 0xF8 and above
	// carry five leading ones and are rejected (see TestReadVarintInvalidPrefix).
	payload := []byte{0x78, 0x56, 0x34, 0x12}
	for prefix := byte(0xF0); prefix <= 0xF7; prefix++ {
		buf := append([]byte{prefix}, payload...)
		got, n, err := ReadVarint(buf, 0)
		if err != nil {
			t.Fatalf("prefix 0x%02x: unexpected error: %v", prefix, err)
		}
		if n != 5 {
			t.Fatalf("prefix 0x%02x: consumed %d, want 5", prefix, n)
		}
		want := uint32(0x12345678)
		if got != want {
			t.Fatalf("prefix 0x%02x: got %d want %d", prefix, got, want)
		}
	}
}

func TestReadVarintInvalidPrefix(t *testing.T) {
	// All five top bits set (0xF8) exceeds the maximum 5-byte width.
	_, _, err := ReadVarint([]byte{0xF8, 0, 0, 0, 0}, 0)
	if err == nil {
		t.Fatalf("expected error for invalid prefix byte")
	}
}

func TestReadVarintUnexpectedEOF(t *testing.T) {
	if _, _, err := ReadVarint(nil, 0); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF for empty input, got %v", err)
	}
	// Prefix indicates 3 bytes but only 2 are present.
	if _, _, err := ReadVarint([]byte{0xC0, 0x01}, 0); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF for truncated varint, got %v", err)
	}
}

func TestAppendVarintMatchesReferenceEncoding(t *testing.T) {
	// 2-byte form: value = (b1 & 0x3F) | (b2 << 6)
	v := uint32(1000)
	enc := AppendVarint(nil, v)
	if len(enc) != 2 {
		t.Fatalf("expected 2-byte encoding for %d, got %d bytes", v, len(enc))
	}
	if enc[0]&0xC0 != 0x80 {
		t.Fatalf("expected 2-byte prefix pattern 10xxxxxx, got 0x%02x", enc[0])
	}
	reconstructed := uint32(enc[0]&0x3F) | uint32(enc[1])<<6
	if reconstructed != v {
		t.Fatalf("manual decode mismatch: got %d want %d", reconstructed, v)
	}
}

func TestAppendVarintBuildsOnExistingSlice(t *testing.T) {
	dst := []byte{0xAA, 0xBB}
	out := AppendVarint(dst, 5)
	if !bytes.Equal(out[:2], []byte{0xAA, 0xBB}) {
		t.Fatalf("expected prefix preserved, got %v", out[:2])
	}
	if out[2] != 5 {
		t.Fatalf("expected appended byte 5, got %d", out[2])
	}
}
