// Package transcode re-encodes proxied thumbnail images, grounded on the
// upstream's dedicated image-transcoding routine: WebP and (optionally) JPEG
// are re-encoded to AVIF, and plain JPEG is opportunistically shrunk to
// WebP when that produces a smaller payload.
package transcode

import (
	"bytes"
	"image"
	_ "image/jpeg"

	"github.com/chai2010/webp"
	"github.com/gen2brain/avif"

	protoerrors "github.com/alxayo/media-proxy/internal/errors"
)

// avifQuality and avifSpeed mirror the dedicated transcode routine this
// behaviour is grounded on, not the cruder inline speed=4 used by an
// older variant of the same upstream.
const (
	avifQuality = 80
	avifSpeed   = 7
	webpQuality = 85
)

// Result describes the outcome of a transcode attempt.
type Result struct {
	Bytes       []byte
	ContentType string
}

// ToAVIF decodes src (expected to be WebP or JPEG) and re-encodes it as
// AVIF. On any decode or encode failure it falls back to returning src
// unchanged with content type image/jpeg, matching the upstream's
// non-fatal fallback behaviour.
func ToAVIF(src []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return Result{Bytes: src, ContentType: "image/jpeg"}, nil
	}

	var buf bytes.Buffer
	err = avif.Encode(&buf, img, avif.Options{Quality: avifQuality, Speed: avifSpeed})
	if err != nil {
		return Result{Bytes: src, ContentType: "image/jpeg"}, protoerrors.NewTranscodeError("avif_encode", err)
	}
	return Result{Bytes: buf.Bytes(), ContentType: "image/avif"}, nil
}

// ToWebP decodes src (expected to be JPEG) and re-encodes it as WebP,
// keeping the WebP result only when it is strictly smaller than src.
func ToWebP(src []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return Result{Bytes: src, ContentType: "image/jpeg"}, protoerrors.NewTranscodeError("webp_decode", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return Result{Bytes: src, ContentType: "image/jpeg"}, protoerrors.NewTranscodeError("webp_encode", err)
	}
	if buf.Len() >= len(src) {
		return Result{Bytes: src, ContentType: "image/jpeg"}, nil
	}
	return Result{Bytes: buf.Bytes(), ContentType: "image/webp"}, nil
}
