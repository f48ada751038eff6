package qoi

import (
	"errors"
	"fmt"
)

// Errors without a payload.
var (
	// ErrMissingHeader is returned when the input is too short to
	// contain the 14-byte stream header.
	ErrMissingHeader = errors.New("qoi: missing header")

	// ErrInvalidEncoding is returned when the opcode stream is
	// truncated or otherwise malformed mid-opcode.
	ErrInvalidEncoding = errors.New("qoi: invalid encoding")

	// ErrTooLarge is returned by the allocating decode paths when the
	// header declares more pixels than the decoder is willing to
	// allocate for.
	ErrTooLarge = errors.New("qoi: image too large")
)

// InvalidMagicError reports that the stream does not open with the
// "qoif" signature. The value holds the four bytes received instead.
type InvalidMagicError [4]byte

func (e InvalidMagicError) Error() string {
	return fmt.Sprintf("qoi: invalid magic %q, want %q", e[:], Magic)
}

// InvalidChannelsError reports a header channels field other than 3
// (RGB) or 4 (RGBA).
type InvalidChannelsError uint8

func (e InvalidChannelsError) Error() string {
	return fmt.Sprintf("qoi: invalid channels value %d, want 3 or 4", uint8(e))
}

// InvalidColorspaceError reports a header colorspace field other than
// 0 (sRGB) or 1 (linear).
type InvalidColorspaceError uint8

func (e InvalidColorspaceError) Error() string {
	return fmt.Sprintf("qoi: invalid colorspace value %d, want 0 or 1", uint8(e))
}

// MissingPixelsError reports a pixel count shortfall: on decode, the
// end marker arrived before width*height pixels were reconstructed;
// on encode, the input slice holds fewer pixels than the header
// declares.
type MissingPixelsError struct {
	Expected int
	Received int
}

func (e MissingPixelsError) Error() string {
	return fmt.Sprintf("qoi: missing pixels: expected %d, received %d", e.Expected, e.Received)
}

// BufferTooSmallError reports that the encoder's output buffer cannot
// hold the encoded stream. Expected is HeaderSize when the header itself
// does not fit, and otherwise the header's MaxSize, which is guaranteed
// to suffice.
type BufferTooSmallError struct {
	Expected int
	Received int
}

func (e BufferTooSmallError) Error() string {
	return fmt.Sprintf("qoi: output buffer too small: need %d bytes, have %d", e.Expected, e.Received)
}

// PixelBufferTooSmallError reports that the decoder's output pixel
// buffer cannot hold the decoded image.
type PixelBufferTooSmallError struct {
	Expected int
	Received int
}

func (e PixelBufferTooSmallError) Error() string {
	return fmt.Sprintf("qoi: pixel buffer too small: need %d pixels, have %d", e.Expected, e.Received)
}
