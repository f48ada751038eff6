package qoi

import (
	"bytes"

	"github.com/deepteams/qoi/internal/cursor"
)

// decoder carries the rolling state shared by every opcode: the source
// cursor, the 64-entry table of recently seen pixels, and the
// previously emitted pixel.
type decoder struct {
	src   *cursor.Reader
	table [indexSize]Pixel
	prev  Pixel
}

// DecodePixels decodes the QOI stream in data into pixels, which must
// hold at least width*height entries, and returns the parsed header.
//
// The decode is a single sequential pass; no allocation is performed.
// On any error the contents of pixels are unspecified.
func DecodePixels(data []byte, pixels []Pixel) (Header, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Header{}, err
	}

	n := uint64(h.Width) * uint64(h.Height)
	if uint64(len(pixels)) < n {
		return Header{}, PixelBufferTooSmallError{Expected: int(n), Received: len(pixels)}
	}
	out := pixels[:n]

	d := decoder{src: cursor.NewReader(data), prev: defaultPrev}
	d.src.Skip(HeaderSize)

	written := 0
	for {
		next, ok := d.src.Peek(endMarkerSize)
		if !ok {
			// Too short to hold even the end marker.
			return Header{}, ErrInvalidEncoding
		}
		if bytes.Equal(next, endMarker[:]) {
			break
		}

		tag, _ := d.src.Byte()

		// OP_RUN repeats the previous pixel; the table is left alone.
		// After any decoded pixel its slot already holds prev; a leading
		// run of the implicit predecessor does not enter it into the table.
		if tag&tagMask == opRun && tag < opRGB {
			run := int(tag&payloadMask) + 1
			if written+run > len(out) {
				return Header{}, PixelBufferTooSmallError{Expected: written + run, Received: len(out)}
			}
			for i := 0; i < run; i++ {
				out[written] = d.prev
				written++
			}
			continue
		}

		px, err := d.decodeOp(tag)
		if err != nil {
			return Header{}, err
		}
		if written >= len(out) {
			return Header{}, PixelBufferTooSmallError{Expected: written + 1, Received: len(out)}
		}
		out[written] = px
		written++
		d.table[px.hash()] = px
		d.prev = px
	}

	if written != len(out) {
		return Header{}, MissingPixelsError{Expected: len(out), Received: written}
	}
	return h, nil
}

// decodeOp reconstructs the single pixel encoded by tag, consuming any
// payload bytes. OP_RUN is handled by the caller.
func (d *decoder) decodeOp(tag byte) (Pixel, error) {
	switch tag {
	case opRGB:
		p, ok := d.src.Next(3)
		if !ok {
			return Pixel{}, ErrInvalidEncoding
		}
		return Pixel{p[0], p[1], p[2], d.prev.A}, nil

	case opRGBA:
		p, ok := d.src.Next(4)
		if !ok {
			return Pixel{}, ErrInvalidEncoding
		}
		return Pixel{p[0], p[1], p[2], p[3]}, nil
	}

	switch tag & tagMask {
	case opIndex:
		return d.table[tag&payloadMask], nil

	case opDiff:
		// Channel deltas wrap modulo 256; negative deltas rely on it.
		return Pixel{
			R: d.prev.R + (tag>>4)&0x03 - diffBias,
			G: d.prev.G + (tag>>2)&0x03 - diffBias,
			B: d.prev.B + tag&0x03 - diffBias,
			A: d.prev.A,
		}, nil

	default: // opLuma
		rb, ok := d.src.Byte()
		if !ok {
			return Pixel{}, ErrInvalidEncoding
		}
		dg := tag&payloadMask - lumaGreenBias
		return Pixel{
			R: d.prev.R + dg + rb>>4 - lumaBias,
			G: d.prev.G + dg,
			B: d.prev.B + dg + rb&0x0f - lumaBias,
			A: d.prev.A,
		}, nil
	}
}

// DecodeBytes decodes a complete QOI stream, allocating the pixel
// buffer for the caller. Streams declaring an unreasonable pixel count
// are rejected with ErrTooLarge before any allocation happens.
func DecodeBytes(data []byte) (Header, []Pixel, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Header{}, nil, err
	}
	n := uint64(h.Width) * uint64(h.Height)
	if n > maxDecodePixels {
		return Header{}, nil, ErrTooLarge
	}
	pixels := make([]Pixel, n)
	if _, err := DecodePixels(data, pixels); err != nil {
		return Header{}, nil, err
	}
	return h, pixels, nil
}
