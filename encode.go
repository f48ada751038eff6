package qoi

import (
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/deepteams/qoi/internal/cursor"
)

// encoder carries the rolling state of an encode pass: the output
// cursor, the 64-entry table of recently seen pixels, the previously
// emitted pixel, and the pending run length.
type encoder struct {
	dst   *cursor.Writer
	table [indexSize]Pixel
	prev  Pixel
	run   int
}

// EncodePixels encodes pixels into out and returns the number of bytes
// written. The header declares the image geometry; pixels must hold at
// least Width*Height entries, and out must be large enough for the
// encoded stream — h.MaxSize() bytes always suffice.
//
// The encode is a single sequential pass; no allocation is performed.
func EncodePixels(h Header, pixels []Pixel, out []byte) (int, error) {
	n64 := uint64(h.Width) * uint64(h.Height)
	if uint64(len(pixels)) < n64 {
		return 0, MissingPixelsError{Expected: int(n64), Received: len(pixels)}
	}
	n := int(n64)
	if len(out) < HeaderSize {
		return 0, BufferTooSmallError{Expected: HeaderSize, Received: len(out)}
	}

	e := encoder{dst: cursor.NewWriter(out), prev: defaultPrev}
	var hdr [HeaderSize]byte
	e.dst.Put(appendHeader(hdr[:0], h))

	for i, p := range pixels[:n] {
		last := i == n-1

		// A pixel equal to its predecessor extends the pending run,
		// except that the implicit predecessor of the very first pixel
		// cannot start one. Runs cap at 62: the two longer payloads
		// alias the OP_RGB/OP_RGBA tag bytes.
		if p == e.prev && i > 0 {
			e.run++
			if e.run == maxRun || last {
				if !e.flushRun() {
					return 0, BufferTooSmallError{Expected: h.MaxSize(), Received: len(out)}
				}
			}
			continue
		}
		if e.run > 0 && !e.flushRun() {
			return 0, BufferTooSmallError{Expected: h.MaxSize(), Received: len(out)}
		}

		ok := e.tryIndex(p) || e.tryDiff(p) || e.tryLuma(p) || e.putColor(p)
		if !ok {
			return 0, BufferTooSmallError{Expected: h.MaxSize(), Received: len(out)}
		}
		e.table[p.hash()] = p
		e.prev = p
	}

	if !e.dst.Put(endMarker[:]) {
		return 0, BufferTooSmallError{Expected: h.MaxSize(), Received: len(out)}
	}
	return e.dst.Pos(), nil
}

// flushRun materializes the pending run as one OP_RUN opcode.
func (e *encoder) flushRun() bool {
	ok := e.dst.PutByte(opRun | byte(e.run-1))
	e.run = 0
	return ok
}

// tryIndex emits OP_INDEX when p already sits in its table slot.
func (e *encoder) tryIndex(p Pixel) bool {
	i := p.hash()
	if e.table[i] != p {
		return false
	}
	return e.dst.PutByte(opIndex | byte(i))
}

// tryDiff emits OP_DIFF when each channel moved by -2..1 relative to
// the previous pixel and alpha is unchanged. The biased deltas are
// computed with wrapping byte arithmetic, so a channel that stepped
// across 0 or 255 still lands in range.
func (e *encoder) tryDiff(p Pixel) bool {
	if p.A != e.prev.A {
		return false
	}
	dr := p.R - e.prev.R + diffBias
	dg := p.G - e.prev.G + diffBias
	db := p.B - e.prev.B + diffBias
	if dr > 3 || dg > 3 || db > 3 {
		return false
	}
	return e.dst.PutByte(opDiff | dr<<4 | dg<<2 | db)
}

// tryLuma emits OP_LUMA when the green delta fits six biased bits and
// the red and blue deltas stay within four biased bits of it.
func (e *encoder) tryLuma(p Pixel) bool {
	if p.A != e.prev.A {
		return false
	}
	dg := p.G - e.prev.G
	drDg := p.R - e.prev.R - dg + lumaBias
	dbDg := p.B - e.prev.B - dg + lumaBias
	dg += lumaGreenBias
	if dg > 63 || drDg > 15 || dbDg > 15 {
		return false
	}
	return e.dst.PutByte(opLuma|dg) && e.dst.PutByte(drDg<<4|dbDg)
}

// putColor emits the literal fallback: OP_RGB when alpha is unchanged,
// OP_RGBA otherwise.
func (e *encoder) putColor(p Pixel) bool {
	if p.A == e.prev.A {
		return e.dst.Put([]byte{opRGB, p.R, p.G, p.B})
	}
	return e.dst.Put([]byte{opRGBA, p.R, p.G, p.B, p.A})
}

// EncodeBytes encodes pixels into a freshly allocated buffer sized by
// h.MaxSize and truncated to the encoded length.
func EncodeBytes(h Header, pixels []Pixel) ([]byte, error) {
	out := make([]byte, h.MaxSize())
	n, err := EncodePixels(h, pixels, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// EncoderOptions controls the header fields that are not derived from
// the image itself.
type EncoderOptions struct {
	// Channels selects the declared channel layout. The zero value
	// picks RGBA.
	Channels Channels

	// Colorspace is recorded in the header verbatim; it does not
	// affect how pixels are encoded. The zero value is sRGB.
	Colorspace Colorspace
}

// DefaultOptions returns the options Encode uses when passed nil:
// RGBA channels, sRGB colorspace.
func DefaultOptions() *EncoderOptions {
	return &EncoderOptions{
		Channels:   ChannelsRGBA,
		Colorspace: ColorspaceSRGB,
	}
}

// Encode writes m to w in QOI format. A nil opts is equivalent to
// DefaultOptions(). Declaring ChannelsRGB drops the alpha channel:
// every encoded pixel is forced opaque.
func Encode(w io.Writer, m image.Image, opts *EncoderOptions) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	channels := opts.Channels
	if channels == 0 {
		channels = ChannelsRGBA
	}
	if !channels.valid() {
		return InvalidChannelsError(channels)
	}
	if !opts.Colorspace.valid() {
		return InvalidColorspaceError(opts.Colorspace)
	}

	b := m.Bounds()
	h := Header{
		Width:      uint32(b.Dx()),
		Height:     uint32(b.Dy()),
		Channels:   channels,
		Colorspace: opts.Colorspace,
	}

	data, err := EncodeBytes(h, imagePixels(m, channels))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("qoi: writing stream: %w", err)
	}
	return nil
}

// imagePixels flattens m into row-major pixels. *image.NRGBA is read
// directly; anything else is drawn into one first.
func imagePixels(m image.Image, channels Channels) []Pixel {
	nrgba, ok := m.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, m.Bounds().Dx(), m.Bounds().Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), m, m.Bounds().Min, draw.Src)
	}

	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]Pixel, w*h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			off := x * 4
			p := Pixel{row[off], row[off+1], row[off+2], row[off+3]}
			if channels == ChannelsRGB {
				p.A = 255
			}
			pixels[y*w+x] = p
		}
	}
	return pixels
}
