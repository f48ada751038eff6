package qoi

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeDecodeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 16),
				G: uint8(y * 32),
				B: uint8((x ^ y) * 10),
				A: uint8(255 - y*4),
			})
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(*image.NRGBA)
	if !ok {
		t.Fatalf("Decode returned %T, want *image.NRGBA", decoded)
	}
	if !got.Bounds().Eq(img.Bounds()) {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), img.Bounds())
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("decoded pixels differ from input")
	}
}

func TestEncodeImage_RGBForcesOpaque(t *testing.T) {
	img := solidNRGBA(2, 2, color.NRGBA{R: 5, G: 6, B: 7, A: 99})

	var buf bytes.Buffer
	opts := &EncoderOptions{Channels: ChannelsRGB}
	if err := Encode(&buf, img, opts); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h, pixels, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if h.Channels != ChannelsRGB {
		t.Errorf("channels = %v, want RGB", h.Channels)
	}
	for i, p := range pixels {
		if p.A != 255 {
			t.Fatalf("pixel %d alpha = %d, want 255", i, p.A)
		}
	}
}

func TestEncodeImage_SubImage(t *testing.T) {
	// A sub-image has a non-zero Bounds().Min; the encoder must read
	// the right window.
	base := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			base.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 0, A: 255})
		}
	}
	sub := base.SubImage(image.Rect(2, 2, 6, 6)).(*image.NRGBA)

	var buf bytes.Buffer
	if err := Encode(&buf, sub, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("bounds = %v, want 4x4", b)
	}
	wantTopLeft := base.NRGBAAt(2, 2)
	if got := decoded.(*image.NRGBA).NRGBAAt(0, 0); got != wantTopLeft {
		t.Errorf("pixel(0,0) = %+v, want %+v", got, wantTopLeft)
	}
}

func TestEncodeImage_InvalidOptions(t *testing.T) {
	img := solidNRGBA(1, 1, color.NRGBA{A: 255})

	var ic InvalidChannelsError
	err := Encode(io.Discard, img, &EncoderOptions{Channels: 7})
	if !errors.As(err, &ic) {
		t.Errorf("err = %v, want InvalidChannelsError", err)
	}

	var ics InvalidColorspaceError
	err = Encode(io.Discard, img, &EncoderOptions{Channels: ChannelsRGBA, Colorspace: 3})
	if !errors.As(err, &ics) {
		t.Errorf("err = %v, want InvalidColorspaceError", err)
	}
}

func TestDecodeConfig(t *testing.T) {
	var buf bytes.Buffer
	img := solidNRGBA(20, 10, color.NRGBA{R: 1, A: 255})
	if err := Encode(&buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cfg, err := DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 20 || cfg.Height != 10 {
		t.Errorf("config = %dx%d, want 20x10", cfg.Width, cfg.Height)
	}
	if cfg.ColorModel != color.NRGBAModel {
		t.Error("color model is not NRGBA")
	}
}

func TestDecodeConfig_ShortInput(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("qoi"))
	if !errors.Is(err, ErrMissingHeader) {
		t.Errorf("err = %v, want ErrMissingHeader", err)
	}
}

func TestRegisteredFormat(t *testing.T) {
	var buf bytes.Buffer
	img := solidNRGBA(4, 4, color.NRGBA{G: 200, A: 255})
	if err := Encode(&buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("image.Decode: %v", err)
	}
	if format != "qoi" {
		t.Errorf("format = %q, want %q", format, "qoi")
	}
	if decoded.Bounds().Dx() != 4 {
		t.Errorf("width = %d, want 4", decoded.Bounds().Dx())
	}
}

func TestDecode_PropagatesReadError(t *testing.T) {
	_, err := Decode(errReader{})
	if err == nil || !strings.Contains(err.Error(), "qoi: reading data") {
		t.Errorf("err = %v, want wrapped read error", err)
	}
	if !errors.Is(err, errBroken) {
		t.Errorf("err = %v, want errors.Is(err, errBroken)", err)
	}
}

var errBroken = errors.New("broken pipe")

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errBroken }

func TestRawConversions(t *testing.T) {
	t.Run("rgba", func(t *testing.T) {
		raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		pixels, err := RawToPixels(raw, ChannelsRGBA)
		if err != nil {
			t.Fatalf("RawToPixels: %v", err)
		}
		want := []Pixel{{1, 2, 3, 4}, {5, 6, 7, 8}}
		for i := range want {
			if pixels[i] != want[i] {
				t.Errorf("pixel %d = %+v, want %+v", i, pixels[i], want[i])
			}
		}
		if back := PixelsToRaw(pixels, ChannelsRGBA); !bytes.Equal(back, raw) {
			t.Errorf("PixelsToRaw = % x, want % x", back, raw)
		}
	})

	t.Run("rgb fills alpha", func(t *testing.T) {
		raw := []byte{1, 2, 3, 4, 5, 6}
		pixels, err := RawToPixels(raw, ChannelsRGB)
		if err != nil {
			t.Fatalf("RawToPixels: %v", err)
		}
		want := []Pixel{{1, 2, 3, 255}, {4, 5, 6, 255}}
		for i := range want {
			if pixels[i] != want[i] {
				t.Errorf("pixel %d = %+v, want %+v", i, pixels[i], want[i])
			}
		}
		if back := PixelsToRaw(pixels, ChannelsRGB); !bytes.Equal(back, raw) {
			t.Errorf("PixelsToRaw = % x, want % x", back, raw)
		}
	})

	t.Run("ragged input", func(t *testing.T) {
		_, err := RawToPixels([]byte{1, 2, 3, 4, 5}, ChannelsRGB)
		var mp MissingPixelsError
		if !errors.As(err, &mp) {
			t.Errorf("err = %v, want MissingPixelsError", err)
		}
	})

	t.Run("bad channels", func(t *testing.T) {
		_, err := RawToPixels([]byte{1, 2}, 2)
		var ic InvalidChannelsError
		if !errors.As(err, &ic) {
			t.Errorf("err = %v, want InvalidChannelsError", err)
		}
	})
}

// TestReferenceImages re-encodes every testdata/*.qoi stream and checks
// the result byte-for-byte against the original file, verifying
// wire-compatibility with the reference encoder. Images from the
// upstream qoi_test_images set can be dropped into testdata to widen
// coverage; the test skips when none are present.
func TestReferenceImages(t *testing.T) {
	entries, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory")
	}

	tested := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".qoi" {
			continue
		}
		tested++
		t.Run(e.Name(), func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", e.Name()))
			if err != nil {
				t.Fatalf("reading %s: %v", e.Name(), err)
			}
			h, pixels, err := DecodeBytes(data)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			reencoded, err := EncodeBytes(h, pixels)
			if err != nil {
				t.Fatalf("EncodeBytes: %v", err)
			}
			if !bytes.Equal(reencoded, data) {
				t.Errorf("re-encoded stream differs from reference (%d vs %d bytes)", len(reencoded), len(data))
			}
		})
	}
	if tested == 0 {
		t.Skip("no .qoi files in testdata")
	}
}
