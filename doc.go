// Package qoi provides a pure Go encoder and decoder for the QOI
// ("Quite OK Image") format.
//
// QOI is a lossless format for RGB and RGBA images that compresses with a
// single sequential pass over the pixels, using five variable-length
// opcodes: runs of identical pixels, references into a 64-entry table of
// recently seen pixels, small per-channel deltas against the previous
// pixel, and literal RGB/RGBA values. This package implements the QOI
// specification in portable Go, and registers itself with the image
// package so that image.Decode can transparently read QOI files.
//
// The package offers two levels of API:
//
//   - An allocation-free core operating on caller-provided buffers:
//     EncodePixels and DecodePixels.
//   - image.Image adapters in the style of the standard library codecs:
//     Decode, DecodeConfig, and Encode.
//
// Basic usage for decoding:
//
//	img, err := qoi.Decode(reader)
//
// Basic usage for encoding:
//
//	err := qoi.Encode(writer, img, nil)
package qoi
