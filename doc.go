// Package vp8 provides a pure Go decoder for VP8 intra-frame (keyframe)
// bitstreams, the lossy payload of still WebP images.
//
// The package decodes the compressed frame that a container parser has
// located: the partitioned boolean-coded bitstream following the frame tag.
// Output is planar YUV 4:2:0, delivered one macroblock row at a time through
// a RowSink so callers can stream color conversion or abort a decode early.
//
// The decoder implements the keyframe subset of RFC 6386: boolean arithmetic
// decoding, header and probability parsing, context-adaptive residual
// decoding, intra prediction, the inverse DCT/WHT pair, and the in-loop
// deblocking filter (simple and normal variants).
//
// Container parsing (RIFF/WebP), VP8L, animation, alpha, and YUV-to-RGB
// conversion are out of scope; they belong to the container layer that
// supplies this package with the frame bytes and dimensions.
//
// Basic usage:
//
//	err := vp8.Decode(frameData, pic, hdr, sink)
package vp8
