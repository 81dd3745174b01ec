package vp8

import (
	"github.com/hrsh/vp8/internal/frame"
)

// Errors surfaced across the decoder boundary. Use errors.Is to test for
// them; anything else wrapping one of these still matches.
var (
	// ErrUnsupportedProfile is returned for frame-tag versions outside 0..3.
	ErrUnsupportedProfile = frame.ErrUnsupportedProfile

	// ErrInvalidHeader is returned for semantically impossible header values
	// (zero dimensions, a control partition larger than the frame data, a
	// non-keyframe or hidden frame).
	ErrInvalidHeader = frame.ErrInvalidHeader

	// ErrTruncatedBitstream is returned when a partition runs out of bytes
	// mid-macroblock. Rows emitted before the error remain valid.
	ErrTruncatedBitstream = frame.ErrTruncatedBitstream

	// ErrOutOfMemory is returned when the reconstruction buffers for the
	// declared dimensions would exceed the decoder's allocation bound.
	ErrOutOfMemory = frame.ErrOutOfMemory
)

// FrameHeader carries the fields of the 3-byte VP8 frame tag, which the
// container has already read and interpreted.
type FrameHeader struct {
	KeyFrame        bool
	ShowFrame       bool
	Version         uint8  // 0..3
	PartitionLength uint32 // size of the control partition in bytes
}

// PictureHeader carries the picture dimensions and scaling hints from the
// 7-byte keyframe signature that follows the frame tag. The scales are
// informational; this decoder always emits unscaled planes.
type PictureHeader struct {
	Width  int // 1..16383
	Height int // 1..16383
	XScale uint8
	YScale uint8
}

// RowSink receives finished macroblock rows of YUV 4:2:0 data.
//
// For each macroblock row mbY the sink is handed numRows luma rows (16,
// except possibly fewer for the final row) and (numRows+1)/2 chroma rows.
// The slices alias the decoder's frame cache and are valid only until OnRow
// returns. Returning a non-nil error aborts the decode; rows already
// delivered remain valid output.
type RowSink interface {
	OnRow(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error
}

// RowSinkFunc adapts a plain function to the RowSink interface.
type RowSinkFunc func(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error

// OnRow calls f.
func (f RowSinkFunc) OnRow(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
	return f(mbY, y, yStride, u, v, uvStride, numRows)
}

// Decode decodes one VP8 keyframe and streams its macroblock rows to sink.
//
// data is the compressed frame payload starting at the first byte of the
// control partition, i.e. after the 3-byte frame tag and the 7-byte keyframe
// signature (start code + dimensions) that the container has stripped. The
// control partition occupies the first fh.PartitionLength bytes; the residual
// partitions follow.
//
// The frame-tag version selects the loop-filter profile: version 0 applies
// whichever filter the frame header signals, version 1 forces the simple
// filter, versions 2 and 3 disable in-loop filtering, and any other version
// fails with ErrUnsupportedProfile.
func Decode(data []byte, pic PictureHeader, fh FrameHeader, sink RowSink) error {
	if sink == nil {
		return ErrInvalidHeader
	}
	return frame.Decode(data,
		frame.Picture{
			Width:  pic.Width,
			Height: pic.Height,
			XScale: pic.XScale,
			YScale: pic.YScale,
		},
		frame.Header{
			KeyFrame:        fh.KeyFrame,
			ShowFrame:       fh.ShowFrame,
			Version:         fh.Version,
			PartitionLength: fh.PartitionLength,
		},
		sink.OnRow)
}
