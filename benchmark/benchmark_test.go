// Package benchmark cross-checks and benchmarks this decoder against the
// reference Go implementation in golang.org/x/image/vp8.
//
// Run with:
//
//	go test -bench=. -benchmem -count=3
package benchmark

import (
	"bytes"
	"encoding/binary"
	"testing"

	hrsh "github.com/hrsh/vp8"
	xvp8 "golang.org/x/image/vp8"
)

// testFrame synthesizes a minimal conforming keyframe: all-zero control and
// residual partitions decode to default headers, BPRED DC modes and empty
// residuals, which both decoders must reproduce identically.
func testFrame(width, height int) []byte {
	// Sized generously: even all-zero mode and token bits consume a few
	// bits per macroblock, and the 512x512 benchmark frame has 1024 of them.
	const partLen = 8192
	payload := make([]byte, partLen+8192)

	tag := uint32(0)         // keyframe, version 0
	tag |= 1 << 4            // show_frame
	tag |= uint32(partLen) << 5

	frame := make([]byte, 0, 10+len(payload))
	frame = append(frame, byte(tag), byte(tag>>8), byte(tag>>16))
	frame = append(frame, 0x9d, 0x01, 0x2a)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(width))
	frame = binary.LittleEndian.AppendUint16(frame, uint16(height))
	return append(frame, payload...)
}

type planeSink struct {
	y, u, v []byte
}

func (s *planeSink) OnRow(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
	s.y = append(s.y, y...)
	s.u = append(s.u, u...)
	s.v = append(s.v, v...)
	return nil
}

func decodeOurs(frame []byte, width, height int) (*planeSink, error) {
	tag := uint32(frame[0]) | uint32(frame[1])<<8 | uint32(frame[2])<<16
	hdr := hrsh.FrameHeader{
		KeyFrame:        tag&1 == 0,
		Version:         uint8(tag >> 1 & 7),
		ShowFrame:       tag>>4&1 != 0,
		PartitionLength: tag >> 5,
	}
	pic := hrsh.PictureHeader{Width: width, Height: height}
	sink := &planeSink{}
	if err := hrsh.Decode(frame[10:], pic, hdr, sink); err != nil {
		return nil, err
	}
	return sink, nil
}

func TestCrossCheckAgainstXImage(t *testing.T) {
	const width, height = 128, 96
	frame := testFrame(width, height)

	ours, err := decodeOurs(frame, width, height)
	if err != nil {
		t.Fatalf("hrsh/vp8: %v", err)
	}

	d := xvp8.NewDecoder()
	d.Init(bytes.NewReader(frame), len(frame))
	if _, err := d.DecodeFrameHeader(); err != nil {
		t.Fatalf("x/image frame header: %v", err)
	}
	ref, err := d.DecodeFrame()
	if err != nil {
		t.Fatalf("x/image decode: %v", err)
	}

	mbW := (width + 15) / 16
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			got := ours.y[y*16*mbW+x]
			want := ref.Y[y*ref.YStride+x]
			if got != want {
				t.Fatalf("Y(%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
	for y := 0; y < (height+1)/2; y++ {
		for x := 0; x < (width+1)/2; x++ {
			if got, want := ours.u[y*8*mbW+x], ref.Cb[y*ref.CStride+x]; got != want {
				t.Fatalf("U(%d,%d): got %d, want %d", x, y, got, want)
			}
			if got, want := ours.v[y*8*mbW+x], ref.Cr[y*ref.CStride+x]; got != want {
				t.Fatalf("V(%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
}

func BenchmarkDecodeOurs(b *testing.B) {
	const width, height = 512, 512
	frame := testFrame(width, height)
	b.SetBytes(int64(width * height * 3 / 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decodeOurs(frame, width, height); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeXImage(b *testing.B) {
	const width, height = 512, 512
	frame := testFrame(width, height)
	b.SetBytes(int64(width * height * 3 / 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := xvp8.NewDecoder()
		d.Init(bytes.NewReader(frame), len(frame))
		if _, err := d.DecodeFrameHeader(); err != nil {
			b.Fatal(err)
		}
		if _, err := d.DecodeFrame(); err != nil {
			b.Fatal(err)
		}
	}
}
