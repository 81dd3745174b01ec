// Command vp8yuv decodes a raw VP8 keyframe (the payload of a WebP "VP8 "
// chunk) into planar YUV 4:2:0 (I420) on stdout.
//
// Usage:
//
//	vp8yuv [-o out.yuv] frame.vp8
//
// The tool plays the container's role at the decoder boundary: it reads the
// 3-byte frame tag and the 7-byte keyframe signature itself and hands the
// remaining bytes to the decoder.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hrsh/vp8"
)

func main() {
	out := flag.String("o", "", "output file (default stdout)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vp8yuv [-o out.yuv] frame.vp8")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *out); err != nil {
		fmt.Fprintf(os.Stderr, "vp8yuv: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	frameData, pic, hdr, err := splitFrame(data)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	sink := &i420Writer{w: w, width: pic.Width, height: pic.Height}
	if err := vp8.Decode(frameData, pic, hdr, sink); err != nil {
		return err
	}
	return sink.flush()
}

// splitFrame interprets the frame tag and keyframe signature, returning the
// compressed payload and the parsed headers.
func splitFrame(data []byte) ([]byte, vp8.PictureHeader, vp8.FrameHeader, error) {
	if len(data) < 10 {
		return nil, vp8.PictureHeader{}, vp8.FrameHeader{}, fmt.Errorf("frame too short (%d bytes)", len(data))
	}
	tag := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	hdr := vp8.FrameHeader{
		KeyFrame:        tag&1 == 0,
		Version:         uint8(tag >> 1 & 7),
		ShowFrame:       tag>>4&1 != 0,
		PartitionLength: tag >> 5,
	}
	if data[3] != 0x9d || data[4] != 0x01 || data[5] != 0x2a {
		return nil, vp8.PictureHeader{}, vp8.FrameHeader{}, fmt.Errorf("bad keyframe start code")
	}
	wCode := binary.LittleEndian.Uint16(data[6:8])
	hCode := binary.LittleEndian.Uint16(data[8:10])
	pic := vp8.PictureHeader{
		Width:  int(wCode & 0x3fff),
		Height: int(hCode & 0x3fff),
		XScale: uint8(wCode >> 14),
		YScale: uint8(hCode >> 14),
	}
	return data[10:], pic, hdr, nil
}

// i420Writer buffers decoded rows and writes the planes in I420 order
// (full Y plane, then U, then V) once the frame completes.
type i420Writer struct {
	w             io.Writer
	width, height int
	y, u, v       []byte
}

func (s *i420Writer) OnRow(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
	for j := 0; j < numRows; j++ {
		s.y = append(s.y, y[j*yStride:j*yStride+s.width]...)
	}
	uvRows := (numRows + 1) / 2
	uvWidth := (s.width + 1) / 2
	for j := 0; j < uvRows; j++ {
		s.u = append(s.u, u[j*uvStride:j*uvStride+uvWidth]...)
		s.v = append(s.v, v[j*uvStride:j*uvStride+uvWidth]...)
	}
	return nil
}

func (s *i420Writer) flush() error {
	for _, plane := range [][]byte{s.y, s.u, s.v} {
		if _, err := s.w.Write(plane); err != nil {
			return err
		}
	}
	return nil
}
