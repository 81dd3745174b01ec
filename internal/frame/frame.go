// Package frame implements the VP8 keyframe decode pipeline: header and
// probability parsing, residual token decoding, intra prediction, inverse
// transforms, the in-loop filter, and row-by-row emission of the
// reconstructed YUV 4:2:0 planes.
package frame

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hrsh/vp8/internal/bitio"
	"github.com/hrsh/vp8/internal/dsp"
)

// Errors surfaced across the decoder boundary (re-exported by package vp8).
var (
	ErrUnsupportedProfile = errors.New("vp8: unsupported profile")
	ErrInvalidHeader      = errors.New("vp8: invalid frame header")
	ErrTruncatedBitstream = errors.New("vp8: truncated bitstream")
	ErrOutOfMemory        = errors.New("vp8: out of memory")

	// errInvariant marks a decoder bug, never a malformed bitstream. It
	// aborts the frame but does not join the exported taxonomy.
	errInvariant = errors.New("vp8: internal invariant violated")
)

// Picture carries the dimensions the container read from the keyframe
// signature.
type Picture struct {
	Width, Height  int
	XScale, YScale uint8
}

// Header carries the frame-tag fields the container read.
type Header struct {
	KeyFrame        bool
	ShowFrame       bool
	Version         uint8
	PartitionLength uint32
}

// EmitFunc receives one finished macroblock row. numRows is the luma row
// count (16, or the cropped remainder on the last row); the chroma slices
// hold (numRows+1)/2 rows.
type EmitFunc func(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error

// Reconstruction scratch layout: one macroblock plus a one-sample border on
// the top and left, BPS-strided, with the chroma planes below the luma area.
const (
	bps     = dsp.BPS
	yuvSize = bps*17 + bps*9
	yOff    = bps + 8
	uOff    = yOff + 16*bps + bps
	vOff    = uOff + 16
)

// maxLumaBytes bounds the frame cache; beyond it the decoder reports
// ErrOutOfMemory instead of attempting the allocation.
const maxLumaBytes = 1 << 28

// mbContext is the per-column (and left-of-frame) non-zero coefficient
// context feeding token probabilities: a luma+chroma nibble mask and the
// secondary-DC bit.
type mbContext struct {
	nz   uint8
	nzDC uint8
}

// mbData is everything parsed for one macroblock of the current row.
type mbData struct {
	coeffs  [384]int16 // 24 sub-blocks x 16 coefficients, natural order
	isI4x4  bool
	modes   [16]uint8 // one 16x16 mode, or sixteen 4x4 modes
	uvMode  uint8
	nzY     uint32 // 2-bit nonzero codes, one per luma sub-block
	nzUV    uint32
	dither  uint8
	skip    bool
	segment uint8
}

// topSamples is the persistent top-row store for one macroblock column: the
// bottom edge of the row above, feeding prediction in the current row.
type topSamples struct {
	y [16]uint8
	u [8]uint8
	v [8]uint8
}

// leftBorder is the per-row left-column context: the right edge of the
// previously reconstructed macroblock plus the three top-left corner
// samples. It is imported into the scratch before each macroblock and
// re-exported afterwards, making the row's data dependency explicit.
type leftBorder struct {
	y        [16]uint8
	u, v     [8]uint8
	topLeftY uint8
	topLeftU uint8
	topLeftV uint8
}

// filterInfo is the precomputed loop-filter strength for one macroblock.
type filterInfo struct {
	limit      uint8 // edge limit (2*level + innerLevel); 0 disables
	innerLevel uint8
	inner      bool // filter interior 4x4 edges too
	hevThresh  uint8
}

// Decoder holds all per-frame state. It is created (or recycled) at Decode
// entry and never shared between goroutines.
type Decoder struct {
	pic Picture
	hdr Header

	segHdr    segmentHeader
	filterHdr filterHeader

	mbW, mbH int
	mbX, mbY int

	br               *bitio.BoolReader // control partition
	parts            [MaxNumPartitions]*bitio.BoolReader
	numPartsMinusOne uint32

	probs        proba
	useSkipProba bool
	skipProba    uint8

	dqm [NumMBSegments]quantMatrix

	filterType int // 0 = off, 1 = simple, 2 = normal
	fstrengths [NumMBSegments][2]filterInfo

	// Row-pipeline state. leftInfo is the explicit left-of-frame sentinel;
	// mbInfo[x] is exactly column x.
	intraT     []uint8 // top intra modes, 4 per column
	intraL     [4]uint8
	topRow     []topSamples
	left       leftBorder
	leftInfo   mbContext
	mbInfo     []mbContext
	fInfo      []filterInfo
	mbData     []mbData
	scratch    []byte // yuvSize reconstruction scratch

	cacheY, cacheU, cacheV      []byte
	cacheYStride, cacheUVStride int

	// slab backs intraT + scratch + the three cache planes, kept across
	// pool reuses so initFrame can reuse-or-grow.
	slab []byte
}

// decoderPool recycles Decoder values so the cache slab survives between
// frames of similar size.
var decoderPool sync.Pool

func acquireDecoder() *Decoder {
	if v := decoderPool.Get(); v != nil {
		dec := v.(*Decoder)
		dec.pic = Picture{}
		dec.hdr = Header{}
		dec.segHdr = segmentHeader{}
		dec.filterHdr = filterHeader{}
		dec.mbW = 0
		dec.mbH = 0
		dec.mbX = 0
		dec.mbY = 0
		dec.br = nil
		for i := range dec.parts {
			dec.parts[i] = nil
		}
		dec.numPartsMinusOne = 0
		dec.useSkipProba = false
		dec.skipProba = 0
		dec.filterType = 0
		dec.left = leftBorder{}
		dec.leftInfo = mbContext{}
		return dec
	}
	return &Decoder{}
}

func releaseDecoder(dec *Decoder) {
	dec.br = nil
	for i := range dec.parts {
		dec.parts[i] = nil
	}
	decoderPool.Put(dec)
}

// Decode decodes one keyframe from data and streams macroblock rows to emit.
func Decode(data []byte, pic Picture, hdr Header, emit EmitFunc) error {
	dec := acquireDecoder()
	defer releaseDecoder(dec)

	if err := dec.parseHeaders(data, pic, hdr); err != nil {
		return err
	}
	if err := dec.initFrame(); err != nil {
		return err
	}
	dec.precomputeFilterStrengths()
	return dec.parseFrame(emit)
}

// initFrame sizes (or resizes) all working memory for the parsed dimensions.
func (dec *Decoder) initFrame() error {
	mbW := dec.mbW

	if cap(dec.topRow) >= mbW {
		dec.topRow = dec.topRow[:mbW]
		clear(dec.topRow)
	} else {
		dec.topRow = make([]topSamples, mbW)
	}
	if cap(dec.mbInfo) >= mbW {
		dec.mbInfo = dec.mbInfo[:mbW]
		clear(dec.mbInfo)
	} else {
		dec.mbInfo = make([]mbContext, mbW)
	}
	if cap(dec.fInfo) >= mbW {
		dec.fInfo = dec.fInfo[:mbW]
		clear(dec.fInfo)
	} else {
		dec.fInfo = make([]filterInfo, mbW)
	}
	if cap(dec.mbData) >= mbW {
		dec.mbData = dec.mbData[:mbW]
		clear(dec.mbData)
	} else {
		dec.mbData = make([]mbData, mbW)
	}

	dec.cacheYStride = 16 * mbW
	dec.cacheUVStride = 8 * mbW

	intraTSize := 4 * mbW
	cacheYSize := dec.mbH * 16 * dec.cacheYStride
	cacheUVSize := dec.mbH * 8 * dec.cacheUVStride

	if uint64(cacheYSize) > maxLumaBytes {
		return fmt.Errorf("%w: %dx%d frame cache", ErrOutOfMemory, dec.pic.Width, dec.pic.Height)
	}

	slabSize := intraTSize + yuvSize + cacheYSize + 2*cacheUVSize
	if cap(dec.slab) >= slabSize {
		dec.slab = dec.slab[:slabSize]
		clear(dec.slab)
	} else {
		dec.slab = make([]byte, slabSize)
	}

	off := 0
	dec.intraT = dec.slab[off : off+intraTSize]
	for i := range dec.intraT {
		dec.intraT[i] = BPredDC
	}
	off += intraTSize
	dec.scratch = dec.slab[off : off+yuvSize]
	off += yuvSize
	dec.cacheY = dec.slab[off : off+cacheYSize]
	off += cacheYSize
	dec.cacheU = dec.slab[off : off+cacheUVSize]
	off += cacheUVSize
	dec.cacheV = dec.slab[off : off+cacheUVSize]

	return nil
}

// initScanline resets the left-of-frame context at the start of a row.
func (dec *Decoder) initScanline() {
	dec.leftInfo = mbContext{}
	for i := range dec.intraL {
		dec.intraL[i] = BPredDC
	}
	dec.mbX = 0
}

// parseFrame is the main loop over macroblock rows. With the loop filter on,
// emission trails reconstruction by one row: row N's top-edge filter writes
// into the bottom pixels of row N-1, so a row is final only once its
// successor has been filtered.
func (dec *Decoder) parseFrame(emit EmitFunc) error {
	for dec.mbY = 0; dec.mbY < dec.mbH; dec.mbY++ {
		dec.initScanline()
		tokenBR := dec.parts[uint32(dec.mbY)&dec.numPartsMinusOne]

		if err := dec.parseIntraModeRow(); err != nil {
			return err
		}
		for dec.mbX = 0; dec.mbX < dec.mbW; dec.mbX++ {
			if err := dec.decodeMB(tokenBR); err != nil {
				return err
			}
		}

		dec.reconstructRow()

		if dec.filterType > 0 {
			dec.filterRow()
			if dec.mbY > 0 {
				if err := dec.emitRow(dec.mbY-1, emit); err != nil {
					return err
				}
			}
		} else {
			if err := dec.emitRow(dec.mbY, emit); err != nil {
				return err
			}
		}
	}
	if dec.filterType > 0 {
		return dec.emitRow(dec.mbH-1, emit)
	}
	return nil
}

// emitRow hands one finished macroblock row to the caller, cropped to the
// declared picture height.
func (dec *Decoder) emitRow(mbY int, emit EmitFunc) error {
	yStart := mbY * 16
	numRows := dec.pic.Height - yStart
	if numRows > 16 {
		numRows = 16
	}
	uvStart := mbY * 8
	uvRows := (dec.pic.Height+1)/2 - uvStart
	if uvRows > 8 {
		uvRows = 8
	}

	y := dec.cacheY[yStart*dec.cacheYStride : (yStart+numRows)*dec.cacheYStride]
	u := dec.cacheU[uvStart*dec.cacheUVStride : (uvStart+uvRows)*dec.cacheUVStride]
	v := dec.cacheV[uvStart*dec.cacheUVStride : (uvStart+uvRows)*dec.cacheUVStride]
	return emit(mbY, y, dec.cacheYStride, u, v, dec.cacheUVStride, numRows)
}
