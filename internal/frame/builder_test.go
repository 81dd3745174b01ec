package frame

import (
	"github.com/hrsh/vp8/internal/bitio"
)

// Test-frame synthesis. The builder writes a real VP8 keyframe bitstream
// field by field, mirroring the parser's read order, so end-to-end tests can
// exercise the full pipeline without canned files.

type builderMB struct {
	segment int
	skip    bool
	mode    int // 16x16 luma mode
	uvMode  int
	y2DC    int // secondary DC coefficient level, |v| <= 4
}

type frameBuilder struct {
	width, height int
	version       uint8

	useSegments bool
	updateMap   bool
	segQuant    [NumMBSegments]int
	segFilter   [NumMBSegments]int

	filterSimple bool
	filterLevel  int
	sharpness    int

	log2Parts int
	baseQ     int

	useSkip  bool
	skipProb uint8

	mbs []builderMB // raster order, mbW*mbH entries
}

func newFrameBuilder(w, h int) *frameBuilder {
	b := &frameBuilder{width: w, height: h, skipProb: 128}
	b.mbs = make([]builderMB, b.mbW()*b.mbH())
	return b
}

func (b *frameBuilder) mbW() int { return (b.width + 15) >> 4 }
func (b *frameBuilder) mbH() int { return (b.height + 15) >> 4 }

func (b *frameBuilder) mb(x, y int) *builderMB { return &b.mbs[y*b.mbW()+x] }

// defaultBands returns the band indirection over the default coefficient
// probabilities, which is what the decoder reconstructs when the stream
// carries no updates.
func defaultBands() *proba {
	p := &proba{}
	for t := 0; t < NumTypes; t++ {
		for band := 0; band < NumBands; band++ {
			for c := 0; c < NumCtx; c++ {
				p.bands[t][band].Probas[c] = coeffsProba0[t][band][c]
			}
		}
		for n := 0; n < 16+1; n++ {
			p.bandsPtr[t][n] = &p.bands[t][kBands[n]]
		}
	}
	return p
}

// writeModeTree16 emits the fixed 16x16 luma mode tree of section 11.3.
func writeModeTree16(w *bitio.BoolWriter, mode int) {
	switch mode {
	case DCPred:
		w.PutBit(0, 156)
		w.PutBit(0, 163)
	case VPred:
		w.PutBit(0, 156)
		w.PutBit(1, 163)
	case HPred:
		w.PutBit(1, 156)
		w.PutBit(0, 128)
	case TMPred:
		w.PutBit(1, 156)
		w.PutBit(1, 128)
	}
}

func writeUVModeTree(w *bitio.BoolWriter, mode int) {
	switch mode {
	case DCPred:
		w.PutBit(0, 142)
	case VPred:
		w.PutBit(1, 142)
		w.PutBit(0, 114)
	case HPred:
		w.PutBit(1, 142)
		w.PutBit(1, 114)
		w.PutBit(0, 183)
	case TMPred:
		w.PutBit(1, 142)
		w.PutBit(1, 114)
		w.PutBit(1, 183)
	}
}

// encodeCoeffBlock is the encode mirror of getCoeffs: it writes the token
// stream that makes the decoder reproduce levels (scan order, |v| <= 4) and
// returns the same end position the decoder will.
func encodeCoeffBlock(w *bitio.BoolWriter, bands *[16 + 1]*bandProbas, ctx, first int, levels [16]int) int {
	last := -1
	for i, v := range levels {
		if v != 0 {
			last = i
		}
	}
	n := first
	p := bands[n].Probas[ctx][:]
	for ; n < 16; n++ {
		if last < n {
			w.PutBit(0, p[0])
			return n
		}
		w.PutBit(1, p[0])
		for levels[n] == 0 {
			w.PutBit(0, p[1])
			n++
			p = bands[n].Probas[0][:]
		}
		w.PutBit(1, p[1])
		v := levels[n]
		sign := 0
		if v < 0 {
			sign = 1
			v = -v
		}
		next := &bands[n+1].Probas
		if v == 1 {
			w.PutBit(0, p[2])
			p = next[1][:]
		} else {
			w.PutBit(1, p[2])
			w.PutBit(0, p[3])
			if v == 2 {
				w.PutBit(0, p[4])
			} else {
				w.PutBit(1, p[4])
				w.PutBit(v-3, p[5])
			}
			p = next[2][:]
		}
		w.PutBitUniform(sign)
	}
	return 16
}

// encodeMBResiduals writes one 16x16-mode macroblock's residual tokens
// (a secondary DC level plus all-zero AC), tracking the same nonzero
// contexts the decoder does.
func encodeMBResiduals(w *bitio.BoolWriter, bands *proba, mb, left *mbContext, y2DC int) {
	var y2 [16]int
	y2[0] = y2DC

	ctx := int(mb.nzDC) + int(left.nzDC)
	nz := encodeCoeffBlock(w, &bands.bandsPtr[1], ctx, 0, y2)
	if nz > 0 {
		mb.nzDC = 1
		left.nzDC = 1
	} else {
		mb.nzDC = 0
		left.nzDC = 0
	}

	var zero [16]int

	tnz := mb.nz & 0x0f
	lnz := left.nz & 0x0f
	for y := 0; y < 4; y++ {
		l := lnz & 1
		for x := 0; x < 4; x++ {
			ctx := int(l) + int(tnz&1)
			bnz := encodeCoeffBlock(w, &bands.bandsPtr[0], ctx, 1, zero)
			if bnz > 1 {
				l = 1
			} else {
				l = 0
			}
			tnz = (tnz >> 1) | (l << 7)
		}
		tnz >>= 4
		lnz = (lnz >> 1) | (l << 7)
	}
	outTNz := tnz
	outLNz := lnz >> 4

	for ch := 0; ch < 4; ch += 2 {
		tnz = mb.nz >> (4 + uint(ch))
		lnz = left.nz >> (4 + uint(ch))
		for y := 0; y < 2; y++ {
			l := lnz & 1
			for x := 0; x < 2; x++ {
				ctx := int(l) + int(tnz&1)
				bnz := encodeCoeffBlock(w, &bands.bandsPtr[2], ctx, 0, zero)
				if bnz > 0 {
					l = 1
				} else {
					l = 0
				}
				tnz = (tnz >> 1) | (l << 3)
			}
			tnz >>= 2
			lnz = (lnz >> 1) | (l << 5)
		}
		outTNz |= (tnz << 4) << uint(ch)
		outLNz |= (lnz & 0xf0) << uint(ch)
	}

	mb.nz = outTNz
	left.nz = outLNz
}

// build assembles the complete frame: control partition, partition size
// table, and residual partitions, each padded so bit-exhaustion checks stay
// quiet past the encoded content.
func (b *frameBuilder) build() (data []byte, pic Picture, hdr Header) {
	mbW, mbH := b.mbW(), b.mbH()
	w := bitio.NewBoolWriter(1024)

	// Picture bits: color space 0, clamp 0.
	w.PutBitUniform(0)
	w.PutBitUniform(0)

	// Segment header.
	if !b.useSegments {
		w.PutBitUniform(0)
	} else {
		w.PutBitUniform(1)
		w.PutBitUniform(b2i(b.updateMap))
		w.PutBitUniform(1) // update data
		w.PutBitUniform(1) // absolute deltas
		for s := 0; s < NumMBSegments; s++ {
			w.PutSignedBits(b.segQuant[s], 7)
		}
		for s := 0; s < NumMBSegments; s++ {
			w.PutSignedBits(b.segFilter[s], 6)
		}
		if b.updateMap {
			for s := 0; s < MBFeatureTreeProbs; s++ {
				w.PutBitUniform(0) // keep default 255
			}
		}
	}

	// Filter header.
	w.PutBitUniform(b2i(b.filterSimple))
	w.PutBits(uint32(b.filterLevel), 6)
	w.PutBits(uint32(b.sharpness), 3)
	w.PutBitUniform(0) // no lf deltas

	// Partition count.
	w.PutBits(uint32(b.log2Parts), 2)

	// Quantizers: base index, no deltas.
	w.PutBits(uint32(b.baseQ), 7)
	for i := 0; i < 5; i++ {
		w.PutBitUniform(0)
	}

	// update_proba, then no coefficient updates.
	w.PutBitUniform(0)
	for t := 0; t < NumTypes; t++ {
		for band := 0; band < NumBands; band++ {
			for c := 0; c < NumCtx; c++ {
				for n := 0; n < NumProbas; n++ {
					w.PutBit(0, coeffsUpdateProba[t][band][c][n])
				}
			}
		}
	}

	// Skip probability.
	w.PutBitUniform(b2i(b.useSkip))
	if b.useSkip {
		w.PutBits(uint32(b.skipProb), 8)
	}

	// Per-macroblock modes, raster order.
	for y := 0; y < mbH; y++ {
		for x := 0; x < mbW; x++ {
			mb := b.mb(x, y)
			if b.useSegments && b.updateMap {
				if mb.segment < 2 {
					w.PutBit(0, 255)
					w.PutBit(mb.segment, 255)
				} else {
					w.PutBit(1, 255)
					w.PutBit(mb.segment-2, 255)
				}
			}
			if b.useSkip {
				w.PutBit(b2i(mb.skip), b.skipProb)
			}
			w.PutBit(1, 145) // 16x16, not i4x4
			writeModeTree16(w, mb.mode)
			writeUVModeTree(w, mb.uvMode)
		}
	}

	control := append(w.Finish(), make([]byte, 32)...)

	// Residual partitions: row r belongs to partition r mod numParts.
	numParts := 1 << b.log2Parts
	writers := make([]*bitio.BoolWriter, numParts)
	for i := range writers {
		writers[i] = bitio.NewBoolWriter(512)
	}
	bands := defaultBands()
	topCtx := make([]mbContext, mbW)
	for y := 0; y < mbH; y++ {
		var left mbContext
		pw := writers[y%numParts]
		for x := 0; x < mbW; x++ {
			mb := b.mb(x, y)
			if b.useSkip && mb.skip {
				left = mbContext{}
				topCtx[x] = mbContext{}
				continue
			}
			encodeMBResiduals(pw, bands, &topCtx[x], &left, mb.y2DC)
		}
	}

	parts := make([][]byte, numParts)
	for i, pw := range writers {
		parts[i] = append(pw.Finish(), make([]byte, 32)...)
	}

	data = control
	for i := 0; i < numParts-1; i++ {
		n := len(parts[i])
		data = append(data, byte(n), byte(n>>8), byte(n>>16))
	}
	for _, p := range parts {
		data = append(data, p...)
	}

	pic = Picture{Width: b.width, Height: b.height}
	hdr = Header{
		KeyFrame:        true,
		ShowFrame:       true,
		Version:         b.version,
		PartitionLength: uint32(len(control)),
	}
	return data, pic, hdr
}

// collectRows is an EmitFunc that copies every delivered row into a full
// set of planes for later inspection.
type collectRows struct {
	width, height int
	y, u, v       []byte
	yStride       int
	uvStride      int
	rows          []int
}

func newCollector(w, h int) *collectRows {
	mbW := (w + 15) >> 4
	c := &collectRows{
		width:    w,
		height:   h,
		yStride:  16 * mbW,
		uvStride: 8 * mbW,
	}
	c.y = make([]byte, ((h+15)>>4)*16*c.yStride)
	c.u = make([]byte, ((h+15)>>4)*8*c.uvStride)
	c.v = make([]byte, ((h+15)>>4)*8*c.uvStride)
	return c
}

func (c *collectRows) emit(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
	copy(c.y[mbY*16*c.yStride:], y)
	copy(c.u[mbY*8*c.uvStride:], u)
	copy(c.v[mbY*8*c.uvStride:], v)
	c.rows = append(c.rows, mbY)
	return nil
}

// yAt returns the luma sample at pixel (x, y).
func (c *collectRows) yAt(x, y int) byte { return c.y[y*c.yStride+x] }

func (c *collectRows) uAt(x, y int) byte { return c.u[y*c.uvStride+x] }
func (c *collectRows) vAt(x, y int) byte { return c.v[y*c.uvStride+x] }
