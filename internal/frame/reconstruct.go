package frame

import "github.com/hrsh/vp8/internal/dsp"

// kScan maps luma sub-block indices to their byte offsets within the
// BPS-strided scratch.
var kScan = [16]int{
	0 + 0*bps, 4 + 0*bps, 8 + 0*bps, 12 + 0*bps,
	0 + 4*bps, 4 + 4*bps, 8 + 4*bps, 12 + 4*bps,
	0 + 8*bps, 4 + 8*bps, 8 + 8*bps, 12 + 8*bps,
	0 + 12*bps, 4 + 12*bps, 8 + 12*bps, 12 + 12*bps,
}

// checkMode swaps DC prediction for its edge variants on boundary
// macroblocks (16x16 luma and chroma only; BPRED DC has no variants).
func checkMode(mbX, mbY, mode int) int {
	if mode == DCPred {
		if mbX == 0 {
			if mbY == 0 {
				return dsp.PredDCNoTopLeft
			}
			return dsp.PredDCNoLeft
		}
		if mbY == 0 {
			return dsp.PredDCNoTop
		}
	}
	return mode
}

// doTransform adds one luma sub-block's residual according to its 2-bit
// nonzero code.
func doTransform(code uint32, src []int16, dst []byte) {
	switch code >> 30 {
	case 3:
		dsp.TransformOne(src, dst)
	case 2:
		dsp.TransformAC3(src, dst)
	case 1:
		dsp.TransformDC(src, dst)
	}
}

// doUVTransform adds one chroma plane's residuals (4 sub-blocks) from the
// low byte of code.
func doUVTransform(code uint32, src []int16, dst []byte) {
	if code&0xff == 0 {
		return
	}
	if code&0xaa != 0 {
		// At least one block has AC coefficients: run the full transform on
		// all four (an all-zero block is a no-op).
		dsp.TransformOne(src[0:], dst[0:])
		dsp.TransformOne(src[16:], dst[4:])
		dsp.TransformOne(src[32:], dst[4*bps:])
		dsp.TransformOne(src[48:], dst[4*bps+4:])
		return
	}
	if src[0] != 0 {
		dsp.TransformDC(src[0:], dst[0:])
	}
	if src[16] != 0 {
		dsp.TransformDC(src[16:], dst[4:])
	}
	if src[32] != 0 {
		dsp.TransformDC(src[32:], dst[4*bps:])
	}
	if src[48] != 0 {
		dsp.TransformDC(src[48:], dst[4*bps+4:])
	}
}

// initRowBorders seeds the left-column vector and scratch top row for a new
// macroblock row: left samples start at 129; the frame's first row predicts
// from a constant 127 top row; the corner is 127 on row 0 and 129 below.
func (dec *Decoder) initRowBorders() {
	for i := range dec.left.y {
		dec.left.y[i] = 129
	}
	for i := 0; i < 8; i++ {
		dec.left.u[i] = 129
		dec.left.v[i] = 129
	}
	corner := uint8(129)
	if dec.mbY == 0 {
		corner = 127
		fillBytes(dec.scratch[yOff-bps-1:], 127, 1+16+4+1)
		fillBytes(dec.scratch[uOff-bps-1:], 127, 1+8)
		fillBytes(dec.scratch[vOff-bps-1:], 127, 1+8)
	}
	dec.left.topLeftY = corner
	dec.left.topLeftU = corner
	dec.left.topLeftV = corner
}

// reconstructRow predicts, inverse-transforms and stores every macroblock of
// the current row, then transfers the finished samples into the frame cache.
func (dec *Decoder) reconstructRow() {
	mbY := dec.mbY
	buf := dec.scratch

	dec.initRowBorders()

	for mbX := 0; mbX < dec.mbW; mbX++ {
		block := &dec.mbData[mbX]
		top := &dec.topRow[mbX]

		// Import the left column and corner saved from the previous
		// macroblock (or the row-start constants).
		buf[yOff-bps-1] = dec.left.topLeftY
		buf[uOff-bps-1] = dec.left.topLeftU
		buf[vOff-bps-1] = dec.left.topLeftV
		for j := 0; j < 16; j++ {
			buf[yOff-1+j*bps] = dec.left.y[j]
		}
		for j := 0; j < 8; j++ {
			buf[uOff-1+j*bps] = dec.left.u[j]
			buf[vOff-1+j*bps] = dec.left.v[j]
		}

		// Import the top row from the persistent store.
		if mbY > 0 {
			copy(buf[yOff-bps:yOff-bps+16], top.y[:])
			copy(buf[uOff-bps:uOff-bps+8], top.u[:])
			copy(buf[vOff-bps:vOff-bps+8], top.v[:])
		}

		coeffs := block.coeffs[:]
		if block.isI4x4 {
			topRight := buf[yOff-bps+16:]
			if mbY > 0 {
				if mbX >= dec.mbW-1 {
					// Right frame edge: replicate the last top sample.
					fillBytes(topRight, top.y[15], 4)
				} else {
					copy(topRight[:4], dec.topRow[mbX+1].y[:4])
				}
			}
			// Replicate the top-right run above each lower sub-block row,
			// where the rightmost predictors expect it.
			for r := 1; r <= 3; r++ {
				copy(topRight[r*4*bps:r*4*bps+4], topRight[:4])
			}

			nzY := block.nzY
			for n := 0; n < 16; n++ {
				off := yOff + kScan[n]
				dsp.PredLuma4(int(block.modes[n]), buf, off)
				doTransform(nzY, coeffs[16*n:16*n+16], buf[off:])
				nzY <<= 2
			}
		} else {
			mode := checkMode(mbX, mbY, int(block.modes[0]))
			dsp.PredLuma16(mode, buf, yOff)
			if nzY := block.nzY; nzY != 0 {
				for n := 0; n < 16; n++ {
					doTransform(nzY, coeffs[16*n:16*n+16], buf[yOff+kScan[n]:])
					nzY <<= 2
				}
			}
		}

		uvMode := checkMode(mbX, mbY, int(block.uvMode))
		dsp.PredChroma8(uvMode, buf, uOff)
		dsp.PredChroma8(uvMode, buf, vOff)
		doUVTransform(block.nzUV>>0, coeffs[16*16:], buf[uOff:])
		doUVTransform(block.nzUV>>8, coeffs[20*16:], buf[vOff:])

		// The next macroblock's corner is the row-above sample that this
		// store slot still holds; grab it before the stash replaces it.
		if mbY > 0 {
			dec.left.topLeftY = top.y[15]
			dec.left.topLeftU = top.u[7]
			dec.left.topLeftV = top.v[7]
		}

		// Stash the bottom edge for the next row's prediction.
		if mbY < dec.mbH-1 {
			copy(top.y[:], buf[yOff+15*bps:yOff+15*bps+16])
			copy(top.u[:], buf[uOff+7*bps:uOff+7*bps+8])
			copy(top.v[:], buf[vOff+7*bps:vOff+7*bps+8])
		}

		// Export the right edge as the next macroblock's left column.
		for j := 0; j < 16; j++ {
			dec.left.y[j] = buf[yOff+15+j*bps]
		}
		for j := 0; j < 8; j++ {
			dec.left.u[j] = buf[uOff+7+j*bps]
			dec.left.v[j] = buf[vOff+7+j*bps]
		}

		// Transfer the finished macroblock into the frame cache.
		yOut := dec.cacheY[mbY*16*dec.cacheYStride+mbX*16:]
		uOut := dec.cacheU[mbY*8*dec.cacheUVStride+mbX*8:]
		vOut := dec.cacheV[mbY*8*dec.cacheUVStride+mbX*8:]
		for j := 0; j < 16; j++ {
			copy(yOut[j*dec.cacheYStride:j*dec.cacheYStride+16], buf[yOff+j*bps:yOff+j*bps+16])
		}
		for j := 0; j < 8; j++ {
			copy(uOut[j*dec.cacheUVStride:j*dec.cacheUVStride+8], buf[uOff+j*bps:uOff+j*bps+8])
			copy(vOut[j*dec.cacheUVStride:j*dec.cacheUVStride+8], buf[vOff+j*bps:vOff+j*bps+8])
		}
	}
}

// fillBytes fills n bytes at dst with v.
func fillBytes(dst []byte, v byte, n int) {
	for i := 0; i < n; i++ {
		dst[i] = v
	}
}
