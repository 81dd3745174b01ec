package frame

import (
	"github.com/hrsh/vp8/internal/bitio"
	"github.com/hrsh/vp8/internal/dsp"
)

// cat3456 groups the extra-bit runs for coefficient values of 11 and above.
var cat3456 = [4][]uint8{kCat3[:], kCat4[:], kCat5[:], kCat6[:]}

// getLargeValue decodes a coefficient magnitude >= 2 (RFC 6386 13.2).
func getLargeValue(br *bitio.BoolReader, p []uint8) int {
	var v int
	if br.GetBit(p[3]) == 0 {
		if br.GetBit(p[4]) == 0 {
			v = 2
		} else {
			v = 3 + br.GetBit(p[5])
		}
	} else {
		if br.GetBit(p[6]) == 0 {
			if br.GetBit(p[7]) == 0 {
				v = 5 + br.GetBit(159)
			} else {
				v = 7 + 2*br.GetBit(165)
				v += br.GetBit(145)
			}
		} else {
			bit1 := br.GetBit(p[8])
			bit0 := br.GetBit(p[9+bit1])
			cat := 2*bit1 + bit0
			v = 0
			for _, prob := range cat3456[cat] {
				if prob == 0 {
					break
				}
				v = v + v + br.GetBit(prob)
			}
			v += 3 + (8 << uint(cat))
		}
	}
	return v
}

// getCoeffs decodes one sub-block's coefficient run starting at position
// first. dst is the sub-block's scoped 16-coefficient slice; values land
// dequantized in natural order via the zigzag map. The return value is one
// past the last non-zero position.
func getCoeffs(br *bitio.BoolReader, bands *[16 + 1]*bandProbas, ctx int, dq [2]int, first int, dst []int16) int {
	n := first
	p := bands[n].Probas[ctx][:]
	for ; n < 16; n++ {
		if br.GetBit(p[0]) == 0 {
			return n // end of block
		}
		for br.GetBit(p[1]) == 0 { // zero run
			n++
			if n == 16 {
				return 16
			}
			p = bands[n].Probas[0][:]
		}
		next := &bands[n+1].Probas
		var v int
		if br.GetBit(p[2]) == 0 {
			v = 1
			p = next[1][:]
		} else {
			v = getLargeValue(br, p)
			p = next[2][:]
		}
		dqIdx := 0
		if n > 0 {
			dqIdx = 1
		}
		dst[kZigzag[n]] = int16(br.GetSigned(v) * dq[dqIdx])
	}
	return 16
}

// nzCodeBits shifts a 2-bit nonzero code into nzCoeffs: 3 when a coefficient
// lies at scan position 3 or later, 2 when the last one is at position 1 or
// 2, else the DC bit.
func nzCodeBits(nzCoeffs uint32, nz, dcNz int) uint32 {
	nzCoeffs <<= 2
	switch {
	case nz > 3:
		nzCoeffs |= 3
	case nz > 1:
		nzCoeffs |= 2
	default:
		nzCoeffs |= uint32(dcNz)
	}
	return nzCoeffs
}

// decodeMB decodes one macroblock's residuals from its token partition and
// persists the filter info for the row's filtering pass.
func (dec *Decoder) decodeMB(tokenBR *bitio.BoolReader) error {
	left := &dec.leftInfo
	mb := &dec.mbInfo[dec.mbX]
	block := &dec.mbData[dec.mbX]

	skip := dec.useSkipProba && block.skip

	if !skip {
		if err := dec.parseResiduals(mb, left, block, tokenBR); err != nil {
			return err
		}
	} else {
		left.nz = 0
		mb.nz = 0
		if !block.isI4x4 {
			left.nzDC = 0
			mb.nzDC = 0
		}
		block.nzY = 0
		block.nzUV = 0
		block.dither = 0
	}

	if dec.filterType > 0 {
		info := &dec.fInfo[dec.mbX]
		*info = dec.fstrengths[block.segment][b2i(block.isI4x4)]
		info.inner = info.inner || !skip
	}

	if tokenBR.Exhausted() {
		return ErrTruncatedBitstream
	}
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseResiduals decodes the 24 (+1 secondary) coefficient blocks of one
// macroblock, updating the top and left nonzero contexts as it goes.
func (dec *Decoder) parseResiduals(mb, left *mbContext, block *mbData, tokenBR *bitio.BoolReader) error {
	bands := &dec.probs.bandsPtr
	q := &dec.dqm[block.segment]
	coeffs := block.coeffs[:]
	clear(coeffs)

	var first int
	var acProba *[16 + 1]*bandProbas

	if !block.isI4x4 {
		// Secondary DC block (plane type 1).
		var dc [16]int16
		ctx := int(mb.nzDC) + int(left.nzDC)
		nz := getCoeffs(tokenBR, &bands[1], ctx, q.y2, 0, dc[:])
		if nz > 16 {
			return errInvariant
		}
		if nz > 0 {
			mb.nzDC = 1
			left.nzDC = 1
		} else {
			mb.nzDC = 0
			left.nzDC = 0
		}
		if nz > 1 {
			dsp.TransformWHT(dc[:], coeffs)
		} else {
			// Only the DC was coded: broadcast its rounded value.
			dc0 := int16((int(dc[0]) + 3) >> 3)
			for i := 0; i < 16*16; i += 16 {
				coeffs[i] = dc0
			}
		}
		first = 1
		acProba = &bands[0] // luma-after-WHT (plane type 0)
	} else {
		first = 0
		acProba = &bands[3] // standalone luma (plane type 3)
	}

	var nonZeroY, nonZeroUV uint32

	// Sixteen luma sub-blocks in raster order.
	tnz := mb.nz & 0x0f
	lnz := left.nz & 0x0f
	for y := 0; y < 4; y++ {
		l := lnz & 1
		var nzCoeffs uint32
		for x := 0; x < 4; x++ {
			n := 4*y + x
			dst := coeffs[16*n : 16*n+16]
			ctx := int(l) + int(tnz&1)
			nz := getCoeffs(tokenBR, acProba, ctx, q.y1, first, dst)
			if nz > first {
				l = 1
			} else {
				l = 0
			}
			tnz = (tnz >> 1) | (l << 7)
			dcNz := 0
			if dst[0] != 0 {
				dcNz = 1
			}
			nzCoeffs = nzCodeBits(nzCoeffs, nz, dcNz)
		}
		tnz >>= 4
		lnz = (lnz >> 1) | (l << 7)
		nonZeroY = (nonZeroY << 8) | nzCoeffs
	}
	outTNz := tnz
	outLNz := lnz >> 4

	// Eight chroma sub-blocks: U then V, 2x2 each (plane type 2).
	for ch := 0; ch < 4; ch += 2 {
		var nzCoeffs uint32
		tnz = mb.nz >> (4 + uint(ch))
		lnz = left.nz >> (4 + uint(ch))
		for y := 0; y < 2; y++ {
			l := lnz & 1
			for x := 0; x < 2; x++ {
				n := 16 + 2*ch + 2*y + x
				dst := coeffs[16*n : 16*n+16]
				ctx := int(l) + int(tnz&1)
				nz := getCoeffs(tokenBR, &bands[2], ctx, q.uv, 0, dst)
				if nz > 0 {
					l = 1
				} else {
					l = 0
				}
				tnz = (tnz >> 1) | (l << 3)
				dcNz := 0
				if dst[0] != 0 {
					dcNz = 1
				}
				nzCoeffs = nzCodeBits(nzCoeffs, nz, dcNz)
			}
			tnz >>= 2
			lnz = (lnz >> 1) | (l << 5)
		}
		nonZeroUV |= nzCoeffs << uint(4*ch)
		outTNz |= (tnz << 4) << uint(ch)
		outLNz |= (lnz & 0xf0) << uint(ch)
	}

	mb.nz = outTNz
	left.nz = outLNz
	block.nzY = nonZeroY
	block.nzUV = nonZeroUV
	block.dither = 0
	if nonZeroUV&0xaaaa == 0 {
		block.dither = uint8(q.dither)
	}
	return nil
}
