package frame

import "github.com/hrsh/vp8/internal/bitio"

// quantMatrix holds one segment's dequantization factors as [DC, AC] pairs.
type quantMatrix struct {
	y1     [2]int // luma
	y2     [2]int // secondary luma DC (WHT domain)
	uv     [2]int // chroma
	uvQ    int    // chroma quantizer index, pre-clip
	dither int    // dithering amplitude, 0 = off
}

// clip bounds v to [0, max].
func clip(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// parseQuant reads the quantizer indices (RFC 6386 section 9.6) and fills
// the per-segment dequantization matrices. Without segmentation, segment 0's
// matrices are copied to all indices so lookups never need a fallback
// branch.
func parseQuant(br *bitio.BoolReader, segHdr *segmentHeader, dqm []quantMatrix) {
	baseQ := int(br.GetValue(7))
	dqY1DC := readOptionalSigned(br, 4)
	dqY2DC := readOptionalSigned(br, 4)
	dqY2AC := readOptionalSigned(br, 4)
	dqUVDC := readOptionalSigned(br, 4)
	dqUVAC := readOptionalSigned(br, 4)

	for i := 0; i < NumMBSegments; i++ {
		var q int
		if segHdr.useSegment {
			q = int(segHdr.quantizer[i])
			if !segHdr.absoluteDelta {
				q += baseQ
			}
		} else {
			if i > 0 {
				dqm[i] = dqm[0]
				continue
			}
			q = baseQ
		}

		m := &dqm[i]
		m.y1[0] = int(kDcTable[clip(q+dqY1DC, 127)])
		m.y1[1] = int(kAcTable[clip(q, 127)])

		m.y2[0] = int(kDcTable[clip(q+dqY2DC, 127)]) * 2
		// y2 AC scales by 155/100 ((x * 101581) >> 16) with a floor of 8.
		m.y2[1] = (int(kAcTable[clip(q+dqY2AC, 127)]) * 101581) >> 16
		if m.y2[1] < 8 {
			m.y2[1] = 8
		}

		m.uv[0] = int(kDcTable[clip(q+dqUVDC, 117)])
		m.uv[1] = int(kAcTable[clip(q+dqUVAC, 127)])

		m.uvQ = q + dqUVAC
	}
}

// readOptionalSigned reads a flag bit and, when set, an n-bit magnitude plus
// sign bit.
func readOptionalSigned(br *bitio.BoolReader, n int) int {
	if br.GetBit(0x80) != 0 {
		return int(br.GetSignedValue(n))
	}
	return 0
}
