package frame

import "github.com/hrsh/vp8/internal/dsp"

// precomputeFilterStrengths derives the per-segment, per-prediction-type
// filter parameters once per frame (RFC 6386 section 15.1).
func (dec *Decoder) precomputeFilterStrengths() {
	if dec.filterType <= 0 {
		return
	}
	hdr := &dec.filterHdr
	for s := 0; s < NumMBSegments; s++ {
		var baseLevel int
		if dec.segHdr.useSegment {
			baseLevel = int(dec.segHdr.filterStrength[s])
			if !dec.segHdr.absoluteDelta {
				baseLevel += hdr.level
			}
		} else {
			baseLevel = hdr.level
		}

		for i4x4 := 0; i4x4 <= 1; i4x4++ {
			info := &dec.fstrengths[s][i4x4]
			level := baseLevel
			if hdr.useLFDelta {
				// All macroblocks predict from the current frame.
				level += hdr.refLFDelta[0]
				if i4x4 != 0 {
					level += hdr.modeLFDelta[0]
				}
			}
			level = clip(level, 63)

			if level > 0 {
				ilevel := level
				if hdr.sharpness > 0 {
					if hdr.sharpness > 4 {
						ilevel >>= 2
					} else {
						ilevel >>= 1
					}
					if ilevel > 9-hdr.sharpness {
						ilevel = 9 - hdr.sharpness
					}
				}
				if ilevel < 1 {
					ilevel = 1
				}
				info.innerLevel = uint8(ilevel)
				info.limit = uint8(2*level + ilevel)
				switch {
				case level >= 40:
					info.hevThresh = 2
				case level >= 15:
					info.hevThresh = 1
				default:
					info.hevThresh = 0
				}
			} else {
				info.limit = 0
			}
			info.inner = i4x4 != 0
		}
	}
}

// filterRow runs the loop filter over every macroblock of the current row.
func (dec *Decoder) filterRow() {
	for mbX := 0; mbX < dec.mbW; mbX++ {
		dec.doFilter(mbX, dec.mbY)
	}
}

// doFilter filters one macroblock in the frame cache. Left and top edges
// touch previously reconstructed neighbors only, preserving row order.
func (dec *Decoder) doFilter(mbX, mbY int) {
	info := &dec.fInfo[mbX]
	limit := int(info.limit)
	if limit == 0 {
		return
	}
	ilevel := int(info.innerLevel)
	yStride := dec.cacheYStride
	yBase := mbY*16*yStride + mbX*16

	if dec.filterType == 1 {
		// Simple filter: luma macroblock edges plus interior edges.
		if mbX > 0 {
			dsp.SimpleHFilter16(dec.cacheY, yBase, yStride, limit+4)
		}
		if info.inner {
			dsp.SimpleHFilter16i(dec.cacheY, yBase, yStride, limit)
		}
		if mbY > 0 {
			dsp.SimpleVFilter16(dec.cacheY, yBase, yStride, limit+4)
		}
		if info.inner {
			dsp.SimpleVFilter16i(dec.cacheY, yBase, yStride, limit)
		}
		return
	}

	// Normal filter: luma and chroma.
	uvStride := dec.cacheUVStride
	uvBase := mbY*8*uvStride + mbX*8
	hevT := int(info.hevThresh)

	if mbX > 0 {
		dsp.HFilter16(dec.cacheY, yBase, yStride, limit+4, ilevel, hevT)
		dsp.HFilter8(dec.cacheU, dec.cacheV, uvBase, uvStride, limit+4, ilevel, hevT)
	}
	if info.inner {
		dsp.HFilter16i(dec.cacheY, yBase, yStride, limit, ilevel, hevT)
		dsp.HFilter8i(dec.cacheU, dec.cacheV, uvBase, uvStride, limit, ilevel, hevT)
	}
	if mbY > 0 {
		dsp.VFilter16(dec.cacheY, yBase, yStride, limit+4, ilevel, hevT)
		dsp.VFilter8(dec.cacheU, dec.cacheV, uvBase, uvStride, limit+4, ilevel, hevT)
	}
	if info.inner {
		dsp.VFilter16i(dec.cacheY, yBase, yStride, limit, ilevel, hevT)
		dsp.VFilter8i(dec.cacheU, dec.cacheV, uvBase, uvStride, limit, ilevel, hevT)
	}
}
