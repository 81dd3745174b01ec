package frame

// parseProba reads the coefficient probability updates and the skip
// probability from the control partition (RFC 6386 sections 13.4 and 9.11),
// then rebuilds the per-position band indirection.
func (dec *Decoder) parseProba() {
	br := dec.br
	p := &dec.probs

	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				for n := 0; n < NumProbas; n++ {
					if br.GetBit(coeffsUpdateProba[t][b][c][n]) != 0 {
						p.bands[t][b].Probas[c][n] = uint8(br.GetValue(8))
					} else {
						p.bands[t][b].Probas[c][n] = coeffsProba0[t][b][c][n]
					}
				}
			}
		}
		for n := 0; n < 16+1; n++ {
			p.bandsPtr[t][n] = &p.bands[t][kBands[n]]
		}
	}

	dec.useSkipProba = br.GetBit(0x80) != 0
	if dec.useSkipProba {
		dec.skipProba = uint8(br.GetValue(8))
	}
}

// parseIntraModeRow parses segment ids, skip flags and prediction modes for
// every macroblock of the current row from the control partition.
func (dec *Decoder) parseIntraModeRow() error {
	for mbX := 0; mbX < dec.mbW; mbX++ {
		dec.parseIntraMode(mbX)
	}
	if dec.br.Exhausted() {
		return ErrTruncatedBitstream
	}
	return nil
}

func (dec *Decoder) parseIntraMode(mbX int) {
	br := dec.br
	top := dec.intraT[4*mbX : 4*mbX+4]
	left := dec.intraL[:]
	block := &dec.mbData[mbX]

	if dec.segHdr.updateMap {
		if br.GetBit(dec.probs.segments[0]) == 0 {
			block.segment = uint8(br.GetBit(dec.probs.segments[1]))
		} else {
			block.segment = uint8(br.GetBit(dec.probs.segments[2])) + 2
		}
	} else {
		block.segment = 0
	}

	if dec.useSkipProba {
		block.skip = br.GetBit(dec.skipProba) != 0
	} else {
		block.skip = false
	}

	block.isI4x4 = br.GetBit(145) == 0
	if !block.isI4x4 {
		// 16x16 mode, fixed tree of section 11.3.
		var ymode uint8
		if br.GetBit(156) != 0 {
			if br.GetBit(128) != 0 {
				ymode = TMPred
			} else {
				ymode = HPred
			}
		} else {
			if br.GetBit(163) != 0 {
				ymode = VPred
			} else {
				ymode = DCPred
			}
		}
		block.modes[0] = ymode
		for i := 0; i < 4; i++ {
			top[i] = ymode
			left[i] = ymode
		}
	} else {
		// Sixteen 4x4 modes, each conditioned on the above and left
		// sub-block modes.
		modes := block.modes[:]
		for y := 0; y < 4; y++ {
			ymode := left[y]
			for x := 0; x < 4; x++ {
				prob := &kBModesProba[top[x]][ymode]
				i := int(kYModesIntra4[br.GetBit(prob[0])])
				for i > 0 {
					i = int(kYModesIntra4[2*i+br.GetBit(prob[i])])
				}
				ymode = uint8(-i)
				top[x] = ymode
				modes[4*y+x] = ymode
			}
			left[y] = ymode
		}
	}

	// Chroma mode, fixed tree of section 11.4.
	if br.GetBit(142) == 0 {
		block.uvMode = DCPred
	} else if br.GetBit(114) == 0 {
		block.uvMode = VPred
	} else if br.GetBit(183) != 0 {
		block.uvMode = TMPred
	} else {
		block.uvMode = HPred
	}
}
