package frame

import (
	"fmt"

	"github.com/hrsh/vp8/internal/bitio"
)

// segmentHeader describes segment-based quantizer and filter overrides
// (RFC 6386 section 9.3).
type segmentHeader struct {
	useSegment     bool
	updateMap      bool
	absoluteDelta  bool
	quantizer      [NumMBSegments]int8
	filterStrength [NumMBSegments]int8
}

// filterHeader describes the loop-filter parameters (section 9.4).
type filterHeader struct {
	simple      bool
	level       int // 0..63
	sharpness   int // 0..7
	useLFDelta  bool
	refLFDelta  [NumRefLFDeltas]int
	modeLFDelta [NumModeLFDeltas]int
}

// parseHeaders validates the container-supplied headers and reads the
// control partition: segment header, filter header, partition table,
// quantizers, probability updates and skip probability, in bitstream order.
func (dec *Decoder) parseHeaders(data []byte, pic Picture, hdr Header) error {
	if hdr.Version > 3 {
		return fmt.Errorf("%w: version %d", ErrUnsupportedProfile, hdr.Version)
	}
	if !hdr.KeyFrame {
		return fmt.Errorf("%w: not a keyframe", ErrInvalidHeader)
	}
	if !hdr.ShowFrame {
		return fmt.Errorf("%w: frame not displayable", ErrInvalidHeader)
	}
	if pic.Width <= 0 || pic.Height <= 0 || pic.Width >= 1<<14 || pic.Height >= 1<<14 {
		return fmt.Errorf("%w: bad dimensions %dx%d", ErrInvalidHeader, pic.Width, pic.Height)
	}

	dec.pic = pic
	dec.hdr = hdr
	dec.mbW = (pic.Width + 15) >> 4
	dec.mbH = (pic.Height + 15) >> 4

	resetProba(&dec.probs)
	dec.segHdr = segmentHeader{absoluteDelta: true}

	// The control partition must be fully present; residual partitions may
	// be short (clamped below).
	partLen := int(hdr.PartitionLength)
	if partLen > len(data) {
		return fmt.Errorf("%w: control partition %d > frame %d", ErrInvalidHeader, partLen, len(data))
	}
	dec.br = bitio.NewBoolReader(data[:partLen])
	residualBlob := data[partLen:]

	// Keyframe-only picture bits.
	colorSpace := dec.br.GetBit(0x80)
	clampType := dec.br.GetBit(0x80)
	_ = clampType
	if colorSpace != 0 {
		return fmt.Errorf("%w: reserved color space", ErrInvalidHeader)
	}

	if err := dec.parseSegmentHeader(); err != nil {
		return err
	}
	dec.parseFilterHeader()
	if err := dec.parsePartitions(residualBlob); err != nil {
		return err
	}
	parseQuant(dec.br, &dec.segHdr, dec.dqm[:])

	// update_proba: consumed and ignored, as keyframes cannot persist
	// probabilities anyway.
	dec.br.GetBit(0x80)

	dec.parseProba()

	if dec.br.Exhausted() {
		return fmt.Errorf("%w: control partition", ErrTruncatedBitstream)
	}
	return nil
}

// parseSegmentHeader reads the segmentation block of the control partition.
func (dec *Decoder) parseSegmentHeader() error {
	br := dec.br
	hdr := &dec.segHdr

	hdr.useSegment = br.GetBit(0x80) != 0
	if hdr.useSegment {
		hdr.updateMap = br.GetBit(0x80) != 0
		if br.GetBit(0x80) != 0 { // update data
			hdr.absoluteDelta = br.GetBit(0x80) != 0
			for s := 0; s < NumMBSegments; s++ {
				if br.GetBit(0x80) != 0 {
					hdr.quantizer[s] = int8(br.GetSignedValue(7))
				} else {
					hdr.quantizer[s] = 0
				}
			}
			for s := 0; s < NumMBSegments; s++ {
				if br.GetBit(0x80) != 0 {
					hdr.filterStrength[s] = int8(br.GetSignedValue(6))
				} else {
					hdr.filterStrength[s] = 0
				}
			}
		} else {
			// Keyframes have no prior segmentation to retain: stay neutral.
			for s := 0; s < NumMBSegments; s++ {
				hdr.quantizer[s] = 0
				hdr.filterStrength[s] = 0
			}
		}
		if hdr.updateMap {
			for s := 0; s < MBFeatureTreeProbs; s++ {
				if br.GetBit(0x80) != 0 {
					dec.probs.segments[s] = uint8(br.GetValue(8))
				} else {
					dec.probs.segments[s] = 255
				}
			}
		}
	} else {
		hdr.updateMap = false
	}

	if br.Exhausted() {
		return fmt.Errorf("%w: segment header", ErrTruncatedBitstream)
	}
	return nil
}

// parseFilterHeader reads the loop-filter block and derives the effective
// filter type, capped by the frame-tag version (1 forces simple, 2 and 3
// disable filtering).
func (dec *Decoder) parseFilterHeader() {
	br := dec.br
	hdr := &dec.filterHdr

	hdr.simple = br.GetBit(0x80) != 0
	hdr.level = int(br.GetValue(6))
	hdr.sharpness = int(br.GetValue(3))
	hdr.useLFDelta = br.GetBit(0x80) != 0
	if hdr.useLFDelta {
		if br.GetBit(0x80) != 0 { // update deltas
			for i := 0; i < NumRefLFDeltas; i++ {
				if br.GetBit(0x80) != 0 {
					hdr.refLFDelta[i] = int(br.GetSignedValue(6))
				}
			}
			for i := 0; i < NumModeLFDeltas; i++ {
				if br.GetBit(0x80) != 0 {
					hdr.modeLFDelta[i] = int(br.GetSignedValue(6))
				}
			}
		}
	}

	switch {
	case hdr.level == 0 || dec.hdr.Version >= 2:
		dec.filterType = 0
	case hdr.simple || dec.hdr.Version == 1:
		dec.filterType = 1
	default:
		dec.filterType = 2
	}
}

// parsePartitions splits the residual blob into token partitions. The last
// partition absorbs any remainder; a size prefix claiming more bytes than
// remain is clamped rather than rejected, so truncation surfaces later at
// macroblock granularity.
func (dec *Decoder) parsePartitions(blob []byte) error {
	dec.numPartsMinusOne = (1 << dec.br.GetValue(2)) - 1
	lastPart := int(dec.numPartsMinusOne)

	if len(blob) < 3*lastPart {
		return fmt.Errorf("%w: partition size table", ErrTruncatedBitstream)
	}

	sizes := blob
	partData := blob[3*lastPart:]
	for p := 0; p < lastPart; p++ {
		size := int(sizes[0]) | int(sizes[1])<<8 | int(sizes[2])<<16
		if size > len(partData) {
			size = len(partData)
		}
		dec.parts[p] = bitio.NewBoolReader(partData[:size])
		partData = partData[size:]
		sizes = sizes[3:]
	}
	// An empty final partition is legal here; a genuinely missing one is
	// caught during macroblock decoding.
	dec.parts[lastPart] = bitio.NewBoolReader(partData)
	return nil
}
