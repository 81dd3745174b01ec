package bitio

// BoolWriter encodes boolean symbols, mirroring BoolReader. The decoder
// proper never encodes; the writer exists so tests can synthesize real VP8
// bitstreams header-bit by header-bit.
type BoolWriter struct {
	rng    int32 // interval size minus one, renormalized into [127, 254]
	value  int32
	run    int // pending 0xff bytes awaiting carry resolution
	nbBits int // pending bit count; a byte is emitted when it turns positive
	buf    []byte
}

// NewBoolWriter returns a writer with room for about expectedSize bytes.
func NewBoolWriter(expectedSize int) *BoolWriter {
	if expectedSize < 256 {
		expectedSize = 256
	}
	return &BoolWriter{
		rng:    255 - 1,
		nbBits: -8,
		buf:    make([]byte, 0, expectedSize),
	}
}

// PutBit encodes one boolean symbol with probability prob (0..255) and
// returns the bit unchanged.
func (w *BoolWriter) PutBit(bit int, prob uint8) int {
	split := (w.rng * int32(prob)) >> 8
	if bit != 0 {
		w.value += split + 1
		w.rng -= split + 1
	} else {
		w.rng = split
	}
	if w.rng < 127 {
		shift := kNorm[w.rng]
		w.rng = int32(kNewRange[w.rng])
		w.value <<= uint(shift)
		w.nbBits += int(shift)
		if w.nbBits > 0 {
			w.flush()
		}
	}
	return bit
}

// PutBitUniform encodes one boolean symbol at probability 128.
func (w *BoolWriter) PutBitUniform(bit int) int {
	split := w.rng >> 1
	if bit != 0 {
		w.value += split + 1
		w.rng -= split + 1
	} else {
		w.rng = split
	}
	if w.rng < 127 {
		w.rng = int32(kNewRange[w.rng])
		w.value <<= 1
		w.nbBits++
		if w.nbBits > 0 {
			w.flush()
		}
	}
	return bit
}

// PutBits encodes the low n bits of v, MSB first, at uniform probability.
func (w *BoolWriter) PutBits(v uint32, n int) {
	for mask := uint32(1) << uint(n-1); mask != 0; mask >>= 1 {
		bit := 0
		if v&mask != 0 {
			bit = 1
		}
		w.PutBitUniform(bit)
	}
}

// PutSignedBits encodes an optional signed literal: a presence flag, then
// n magnitude bits and a sign bit when v is non-zero. This is the encode
// counterpart of the optional signed deltas in the VP8 headers.
func (w *BoolWriter) PutSignedBits(v, n int) {
	if v == 0 {
		w.PutBitUniform(0)
		return
	}
	w.PutBitUniform(1)
	if v < 0 {
		w.PutBits(uint32(-v)<<1|1, n+1)
	} else {
		w.PutBits(uint32(v)<<1, n+1)
	}
}

// flush emits one byte from the value register, resolving any carry through
// the run of pending 0xff bytes.
func (w *BoolWriter) flush() {
	s := 8 + w.nbBits
	b := w.value >> uint(s)
	w.value -= b << uint(s)
	w.nbBits -= 8
	if b&0xff != 0xff {
		if b&0x100 != 0 && len(w.buf) > 0 {
			w.buf[len(w.buf)-1]++
		}
		if w.run > 0 {
			fill := byte(0xff)
			if b&0x100 != 0 {
				fill = 0x00
			}
			for ; w.run > 0; w.run-- {
				w.buf = append(w.buf, fill)
			}
		}
		w.buf = append(w.buf, byte(b&0xff))
	} else {
		w.run++
	}
}

// Finish flushes the remaining interval state and returns the encoded bytes.
// The writer must not be used afterwards.
func (w *BoolWriter) Finish() []byte {
	w.PutBits(0, 9-w.nbBits)
	w.nbBits = 0
	w.flush()
	return w.buf
}

// kNorm maps interval sizes [0..127] to the left-shift count that brings the
// size back above half scale.
var kNorm = [128]uint8{
	7, 6, 6, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0,
}

// kNewRange maps interval sizes [0..127] to their renormalized value:
// ((size + 1) << kNorm[size]) - 1.
var kNewRange = [128]uint8{
	127, 127, 191, 127, 159, 191, 223, 127, 143, 159, 175, 191, 207, 223, 239,
	127, 135, 143, 151, 159, 167, 175, 183, 191, 199, 207, 215, 223, 231, 239,
	247, 127, 131, 135, 139, 143, 147, 151, 155, 159, 163, 167, 171, 175, 179,
	183, 187, 191, 195, 199, 203, 207, 211, 215, 219, 223, 227, 231, 235, 239,
	243, 247, 251, 127, 129, 131, 133, 135, 137, 139, 141, 143, 145, 147, 149,
	151, 153, 155, 157, 159, 161, 163, 165, 167, 169, 171, 173, 175, 177, 179,
	181, 183, 185, 187, 189, 191, 193, 195, 197, 199, 201, 203, 205, 207, 209,
	211, 213, 215, 217, 219, 221, 223, 225, 227, 229, 231, 233, 235, 237, 239,
	241, 243, 245, 247, 249, 251, 253, 127,
}
