package frame

import (
	"bytes"
	"errors"
	"testing"
)

func decodeCollect(t *testing.T, b *frameBuilder) *collectRows {
	t.Helper()
	data, pic, hdr := b.build()
	c := newCollector(b.width, b.height)
	if err := Decode(data, pic, hdr, c.emit); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return c
}

func assertPlane(t *testing.T, name string, plane []byte, want byte) {
	t.Helper()
	for i, v := range plane {
		if v != want {
			t.Fatalf("%s[%d] = %d, want %d", name, i, v, want)
		}
	}
}

// A skipped all-DC macroblock with no context predicts the constant 128.
func TestDecodeSkippedDCFrame(t *testing.T) {
	b := newFrameBuilder(16, 16)
	b.useSkip = true
	b.mb(0, 0).skip = true
	c := decodeCollect(t, b)
	assertPlane(t, "Y", c.y, 128)
	assertPlane(t, "U", c.u, 128)
	assertPlane(t, "V", c.v, 128)
	if len(c.rows) != 1 || c.rows[0] != 0 {
		t.Fatalf("rows = %v, want [0]", c.rows)
	}
}

// TrueMotion over the frame border constants (top 127, left 129, corner 127)
// produces a uniform 129.
func TestDecodeTMFrame(t *testing.T) {
	b := newFrameBuilder(16, 16)
	b.useSkip = true
	mb := b.mb(0, 0)
	mb.skip = true
	mb.mode = TMPred
	mb.uvMode = TMPred
	c := decodeCollect(t, b)
	assertPlane(t, "Y", c.y, 129)
	assertPlane(t, "U", c.u, 129)
	assertPlane(t, "V", c.v, 129)
}

// Vertical prediction copies the 127 top border; horizontal copies the 129
// left border.
func TestDecodeVHFrames(t *testing.T) {
	for _, tc := range []struct {
		mode int
		want byte
	}{{VPred, 127}, {HPred, 129}} {
		b := newFrameBuilder(16, 16)
		b.useSkip = true
		mb := b.mb(0, 0)
		mb.skip = true
		mb.mode = tc.mode
		c := decodeCollect(t, b)
		assertPlane(t, "Y", c.y, tc.want)
	}
}

// A secondary-DC level of 4 at base quantizer 0 dequantizes to 32, inverse-
// WHT broadcasts 4 per sub-block, and the DC-only transform lifts every luma
// sample by 1.
func TestDecodeDCResidualBias(t *testing.T) {
	b := newFrameBuilder(16, 16)
	b.mb(0, 0).y2DC = 4
	c := decodeCollect(t, b)
	assertPlane(t, "Y", c.y, 129)
	assertPlane(t, "U", c.u, 128)
}

// Rows must draw their tokens from partition (row mod numParts): with two
// partitions, only the second carries coefficients, so only row 1 shifts.
func TestPartitionRotation(t *testing.T) {
	b := newFrameBuilder(32, 32)
	b.log2Parts = 1
	b.mb(0, 1).y2DC = 4
	b.mb(1, 1).y2DC = 4
	c := decodeCollect(t, b)

	if got := c.yAt(0, 0); got != 128 {
		t.Fatalf("row 0 sample = %d, want 128", got)
	}
	if got := c.yAt(0, 16); got != 129 {
		t.Fatalf("row 1 sample = %d, want 129 (tokens from partition 1)", got)
	}

	// Moving the tokens to the rows served by partition 0 moves the shift.
	b2 := newFrameBuilder(32, 32)
	b2.log2Parts = 1
	b2.mb(0, 0).y2DC = 4
	b2.mb(1, 0).y2DC = 4
	c2 := decodeCollect(t, b2)
	if got := c2.yAt(0, 0); got != 129 {
		t.Fatalf("swapped: row 0 sample = %d, want 129", got)
	}
}

// Two segments with quantizers 10 and 40 must reconstruct the same token
// stream at visibly different amplitudes, and the per-MB segment ids must
// follow the segment tree.
func TestSegmentQuantizers(t *testing.T) {
	b := newFrameBuilder(32, 16)
	b.useSegments = true
	b.updateMap = true
	b.segQuant = [NumMBSegments]int{10, 40, 0, 0}
	b.mb(0, 0).segment = 0
	b.mb(0, 0).y2DC = 4
	b.mb(1, 0).segment = 1
	b.mb(1, 0).y2DC = 4
	c := decodeCollect(t, b)

	// Segment 0 (q=10): y2 DC dequant 2*13, broadcast 13, bias +2.
	if got := c.yAt(0, 0); got != 130 {
		t.Fatalf("segment 0 sample = %d, want 130", got)
	}
	// Segment 1 (q=40): y2 DC dequant 2*37, broadcast 37, bias +5 on top of
	// the 130 left column its DC predictor averages.
	if got := c.yAt(16, 0); got != 135 {
		t.Fatalf("segment 1 sample = %d, want 135", got)
	}
}

// The simple loop filter must smooth the macroblock boundary and leave the
// interior untouched.
func TestLoopFilterBoundary(t *testing.T) {
	build := func(level int) *frameBuilder {
		b := newFrameBuilder(32, 16)
		b.baseQ = 20
		b.filterSimple = true
		b.filterLevel = level
		b.mb(0, 0).y2DC = 4       // DC block at 131
		b.mb(1, 0).mode = VPred   // copies the 127 top border
		return b
	}

	off := decodeCollect(t, build(0))
	on := decodeCollect(t, build(32))

	if got := off.yAt(15, 4); got != 131 {
		t.Fatalf("unfiltered p0 = %d, want 131", got)
	}
	if got := off.yAt(16, 4); got != 127 {
		t.Fatalf("unfiltered q0 = %d, want 127", got)
	}
	// Filtered: p0/q0 pulled toward each other across the edge.
	if got := on.yAt(15, 4); got != 130 {
		t.Fatalf("filtered p0 = %d, want 130", got)
	}
	if got := on.yAt(16, 4); got != 128 {
		t.Fatalf("filtered q0 = %d, want 128", got)
	}
	// Interior samples are identical with and without filtering.
	for _, x := range []int{4, 8, 24} {
		if off.yAt(x, 8) != on.yAt(x, 8) {
			t.Fatalf("interior x=%d changed: %d vs %d", x, off.yAt(x, 8), on.yAt(x, 8))
		}
	}
}

// Versions 2 and 3 must disable the loop filter regardless of the header.
func TestVersionDisablesFilter(t *testing.T) {
	build := func(version uint8) *frameBuilder {
		b := newFrameBuilder(32, 16)
		b.baseQ = 20
		b.filterSimple = true
		b.filterLevel = 32
		b.version = version
		b.mb(0, 0).y2DC = 4
		b.mb(1, 0).mode = VPred
		return b
	}
	filtered := decodeCollect(t, build(1))
	unfiltered := decodeCollect(t, build(3))
	if filtered.yAt(15, 4) == unfiltered.yAt(15, 4) {
		t.Fatal("version 3 output matches filtered output at the edge")
	}
	if got := unfiltered.yAt(15, 4); got != 131 {
		t.Fatalf("version 3 edge sample = %d, want unfiltered 131", got)
	}
}

// Truncating the tail must never panic; when the decode still succeeds the
// output must match the untruncated frame.
func TestTruncationTolerance(t *testing.T) {
	b := newFrameBuilder(32, 32)
	b.log2Parts = 1
	b.mb(0, 1).y2DC = 4
	data, pic, hdr := b.build()

	ref := newCollector(32, 32)
	if err := Decode(data, pic, hdr, ref.emit); err != nil {
		t.Fatalf("reference decode: %v", err)
	}

	for cut := 1; cut <= 64 && cut < len(data); cut++ {
		c := newCollector(32, 32)
		err := Decode(data[:len(data)-cut], pic, hdr, c.emit)
		if err != nil {
			if !errors.Is(err, ErrTruncatedBitstream) && !errors.Is(err, ErrInvalidHeader) {
				t.Fatalf("cut %d: unexpected error %v", cut, err)
			}
			continue
		}
		if !bytes.Equal(c.y, ref.y) {
			t.Fatalf("cut %d: luma differs from reference", cut)
		}
	}
}

// Decoding the same bytes twice through the pool must be bit-identical, also
// across intervening decodes of other dimensions.
func TestIdempotentReset(t *testing.T) {
	big := newFrameBuilder(48, 48)
	big.mb(1, 1).y2DC = 2
	bigData, bigPic, bigHdr := big.build()

	small := newFrameBuilder(16, 16)
	small.mb(0, 0).y2DC = 4
	smallData, smallPic, smallHdr := small.build()

	first := newCollector(48, 48)
	if err := Decode(bigData, bigPic, bigHdr, first.emit); err != nil {
		t.Fatalf("first decode: %v", err)
	}
	mid := newCollector(16, 16)
	if err := Decode(smallData, smallPic, smallHdr, mid.emit); err != nil {
		t.Fatalf("middle decode: %v", err)
	}
	second := newCollector(48, 48)
	if err := Decode(bigData, bigPic, bigHdr, second.emit); err != nil {
		t.Fatalf("second decode: %v", err)
	}

	if !bytes.Equal(first.y, second.y) || !bytes.Equal(first.u, second.u) || !bytes.Equal(first.v, second.v) {
		t.Fatal("repeated decode differs")
	}
}

// The final row must be cropped to the declared height.
func TestCroppedEmission(t *testing.T) {
	b := newFrameBuilder(48, 28)
	var rows []int
	var lastNumRows, lastULen int
	data, pic, hdr := b.build()
	err := Decode(data, pic, hdr, func(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
		rows = append(rows, mbY)
		lastNumRows = numRows
		lastULen = len(u)
		if len(y) != numRows*yStride {
			t.Fatalf("row %d: len(y) = %d, want %d", mbY, len(y), numRows*yStride)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want two rows", rows)
	}
	if lastNumRows != 12 {
		t.Fatalf("last numRows = %d, want 12", lastNumRows)
	}
	// Chroma: ceil(28/2) = 14 rows total, 8 in row 0, 6 in row 1.
	if wantU := 6 * 8 * 3; lastULen != wantU {
		t.Fatalf("last len(u) = %d, want %d", lastULen, wantU)
	}
}

// A sink error must abort the decode and propagate unchanged.
func TestSinkErrorAborts(t *testing.T) {
	b := newFrameBuilder(32, 48)
	data, pic, hdr := b.build()
	sentinel := errors.New("stop here")
	calls := 0
	err := Decode(data, pic, hdr, func(mbY int, y []byte, yStride int, u, v []byte, uvStride int, numRows int) error {
		calls++
		if mbY >= 1 {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 2 {
		t.Fatalf("sink called %d times, want 2", calls)
	}
}
