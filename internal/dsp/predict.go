package dsp

// Intra predictors of RFC 6386 sections 12.2 and 12.3. Each predictor fills
// its block in the reconstruction scratch from the border samples around
// buf[off]: top row at off-BPS, left column at off-1, corner at off-BPS-1.

// Prediction mode indices shared with the frame parser. The three NoTop /
// NoLeft / NoTopLeft variants replace DC at picture edges.
const (
	PredDC = iota
	PredTM
	PredVE
	PredHE
	PredDCNoTop
	PredDCNoLeft
	PredDCNoTopLeft
)

// 4x4 luma (BPRED) mode indices, in bitstream tree order.
const (
	BPredDC = iota
	BPredTM
	BPredVE
	BPredHE
	BPredRD
	BPredVR
	BPredLD
	BPredVL
	BPredHD
	BPredHU
	NumBPredModes
)

func avg2(a, b uint8) uint8 {
	return uint8((int(a) + int(b) + 1) >> 1)
}

func avg3(a, b, c uint8) uint8 {
	return uint8((int(a) + 2*int(b) + int(c) + 2) >> 2)
}

// fill writes v into an n x n block at buf[off].
func fill(buf []byte, off, n int, v uint8) {
	for j := 0; j < n; j++ {
		row := off + j*BPS
		for i := 0; i < n; i++ {
			buf[row+i] = v
		}
	}
}

// dcBlock computes the DC predictor for an n x n block. useTop/useLeft
// select which borders participate; with neither, the predictor is 128.
func dcBlock(buf []byte, off, n int, useTop, useLeft bool) {
	if !useTop && !useLeft {
		fill(buf, off, n, 128)
		return
	}
	dc, count := 0, 0
	if useTop {
		for i := 0; i < n; i++ {
			dc += int(buf[off+i-BPS])
		}
		count += n
	}
	if useLeft {
		for j := 0; j < n; j++ {
			dc += int(buf[off-1+j*BPS])
		}
		count += n
	}
	shift := 0
	for 1<<uint(shift) < count {
		shift++
	}
	fill(buf, off, n, uint8((dc+count/2)>>uint(shift)))
}

func tmBlock(buf []byte, off, n int) {
	tl := int(buf[off-1-BPS])
	for j := 0; j < n; j++ {
		base := int(buf[off-1+j*BPS]) - tl
		row := off + j*BPS
		for i := 0; i < n; i++ {
			buf[row+i] = Clip8b(base + int(buf[off+i-BPS]))
		}
	}
}

func veBlock(buf []byte, off, n int) {
	for j := 0; j < n; j++ {
		copy(buf[off+j*BPS:off+j*BPS+n], buf[off-BPS:off-BPS+n])
	}
}

func heBlock(buf []byte, off, n int) {
	for j := 0; j < n; j++ {
		row := off + j*BPS
		v := buf[row-1]
		for i := 0; i < n; i++ {
			buf[row+i] = v
		}
	}
}

// PredLuma16 runs the 16x16 luma predictor for the given mode.
func PredLuma16(mode int, buf []byte, off int) {
	predSquare(mode, buf, off, 16)
}

// PredChroma8 runs the 8x8 chroma predictor for the given mode.
func PredChroma8(mode int, buf []byte, off int) {
	predSquare(mode, buf, off, 8)
}

func predSquare(mode int, buf []byte, off, n int) {
	switch mode {
	case PredDC:
		dcBlock(buf, off, n, true, true)
	case PredTM:
		tmBlock(buf, off, n)
	case PredVE:
		veBlock(buf, off, n)
	case PredHE:
		heBlock(buf, off, n)
	case PredDCNoTop:
		dcBlock(buf, off, n, false, true)
	case PredDCNoLeft:
		dcBlock(buf, off, n, true, false)
	case PredDCNoTopLeft:
		dcBlock(buf, off, n, false, false)
	}
}

// PredLuma4 runs the 4x4 luma (BPRED) predictor for the given mode.
func PredLuma4(mode int, buf []byte, off int) {
	switch mode {
	case BPredDC:
		dc4(buf, off)
	case BPredTM:
		tmBlock(buf, off, 4)
	case BPredVE:
		ve4(buf, off)
	case BPredHE:
		he4(buf, off)
	case BPredRD:
		rd4(buf, off)
	case BPredVR:
		vr4(buf, off)
	case BPredLD:
		ld4(buf, off)
	case BPredVL:
		vl4(buf, off)
	case BPredHD:
		hd4(buf, off)
	case BPredHU:
		hu4(buf, off)
	}
}

// dc4 always averages both borders: the BPRED DC mode has no edge variants.
func dc4(buf []byte, off int) {
	dc := 4
	for i := 0; i < 4; i++ {
		dc += int(buf[off+i-BPS]) + int(buf[off-1+i*BPS])
	}
	fill(buf, off, 4, uint8(dc>>3))
}

// ve4 smooths the top row with a 1-2-1 tap, unlike the copying VE of the
// 16x16 predictor.
func ve4(buf []byte, off int) {
	topM1 := buf[off-1-BPS]
	top0 := buf[off+0-BPS]
	top1 := buf[off+1-BPS]
	top2 := buf[off+2-BPS]
	top3 := buf[off+3-BPS]
	top4 := buf[off+4-BPS]
	vals := [4]uint8{
		avg3(topM1, top0, top1),
		avg3(top0, top1, top2),
		avg3(top1, top2, top3),
		avg3(top2, top3, top4),
	}
	for j := 0; j < 4; j++ {
		copy(buf[off+j*BPS:off+j*BPS+4], vals[:])
	}
}

func he4(buf []byte, off int) {
	tl := buf[off-1-BPS]
	l0 := buf[off-1+0*BPS]
	l1 := buf[off-1+1*BPS]
	l2 := buf[off-1+2*BPS]
	l3 := buf[off-1+3*BPS]
	vals := [4]uint8{
		avg3(tl, l0, l1),
		avg3(l0, l1, l2),
		avg3(l1, l2, l3),
		avg3(l2, l3, l3),
	}
	for j := 0; j < 4; j++ {
		v := vals[j]
		row := off + j*BPS
		buf[row+0] = v
		buf[row+1] = v
		buf[row+2] = v
		buf[row+3] = v
	}
}

func rd4(buf []byte, off int) {
	tl := buf[off-1-BPS]
	t0 := buf[off+0-BPS]
	t1 := buf[off+1-BPS]
	t2 := buf[off+2-BPS]
	t3 := buf[off+3-BPS]
	l0 := buf[off-1+0*BPS]
	l1 := buf[off-1+1*BPS]
	l2 := buf[off-1+2*BPS]
	l3 := buf[off-1+3*BPS]

	buf[off+0+3*BPS] = avg3(l3, l2, l1)
	buf[off+0+2*BPS] = avg3(l2, l1, l0)
	buf[off+1+3*BPS] = buf[off+0+2*BPS]
	v := avg3(l1, l0, tl)
	buf[off+0+1*BPS] = v
	buf[off+1+2*BPS] = v
	buf[off+2+3*BPS] = v
	v = avg3(l0, tl, t0)
	buf[off+0+0*BPS] = v
	buf[off+1+1*BPS] = v
	buf[off+2+2*BPS] = v
	buf[off+3+3*BPS] = v
	v = avg3(tl, t0, t1)
	buf[off+1+0*BPS] = v
	buf[off+2+1*BPS] = v
	buf[off+3+2*BPS] = v
	v = avg3(t0, t1, t2)
	buf[off+2+0*BPS] = v
	buf[off+3+1*BPS] = v
	buf[off+3+0*BPS] = avg3(t1, t2, t3)
}

func vr4(buf []byte, off int) {
	tl := buf[off-1-BPS]
	t0 := buf[off+0-BPS]
	t1 := buf[off+1-BPS]
	t2 := buf[off+2-BPS]
	t3 := buf[off+3-BPS]
	l0 := buf[off-1+0*BPS]
	l1 := buf[off-1+1*BPS]
	l2 := buf[off-1+2*BPS]

	buf[off+0+0*BPS] = avg2(tl, t0)
	buf[off+1+0*BPS] = avg2(t0, t1)
	buf[off+2+0*BPS] = avg2(t1, t2)
	buf[off+3+0*BPS] = avg2(t2, t3)

	buf[off+0+1*BPS] = avg3(l0, tl, t0)
	buf[off+1+1*BPS] = avg3(tl, t0, t1)
	buf[off+2+1*BPS] = avg3(t0, t1, t2)
	buf[off+3+1*BPS] = avg3(t1, t2, t3)

	buf[off+0+2*BPS] = avg3(l1, l0, tl)
	buf[off+1+2*BPS] = buf[off+0+0*BPS]
	buf[off+2+2*BPS] = buf[off+1+0*BPS]
	buf[off+3+2*BPS] = buf[off+2+0*BPS]

	buf[off+0+3*BPS] = avg3(l2, l1, l0)
	buf[off+1+3*BPS] = buf[off+0+1*BPS]
	buf[off+2+3*BPS] = buf[off+1+1*BPS]
	buf[off+3+3*BPS] = buf[off+2+1*BPS]
}

// ld4 predicts along the down-left diagonal from eight top samples.
func ld4(buf []byte, off int) {
	a := buf[off+0-BPS]
	b := buf[off+1-BPS]
	c := buf[off+2-BPS]
	d := buf[off+3-BPS]
	e := buf[off+4-BPS]
	f := buf[off+5-BPS]
	g := buf[off+6-BPS]
	h := buf[off+7-BPS]

	buf[off+0+0*BPS] = avg3(a, b, c)
	v := avg3(b, c, d)
	buf[off+1+0*BPS] = v
	buf[off+0+1*BPS] = v
	v = avg3(c, d, e)
	buf[off+2+0*BPS] = v
	buf[off+1+1*BPS] = v
	buf[off+0+2*BPS] = v
	v = avg3(d, e, f)
	buf[off+3+0*BPS] = v
	buf[off+2+1*BPS] = v
	buf[off+1+2*BPS] = v
	buf[off+0+3*BPS] = v
	v = avg3(e, f, g)
	buf[off+3+1*BPS] = v
	buf[off+2+2*BPS] = v
	buf[off+1+3*BPS] = v
	v = avg3(f, g, h)
	buf[off+3+2*BPS] = v
	buf[off+2+3*BPS] = v
	buf[off+3+3*BPS] = avg3(g, h, h)
}

func vl4(buf []byte, off int) {
	a := buf[off+0-BPS]
	b := buf[off+1-BPS]
	c := buf[off+2-BPS]
	d := buf[off+3-BPS]
	e := buf[off+4-BPS]
	f := buf[off+5-BPS]
	g := buf[off+6-BPS]
	h := buf[off+7-BPS]

	buf[off+0+0*BPS] = avg2(a, b)
	v := avg2(b, c)
	buf[off+1+0*BPS] = v
	buf[off+0+2*BPS] = v
	v = avg2(c, d)
	buf[off+2+0*BPS] = v
	buf[off+1+2*BPS] = v
	v = avg2(d, e)
	buf[off+3+0*BPS] = v
	buf[off+2+2*BPS] = v

	buf[off+0+1*BPS] = avg3(a, b, c)
	v = avg3(b, c, d)
	buf[off+1+1*BPS] = v
	buf[off+0+3*BPS] = v
	v = avg3(c, d, e)
	buf[off+2+1*BPS] = v
	buf[off+1+3*BPS] = v
	v = avg3(d, e, f)
	buf[off+3+1*BPS] = v
	buf[off+2+3*BPS] = v
	buf[off+3+2*BPS] = avg3(e, f, g)
	buf[off+3+3*BPS] = avg3(f, g, h)
}

func hd4(buf []byte, off int) {
	tl := buf[off-1-BPS]
	t0 := buf[off+0-BPS]
	t1 := buf[off+1-BPS]
	t2 := buf[off+2-BPS]
	l0 := buf[off-1+0*BPS]
	l1 := buf[off-1+1*BPS]
	l2 := buf[off-1+2*BPS]
	l3 := buf[off-1+3*BPS]

	buf[off+0+0*BPS] = avg2(tl, l0)
	buf[off+1+0*BPS] = avg3(l0, tl, t0)
	buf[off+2+0*BPS] = avg3(tl, t0, t1)
	buf[off+3+0*BPS] = avg3(t0, t1, t2)

	buf[off+0+1*BPS] = avg2(l0, l1)
	buf[off+1+1*BPS] = avg3(tl, l0, l1)
	buf[off+2+1*BPS] = buf[off+0+0*BPS]
	buf[off+3+1*BPS] = buf[off+1+0*BPS]

	buf[off+0+2*BPS] = avg2(l1, l2)
	buf[off+1+2*BPS] = avg3(l0, l1, l2)
	buf[off+2+2*BPS] = buf[off+0+1*BPS]
	buf[off+3+2*BPS] = buf[off+1+1*BPS]

	buf[off+0+3*BPS] = avg2(l2, l3)
	buf[off+1+3*BPS] = avg3(l1, l2, l3)
	buf[off+2+3*BPS] = buf[off+0+2*BPS]
	buf[off+3+3*BPS] = buf[off+1+2*BPS]
}

func hu4(buf []byte, off int) {
	l0 := buf[off-1+0*BPS]
	l1 := buf[off-1+1*BPS]
	l2 := buf[off-1+2*BPS]
	l3 := buf[off-1+3*BPS]

	buf[off+0+0*BPS] = avg2(l0, l1)
	buf[off+1+0*BPS] = avg3(l0, l1, l2)
	buf[off+2+0*BPS] = avg2(l1, l2)
	buf[off+3+0*BPS] = avg3(l1, l2, l3)

	buf[off+0+1*BPS] = buf[off+2+0*BPS]
	buf[off+1+1*BPS] = buf[off+3+0*BPS]
	buf[off+2+1*BPS] = avg2(l2, l3)
	buf[off+3+1*BPS] = avg3(l2, l3, l3)

	buf[off+0+2*BPS] = buf[off+2+1*BPS]
	buf[off+1+2*BPS] = buf[off+3+1*BPS]
	buf[off+2+2*BPS] = l3
	buf[off+3+2*BPS] = l3

	buf[off+0+3*BPS] = l3
	buf[off+1+3*BPS] = l3
	buf[off+2+3*BPS] = l3
	buf[off+3+3*BPS] = l3
}
