// Package dsp holds the sample-level kernels of the VP8 decoder: inverse
// transforms, intra predictors, the loop-filter taps, and the clip tables
// they share.
//
// Kernels that operate on the reconstruction scratch take the full buffer
// plus an explicit base offset. Reference samples (top row, left column,
// top-left corner) live at offsets before the base, so what the bitstream
// format describes as negative indexing always resolves to a valid
// non-negative slice index.
package dsp

// BPS is the stride of the reconstruction scratch, wide enough for one
// macroblock plus its border samples.
const BPS = 32
