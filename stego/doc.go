// Package stego implements the bit-level embedding engine: mapping a framed
// payload bitstream onto the least-significant bits of pixel samples across
// an ordered sequence of frames, and the exact inverse.
//
// The traversal order is fully determined and bit-for-bit reproducible:
// frames in caller order, samples in row-major order, channels interleaved,
// payload bits MSB-first within each bits-per-channel group. There is no
// end-of-data marker in the pixel stream; a marker would itself be
// detectable by statistical analysis and would not survive trailing-frame
// re-encoding. The extractor instead reads the exact byte count declared by
// the 32-bit length header and never touches tail samples.
package stego
