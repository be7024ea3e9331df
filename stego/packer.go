package stego

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/vidsteg/frame"
)

var (
	// ErrCapacityExceeded indicates a framed payload larger than the listed
	// frames can hold at the configured bits-per-channel. Raised before any
	// frame is mutated.
	ErrCapacityExceeded = errors.New("payload exceeds carrier capacity")

	// ErrBitsPerChannel indicates a bits-per-channel value outside 1..4.
	ErrBitsPerChannel = errors.New("bits per channel must be between 1 and 4")
)

// Packer embeds and extracts a framed bitstream in the low bits of pixel
// samples. A Packer is stateless and safe for concurrent use on independent
// frame sets.
type Packer struct {
	bpc int
}

// NewPacker creates a packer writing bpc low bits per sample, bpc in 1..4.
func NewPacker(bpc int) (*Packer, error) {
	if bpc < 1 || bpc > 4 {
		return nil, fmt.Errorf("%w: %d", ErrBitsPerChannel, bpc)
	}
	return &Packer{bpc: bpc}, nil
}

// BitsPerChannel returns the configured low-bit count per sample.
func (p *Packer) BitsPerChannel() int {
	return p.bpc
}

// offsets computes the deterministic pre-pass: the payload bit offset at
// which each frame begins, plus the total capacity in bits. This fixes the
// per-frame bit ranges before any mutation, which both enables the
// all-or-nothing capacity check and makes per-frame embedding independent.
func (p *Packer) offsets(frames []*frame.Grid) (starts []int, total int) {
	starts = make([]int, len(frames))
	for i, g := range frames {
		starts[i] = total
		total += g.Samples() * p.bpc
	}
	return starts, total
}

// FramesNeeded returns how many of the listed frames an Embed of a payload
// of the given bit length would touch, without mutating anything. Returns
// ErrCapacityExceeded when the payload cannot fit.
func (p *Packer) FramesNeeded(frames []*frame.Grid, payloadBits int) (int, error) {
	starts, total := p.offsets(frames)
	if payloadBits > total {
		return 0, fmt.Errorf("%w: need %d bits, have %d", ErrCapacityExceeded, payloadBits, total)
	}
	used := 0
	for i := range frames {
		if starts[i] >= payloadBits {
			break
		}
		used++
	}
	return used, nil
}

// Embed writes the framed payload into the low bits of the frames, visiting
// frames in the given order, samples in row-major order, channels
// interleaved, payload bits MSB-first within each group. Frames past the end
// of the bitstream are left untouched, as are trailing samples of the last
// written frame. The capacity check happens before any mutation; on error
// no frame is modified. Returns the number of frames written.
func (p *Packer) Embed(frames []*frame.Grid, payload []byte) (int, error) {
	needBits := len(payload) * 8
	starts, total := p.offsets(frames)
	if needBits > total {
		return 0, fmt.Errorf("%w: need %d bits, have %d", ErrCapacityExceeded, needBits, total)
	}

	// Each frame owns a disjoint payload bit range, so frames embed in
	// parallel without coordination.
	var wg sync.WaitGroup
	used := 0
	for i, g := range frames {
		if starts[i] >= needBits {
			break
		}
		used++
		wg.Add(1)
		go func(g *frame.Grid, start int) {
			defer wg.Done()
			p.embedFrame(g, payload, start, needBits)
		}(g, starts[i])
	}
	wg.Wait()
	return used, nil
}

// embedFrame writes payload bits [start, limit) into g, starting at the
// frame's first sample. When the bitstream ends mid-group only the leading
// bits of that sample's group are replaced.
func (p *Packer) embedFrame(g *frame.Grid, payload []byte, start, limit int) {
	samples := g.Samples()
	for si := 0; si < samples; si++ {
		groupStart := start + si*p.bpc
		if groupStart >= limit {
			return
		}
		m := limit - groupStart
		if m > p.bpc {
			m = p.bpc
		}

		var v uint8
		for j := 0; j < m; j++ {
			v = v<<1 | payloadBit(payload, groupStart+j)
		}
		shift := uint(p.bpc - m)
		mask := uint8((1<<m)-1) << shift
		g.Pix[si] = g.Pix[si]&^mask | v<<shift
	}
}

// Extract reads the length header and exactly the declared number of coded
// payload bytes back out of the frames, using the identical traversal order.
// Bits in unused tail samples are never read.
func (p *Packer) Extract(frames []*frame.Grid) ([]byte, error) {
	return Unframe(newBitSource(frames, p.bpc))
}

func payloadBit(payload []byte, idx int) uint8 {
	return payload[idx/8] >> uint(7-idx%8) & 1
}

// bitSource streams low bits out of a frame sequence in embedding order.
type bitSource struct {
	frames []*frame.Grid
	bpc    int
	fi     int // current frame
	si     int // current sample within frame
	bi     int // current bit within the sample group, 0 = MSB
}

func newBitSource(frames []*frame.Grid, bpc int) *bitSource {
	return &bitSource{frames: frames, bpc: bpc}
}

func (s *bitSource) next() (uint8, error) {
	for s.fi < len(s.frames) {
		g := s.frames[s.fi]
		if s.si < g.Samples() {
			bit := g.Pix[s.si] >> uint(s.bpc-1-s.bi) & 1
			s.bi++
			if s.bi == s.bpc {
				s.bi = 0
				s.si++
			}
			return bit, nil
		}
		s.fi++
		s.si = 0
		s.bi = 0
	}
	return 0, ErrTruncatedStream
}

// remaining reports how many unread payload bits the source still holds.
func (s *bitSource) remaining() int {
	rem := 0
	for i := s.fi; i < len(s.frames); i++ {
		rem += s.frames[i].Samples() * s.bpc
	}
	if s.fi < len(s.frames) {
		rem -= s.si*s.bpc + s.bi
	}
	return rem
}

// readBytes checks the request against the remaining carrier bits before
// allocating, so a garbage length header cannot demand gigabytes.
func (s *bitSource) readBytes(n int) ([]byte, error) {
	if n < 0 || n*8 > s.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, %d bits left",
			ErrTruncatedStream, n, s.remaining())
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var b uint8
		for j := 0; j < 8; j++ {
			bit, err := s.next()
			if err != nil {
				return nil, err
			}
			b = b<<1 | bit
		}
		out[i] = b
	}
	return out, nil
}
