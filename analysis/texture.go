// Package analysis scores carrier frames for embedding suitability and
// computes advisory statistical-anomaly measures over stego frames.
//
// High-texture frames mask least-significant-bit perturbation better than
// flat ones, so Score aggregates local Laplacian energy and block variance;
// SelectTop ranks frames by that metric. Suspicion and Detect estimate how
// statistically anomalous a frame's low-bit plane looks to a steganalysis
// attack. All results are advisory: nothing here ever gates embedding or
// extraction.
package analysis

import (
	"sort"

	"github.com/opd-ai/vidsteg/frame"
)

// blockSize is the analysis tile for local texture statistics.
const blockSize = 16

// Score returns a texture/edge-energy metric for a frame: higher means the
// frame better masks LSB perturbation. The metric is the mean over 16x16
// blocks of (0.5*variance + 0.5*mean) of the absolute 4-neighbour Laplacian.
func Score(g *frame.Grid) float64 {
	lap := laplacianAbs(g)
	h, w := g.Height, g.Width

	blocksY := h / blockSize
	blocksX := w / blockSize
	if blocksY == 0 || blocksX == 0 {
		// Frame smaller than one tile: treat it as a single block.
		m, v := meanVariance(lap)
		return 0.5*v + 0.5*m
	}

	total := 0.0
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			block := make([]float64, 0, blockSize*blockSize)
			for y := by * blockSize; y < (by+1)*blockSize; y++ {
				block = append(block, lap[y*w+bx*blockSize:y*w+(bx+1)*blockSize]...)
			}
			m, v := meanVariance(block)
			total += 0.5*v + 0.5*m
		}
	}
	return total / float64(blocksY*blocksX)
}

// SelectTop ranks frames by Score and returns the indices of the best n,
// descending by score with ties broken by ascending index. The result is
// deterministic for a given frame set.
func SelectTop(frames []*frame.Grid, n int) []int {
	type ranked struct {
		index int
		score float64
	}
	scores := make([]ranked, len(frames))
	for i, g := range frames {
		scores[i] = ranked{index: i, score: Score(g)}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return scores[a].index < scores[b].index
	})

	if n > len(scores) {
		n = len(scores)
	}
	top := make([]int, n)
	for i := 0; i < n; i++ {
		top[i] = scores[i].index
	}
	return top
}

// laplacianAbs converts the frame to luma and returns the absolute
// 4-neighbour Laplacian per pixel. Border pixels carry zero energy.
func laplacianAbs(g *frame.Grid) []float64 {
	h, w := g.Height, g.Width
	luma := make([]float64, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			luma[y*w+x] = lumaAt(g, y, x)
		}
	}

	lap := make([]float64, h*w)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 4*luma[y*w+x] - luma[(y-1)*w+x] - luma[(y+1)*w+x] -
				luma[y*w+x-1] - luma[y*w+x+1]
			if v < 0 {
				v = -v
			}
			lap[y*w+x] = v
		}
	}
	return lap
}

// lumaAt returns BT.601 luma for 3-channel pixels and the channel mean
// otherwise.
func lumaAt(g *frame.Grid, y, x int) float64 {
	if g.Channels == 3 {
		return 0.299*float64(g.At(y, x, 0)) +
			0.587*float64(g.At(y, x, 1)) +
			0.114*float64(g.At(y, x, 2))
	}
	sum := 0.0
	for c := 0; c < g.Channels; c++ {
		sum += float64(g.At(y, x, c))
	}
	return sum / float64(g.Channels)
}

func meanVariance(vals []float64) (mean, variance float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return mean, variance
}
