package analysis

import (
	"github.com/opd-ai/vidsteg/frame"
)

// Metric weights for the combined anomaly score.
const (
	chiSquareWeight   = 0.30
	samplePairsWeight = 0.25
	rsGroupsWeight    = 0.25
	histogramWeight   = 0.20
)

// Risk level thresholds on the combined 0-100 scale.
const (
	riskMediumThreshold = 20
	riskHighThreshold   = 50
	likelyStegoScore    = 40
)

// Report is the per-metric steganalysis breakdown for a single frame.
// Scores are on a 0-100 scale, higher meaning more statistically anomalous.
type Report struct {
	ChiSquare   float64 `json:"chi_square_score"`
	SamplePairs float64 `json:"spa_score"`
	RSGroups    float64 `json:"rs_score"`
	Histogram   float64 `json:"histogram_score"`
	Combined    float64 `json:"suspicion_score"`
	RiskLevel   string  `json:"risk_level"`
	LikelyStego bool    `json:"is_likely_stego"`
}

// Detect analyzes a frame for signs of LSB modification and returns the
// full per-metric breakdown.
func Detect(g *frame.Grid) Report {
	r := Report{
		ChiSquare:   chiSquareLSB(g.Pix),
		SamplePairs: samplePairs(g.Pix),
		RSGroups:    rsGroups(g.Pix),
		Histogram:   histogramAnomaly(g.Pix),
	}
	r.Combined = chiSquareWeight*r.ChiSquare +
		samplePairsWeight*r.SamplePairs +
		rsGroupsWeight*r.RSGroups +
		histogramWeight*r.Histogram

	switch {
	case r.Combined < riskMediumThreshold:
		r.RiskLevel = "low"
	case r.Combined < riskHighThreshold:
		r.RiskLevel = "medium"
	default:
		r.RiskLevel = "high"
	}
	r.LikelyStego = r.Combined > likelyStegoScore
	return r
}

// Suspicion measures how much embedding disturbed the low-bit statistics of
// a frame: the combined anomaly score of the modified frame relative to the
// original's own baseline, clamped to [0, 100]. Higher means more
// statistically anomalous. Purely informational; never blocks extraction.
func Suspicion(original, modified *frame.Grid) float64 {
	delta := Detect(modified).Combined - Detect(original).Combined
	return clamp(delta, 0, 100)
}

// chiSquareLSB runs the pair-of-values chi-square attack: samples are
// grouped into (2i, 2i+1) pairs whose counts converge under LSB embedding.
// A low chi-square statistic means a suspiciously uniform LSB plane.
func chiSquareLSB(pix []uint8) float64 {
	var counts [128][2]float64
	for _, v := range pix {
		counts[v>>1][v&1]++
	}

	chi := 0.0
	pairs := 0
	for _, c := range counts {
		total := c[0] + c[1]
		if total == 0 {
			continue
		}
		pairs++
		expected := total / 2
		chi += (c[0] - expected) * (c[0] - expected) / expected
		chi += (c[1] - expected) * (c[1] - expected) / expected
	}
	if pairs == 0 {
		return 0
	}
	return clamp(100-chi/float64(pairs)*10, 0, 100)
}

// samplePairs compares adjacent sample pairs; natural frames show larger
// differences than heavily embedded ones.
func samplePairs(pix []uint8) float64 {
	if len(pix) < 2 {
		return 0
	}
	diffSum := 0.0
	pairs := 0
	for i := 0; i+1 < len(pix); i += 2 {
		d := int(pix[i]) - int(pix[i+1])
		if d < 0 {
			d = -d
		}
		diffSum += float64(d)
		pairs++
	}
	avg := diffSum / float64(pairs)

	switch {
	case avg < 5:
		return 70
	case avg < 15:
		return 30
	default:
		return 10
	}
}

// rsGroups is a simplified regular/singular group analysis: for groups of
// four samples it compares local variance before and after flipping the LSB
// plane. Natural frames keep regular and singular counts roughly balanced.
func rsGroups(pix []uint8) float64 {
	regular, singular := 0, 0
	group := make([]float64, 4)
	flipped := make([]float64, 4)

	for i := 0; i+4 <= len(pix); i += 4 {
		for j := 0; j < 4; j++ {
			group[j] = float64(pix[i+j])
			flipped[j] = float64(pix[i+j] ^ 1)
		}
		_, v := meanVariance(group)
		_, fv := meanVariance(flipped)
		if fv > v {
			regular++
		} else {
			singular++
		}
	}

	total := regular + singular
	if total == 0 {
		return 50
	}
	ratio := float64(regular-singular) / float64(total)
	if ratio < 0 {
		ratio = -ratio
	}
	return clamp(ratio*200, 0, 100)
}

// histogramAnomaly flags adjacent histogram bins that are suspiciously
// close: LSB embedding equalizes the (2i, 2i+1) bin pairs.
func histogramAnomaly(pix []uint8) float64 {
	var hist [256]float64
	for _, v := range pix {
		hist[v]++
	}

	anomalies := 0
	for i := 0; i < 256; i += 2 {
		diff := hist[i] - hist[i+1]
		if diff < 0 {
			diff = -diff
		}
		expected := (hist[i] + hist[i+1]) * 0.1
		if diff < expected {
			anomalies++
		}
	}
	return clamp(float64(anomalies)/128*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
