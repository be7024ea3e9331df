// Package video is the frame I/O collaborator for the stego codec: it
// demuxes a carrier into 3-channel pixel grids and muxes modified grids
// back into a video, preserving the audio track.
//
// All container work is delegated to external ffmpeg/ffprobe binaries over
// rawvideo pipes. Re-encoding the video stream losslessly (FFV1 in MKV) is
// mandatory: any lossy codec would destroy the embedded low bits.
package video

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsteg/frame"
)

// Channels is the pixel format the codec works in: packed 8-bit RGB.
const Channels = 3

const rawPixFmt = "rgb24"

var (
	// ErrNoVideoStream indicates a file without a decodable video stream.
	ErrNoVideoStream = errors.New("no video stream found")

	// ErrFrameRange indicates a requested frame index beyond the carrier.
	ErrFrameRange = errors.New("frame index out of range")

	// ErrDuplicateFrame indicates the same frame index requested twice.
	ErrDuplicateFrame = errors.New("duplicate frame index")
)

// Info is the carrier metadata extracted by Probe.
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
	Duration    float64 `json:"duration_seconds"`
	Codec       string  `json:"codec"`
}

// CheckFFmpeg verifies that the ffmpeg and ffprobe binaries are installed
// and runnable.
func CheckFFmpeg() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if err := exec.Command(bin, "-version").Run(); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

// Probe extracts video metadata via ffprobe.
func Probe(path string) (*Info, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-print_format", "json",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return parseProbeOutput(out)
}

type probeStream struct {
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

func parseProbeOutput(data []byte) (*Info, error) {
	var probed probeOutput
	if err := json.Unmarshal(data, &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probed.Streams) == 0 {
		return nil, ErrNoVideoStream
	}
	s := probed.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: stream has no dimensions", ErrNoVideoStream)
	}

	info := &Info{
		Width:  s.Width,
		Height: s.Height,
		Codec:  s.CodecName,
		FPS:    parseRate(s.RFrameRate),
	}
	if info.FPS == 0 {
		info.FPS = parseRate(s.AvgFrameRate)
	}
	info.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)

	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		info.TotalFrames = n
	} else if info.Duration > 0 && info.FPS > 0 {
		// Containers like MKV omit nb_frames; estimate from duration.
		info.TotalFrames = int(info.Duration * info.FPS)
	}
	return info, nil
}

// parseRate parses an ffprobe rational like "30000/1001".
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		v, _ := strconv.ParseFloat(r, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// ReadFrames decodes the listed frames of the carrier and returns grids in
// the order the indices were requested (which is the embedding order, not
// necessarily numeric order). Indices must be unique.
func ReadFrames(path string, indices []int) ([]*frame.Grid, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateFrame, idx)
		}
		seen[idx] = struct{}{}
	}
	info, err := Probe(path)
	if err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if idx < 0 || (info.TotalFrames > 0 && idx >= info.TotalFrames) {
			return nil, fmt.Errorf("%w: %d of %d", ErrFrameRange, idx, info.TotalFrames)
		}
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"frames": len(indices),
	}).Debug("decoding carrier frames")

	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", path,
		"-vf", selectFilter(sorted),
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", rawPixFmt,
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	frameBytes := info.Width * info.Height * Channels
	bySorted := make(map[int]*frame.Grid, len(sorted))
	reader := bufio.NewReaderSize(stdout, frameBytes)
	for _, idx := range sorted {
		pix := make([]uint8, frameBytes)
		if _, err := io.ReadFull(reader, pix); err != nil {
			cmd.Wait()
			return nil, fmt.Errorf("reading frame %d: %w", idx, err)
		}
		g, err := frame.FromPix(info.Height, info.Width, Channels, pix)
		if err != nil {
			cmd.Wait()
			return nil, err
		}
		bySorted[idx] = g
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	return reorderToRequested(bySorted, indices), nil
}

// selectFilter builds the ffmpeg select expression picking exactly the
// given frame numbers. Commas are escaped for the filter-graph parser.
func selectFilter(indices []int) string {
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = fmt.Sprintf("eq(n\\,%d)", idx)
	}
	return "select=" + strings.Join(terms, "+")
}

// reorderToRequested maps frames decoded in numeric order back to the
// caller's requested order.
func reorderToRequested(bySorted map[int]*frame.Grid, requested []int) []*frame.Grid {
	out := make([]*frame.Grid, len(requested))
	for i, idx := range requested {
		out[i] = bySorted[idx]
	}
	return out
}

// WriteVideo re-encodes the carrier with the given frames substituted,
// copying the audio track unchanged. The output is lossless FFV1, so the
// container must support it (MKV is the safe choice).
func WriteVideo(srcPath, outPath string, modified map[int]*frame.Grid) error {
	info, err := Probe(srcPath)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"src":      srcPath,
		"out":      outPath,
		"modified": len(modified),
	}).Info("re-encoding carrier")

	decode := exec.Command("ffmpeg",
		"-v", "error",
		"-i", srcPath,
		"-f", "rawvideo",
		"-pix_fmt", rawPixFmt,
		"pipe:1",
	)
	decodeOut, err := decode.StdoutPipe()
	if err != nil {
		return err
	}

	encode := exec.Command("ffmpeg",
		"-v", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", rawPixFmt,
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-r", fmt.Sprintf("%f", info.FPS),
		"-i", "pipe:0",
		"-i", srcPath,
		"-map", "0:v",
		"-map", "1:a?",
		"-c:v", "ffv1",
		"-c:a", "copy",
		outPath,
	)
	encodeIn, err := encode.StdinPipe()
	if err != nil {
		return err
	}

	if err := decode.Start(); err != nil {
		return fmt.Errorf("failed to start decoder: %w", err)
	}
	if err := encode.Start(); err != nil {
		decode.Process.Kill()
		return fmt.Errorf("failed to start encoder: %w", err)
	}

	frameBytes := info.Width * info.Height * Channels
	reader := bufio.NewReaderSize(decodeOut, frameBytes)
	writer := bufio.NewWriterSize(encodeIn, frameBytes)

	streamErr := func() error {
		defer encodeIn.Close()
		buf := make([]uint8, frameBytes)
		for n := 0; ; n++ {
			if _, err := io.ReadFull(reader, buf); err != nil {
				if err == io.EOF {
					return writer.Flush()
				}
				return fmt.Errorf("reading frame %d: %w", n, err)
			}
			out := buf
			if g, ok := modified[n]; ok {
				if len(g.Pix) != frameBytes {
					return fmt.Errorf("%w: replacement frame %d has %d samples, want %d",
						frame.ErrGridShape, n, len(g.Pix), frameBytes)
				}
				out = g.Pix
			}
			if _, err := writer.Write(out); err != nil {
				return fmt.Errorf("writing frame %d: %w", n, err)
			}
		}
	}()

	decodeErr := decode.Wait()
	encodeErr := encode.Wait()
	if streamErr != nil {
		return streamErr
	}
	if decodeErr != nil {
		return fmt.Errorf("ffmpeg decode failed: %w", decodeErr)
	}
	if encodeErr != nil {
		return fmt.Errorf("ffmpeg encode failed: %w", encodeErr)
	}
	return nil
}
