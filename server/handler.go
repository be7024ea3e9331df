// Package server exposes the stego codec over HTTP. Carriers and payloads
// travel as multipart uploads; stego output streams back as an attachment
// with the extraction sidecar carried in a response header, never inside
// the video itself.
package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsteg"
	"github.com/opd-ai/vidsteg/analysis"
	"github.com/opd-ai/vidsteg/ecc"
	"github.com/opd-ai/vidsteg/frame"
	"github.com/opd-ai/vidsteg/stego"
	"github.com/opd-ai/vidsteg/video"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const (
	maxUploadBytes = 256 << 20

	// maxScanFrames bounds how many frames the automatic frame selector
	// decodes when the client does not pin frame indices.
	maxScanFrames = 120
)

// SidecarHeader carries the hex-encoded extraction sidecar on insert
// responses.
const SidecarHeader = "X-Stego-Sidecar"

// FrameIO abstracts the ffmpeg collaborator so handlers can be exercised
// without external binaries.
type FrameIO interface {
	Probe(path string) (*video.Info, error)
	ReadFrames(path string, indices []int) ([]*frame.Grid, error)
	WriteVideo(srcPath, outPath string, modified map[int]*frame.Grid) error
}

type ffmpegIO struct{}

func (ffmpegIO) Probe(path string) (*video.Info, error) { return video.Probe(path) }

func (ffmpegIO) ReadFrames(path string, indices []int) ([]*frame.Grid, error) {
	return video.ReadFrames(path, indices)
}

func (ffmpegIO) WriteVideo(srcPath, outPath string, modified map[int]*frame.Grid) error {
	return video.WriteVideo(srcPath, outPath, modified)
}

// StegoHandler serves the stego API. Uploads are staged under workDir with
// ksuid names and removed when the request finishes.
type StegoHandler struct {
	io      FrameIO
	workDir string
}

// NewStegoHandler returns a handler backed by the external ffmpeg binaries.
func NewStegoHandler(workDir string) *StegoHandler {
	return &StegoHandler{io: ffmpegIO{}, workDir: workDir}
}

// NewStegoHandlerWithIO returns a handler with a custom frame I/O backend.
func NewStegoHandlerWithIO(io FrameIO, workDir string) *StegoHandler {
	return &StegoHandler{io: io, workDir: workDir}
}

func (h *StegoHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
		FFmpeg:  video.CheckFFmpeg() == nil,
	})
}

// InsertMessage embeds an uploaded payload into an uploaded carrier and
// streams the stego video back. The sidecar needed for extraction is
// returned hex-encoded in the X-Stego-Sidecar header.
func (h *StegoHandler) InsertMessage(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(c, http.StatusBadRequest, "failed to parse form: %v", err)
		return
	}

	cfg, err := configFromForm(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	password := c.PostForm("password")
	if password == "" {
		fail(c, http.StatusBadRequest, "password is required")
		return
	}

	videoPath, cleanup, err := h.saveUpload(c, "video_file")
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	defer cleanup()

	payload, err := readUpload(c, "payload_file")
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}

	frames, indices, err := h.selectFrames(videoPath, cfg, len(payload))
	if err != nil {
		fail(c, statusFor(err), "frame selection failed: %v", err)
		return
	}
	cfg.FrameIndices = indices

	result, err := vidsteg.Embed(frames, payload, []byte(password), cfg)
	if err != nil {
		fail(c, statusFor(err), "embedding failed: %v", err)
		return
	}

	modified := make(map[int]*frame.Grid, result.FramesUsed)
	for i := 0; i < result.FramesUsed; i++ {
		modified[indices[i]] = frames[i]
	}

	outPath := filepath.Join(h.workDir, ksuid.New().String()+".mkv")
	defer os.Remove(outPath)
	if err := h.io.WriteVideo(videoPath, outPath, modified); err != nil {
		fail(c, http.StatusInternalServerError, "re-encoding failed: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"frames_used": result.FramesUsed,
		"coded_bytes": result.CodedBytes,
	}).Info("payload embedded")

	c.Header(SidecarHeader, hex.EncodeToString(result.Sidecar.Marshal()))
	c.Header("X-Stego-Frames", joinIndices(indices[:result.FramesUsed]))
	c.Header("X-Stego-Coded-Bytes", strconv.Itoa(result.CodedBytes))
	c.Header("X-Stego-Max-Suspicion", fmt.Sprintf("%.2f", maxSuspicion(result.Scores)))
	c.FileAttachment(outPath, "stego.mkv")
}

// ExtractMessage recovers a payload from an uploaded stego video. The
// client must supply the sidecar (hex form field) and the frame indices
// used at insert time.
func (h *StegoHandler) ExtractMessage(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(c, http.StatusBadRequest, "failed to parse form: %v", err)
		return
	}

	cfg, err := configFromForm(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	if len(cfg.FrameIndices) == 0 {
		fail(c, http.StatusBadRequest, "frame_indices is required for extraction")
		return
	}
	password := c.PostForm("password")
	if password == "" {
		fail(c, http.StatusBadRequest, "password is required")
		return
	}
	sidecarHex := c.PostForm("sidecar")
	if sidecarHex == "" {
		fail(c, http.StatusBadRequest, "sidecar is required")
		return
	}
	sidecarBytes, err := hex.DecodeString(sidecarHex)
	if err != nil {
		fail(c, http.StatusBadRequest, "sidecar is not valid hex: %v", err)
		return
	}
	sidecar, err := vidsteg.ParseSidecar(sidecarBytes, cfg.Mode)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}

	videoPath, cleanup, err := h.saveUpload(c, "video_file")
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	defer cleanup()

	frames, err := h.io.ReadFrames(videoPath, cfg.FrameIndices)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to decode carrier: %v", err)
		return
	}

	payload, err := vidsteg.Extract(frames, sidecar, []byte(password), cfg)
	if err != nil {
		fail(c, statusFor(err), "extraction failed: %v", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename=payload.bin`)
	c.Data(http.StatusOK, "application/octet-stream", payload)
}

// Analyze runs steganalysis over a sample of the carrier's frames.
func (h *StegoHandler) Analyze(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(c, http.StatusBadRequest, "failed to parse form: %v", err)
		return
	}

	videoPath, cleanup, err := h.saveUpload(c, "video_file")
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	defer cleanup()

	info, err := h.io.Probe(videoPath)
	if err != nil {
		fail(c, http.StatusInternalServerError, "probe failed: %v", err)
		return
	}

	count := info.TotalFrames
	if count > maxScanFrames {
		count = maxScanFrames
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = i
	}
	frames, err := h.io.ReadFrames(videoPath, indices)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to decode carrier: %v", err)
		return
	}

	resp := AnalyzeResponse{Success: true, FramesAnalyzed: len(frames)}
	for i, g := range frames {
		resp.Frames = append(resp.Frames, FrameAnalysis{
			FrameIndex: indices[i],
			Texture:    analysis.Score(g),
			Report:     analysis.Detect(g),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Capacity probes the carrier and reports the payload budget without
// decoding any frames.
func (h *StegoHandler) Capacity(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(c, http.StatusBadRequest, "failed to parse form: %v", err)
		return
	}

	bpc, err := formInt(c, "lsb_bits", 1)
	if err != nil || bpc < 1 || bpc > 4 {
		fail(c, http.StatusBadRequest, "lsb_bits must be between 1 and 4")
		return
	}

	videoPath, cleanup, err := h.saveUpload(c, "video_file")
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	defer cleanup()

	info, err := h.io.Probe(videoPath)
	if err != nil {
		fail(c, http.StatusInternalServerError, "probe failed: %v", err)
		return
	}

	dims := make([]stego.Dims, info.TotalFrames)
	for i := range dims {
		dims[i] = stego.Dims{Height: info.Height, Width: info.Width, Channels: video.Channels}
	}
	bits := stego.CapacityBits(dims, bpc)

	c.JSON(http.StatusOK, CapacityResponse{
		Success: true,
		Video:   *info,
		Capacity: vidsteg.Capacity{
			Bits:               bits,
			UsablePayloadBytes: stego.UsablePayloadBytes(bits),
		},
	})
}

// selectFrames resolves which carrier frames carry the payload. Pinned
// indices are decoded as-is; otherwise the most textured frames among the
// first maxScanFrames are chosen automatically.
func (h *StegoHandler) selectFrames(videoPath string, cfg vidsteg.Config, payloadLen int) ([]*frame.Grid, []int, error) {
	if len(cfg.FrameIndices) > 0 {
		frames, err := h.io.ReadFrames(videoPath, cfg.FrameIndices)
		return frames, cfg.FrameIndices, err
	}

	info, err := h.io.Probe(videoPath)
	if err != nil {
		return nil, nil, err
	}
	scan := info.TotalFrames
	if scan > maxScanFrames {
		scan = maxScanFrames
	}
	if scan == 0 {
		return nil, nil, video.ErrNoVideoStream
	}

	needed := framesNeededEstimate(info, cfg.BitsPerChannel, payloadLen)
	if needed > scan {
		return nil, nil, fmt.Errorf("%w: payload needs %d frames, carrier offers %d",
			vidsteg.ErrCapacityExceeded, needed, scan)
	}

	indices := make([]int, scan)
	for i := range indices {
		indices[i] = i
	}
	scanned, err := h.io.ReadFrames(videoPath, indices)
	if err != nil {
		return nil, nil, err
	}

	chosen := analysis.SelectTop(scanned, needed)
	frames := make([]*frame.Grid, len(chosen))
	for i, idx := range chosen {
		frames[i] = scanned[idx]
	}
	return frames, chosen, nil
}

// framesNeededEstimate is a conservative frame count: ciphertext length is
// over-estimated by one cipher block so CBC padding never pushes past it.
func framesNeededEstimate(info *video.Info, bpc, payloadLen int) int {
	coded := ecc.EncodedLen(payloadLen + 16)
	bits := stego.HeaderBits + coded*8
	perFrame := info.Width * info.Height * video.Channels * bpc
	if perFrame == 0 {
		return 1
	}
	return (bits + perFrame - 1) / perFrame
}

func (h *StegoHandler) saveUpload(c *gin.Context, field string) (string, func(), error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s is required", field)
	}
	path := filepath.Join(h.workDir, ksuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", nil, fmt.Errorf("failed to stage %s: %w", field, err)
	}
	return path, func() { os.Remove(path) }, nil
}

func readUpload(c *gin.Context, field string) ([]byte, error) {
	file, _, err := c.Request.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, nil
}

// configFromForm builds a codec configuration from form fields, applying
// the AES-256/GCM/1-bit defaults for anything omitted.
func configFromForm(c *gin.Context) (vidsteg.Config, error) {
	cfg := vidsteg.DefaultConfig()

	if mode := c.PostForm("mode"); mode != "" {
		m, err := vidsteg.ParseMode(mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = m
	}
	keySize, err := formInt(c, "key_size", cfg.KeySize)
	if err != nil {
		return cfg, fmt.Errorf("key_size: %w", err)
	}
	cfg.KeySize = keySize

	bpc, err := formInt(c, "lsb_bits", cfg.BitsPerChannel)
	if err != nil {
		return cfg, fmt.Errorf("lsb_bits: %w", err)
	}
	cfg.BitsPerChannel = bpc

	if raw := c.PostForm("frame_indices"); raw != "" {
		indices, err := parseIndices(raw)
		if err != nil {
			return cfg, err
		}
		cfg.FrameIndices = indices
	}
	return cfg, cfg.Validate()
}

func formInt(c *gin.Context, field string, def int) (int, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func parseIndices(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("frame_indices: %q is not an integer", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func maxSuspicion(scores []vidsteg.FrameScore) float64 {
	max := 0.0
	for _, s := range scores {
		if s.Suspicion > max {
			max = s.Suspicion
		}
	}
	return max
}

// statusFor maps codec failures to HTTP statuses: client mistakes are 400,
// payload-level failures (wrong password, damaged carrier) are 422,
// everything else is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vidsteg.ErrConfigInvalid),
		errors.Is(err, vidsteg.ErrCapacityExceeded):
		return http.StatusBadRequest
	case errors.Is(err, vidsteg.ErrAuthenticationFailed),
		errors.Is(err, vidsteg.ErrPaddingInvalid),
		errors.Is(err, vidsteg.ErrTruncatedStream),
		errors.Is(err, vidsteg.ErrUncorrectable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, status int, format string, args ...interface{}) {
	c.JSON(status, ErrorResponse{Success: false, Message: fmt.Sprintf(format, args...)})
}
