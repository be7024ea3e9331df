package server

import (
	"github.com/opd-ai/vidsteg"
	"github.com/opd-ai/vidsteg/analysis"
	"github.com/opd-ai/vidsteg/video"
)

// ErrorResponse is the uniform failure body for every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse reports service and ffmpeg availability.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	FFmpeg  bool   `json:"ffmpeg_available"`
}

// CapacityResponse combines probed carrier metadata with the payload
// budget at the requested bits-per-channel.
type CapacityResponse struct {
	Success  bool             `json:"success"`
	Video    video.Info       `json:"video"`
	Capacity vidsteg.Capacity `json:"capacity"`
}

// FrameAnalysis is one frame's steganalysis verdict plus its texture
// score (higher texture means a safer embedding target).
type FrameAnalysis struct {
	FrameIndex int     `json:"frame_index"`
	Texture    float64 `json:"texture_score"`
	analysis.Report
}

// AnalyzeResponse lists per-frame verdicts for the sampled frames.
type AnalyzeResponse struct {
	Success        bool            `json:"success"`
	FramesAnalyzed int             `json:"frames_analyzed"`
	Frames         []FrameAnalysis `json:"frames"`
}
