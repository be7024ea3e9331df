package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsteg/frame"
	"github.com/opd-ai/vidsteg/video"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubIO replaces the ffmpeg collaborator with an in-memory carrier so the
// full insert/extract HTTP flow runs without external binaries.
type stubIO struct {
	info    *video.Info
	frames  []*frame.Grid
	written map[int]*frame.Grid
}

func newStubIO(frameCount, height, width int) *stubIO {
	s := &stubIO{
		info: &video.Info{
			Width:       width,
			Height:      height,
			FPS:         30,
			TotalFrames: frameCount,
			Codec:       "h264",
		},
		written: make(map[int]*frame.Grid),
	}
	for n := 0; n < frameCount; n++ {
		g := frame.New(height, width, video.Channels)
		for i := range g.Pix {
			g.Pix[i] = uint8((i*31 + n*17 + i*i) % 256)
		}
		s.frames = append(s.frames, g)
	}
	return s
}

func (s *stubIO) Probe(string) (*video.Info, error) { return s.info, nil }

func (s *stubIO) ReadFrames(_ string, indices []int) ([]*frame.Grid, error) {
	out := make([]*frame.Grid, len(indices))
	for i, idx := range indices {
		if g, ok := s.written[idx]; ok {
			out[i] = g.Clone()
		} else {
			out[i] = s.frames[idx].Clone()
		}
	}
	return out, nil
}

func (s *stubIO) WriteVideo(_, outPath string, modified map[int]*frame.Grid) error {
	for idx, g := range modified {
		s.written[idx] = g.Clone()
	}
	return os.WriteFile(outPath, []byte("mkv"), 0o644)
}

func newTestRouter(t *testing.T, stub *stubIO) *gin.Engine {
	t.Helper()
	h := NewStegoHandlerWithIO(stub, t.TempDir())
	return NewRouter(h, nil)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile(name, name+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, newStubIO(1, 4, 4))

	rec := doRequest(router, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
}

func TestInsertExtractRoundTrip(t *testing.T) {
	stub := newStubIO(8, 16, 16)
	router := newTestRouter(t, stub)
	payload := []byte("the server round trip payload")

	body, contentType := multipartBody(t,
		map[string]string{"password": "correct horse"},
		map[string][]byte{
			"video_file":   []byte("carrier"),
			"payload_file": payload,
		})
	rec := doRequest(router, http.MethodPost, "/api/v1/stego/insert", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sidecar := rec.Header().Get(SidecarHeader)
	frames := rec.Header().Get("X-Stego-Frames")
	require.NotEmpty(t, sidecar)
	require.NotEmpty(t, frames)
	assert.NotEmpty(t, rec.Header().Get("X-Stego-Coded-Bytes"))
	assert.NotEmpty(t, stub.written, "stego frames should have been muxed")

	body, contentType = multipartBody(t,
		map[string]string{
			"password":      "correct horse",
			"sidecar":       sidecar,
			"frame_indices": frames,
		},
		map[string][]byte{"video_file": []byte("stego carrier")})
	rec = doRequest(router, http.MethodPost, "/api/v1/stego/extract", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestExtractWrongPassword(t *testing.T) {
	stub := newStubIO(8, 16, 16)
	router := newTestRouter(t, stub)

	body, contentType := multipartBody(t,
		map[string]string{"password": "correct horse"},
		map[string][]byte{
			"video_file":   []byte("carrier"),
			"payload_file": []byte("secret"),
		})
	rec := doRequest(router, http.MethodPost, "/api/v1/stego/insert", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body, contentType = multipartBody(t,
		map[string]string{
			"password":      "wrong battery staple",
			"sidecar":       rec.Header().Get(SidecarHeader),
			"frame_indices": rec.Header().Get("X-Stego-Frames"),
		},
		map[string][]byte{"video_file": []byte("stego carrier")})
	rec = doRequest(router, http.MethodPost, "/api/v1/stego/extract", body, contentType)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "extraction failed")
}

func TestInsertValidation(t *testing.T) {
	router := newTestRouter(t, newStubIO(2, 8, 8))

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string][]byte
		want   string
	}{
		{
			name:   "missing password",
			fields: map[string]string{},
			files: map[string][]byte{
				"video_file":   []byte("carrier"),
				"payload_file": []byte("x"),
			},
			want: "password is required",
		},
		{
			name:   "missing carrier",
			fields: map[string]string{"password": "p"},
			files:  map[string][]byte{"payload_file": []byte("x")},
			want:   "video_file is required",
		},
		{
			name:   "bad mode",
			fields: map[string]string{"password": "p", "mode": "ecb"},
			files: map[string][]byte{
				"video_file":   []byte("carrier"),
				"payload_file": []byte("x"),
			},
			want: "unknown cipher mode",
		},
		{
			name:   "bad lsb bits",
			fields: map[string]string{"password": "p", "lsb_bits": "9"},
			files: map[string][]byte{
				"video_file":   []byte("carrier"),
				"payload_file": []byte("x"),
			},
			want: "bits per channel",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.fields, tt.files)
			rec := doRequest(router, http.MethodPost, "/api/v1/stego/insert", body, contentType)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestExtractRequiresFrameIndices(t *testing.T) {
	router := newTestRouter(t, newStubIO(2, 8, 8))

	body, contentType := multipartBody(t,
		map[string]string{"password": "p", "sidecar": "00"},
		map[string][]byte{"video_file": []byte("carrier")})
	rec := doRequest(router, http.MethodPost, "/api/v1/stego/extract", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "frame_indices is required")
}

func TestExtractRejectsBadSidecar(t *testing.T) {
	router := newTestRouter(t, newStubIO(2, 8, 8))

	body, contentType := multipartBody(t,
		map[string]string{
			"password":      "p",
			"frame_indices": "0,1",
			"sidecar":       "not-hex",
		},
		map[string][]byte{"video_file": []byte("carrier")})
	rec := doRequest(router, http.MethodPost, "/api/v1/stego/extract", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid hex")
}

func TestCapacityEndpoint(t *testing.T) {
	stub := newStubIO(100, 64, 64)
	router := newTestRouter(t, stub)

	body, contentType := multipartBody(t,
		map[string]string{"lsb_bits": "1"},
		map[string][]byte{"video_file": []byte("carrier")})
	rec := doRequest(router, http.MethodPost, "/api/v1/capacity", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CapacityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 100, resp.Video.TotalFrames)
	// 100 frames of 64*64*3 samples at 1 bit each, minus the length header.
	assert.Equal(t, 100*64*64*3-32, resp.Capacity.Bits)
	assert.Greater(t, resp.Capacity.UsablePayloadBytes, 0)
	assert.Less(t, resp.Capacity.UsablePayloadBytes, resp.Capacity.Bits/8)
}

func TestAnalyzeEndpoint(t *testing.T) {
	stub := newStubIO(5, 16, 16)
	router := newTestRouter(t, stub)

	body, contentType := multipartBody(t, nil,
		map[string][]byte{"video_file": []byte("carrier")})
	rec := doRequest(router, http.MethodPost, "/api/v1/analyze", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Equal(t, 5, resp.FramesAnalyzed)
	require.Len(t, resp.Frames, 5)
	for i, fa := range resp.Frames {
		assert.Equal(t, i, fa.FrameIndex)
		assert.GreaterOrEqual(t, fa.Combined, 0.0)
		assert.LessOrEqual(t, fa.Combined, 100.0)
		assert.NotEmpty(t, fa.RiskLevel)
	}
}

func TestParseIndices(t *testing.T) {
	got, err := parseIndices(" 3, 1,7 ")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 7}, got)

	_, err = parseIndices("1,x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not an integer"))
}
