package vidsteg

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsteg/frame"
)

func noisyFrames(n, h, w, c int, seed int64) []*frame.Grid {
	rng := rand.New(rand.NewSource(seed))
	frames := make([]*frame.Grid, n)
	for i := range frames {
		frames[i] = frame.New(h, w, c)
		rng.Read(frames[i].Pix)
	}
	return frames
}

// The canonical end-to-end scenario: four 4x4x3 frames at one bit per
// channel give 192 raw bits, 20 usable coded bytes after the header. An
// 8-byte AES-256/GCM payload codes to 10 bytes and must fit.
func TestEndToEndScenario(t *testing.T) {
	frames := noisyFrames(4, 4, 4, 3, 1)
	payload := []byte("8 bytes!")
	password := []byte("hunter2")
	cfg := DefaultConfig()

	result, err := Embed(frames, payload, password, cfg)
	require.NoError(t, err)
	require.Equal(t, 10, result.CodedBytes)
	require.Len(t, result.Scores, result.FramesUsed)

	recovered, err := Extract(frames, result.Sidecar, password, cfg)
	require.NoError(t, err)
	assert.Equal(t, payload, recovered)

	_, err = Extract(frames, result.Sidecar, []byte("wrong password"), cfg)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestRoundTripAllModes(t *testing.T) {
	payload := []byte("the payload codec must reproduce these bytes exactly, bit for bit")
	password := []byte("swordfish")

	for _, mode := range []CipherMode{ModeCBC, ModeCTR, ModeGCM, ModeCFB} {
		for _, keySize := range []int{128, 192, 256} {
			t.Run(mode.String(), func(t *testing.T) {
				frames := noisyFrames(3, 16, 16, 3, 2)
				cfg := Config{KeySize: keySize, Mode: mode, BitsPerChannel: 1}

				result, err := Embed(frames, payload, password, cfg)
				require.NoError(t, err)

				recovered, err := Extract(frames, result.Sidecar, password, cfg)
				require.NoError(t, err)
				assert.Equal(t, payload, recovered)
			})
		}
	}
}

func TestRoundTripBitsPerChannel(t *testing.T) {
	payload := bytes.Repeat([]byte{0xC3}, 40)
	password := []byte("pw")

	for _, bpc := range []int{1, 2, 3, 4} {
		frames := noisyFrames(2, 16, 16, 3, int64(bpc))
		cfg := DefaultConfig()
		cfg.BitsPerChannel = bpc

		result, err := Embed(frames, payload, password, cfg)
		require.NoError(t, err, "bpc=%d", bpc)

		recovered, err := Extract(frames, result.Sidecar, password, cfg)
		require.NoError(t, err, "bpc=%d", bpc)
		assert.Equal(t, payload, recovered, "bpc=%d", bpc)
	}
}

// Two runs with identical inputs, including identical injected salt and IV,
// must produce byte-identical stego frames.
func TestEmbedDeterministic(t *testing.T) {
	payload := []byte("determinism or it did not happen")
	password := []byte("pw")
	cfg := DefaultConfig()
	salt := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, cfg.Mode.IVSize())

	framesA := noisyFrames(2, 16, 16, 3, 9)
	framesB := noisyFrames(2, 16, 16, 3, 9)

	resA, err := embedWithSalt(framesA, payload, password, cfg, salt, iv)
	require.NoError(t, err)
	resB, err := embedWithSalt(framesB, payload, password, cfg, salt, iv)
	require.NoError(t, err)

	assert.Equal(t, resA.Sidecar.Marshal(), resB.Sidecar.Marshal())
	for i := range framesA {
		assert.True(t, framesA[i].Equal(framesB[i]), "frame %d differs", i)
	}
}

func TestEmbedCapacityExceededLeavesFramesUntouched(t *testing.T) {
	frames := noisyFrames(1, 4, 4, 3, 3)
	before := frames[0].Clone()

	_, err := Embed(frames, bytes.Repeat([]byte{1}, 1000), []byte("pw"), DefaultConfig())
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.True(t, frames[0].Equal(before))
}

func TestExtractWrongCarrierTruncates(t *testing.T) {
	// A carrier nobody embedded into: random LSBs decode to a length header
	// far beyond what these few samples hold.
	frames := noisyFrames(1, 4, 4, 3, 4)
	cfg := DefaultConfig()
	sidecar := Sidecar{
		Salt: make([]byte, 16),
		IV:   make([]byte, cfg.Mode.IVSize()),
		Tag:  make([]byte, cfg.Mode.TagSize()),
	}

	_, err := Extract(frames, sidecar, []byte("pw"), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedStream)
}

func TestEmbedValidatesConfig(t *testing.T) {
	frames := noisyFrames(1, 8, 8, 3, 5)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"bad key size", Config{KeySize: 100, Mode: ModeGCM, BitsPerChannel: 1}},
		{"bad mode", Config{KeySize: 256, Mode: CipherMode(9), BitsPerChannel: 1}},
		{"bad bpc", Config{KeySize: 256, Mode: ModeGCM, BitsPerChannel: 5}},
		{"duplicate frames", Config{KeySize: 256, Mode: ModeGCM, BitsPerChannel: 1, FrameIndices: []int{3, 3}}},
		{"negative frame", Config{KeySize: 256, Mode: ModeGCM, BitsPerChannel: 1, FrameIndices: []int{-1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Embed(frames, []byte("x"), []byte("pw"), tc.cfg)
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestSidecarMarshalRoundTrip(t *testing.T) {
	for _, mode := range []CipherMode{ModeCBC, ModeCTR, ModeGCM, ModeCFB} {
		t.Run(mode.String(), func(t *testing.T) {
			s := Sidecar{
				Salt: bytes.Repeat([]byte{1}, 16),
				IV:   bytes.Repeat([]byte{2}, mode.IVSize()),
			}
			if mode.TagSize() > 0 {
				s.Tag = bytes.Repeat([]byte{3}, mode.TagSize())
			}

			parsed, err := ParseSidecar(s.Marshal(), mode)
			require.NoError(t, err)
			assert.Equal(t, s.Salt, parsed.Salt)
			assert.Equal(t, s.IV, parsed.IV)
			assert.Equal(t, s.Tag, parsed.Tag)
		})
	}

	_, err := ParseSidecar([]byte{1, 2, 3}, ModeGCM)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestEstimateCapacity(t *testing.T) {
	frames := noisyFrames(4, 4, 4, 3, 6)

	cap1, err := EstimateCapacity(frames, 1)
	require.NoError(t, err)
	assert.Equal(t, 160, cap1.Bits)
	assert.Equal(t, 17, cap1.UsablePayloadBytes)

	_, err = EstimateCapacity(frames, 0)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestFrameIndexMismatch(t *testing.T) {
	frames := noisyFrames(2, 8, 8, 3, 7)
	cfg := DefaultConfig()
	cfg.FrameIndices = []int{0, 1, 2}

	_, err := Embed(frames, []byte("x"), []byte("pw"), cfg)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
