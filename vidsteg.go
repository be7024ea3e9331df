package vidsteg

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/vidsteg/analysis"
	"github.com/opd-ai/vidsteg/crypto"
	"github.com/opd-ai/vidsteg/ecc"
	"github.com/opd-ai/vidsteg/frame"
	"github.com/opd-ai/vidsteg/stego"
)

// Sidecar is the non-secret cryptographic material generated per embed. It
// travels outside the pixel stream (a metadata file, a response field, or
// wherever the carrying layer puts it) and must be handed back verbatim to
// Extract. Without it the payload cannot be decrypted, but it reveals
// nothing about the payload itself.
type Sidecar struct {
	Salt []byte // 16 bytes, KDF salt
	IV   []byte // 12 bytes (GCM) or 16 bytes (CBC/CTR/CFB)
	Tag  []byte // 16 bytes for GCM, empty otherwise
}

// Marshal packs the sidecar as salt || iv || tag. Field sizes are fixed by
// the cipher mode, so no lengths are encoded.
func (s Sidecar) Marshal() []byte {
	out := make([]byte, 0, len(s.Salt)+len(s.IV)+len(s.Tag))
	out = append(out, s.Salt...)
	out = append(out, s.IV...)
	out = append(out, s.Tag...)
	return out
}

// ParseSidecar splits a marshaled sidecar using the field sizes implied by
// the mode.
func ParseSidecar(data []byte, mode CipherMode) (Sidecar, error) {
	want := crypto.SaltSize + mode.IVSize() + mode.TagSize()
	if len(data) != want {
		return Sidecar{}, fmt.Errorf("%w: sidecar is %d bytes, want %d for %s",
			ErrConfigInvalid, len(data), want, mode)
	}
	s := Sidecar{
		Salt: data[:crypto.SaltSize],
		IV:   data[crypto.SaltSize : crypto.SaltSize+mode.IVSize()],
	}
	if mode.TagSize() > 0 {
		s.Tag = data[crypto.SaltSize+mode.IVSize():]
	}
	return s, nil
}

func (s Sidecar) validate(mode CipherMode) error {
	if len(s.Salt) != crypto.SaltSize {
		return fmt.Errorf("%w: sidecar salt is %d bytes, want %d",
			ErrConfigInvalid, len(s.Salt), crypto.SaltSize)
	}
	if len(s.IV) != mode.IVSize() {
		return fmt.Errorf("%w: sidecar IV is %d bytes, want %d for %s",
			ErrConfigInvalid, len(s.IV), mode.IVSize(), mode)
	}
	if len(s.Tag) != mode.TagSize() {
		return fmt.Errorf("%w: sidecar tag is %d bytes, want %d for %s",
			ErrConfigInvalid, len(s.Tag), mode.TagSize(), mode)
	}
	return nil
}

// FrameScore is the advisory post-embedding suspicion statistic for one
// stego frame. Higher means more statistically anomalous; it never blocks
// extraction.
type FrameScore struct {
	FrameIndex int     `json:"frame_index"`
	Suspicion  float64 `json:"suspicion"`
}

// EmbedResult reports what an embed wrote and the material the extractor
// will need.
type EmbedResult struct {
	Sidecar      Sidecar
	BitsEmbedded int
	FramesUsed   int
	CodedBytes   int
	Scores       []FrameScore
}

// Capacity is the estimator output: the raw bit budget for the ECC-coded
// ciphertext and the caller-facing payload byte budget after discounting
// the Reed-Solomon expansion. The two are deliberately separate values.
type Capacity struct {
	Bits               int `json:"capacity_bits"`
	UsablePayloadBytes int `json:"usable_payload_bytes"`
}

// EstimateCapacity computes the capacity of a frame set at the given
// bits-per-channel.
func EstimateCapacity(frames []*frame.Grid, bpc int) (Capacity, error) {
	if bpc < 1 || bpc > 4 {
		return Capacity{}, fmt.Errorf("%w: bits per channel %d (want 1..4)", ErrConfigInvalid, bpc)
	}
	bits := stego.GridCapacityBits(frames, bpc)
	return Capacity{Bits: bits, UsablePayloadBytes: stego.UsablePayloadBytes(bits)}, nil
}

// Embed hides payload inside the given frames, which must follow the order
// of cfg.FrameIndices. The frames are mutated in place; on any error they
// are left untouched. The returned Sidecar must be carried alongside the
// stego output for extraction to be possible.
func Embed(frames []*frame.Grid, payload, password []byte, cfg Config) (*EmbedResult, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	return embedWithSalt(frames, payload, password, cfg, salt, nil)
}

// embedWithSalt is the deterministic pipeline behind Embed: fixed salt and
// (optionally) fixed IV produce bit-identical stego frames, which the
// round-trip and determinism tests rely on. A nil iv generates a random one.
func embedWithSalt(frames []*frame.Grid, payload, password []byte, cfg Config, salt, iv []byte) (*EmbedResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	indices, err := effectiveIndices(cfg, len(frames))
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"function":      "Embed",
		"mode":          cfg.Mode.String(),
		"key_size":      cfg.KeySize,
		"bits_per_chan": cfg.BitsPerChannel,
		"payload_bytes": len(payload),
		"frames":        len(frames),
	})
	log.Debug("starting embed pipeline")

	key := crypto.DeriveKey(password, salt, cfg.keyBytes())

	var ciphertext, tag []byte
	if iv == nil {
		iv, ciphertext, tag, err = crypto.Encrypt(payload, key, cfg.Mode)
	} else {
		ciphertext, tag, err = crypto.EncryptWithIV(payload, key, iv, cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	coded, err := ecc.Encode(ciphertext)
	if err != nil {
		return nil, err
	}
	framed, err := stego.Frame(coded)
	if err != nil {
		return nil, err
	}

	packer, err := stego.NewPacker(cfg.BitsPerChannel)
	if err != nil {
		return nil, err
	}

	// Capacity is decided before any mutation: a failed embed leaves every
	// frame byte-identical to its input.
	used, err := packer.FramesNeeded(frames, len(framed)*8)
	if err != nil {
		return nil, err
	}

	originals := make([]*frame.Grid, used)
	for i := 0; i < used; i++ {
		originals[i] = frames[i].Clone()
	}

	if _, err := packer.Embed(frames, framed); err != nil {
		return nil, err
	}

	scores := make([]FrameScore, used)
	for i := 0; i < used; i++ {
		scores[i] = FrameScore{
			FrameIndex: indices[i],
			Suspicion:  analysis.Suspicion(originals[i], frames[i]),
		}
	}

	log.WithFields(logrus.Fields{
		"coded_bytes": len(coded),
		"frames_used": used,
	}).Info("payload embedded")

	return &EmbedResult{
		Sidecar:      Sidecar{Salt: salt, IV: iv, Tag: tag},
		BitsEmbedded: len(framed) * 8,
		FramesUsed:   used,
		CodedBytes:   len(coded),
		Scores:       scores,
	}, nil
}

// Extract recovers the payload from stego frames. The frames, sidecar,
// password, and configuration must match the embed exactly; the pipeline
// reverses every stage in strict inverse order.
func Extract(frames []*frame.Grid, sidecar Sidecar, password []byte, cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := effectiveIndices(cfg, len(frames)); err != nil {
		return nil, err
	}
	if err := sidecar.validate(cfg.Mode); err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"function": "Extract",
		"mode":     cfg.Mode.String(),
		"frames":   len(frames),
	})
	log.Debug("starting extract pipeline")

	packer, err := stego.NewPacker(cfg.BitsPerChannel)
	if err != nil {
		return nil, err
	}
	coded, err := packer.Extract(frames)
	if err != nil {
		return nil, err
	}

	ciphertext, corrected, err := ecc.Decode(coded)
	if err != nil {
		return nil, err
	}
	if corrected > 0 {
		log.WithField("symbols_corrected", corrected).Warn("carrier corruption repaired")
	}

	key := crypto.DeriveKey(password, sidecar.Salt, cfg.keyBytes())
	payload, err := crypto.Decrypt(sidecar.IV, ciphertext, sidecar.Tag, key, cfg.Mode)
	if err != nil {
		return nil, err
	}

	log.WithField("payload_bytes", len(payload)).Info("payload extracted")
	return payload, nil
}

// effectiveIndices resolves cfg.FrameIndices against the frame count: an
// empty list means "the frames as given", otherwise the list length must
// match the frames passed in.
func effectiveIndices(cfg Config, frameCount int) ([]int, error) {
	if len(cfg.FrameIndices) == 0 {
		indices := make([]int, frameCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	if len(cfg.FrameIndices) != frameCount {
		return nil, fmt.Errorf("%w: %d frame indices for %d frames",
			ErrConfigInvalid, len(cfg.FrameIndices), frameCount)
	}
	return cfg.FrameIndices, nil
}
