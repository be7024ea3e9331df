package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opd-ai/vidsteg"
)

// metaFile is the sidecar document written next to every stego video. It
// carries everything extraction needs except the password.
type metaFile struct {
	Sidecar string `json:"sidecar"`
	Mode    string `json:"mode"`
	KeySize int    `json:"key_size"`
	LSBBits int    `json:"lsb_bits"`
	Frames  []int  `json:"frames"`
}

func writeMeta(path string, cfg vidsteg.Config, sidecar vidsteg.Sidecar, frames []int) error {
	doc := metaFile{
		Sidecar: hex.EncodeToString(sidecar.Marshal()),
		Mode:    cfg.Mode.String(),
		KeySize: cfg.KeySize,
		LSBBits: cfg.BitsPerChannel,
		Frames:  frames,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readMeta(path string) (vidsteg.Config, vidsteg.Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vidsteg.Config{}, vidsteg.Sidecar{}, fmt.Errorf("failed to read meta file: %w", err)
	}
	var doc metaFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return vidsteg.Config{}, vidsteg.Sidecar{}, fmt.Errorf("failed to parse meta file: %w", err)
	}

	mode, err := vidsteg.ParseMode(doc.Mode)
	if err != nil {
		return vidsteg.Config{}, vidsteg.Sidecar{}, err
	}
	cfg := vidsteg.Config{
		KeySize:        doc.KeySize,
		Mode:           mode,
		BitsPerChannel: doc.LSBBits,
		FrameIndices:   doc.Frames,
	}

	raw, err := hex.DecodeString(doc.Sidecar)
	if err != nil {
		return vidsteg.Config{}, vidsteg.Sidecar{}, fmt.Errorf("meta sidecar is not valid hex: %w", err)
	}
	sidecar, err := vidsteg.ParseSidecar(raw, mode)
	if err != nil {
		return vidsteg.Config{}, vidsteg.Sidecar{}, err
	}
	return cfg, sidecar, nil
}
