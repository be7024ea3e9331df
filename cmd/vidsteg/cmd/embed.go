package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg"
	"github.com/opd-ai/vidsteg/analysis"
	"github.com/opd-ai/vidsteg/ecc"
	"github.com/opd-ai/vidsteg/frame"
	"github.com/opd-ai/vidsteg/stego"
	"github.com/opd-ai/vidsteg/video"
)

// embedCmd represents the embed command
var embedCmd = &cobra.Command{
	Use:   "embed <carrier-video> <payload-file> <output.mkv>",
	Short: "Hide a payload file inside a carrier video",
	Long: `Encrypt a payload with the given password and embed it into the
low bits of the carrier's frames. The output is lossless FFV1 in MKV.

Frames are chosen automatically by texture unless --frames pins them.
Extraction parameters are written to <output>.meta.

Example:
  vidsteg embed holiday.mp4 secret.pdf out.mkv --password hunter2`,
	Args: cobra.ExactArgs(3),
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	carrierPath, payloadPath, outPath := args[0], args[1], args[2]

	if err := video.CheckFFmpeg(); err != nil {
		return err
	}
	cfg, password, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	frames, indices, err := pickFrames(cmd, carrierPath, cfg, len(payload))
	if err != nil {
		return err
	}
	cfg.FrameIndices = indices

	result, err := vidsteg.Embed(frames, payload, []byte(password), cfg)
	if err != nil {
		return err
	}

	modified := make(map[int]*frame.Grid, result.FramesUsed)
	for i := 0; i < result.FramesUsed; i++ {
		modified[indices[i]] = frames[i]
	}
	if err := video.WriteVideo(carrierPath, outPath, modified); err != nil {
		return err
	}

	metaPath, _ := cmd.Flags().GetString("meta")
	if metaPath == "" {
		metaPath = outPath + ".meta"
	}
	if err := writeMeta(metaPath, cfg, result.Sidecar, indices[:result.FramesUsed]); err != nil {
		return err
	}

	fmt.Printf("Embedded %d payload bytes (%d coded) across %d frames\n",
		len(payload), result.CodedBytes, result.FramesUsed)
	for _, s := range result.Scores {
		fmt.Printf("  frame %-5d suspicion %.1f\n", s.FrameIndex, s.Suspicion)
	}
	fmt.Printf("Stego video: %s\n", outPath)
	fmt.Printf("Meta file:   %s (required for extraction)\n", metaPath)
	return nil
}

// pickFrames decodes pinned frames, or scans the start of the carrier and
// picks the most textured frames that fit the payload.
func pickFrames(cmd *cobra.Command, carrierPath string, cfg vidsteg.Config, payloadLen int) ([]*frame.Grid, []int, error) {
	if pinned, _ := cmd.Flags().GetIntSlice("frames"); len(pinned) > 0 {
		frames, err := video.ReadFrames(carrierPath, pinned)
		return frames, pinned, err
	}

	info, err := video.Probe(carrierPath)
	if err != nil {
		return nil, nil, err
	}
	scan, _ := cmd.Flags().GetInt("scan-frames")
	if info.TotalFrames > 0 && scan > info.TotalFrames {
		scan = info.TotalFrames
	}
	if scan <= 0 {
		return nil, nil, video.ErrNoVideoStream
	}

	// Over-estimate ciphertext by one cipher block so CBC padding cannot
	// push the payload past the chosen frames.
	coded := ecc.EncodedLen(payloadLen + 16)
	bitsNeeded := stego.HeaderBits + coded*8
	perFrame := info.Width * info.Height * video.Channels * cfg.BitsPerChannel
	needed := (bitsNeeded + perFrame - 1) / perFrame
	if needed > scan {
		return nil, nil, fmt.Errorf("%w: payload needs %d frames, scanned %d",
			vidsteg.ErrCapacityExceeded, needed, scan)
	}

	indices := make([]int, scan)
	for i := range indices {
		indices[i] = i
	}
	scanned, err := video.ReadFrames(carrierPath, indices)
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

// configFromFlags reads the shared cipher flags present on embed and
// extract.
func configFromFlags(cmd *cobra.Command) (vidsteg.Config, string, error) {
	cfg := vidsteg.DefaultConfig()

	if modeName, _ := cmd.Flags().GetString("mode"); modeName != "" {
		mode, err := vidsteg.ParseMode(modeName)
		if err != nil {
			return cfg, "", err
		}
		cfg.Mode = mode
	}
	if keySize, _ := cmd.Flags().GetInt("key-size"); keySize != 0 {
		cfg.KeySize = keySize
	}
	if bpc, _ := cmd.Flags().GetInt("lsb-bits"); bpc != 0 {
		cfg.BitsPerChannel = bpc
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		return cfg, "", fmt.Errorf("--password is required")
	}
	return cfg, password, cfg.Validate()
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringP("password", "p", "", "Encryption password (required)")
	embedCmd.Flags().String("mode", "gcm", "Cipher mode: cbc, ctr, gcm, or cfb")
	embedCmd.Flags().Int("key-size", 256, "AES key size: 128, 192, or 256")
	embedCmd.Flags().Int("lsb-bits", 1, "Low bits used per channel (1-4)")
	embedCmd.Flags().IntSlice("frames", nil, "Pin exact carrier frame indices")
	embedCmd.Flags().Int("scan-frames", 120, "Frames scanned for automatic selection")
	embedCmd.Flags().String("meta", "", "Meta file path (default <output>.meta)")
}
