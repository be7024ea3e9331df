package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg"
	"github.com/opd-ai/vidsteg/video"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <stego-video> <output-file>",
	Short: "Recover a hidden payload from a stego video",
	Long: `Read the embedded bits back out of a stego video, correct any
channel damage, decrypt with the password, and write the payload.

The .meta file written at embed time supplies the cipher parameters,
frame list, and sidecar. By default it is looked up next to the video.

Example:
  vidsteg extract out.mkv recovered.pdf --password hunter2`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	stegoPath, outPath := args[0], args[1]

	if err := video.CheckFFmpeg(); err != nil {
		return err
	}
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		return fmt.Errorf("--password is required")
	}

	metaPath, _ := cmd.Flags().GetString("meta")
	if metaPath == "" {
		metaPath = stegoPath + ".meta"
	}
	cfg, sidecar, err := readMeta(metaPath)
	if err != nil {
		return err
	}

	frames, err := video.ReadFrames(stegoPath, cfg.FrameIndices)
	if err != nil {
		return err
	}
	payload, err := vidsteg.Extract(frames, sidecar, []byte(password), cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	fmt.Printf("Recovered %d bytes to %s\n", len(payload), outPath)
	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("password", "p", "", "Decryption password (required)")
	extractCmd.Flags().String("meta", "", "Meta file path (default <stego-video>.meta)")
}
