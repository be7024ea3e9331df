package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg/video"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <video>",
	Short: "Print carrier video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := video.CheckFFmpeg(); err != nil {
			return err
		}
		info, err := video.Probe(args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Printf("Resolution: %dx%d\n", info.Width, info.Height)
		fmt.Printf("Codec:      %s\n", info.Codec)
		fmt.Printf("FPS:        %.3f\n", info.FPS)
		fmt.Printf("Frames:     %d\n", info.TotalFrames)
		fmt.Printf("Duration:   %.2fs\n", info.Duration)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("json", false, "Emit JSON")
}
