package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg/stego"
	"github.com/opd-ai/vidsteg/video"
)

// capacityCmd represents the capacity command
var capacityCmd = &cobra.Command{
	Use:   "capacity <carrier-video>",
	Short: "Report how much payload a carrier can hold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := video.CheckFFmpeg(); err != nil {
			return err
		}
		bpc, _ := cmd.Flags().GetInt("lsb-bits")
		if bpc < 1 || bpc > 4 {
			return fmt.Errorf("--lsb-bits must be between 1 and 4")
		}

		info, err := video.Probe(args[0])
		if err != nil {
			return err
		}
		dims := make([]stego.Dims, info.TotalFrames)
		for i := range dims {
			dims[i] = stego.Dims{Height: info.Height, Width: info.Width, Channels: video.Channels}
		}
		bits := stego.CapacityBits(dims, bpc)

		fmt.Printf("Carrier:  %s (%dx%d %s, %d frames, %.2fs)\n",
			args[0], info.Width, info.Height, info.Codec, info.TotalFrames, info.Duration)
		fmt.Printf("Raw bits: %d at %d bit(s) per channel\n", bits, bpc)
		fmt.Printf("Payload:  %d bytes after encryption and error-correction overhead\n",
			stego.UsablePayloadBytes(bits))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capacityCmd)

	capacityCmd.Flags().Int("lsb-bits", 1, "Low bits used per channel (1-4)")
}
