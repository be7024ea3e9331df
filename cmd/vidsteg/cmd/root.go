// Package cmd implements the vidsteg command line interface.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vidsteg",
	Short: "Video LSB steganography with AES encryption and Reed-Solomon coding",
	Long: `vidsteg hides encrypted payloads inside the low bits of video frames.

Payloads are encrypted with a password-derived AES key, protected with
Reed-Solomon error correction, and embedded into the most textured frames
of a carrier video. Output is lossless (FFV1/MKV) so the hidden bits
survive the container. Extraction parameters are written to a .meta file
next to the output; keep it together with the stego video.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
