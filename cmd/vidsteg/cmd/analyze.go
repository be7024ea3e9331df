package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg/analysis"
	"github.com/opd-ai/vidsteg/video"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Run steganalysis over a video's frames",
	Long: `Score each frame with LSB steganalysis (chi-square, sample pairs,
RS groups, histogram) and report suspicion per frame. Useful both for
vetting a carrier before embedding and for checking how detectable a
stego output is.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := video.CheckFFmpeg(); err != nil {
			return err
		}
		info, err := video.Probe(args[0])
		if err != nil {
			return err
		}

		count := info.TotalFrames
		if max, _ := cmd.Flags().GetInt("max-frames"); max > 0 && count > max {
			count = max
		}
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		frames, err := video.ReadFrames(args[0], indices)
		if err != nil {
			return err
		}

		fmt.Printf("%-7s %-9s %-11s %-6s %s\n", "frame", "texture", "suspicion", "risk", "likely-stego")
		flagged := 0
		for i, g := range frames {
			report := analysis.Detect(g)
			if report.LikelyStego {
				flagged++
			}
			fmt.Printf("%-7d %-9.1f %-11.1f %-6s %v\n",
				indices[i], analysis.Score(g), report.Combined, report.RiskLevel, report.LikelyStego)
		}
		fmt.Printf("\n%d of %d frames flagged as likely stego\n", flagged, len(frames))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Int("max-frames", 120, "Maximum frames to analyze (0 for all)")
}
