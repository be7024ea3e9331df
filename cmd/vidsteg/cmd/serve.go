package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opd-ai/vidsteg/server"
	"github.com/opd-ai/vidsteg/video"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the steganography HTTP API",
	Long: `Start the REST API exposing insert, extract, analyze, and capacity
endpoints over multipart uploads.

Example:
  vidsteg serve --port 8080 --work-dir /tmp/vidsteg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := video.CheckFFmpeg(); err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		workDir, _ := cmd.Flags().GetString("work-dir")
		origins, _ := cmd.Flags().GetStringSlice("cors-origin")

		return server.Run(server.Options{
			Port:         port,
			WorkDir:      workDir,
			AllowOrigins: origins,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "8080", "Port to listen on")
	serveCmd.Flags().String("work-dir", "", "Staging directory for uploads (default system temp)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins")
}
