package server

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options configures the HTTP service.
type Options struct {
	// Port to listen on. Defaults to 8080.
	Port string

	// WorkDir stages uploads and encoder output. Defaults to the system
	// temp directory.
	WorkDir string

	// AllowOrigins is the CORS allow-list. Empty means localhost dev
	// origins only.
	AllowOrigins []string
}

// NewRouter builds the gin engine with CORS and all API routes mounted.
func NewRouter(h *StegoHandler, allowOrigins []string) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	config.AllowOrigins = allowOrigins
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.ExposeHeaders = []string{
		SidecarHeader,
		"X-Stego-Frames",
		"X-Stego-Coded-Bytes",
		"X-Stego-Max-Suspicion",
		"Content-Disposition",
	}
	router.Use(cors.New(config))

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/capacity", h.Capacity)
		api.POST("/analyze", h.Analyze)

		stego := api.Group("/stego")
		{
			stego.POST("/insert", h.InsertMessage)
			stego.POST("/extract", h.ExtractMessage)
		}
	}
	return router
}

// Run starts the API server and blocks until it exits.
func Run(opts Options) error {
	if opts.Port == "" {
		opts.Port = "8080"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	handler := NewStegoHandler(opts.WorkDir)
	router := NewRouter(handler, opts.AllowOrigins)

	logrus.WithFields(logrus.Fields{
		"port":     opts.Port,
		"work_dir": opts.WorkDir,
	}).Info("starting stego API server")

	return router.Run(":" + opts.Port)
}
