package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MediScan server",
	Long: `Start the MediScan HTTP server.

The server provides the upload page at /, the JSON API under /api, and
health checks at /health and /ready. Config file changes are picked up
without a restart: provider settings reload in place.

Examples:
  mediscan serve                    # Start on the configured port (default 8080)
  mediscan serve --port 3000        # Start on custom port
  mediscan serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if mgr.ConfigFile() != "" {
			logger.Info("using config file", "path", mgr.ConfigFile())
			mgr.WatchConfig()
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port from config)")

	rootCmd.AddCommand(serveCmd)
}
