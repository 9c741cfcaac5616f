package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blvckboard/internal/bootstrap"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, background worker and scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.ServerPort = servePort
		}

		app, err := bootstrap.NewApp(cfg)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		if err := app.Start(errCh); err != nil {
			app.Shutdown()
			return err
		}

		// 设置优雅关闭
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			app.Log.Info("Shutdown signal received...")
		case err = <-errCh:
		}

		app.Shutdown()
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "override SERVER_PORT")
	rootCmd.AddCommand(serveCmd)
}
