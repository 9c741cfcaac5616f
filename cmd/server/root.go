package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"blvckboard/internal/bootstrap"
)

var rootCmd = &cobra.Command{
	Use:   "blvckboard",
	Short: "Cell claim and quota service for the blvck board",
	Long: `blvckboard serves a fixed-size board of cells that NFT holders can claim.
Each holder may own a number of cells proportional to their holding count.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute 运行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置，失败时记录日志
func loadConfig() (*bootstrap.Config, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to load config")
		return nil, err
	}
	return cfg, nil
}
