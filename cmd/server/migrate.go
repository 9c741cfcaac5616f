package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"blvckboard/internal/infra/setup"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the cells table and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := setup.InitDB(cfg.DBConfig())
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := setup.MigrateDB(db); err != nil {
			return err
		}
		logrus.WithField("driver", cfg.DBDriver).Info("Database migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
