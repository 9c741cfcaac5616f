package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"blvckboard/internal/middleware"
)

var (
	attestAddress string
	attestCount   int64
	attestTTL     time.Duration
)

// attestCmd 用于运维或测试时手工签发持有证明
var attestCmd = &cobra.Command{
	Use:   "attest",
	Short: "Sign a holding attestation token with HOLDING_ATTESTATION_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.HoldingAttestationSecret == "" {
			return errors.New("HOLDING_ATTESTATION_SECRET is not set")
		}
		token, err := middleware.SignAttestation(cfg.HoldingAttestationSecret, middleware.HoldingAttestation{
			Address:  attestAddress,
			NFTCount: attestCount,
		}, attestTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	attestCmd.Flags().StringVar(&attestAddress, "address", "", "wallet address (sub claim)")
	attestCmd.Flags().Int64Var(&attestCount, "nft-count", 0, "attested holding count")
	attestCmd.Flags().DurationVar(&attestTTL, "ttl", 15*time.Minute, "token lifetime, 0 for no expiry")
	_ = attestCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(attestCmd)
}
