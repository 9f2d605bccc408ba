package main

import (
	"fmt"

	"foxglove-bridge/internal/client"
	"foxglove-bridge/internal/credentials"
	"foxglove-bridge/internal/device"

	"github.com/spf13/cobra"
)

var sessionRefresh bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Authorize a remote visualization session",
	Long: `Resolves the device identity and authorizes a remote visualization
session, printing the connection URL. Credentials are cached in memory for
the lifetime of the process; --refresh forces a new authorization.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		api, err := client.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to build API client: %w", err)
		}

		dev, err := device.Resolve(cmd.Context(), api, logger)
		if err != nil {
			return err
		}

		provider, err := credentials.NewProvider(dev, logger)
		if err != nil {
			return err
		}

		var creds *credentials.Credentials
		if sessionRefresh {
			creds, err = provider.Refresh(cmd.Context())
		} else {
			creds, err = provider.Load(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Printf("Session URL: %s\n", creds.URL)
		return nil
	},
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionRefresh, "refresh", false, "force a new authorization even if credentials are cached")
	rootCmd.AddCommand(sessionCmd)
}
