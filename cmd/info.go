package main

import (
	"fmt"

	"foxglove-bridge/internal/client"
	"foxglove-bridge/internal/device"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Resolve and print the device identity",
	Long: `Exchanges the configured device token for device metadata and prints
the resolved identity.`,
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

		fmt.Printf("Device ID:  %s\n", dev.ID())
		fmt.Printf("Name:       %s\n", dev.Name())
		fmt.Printf("Project ID: %s\n", dev.ProjectID())
		if retain, ok := dev.RetainRecordingsSeconds(); ok {
			fmt.Printf("Retention:  %ds\n", retain)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
