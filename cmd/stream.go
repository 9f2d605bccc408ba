package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"foxglove-bridge/internal/client"
	"foxglove-bridge/internal/credentials"
	"foxglove-bridge/internal/device"
	"foxglove-bridge/internal/viz"

	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Connect to the remote visualization stream",
	Long: `Authorizes a remote visualization session and keeps a WebSocket
connection open, logging received frames until interrupted.`,
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

		session, err := viz.NewSession(provider, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stream, err := session.Connect(ctx)
		if err != nil {
			return err
		}
		defer stream.Close()

		// Close the connection when the context is cancelled so the read
		// loop below unblocks.
		go func() {
			<-ctx.Done()
			stream.Close()
		}()

		for {
			msg, err := stream.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					logger.Info("Stream closed")
					return nil
				}
				return err
			}
			logger.WithField("bytes", len(msg.Data)).Info("Stream frame received")
		}
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
}
