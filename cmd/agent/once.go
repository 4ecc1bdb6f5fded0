package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// onceCmd performs a single collect-and-report cycle. Useful to verify the
// configuration and API key before installing the service.
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Collect and report a single sample, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		if rt.cfg.API.Key == "" {
			return errMissingAgentKey
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			rt.shutdown(shutdownCtx)
		}()

		if err := rt.agent.RunOnce(ctx); err != nil {
			return fmt.Errorf("report failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Sample reported successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(onceCmd)
}
