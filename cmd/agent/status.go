package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// statusCmd collects one sample and prints it locally without reporting.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Collect a sample and print it as JSON without reporting",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}

		// Fetch remote thresholds first so the printed sample reflects the
		// config the report loop would use.
		rt.agent.CheckRemoteConfig(cmd.Context())

		sample := rt.agent.CollectSample(cmd.Context())
		alerts := rt.agent.EvaluateAlerts(sample)

		out := struct {
			Sample any `json:"sample"`
			Alerts any `json:"alerts,omitempty"`
		}{Sample: sample}
		if len(alerts) > 0 {
			out.Alerts = alerts
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
