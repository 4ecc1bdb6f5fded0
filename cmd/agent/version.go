package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agent version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "uptimesquirrel-agent %s\n", agent.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
