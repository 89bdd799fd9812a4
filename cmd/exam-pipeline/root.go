package main

import (
	"github.com/apc-foundation/exam-pipeline/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exam-pipeline",
	Short: "exam-pipeline ingests scraped exams and keeps their lifecycle status current.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(sweepCmd)

	rootCmd.AddCommand(cli.NewCmdTrigger())
	rootCmd.AddCommand(cli.NewCmdPush())
	rootCmd.AddCommand(cli.NewCmdStatus())
}
