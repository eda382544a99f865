package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history [document-id]",
		Short: "List the archive commits for a document, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}

	logLimit int

	logCmd = &cobra.Command{
		Use:   "log [document-id]",
		Short: "List the applied edit batches for a document, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runLog,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum commits to return")
	logCmd.Flags().IntVar(&logLimit, "limit", 20, "maximum entries to return")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	commits, err := rt.service.History(ctx, args[0], historyLimit)
	if err != nil {
		fail(err)
	}
	printJSON(commits)
}

func runLog(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	entries, err := rt.service.EditLog(ctx, args[0], logLimit)
	if err != nil {
		fail(err)
	}
	printJSON(entries)
}
