package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"inkwell/core/internal/engine"
)

var (
	simulateIntent   string
	simulateOverride bool

	simulateCmd = &cobra.Command{
		Use:   "simulate [batch-file]",
		Short: "Gate and dry-run an edit batch without persisting anything",
		Long: `Reads a doc_edit_batch JSON file ("-" for stdin), runs the outline and
style gate against the current document, simulates the surviving ops, and
prints the gate result plus the per-op diff. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		Run:  runSimulate,
	}

	applyIntent   string
	applyOverride bool
	applyAuthor   string

	applyCmd = &cobra.Command{
		Use:   "apply [batch-file]",
		Short: "Gate, apply, and persist an edit batch",
		Long: `Reads a doc_edit_batch JSON file ("-" for stdin) and applies it: the
batch is gated, applied atomically against the stored document, saved with
optimistic version checking, committed to the archive, and appended to the
edit log. A batch with "simulate": true is dry-run even through apply.`,
		Args: cobra.ExactArgs(1),
		Run:  runApply,
	}

	checkCmd = &cobra.Command{
		Use:   "check [document-id]",
		Short: "Run the style rules over every block of a document",
		Args:  cobra.ExactArgs(1),
		Run:   runCheck,
	}
)

func init() {
	simulateCmd.Flags().StringVar(&simulateIntent, "intent", "", "author intent recorded in edit justifications")
	simulateCmd.Flags().BoolVar(&simulateOverride, "override", false, "report outline guard hits without blocking")
	applyCmd.Flags().StringVar(&applyIntent, "intent", "", "author intent recorded in edit justifications")
	applyCmd.Flags().BoolVar(&applyOverride, "override", false, "report outline guard hits without blocking")
	applyCmd.Flags().StringVar(&applyAuthor, "author", "", "actor recorded on the commit and edit log entry")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
}

func readBatch(path string) engine.DocEditBatch {
	raw, err := readInput(path)
	if err != nil {
		log.Fatalf("read batch: %v", err)
	}
	batch, err := engine.DecodeBatch(raw)
	if err != nil {
		log.Fatalf("decode batch: %v", err)
	}
	return *batch
}

func runSimulate(cmd *cobra.Command, args []string) {
	batch := readBatch(args[0])

	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	preview, err := rt.service.PreviewBatch(ctx, batch, simulateIntent, simulateOverride)
	if err != nil {
		fail(err)
	}
	printJSON(preview)
}

func runApply(cmd *cobra.Command, args []string) {
	batch := readBatch(args[0])

	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	outcome, err := rt.service.ApplyBatch(ctx, batch, applyIntent, applyOverride, applyAuthor)
	if err != nil {
		fail(err)
	}
	printJSON(outcome)
}

func runCheck(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	report, err := rt.service.CheckDocument(ctx, args[0])
	if err != nil {
		fail(err)
	}
	printJSON(report)
}
