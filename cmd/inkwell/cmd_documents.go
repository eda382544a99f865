package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"
)

var (
	importID     string
	importTitle  string
	importAuthor string

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Split a text file into blocks and create a new document",
		Long: `Reads a manuscript ("-" for stdin), splits it on blank lines into
heading and paragraph blocks, and creates the document: store row, scene
record, archive baseline commit, and search index entries.`,
		Args: cobra.ExactArgs(1),
		Run:  runImport,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List documents with their versions and block counts",
		Run:   runList,
	}

	showAt string

	showCmd = &cobra.Command{
		Use:   "show [document-id]",
		Short: "Print a document, or its manuscript at a past revision",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}
)

func init() {
	importCmd.Flags().StringVar(&importID, "id", "", "document id (generated when empty)")
	importCmd.Flags().StringVar(&importTitle, "title", "", "document title (required)")
	importCmd.Flags().StringVar(&importAuthor, "author", "", "author recorded on the baseline commit")
	showCmd.Flags().StringVar(&showAt, "at", "", "revision: commit hash, short hash, or reference name")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	text, err := readInput(args[0])
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	document, err := rt.service.ImportDocument(ctx, importID, importTitle, string(text), importAuthor)
	if err != nil {
		fail(err)
	}
	printJSON(document)
}

func runList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	documents, err := rt.service.ListDocuments(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(documents)
}

func runShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	if showAt != "" {
		manuscript, commit, err := rt.service.DocumentAt(ctx, args[0], showAt)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]any{
			"commit":     commit,
			"manuscript": manuscript,
		})
		return
	}

	document, err := rt.service.GetDocument(ctx, args[0])
	if err != nil {
		fail(err)
	}
	printJSON(document)
}
