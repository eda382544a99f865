package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/core/internal/search"
)

var (
	searchType   string
	searchDoc    string
	searchKind   string
	searchLimit  int
	searchOffset int

	searchCmd = &cobra.Command{
		Use:   "search [query...]",
		Short: "Search document titles and block text",
		Long: `Searches across documents and blocks, using Meilisearch when it is
configured and healthy and falling back to Postgres full-text search
otherwise.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Meilisearch indexes from Postgres",
		Run:   runReindex,
	}
)

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict results: document or block")
	searchCmd.Flags().StringVar(&searchDoc, "doc", "", "restrict results to one document id")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "restrict block results by kind: paragraph or heading")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results to return")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip, for paging")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	switch searchType {
	case "", string(search.ResultDocument), string(search.ResultBlock):
	default:
		log.Fatalf("invalid --type %q: want document or block", searchType)
	}

	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	q := search.Query{
		Text:             strings.Join(args, " "),
		FilterType:       search.ResultType(searchType),
		FilterDocumentID: searchDoc,
		FilterKind:       searchKind,
		Limit:            searchLimit,
		Offset:           searchOffset,
	}
	printJSON(rt.service.Search(ctx, q))
}

func runReindex(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt := mustRuntime(ctx)
	defer rt.Close()

	if rt.meili == nil {
		fmt.Println("meilisearch not configured; postgres full-text search needs no reindex")
		return
	}
	rt.service.Reindex(ctx)
	fmt.Println("reindex started")
}
