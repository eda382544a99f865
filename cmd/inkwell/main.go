package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/core/internal/app"
	"inkwell/core/internal/archive"
	"inkwell/core/internal/backup"
	"inkwell/core/internal/cache"
	"inkwell/core/internal/config"
	"inkwell/core/internal/policy"
	"inkwell/core/internal/search"
	"inkwell/core/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Manage block-structured manuscripts with versioned, policy-gated edits",
	Long: `Inkwell stores documents as ordered blocks, applies typed edit batches
with optimistic concurrency, keeps a git archive of every applied batch,
and screens edits against style rules and outline guards.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("inkwell: %v", err)
	}
}

// runtime holds everything a stateful command needs. Optional backends
// (redis, meilisearch, minio) stay nil unless configured.
type runtime struct {
	cfg     config.Config
	db      *sql.DB
	service *app.Service
	meili   *search.Meili
	cache   *cache.DocumentCache
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create repos dir: %w", err)
	}

	dataStore := store.NewPostgresStore(db)
	archiveService := archive.New(cfg.ReposDir)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)

	var documentCache *cache.DocumentCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		documentCache, err = cache.NewDocumentCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
	}

	var journal *backup.Journal
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		journal, err = backup.NewJournal(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("minio connection failed: %w", err)
		}
	}

	style := policy.DefaultStyleRules()
	if strings.TrimSpace(cfg.StyleRulesPath) != "" {
		style, err = policy.LoadStyleRules(cfg.StyleRulesPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("style rules: %w", err)
		}
	}

	service := app.New(cfg, dataStore, archiveService, searchService, documentCache, journal, style)
	return &runtime{
		cfg:     cfg,
		db:      db,
		service: service,
		meili:   meiliClient,
		cache:   documentCache,
	}, nil
}

func (r *runtime) Close() {
	if r.cache != nil {
		_ = r.cache.Close()
	}
	if r.meili != nil {
		r.meili.Close()
	}
	_ = r.db.Close()
}

func mustRuntime(ctx context.Context) *runtime {
	rt, err := newRuntime(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return rt
}

// printJSON writes indented JSON to stdout for scripting.
func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal output: %v", err)
	}
	fmt.Println(string(out))
}

// fail prints a DomainError as code plus message (and details when
// present) on stderr and exits non-zero; anything else goes through
// log.Fatalf.
func fail(err error) {
	var de *app.DomainError
	if errors.As(err, &de) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", de.Code, de.Message)
		if de.Details != nil {
			if details, marshalErr := json.MarshalIndent(de.Details, "", "  "); marshalErr == nil {
				fmt.Fprintln(os.Stderr, string(details))
			}
		}
		os.Exit(1)
	}
	log.Fatalf("%v", err)
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
