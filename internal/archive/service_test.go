package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"inkwell/core/internal/doc"
)

func testDocument(paragraphs ...string) doc.Document {
	blocks := []doc.Block{doc.NewHeading("b0", 1, "Draft")}
	for i, text := range paragraphs {
		blocks = append(blocks, doc.NewParagraph(fmt.Sprintf("b%d", i+1), text))
	}
	return doc.Document{
		ID:          "doc-1",
		Title:       "Draft",
		Blocks:      blocks,
		BaseVersion: doc.Version(blocks),
	}
}

func TestDocumentRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := testDocument("The door creaked open.")
	if err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "doc-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	// Ensure is idempotent.
	if err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("second EnsureDocumentRepo() error = %v", err)
	}

	updated := testDocument("The door slammed shut.")
	commit, err := svc.CommitDocument("doc-1", updated, "Avery", "Rework opening")
	if err != nil {
		t.Fatalf("CommitDocument() error = %v", err)
	}
	if commit.Hash == "" || commit.Author != "Avery" {
		t.Fatalf("commit = %+v", commit)
	}
	if commit.Added != 1 || commit.Removed != 1 {
		t.Fatalf("line stats = +%d -%d, want +1 -1", commit.Added, commit.Removed)
	}

	history, err := svc.History("doc-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Message != "Rework opening" {
		t.Fatalf("history not newest-first: %+v", history)
	}

	text, info, err := svc.ContentAt("doc-1", commit.Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if !strings.Contains(text, "The door slammed shut.") {
		t.Fatalf("manuscript at commit = %q", text)
	}
	if info.Hash != commit.Hash {
		t.Fatalf("resolved commit %s, want %s", info.Hash, commit.Hash)
	}

	baseline, _, err := svc.ContentAt("doc-1", history[1].Hash)
	if err != nil {
		t.Fatalf("ContentAt() baseline error = %v", err)
	}
	if !strings.Contains(baseline, "The door creaked open.") {
		t.Fatalf("baseline manuscript = %q", baseline)
	}
}

func TestContentAtRevisionName(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if err := svc.EnsureDocumentRepo("doc-1", testDocument("Opening line."), "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	text, _, err := svc.ContentAt("doc-1", "main")
	if err != nil {
		t.Fatalf("ContentAt(main) error = %v", err)
	}
	if !strings.Contains(text, "Opening line.") {
		t.Fatalf("manuscript at main = %q", text)
	}
}

func TestHistoryHonorsLimit(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if err := svc.EnsureDocumentRepo("doc-1", testDocument("v0"), "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := svc.CommitDocument("doc-1", testDocument(fmt.Sprintf("v%d", i)), "Avery", fmt.Sprintf("Commit %d", i)); err != nil {
			t.Fatalf("CommitDocument() error = %v", err)
		}
	}

	history, err := svc.History("doc-1", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
}

func TestConcurrentCommitsSameDocument(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if err := svc.EnsureDocumentRepo("doc-1", testDocument("start"), "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := testDocument(fmt.Sprintf("revision-%02d", idx))
			if _, err := svc.CommitDocument("doc-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitDocument() concurrent error = %v", err)
		}
	}

	history, err := svc.History("doc-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) < writers+1 {
		t.Fatalf("expected at least %d commits in history, got %d", writers+1, len(history))
	}

	head, _, err := svc.ContentAt("doc-1", "main")
	if err != nil {
		t.Fatalf("ContentAt(main) error = %v", err)
	}
	if !strings.Contains(head, "revision-") {
		t.Fatalf("unexpected head manuscript after concurrent commits: %q", head)
	}
}
