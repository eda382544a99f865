package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"inkwell/core/internal/doc"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*DocumentCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := NewDocumentCache("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create document cache: %v", err)
	}
	return c, s
}

func cachedDocument() doc.Document {
	blocks := []doc.Block{
		doc.NewHeading("b1", 1, "Chapter One"),
		doc.NewParagraph("b2", "The door creaked open."),
	}
	return doc.Document{
		ID:          "doc-1",
		Title:       "Chapter One",
		Blocks:      blocks,
		BaseVersion: doc.Version(blocks),
	}
}

func TestNewDocumentCache(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	c, err := NewDocumentCache("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewDocumentCache failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSetAndGetDocument(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	document := cachedDocument()

	if err := c.Set(ctx, document); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, document.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached document, got nil")
	}
	if got.BaseVersion != document.BaseVersion || len(got.Blocks) != 2 {
		t.Fatalf("cached document = %+v", got)
	}
	if got.Blocks[1].Text != "The door creaked open." {
		t.Fatalf("block text lost in cache: %q", got.Blocks[1].Text)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	got, err := c.Get(context.Background(), "never-cached")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing entry, got %+v", got)
	}
}

func TestEntriesExpire(t *testing.T) {
	c, s := setupTestCache(t, 50*time.Millisecond)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Set(ctx, cachedDocument()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Fast-forward time in miniredis past the TTL.
	s.FastForward(100 * time.Millisecond)

	got, err := c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired entry to be gone, got %+v", got)
	}
}

func TestInvalidate(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Set(ctx, cachedDocument()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := c.Invalidate(ctx, "doc-1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	got, err := c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get after invalidate failed: %v", err)
	}
	if got != nil {
		t.Fatal("invalidated entry still cached")
	}
}

func TestInvalidateMissingIsHarmless(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	defer c.Close()
	defer s.Close()

	if err := c.Invalidate(context.Background(), "never-cached"); err != nil {
		t.Errorf("Invalidate for missing entry failed: %v", err)
	}
}
