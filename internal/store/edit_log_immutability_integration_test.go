package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// These tests exercise the database-level immutability guard on edit_log
// and need a migrated Postgres instance. They skip unless
// INKWELL_TEST_DATABASE_URL points at one.

func openMigratedTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("INKWELL_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("INKWELL_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var triggers int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.triggers
		WHERE trigger_name = 'trg_edit_log_block_update'
	`).Scan(&triggers)
	if err != nil {
		t.Fatalf("check immutability trigger: %v", err)
	}
	if triggers == 0 {
		t.Fatalf("immutability trigger not found; apply migrations first")
	}

	return db
}

func insertTestEntry(t *testing.T, db *sql.DB, documentID, entryID string) {
	t.Helper()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (id, title, base_version)
		VALUES ($1, 'Immutability Test', 'v0')
		ON CONFLICT (id) DO NOTHING
	`, documentID)
	if err != nil {
		t.Fatalf("insert test document: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO edit_log (id, document_id, base_version, new_version, actor, batch, changed_blocks)
		VALUES ($1, $2, 'v0', 'v1', 'tester', '{}'::jsonb, '[]'::jsonb)
	`, entryID, documentID)
	if err != nil {
		t.Fatalf("insert test edit_log entry: %v", err)
	}

	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `TRUNCATE edit_log`)
		_, _ = db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	})
}

func TestEditLogImmutabilityBlocksUpdate(t *testing.T) {
	db := openMigratedTestDB(t)
	insertTestEntry(t, db, "doc-immutable-update", "edit-immutable-update")

	_, err := db.ExecContext(context.Background(), `
		UPDATE edit_log SET notes = 'rewritten' WHERE id = 'edit-immutable-update'
	`)
	if err == nil {
		t.Fatal("expected UPDATE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000, got: %s", pgErr.SQLState())
	}
	if pgErr.Message != "edit_log is immutable; UPDATE is not allowed" {
		t.Fatalf("unexpected error message: %s", pgErr.Message)
	}
}

func TestEditLogImmutabilityBlocksDelete(t *testing.T) {
	db := openMigratedTestDB(t)
	insertTestEntry(t, db, "doc-immutable-delete", "edit-immutable-delete")

	_, err := db.ExecContext(context.Background(), `
		DELETE FROM edit_log WHERE id = 'edit-immutable-delete'
	`)
	if err == nil {
		t.Fatal("expected DELETE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000, got: %s", pgErr.SQLState())
	}
	if pgErr.Message != "edit_log is immutable; DELETE is not allowed" {
		t.Fatalf("unexpected error message: %s", pgErr.Message)
	}
}

func TestEditLogInsertStillWorks(t *testing.T) {
	db := openMigratedTestDB(t)
	insertTestEntry(t, db, "doc-immutable-insert", "edit-immutable-insert")

	var count int
	err := db.QueryRowContext(context.Background(), `
		SELECT COUNT(*) FROM edit_log WHERE id = 'edit-immutable-insert'
	`).Scan(&count)
	if err != nil {
		t.Fatalf("query edit_log: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 edit_log entry, got %d", count)
	}
}
