package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"inkwell/core/internal/doc"
)

// ErrVersionConflict reports that a guarded save lost the race: the
// document moved past the expected version between load and save.
var ErrVersionConflict = errors.New("document version conflict")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (doc.Document, error) {
	var document doc.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, base_version, last_modified
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&document.ID, &document.Title, &document.BaseVersion, &document.LastModified)
	if err != nil {
		return doc.Document{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, heading_level, body, hash
		FROM blocks
		WHERE document_id=$1
		ORDER BY position ASC
	`, documentID)
	if err != nil {
		return doc.Document{}, fmt.Errorf("load blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b doc.Block
		if err := rows.Scan(&b.ID, &b.Kind, &b.HeadingLevel, &b.Text, &b.Hash); err != nil {
			return doc.Document{}, fmt.Errorf("scan block: %w", err)
		}
		document.Blocks = append(document.Blocks, b)
	}
	if err := rows.Err(); err != nil {
		return doc.Document{}, fmt.Errorf("iterate blocks: %w", err)
	}
	return document, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.base_version, d.last_modified, COUNT(b.id)
		FROM documents d
		LEFT JOIN blocks b ON b.document_id = d.id
		GROUP BY d.id, d.title, d.base_version, d.last_modified
		ORDER BY d.last_modified DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]DocumentSummary, 0)
	for rows.Next() {
		var item DocumentSummary
		if err := rows.Scan(&item.ID, &item.Title, &item.BaseVersion, &item.LastModified, &item.BlockCount); err != nil {
			return nil, fmt.Errorf("scan document summary: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, document doc.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, base_version, last_modified)
		VALUES ($1, $2, $3, NOW())
	`, document.ID, document.Title, document.BaseVersion); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert document: %w", err)
	}

	if err := insertBlocks(ctx, tx, document); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	return nil
}

// SaveDocument persists a new snapshot guarded by the version the
// caller loaded. A racing writer makes the guard miss and the save
// fails with ErrVersionConflict, leaving the previous snapshot intact.
func (s *PostgresStore) SaveDocument(ctx context.Context, document doc.Document, expectedVersion string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, base_version=$3, last_modified=NOW()
		WHERE id=$1 AND base_version=$4
	`, document.ID, document.Title, document.BaseVersion, expectedVersion)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("check update: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE document_id=$1`, document.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear blocks: %w", err)
	}
	if err := insertBlocks(ctx, tx, document); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func insertBlocks(ctx context.Context, tx *sql.Tx, document doc.Document) error {
	for position, b := range document.Blocks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO blocks (document_id, id, position, kind, heading_level, body, hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, document.ID, b.ID, position, b.Kind, b.HeadingLevel, b.Text, b.Hash); err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}
	return nil
}

// GetScene returns the scene attached to a document, or an empty scene
// when none has been configured yet.
func (s *PostgresStore) GetScene(ctx context.Context, documentID string) (Scene, error) {
	var scene Scene
	var beats string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, title, summary, required_beats
		FROM scenes
		WHERE document_id=$1
	`, documentID).Scan(&scene.ID, &scene.DocumentID, &scene.Title, &scene.Summary, &beats)
	if errors.Is(err, sql.ErrNoRows) {
		return Scene{DocumentID: documentID}, nil
	}
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	_ = json.Unmarshal([]byte(beats), &scene.RequiredBeats)
	return scene, nil
}

func (s *PostgresStore) UpsertScene(ctx context.Context, scene Scene) error {
	beats := scene.RequiredBeats
	if beats == nil {
		beats = []string{}
	}
	encodedBeats, err := json.Marshal(beats)
	if err != nil {
		return fmt.Errorf("marshal required beats: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenes (id, document_id, title, summary, required_beats)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (document_id) DO UPDATE
		SET title=EXCLUDED.title, summary=EXCLUDED.summary, required_beats=EXCLUDED.required_beats
	`, scene.ID, scene.DocumentID, scene.Title, scene.Summary, string(encodedBeats))
	if err != nil {
		return fmt.Errorf("upsert scene: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendEditLog(ctx context.Context, entry EditLogEntry) error {
	changed := entry.ChangedBlocks
	if changed == nil {
		changed = []string{}
	}
	encodedChanged, err := json.Marshal(changed)
	if err != nil {
		return fmt.Errorf("marshal changed blocks: %w", err)
	}
	batch := entry.Batch
	if len(batch) == 0 {
		batch = json.RawMessage("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edit_log (id, document_id, base_version, new_version, actor, notes, batch, changed_blocks, commit_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
	`, entry.ID, entry.DocumentID, entry.BaseVersion, entry.NewVersion, entry.Actor, entry.Notes, string(batch), string(encodedChanged), entry.CommitHash)
	if err != nil {
		return fmt.Errorf("insert edit log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEditLog(ctx context.Context, documentID string, limit int) ([]EditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, base_version, new_version, actor, notes, batch, changed_blocks, commit_hash, applied_at
		FROM edit_log
		WHERE document_id=$1
		ORDER BY applied_at DESC
		LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list edit log: %w", err)
	}
	defer rows.Close()

	items := make([]EditLogEntry, 0)
	for rows.Next() {
		var item EditLogEntry
		var batch, changed string
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.BaseVersion, &item.NewVersion, &item.Actor, &item.Notes, &batch, &changed, &item.CommitHash, &item.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan edit log entry: %w", err)
		}
		item.Batch = json.RawMessage(batch)
		_ = json.Unmarshal([]byte(changed), &item.ChangedBlocks)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edit log: %w", err)
	}
	return items, nil
}
