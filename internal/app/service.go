package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"inkwell/core/internal/archive"
	"inkwell/core/internal/backup"
	"inkwell/core/internal/cache"
	"inkwell/core/internal/config"
	"inkwell/core/internal/doc"
	"inkwell/core/internal/engine"
	"inkwell/core/internal/policy"
	"inkwell/core/internal/search"
	"inkwell/core/internal/store"
	"inkwell/core/internal/util"
)

type dataStore interface {
	GetDocument(ctx context.Context, documentID string) (doc.Document, error)
	ListDocuments(ctx context.Context) ([]store.DocumentSummary, error)
	CreateDocument(ctx context.Context, document doc.Document) error
	SaveDocument(ctx context.Context, document doc.Document, expectedVersion string) error
	GetScene(ctx context.Context, documentID string) (store.Scene, error)
	UpsertScene(ctx context.Context, scene store.Scene) error
	AppendEditLog(ctx context.Context, entry store.EditLogEntry) error
	ListEditLog(ctx context.Context, documentID string, limit int) ([]store.EditLogEntry, error)
}

type archiveService interface {
	EnsureDocumentRepo(documentID string, document doc.Document, author string) error
	CommitDocument(documentID string, document doc.Document, author, message string) (store.CommitInfo, error)
	History(documentID string, limit int) ([]store.CommitInfo, error)
	ContentAt(documentID, ref string) (string, store.CommitInfo, error)
}

type documentCache interface {
	Get(ctx context.Context, documentID string) (*doc.Document, error)
	Set(ctx context.Context, document doc.Document) error
	Invalidate(ctx context.Context, documentID string) error
}

type searchService interface {
	Search(q search.Query) search.Response
	SyncDocument(d search.DocumentRecord, blocks []search.BlockRecord, removedBlockIDs []string)
	ReindexAllFromPG(ctx context.Context)
}

type journalService interface {
	PutEntry(ctx context.Context, entry store.EditLogEntry) error
}

// Service orchestrates the edit pipeline: load, gate, apply, persist,
// archive, and the best-effort cache/search/journal fan-out.
type Service struct {
	cfg     config.Config
	store   dataStore
	archive archiveService
	cache   documentCache
	search  searchService
	journal journalService
	style   policy.StyleRules
}

// New wires the service. documentCache and journal may be nil when the
// corresponding backend is not configured; searchService may be nil in
// tests. The guards keep typed nils out of the interface fields.
func New(cfg config.Config, dataStore *store.PostgresStore, archiveService *archive.Service, searchService *search.Service, documentCache *cache.DocumentCache, journal *backup.Journal, style policy.StyleRules) *Service {
	s := &Service{
		cfg:     cfg,
		store:   dataStore,
		archive: archiveService,
		style:   style,
	}
	if searchService != nil {
		s.search = searchService
	}
	if documentCache != nil {
		s.cache = documentCache
	}
	if journal != nil {
		s.journal = journal
	}
	return s
}

// Preview is the outcome of gating and simulating a batch.
type Preview struct {
	Gate   policy.GateResult      `json:"gate"`
	Result *engine.SimulateResult `json:"result"`
	Notes  string                 `json:"notes,omitempty"`
}

// ApplyOutcome reports an applied (or, with the simulate flag, dry-run)
// batch.
type ApplyOutcome struct {
	Applied         bool                `json:"applied"`
	DocumentID      string              `json:"documentId"`
	NewVersion      string              `json:"newVersion"`
	ChangedBlockIDs []string            `json:"changedBlockIds"`
	Warnings        []policy.WarnedOp   `json:"warnings,omitempty"`
	Entry           *store.EditLogEntry `json:"entry,omitempty"`
	Commit          *store.CommitInfo   `json:"commit,omitempty"`
}

// CheckReport lists every style finding across a document's blocks.
type CheckReport struct {
	DocumentID string       `json:"documentId"`
	BlockCount int          `json:"blockCount"`
	Hits       []policy.Hit `json:"hits"`
}

// ImportDocument splits raw text into blocks and creates the document
// everywhere: store row, scene, archive baseline, search index.
func (s *Service) ImportDocument(ctx context.Context, documentID, title, text, author string) (doc.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return doc.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	blocks := doc.SplitText(text)
	if len(blocks) == 0 {
		return doc.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text contains no blocks", nil)
	}
	if documentID == "" {
		documentID = util.NewID("doc")
	}
	if author == "" {
		author = s.cfg.DefaultAuthor
	}

	document := doc.Document{
		ID:           documentID,
		Title:        title,
		Blocks:       blocks,
		BaseVersion:  doc.Version(blocks),
		LastModified: time.Now().UTC(),
	}
	if err := document.Validate(); err != nil {
		return doc.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}

	if err := s.store.CreateDocument(ctx, document); err != nil {
		return doc.Document{}, fmt.Errorf("create document: %w", err)
	}
	if err := s.store.UpsertScene(ctx, store.Scene{
		ID:         util.NewID("scene"),
		DocumentID: documentID,
		Title:      title,
	}); err != nil {
		return doc.Document{}, fmt.Errorf("create scene: %w", err)
	}
	if err := s.archive.EnsureDocumentRepo(documentID, document, author); err != nil {
		return doc.Document{}, fmt.Errorf("init archive: %w", err)
	}

	s.syncSearch(document, nil)
	return document, nil
}

// GetDocument reads through the snapshot cache. Cache failures degrade
// to the store silently.
func (s *Service) GetDocument(ctx context.Context, documentID string) (doc.Document, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, documentID)
		if err != nil {
			log.Printf("app: cache get %s: %v", documentID, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	document, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return doc.Document{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, document); err != nil {
			log.Printf("app: cache set %s: %v", documentID, err)
		}
	}
	return document, nil
}

// PreviewBatch gates the batch, narrows it to the allowed ops with
// justification notes, and simulates the result. Nothing is persisted.
func (s *Service) PreviewBatch(ctx context.Context, batch engine.DocEditBatch, intent string, override bool) (*Preview, error) {
	document, err := s.loadDocument(ctx, batch.DocID)
	if err != nil {
		return nil, err
	}
	gctx, err := s.gateContext(ctx, document, override)
	if err != nil {
		return nil, err
	}

	gate, gated := policy.GateAndJustify(batch, gctx, intent)
	result, err := engine.Simulate(gated, document)
	if err != nil {
		return nil, mapBatchError(err)
	}
	return &Preview{Gate: gate, Result: result, Notes: gated.Notes}, nil
}

// ApplyBatch runs the full pipeline. A blocked op fails the whole batch
// with POLICY_BLOCKED; the engine keeps the batch atomic past the gate.
// When the batch carries the simulate flag nothing is persisted.
func (s *Service) ApplyBatch(ctx context.Context, batch engine.DocEditBatch, intent string, override bool, actor string) (*ApplyOutcome, error) {
	document, err := s.loadDocument(ctx, batch.DocID)
	if err != nil {
		return nil, err
	}
	gctx, err := s.gateContext(ctx, document, override)
	if err != nil {
		return nil, err
	}

	gate, gated := policy.GateAndJustify(batch, gctx, intent)
	if len(gate.Blocked) > 0 {
		return nil, domainError(http.StatusConflict, "POLICY_BLOCKED", "batch contains ops blocked by outline guards", gate.Blocked)
	}

	if batch.Simulate {
		result, err := engine.Simulate(gated, document)
		if err != nil {
			return nil, mapBatchError(err)
		}
		return &ApplyOutcome{
			Applied:         false,
			DocumentID:      document.ID,
			NewVersion:      result.NewVersion,
			ChangedBlockIDs: result.ChangedBlockIDs,
			Warnings:        gate.Warnings,
		}, nil
	}

	result, err := engine.Apply(gated, document)
	if err != nil {
		return nil, mapBatchError(err)
	}

	if actor == "" {
		actor = s.cfg.DefaultAuthor
	}
	before := document.Blocks
	document.Blocks = result.Blocks
	document.BaseVersion = result.NewVersion
	document.LastModified = time.Now().UTC()

	if err := s.store.SaveDocument(ctx, document, batch.BaseVersion); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, domainError(http.StatusConflict, engine.ErrBaseVersionMismatch, "document changed since baseVersion was read", nil)
		}
		return nil, fmt.Errorf("save document: %w", err)
	}

	entryID := util.NewID("edit")
	message := fmt.Sprintf("Apply %s: %d ops", entryID, len(gated.Ops))
	if gated.Notes != "" {
		message += "\n\n" + gated.Notes
	}
	commit, err := s.archive.CommitDocument(document.ID, document, actor, message)
	if err != nil {
		return nil, fmt.Errorf("archive commit: %w", err)
	}

	batchJSON, err := json.Marshal(gated)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	entry := store.EditLogEntry{
		ID:            entryID,
		DocumentID:    document.ID,
		BaseVersion:   batch.BaseVersion,
		NewVersion:    result.NewVersion,
		Actor:         actor,
		Notes:         gated.Notes,
		Batch:         batchJSON,
		ChangedBlocks: result.ChangedBlockIDs,
		CommitHash:    commit.Hash,
		AppliedAt:     time.Now().UTC(),
	}
	if err := s.store.AppendEditLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append edit log: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, document.ID); err != nil {
			log.Printf("app: cache invalidate %s: %v", document.ID, err)
		}
	}
	s.syncSearch(document, removedBlockIDs(document.ID, before, document.Blocks))
	if s.journal != nil {
		if err := s.journal.PutEntry(ctx, entry); err != nil {
			log.Printf("app: journal write %s/%s: %v", document.ID, entryID, err)
		}
	}

	return &ApplyOutcome{
		Applied:         true,
		DocumentID:      document.ID,
		NewVersion:      result.NewVersion,
		ChangedBlockIDs: result.ChangedBlockIDs,
		Warnings:        gate.Warnings,
		Entry:           &entry,
		Commit:          &commit,
	}, nil
}

// CheckDocument runs the style rules over every block. Advisory only.
func (s *Service) CheckDocument(ctx context.Context, documentID string) (*CheckReport, error) {
	document, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	report := &CheckReport{
		DocumentID: documentID,
		BlockCount: len(document.Blocks),
		Hits:       []policy.Hit{},
	}
	for _, b := range document.Blocks {
		report.Hits = append(report.Hits, policy.EvaluateStyleRules(b.ID, b.Text, s.style)...)
	}
	return report, nil
}

// History lists archive commits for a document, newest first.
func (s *Service) History(ctx context.Context, documentID string, limit int) ([]store.CommitInfo, error) {
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}
	commits, err := s.archive.History(documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive history: %w", err)
	}
	return commits, nil
}

// EditLog lists applied batches for a document, newest first.
func (s *Service) EditLog(ctx context.Context, documentID string, limit int) ([]store.EditLogEntry, error) {
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEditLog(ctx, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list edit log: %w", err)
	}
	return entries, nil
}

// DocumentAt returns the rendered manuscript at a revision (hash, short
// hash, or reference name).
func (s *Service) DocumentAt(ctx context.Context, documentID, ref string) (string, store.CommitInfo, error) {
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return "", store.CommitInfo{}, err
	}
	text, info, err := s.archive.ContentAt(documentID, ref)
	if err != nil {
		return "", store.CommitInfo{}, domainError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("revision %s not found", ref), nil)
	}
	return text, info, nil
}

// Search proxies the search facade.
func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Reindex pushes every document and block from the store into the
// search index.
func (s *Service) Reindex(ctx context.Context) {
	if s.search == nil {
		return
	}
	s.search.ReindexAllFromPG(ctx)
}

// GetScene returns the scene row for a document; a zero scene with the
// document id set when none was configured.
func (s *Service) GetScene(ctx context.Context, documentID string) (store.Scene, error) {
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return store.Scene{}, err
	}
	scene, err := s.store.GetScene(ctx, documentID)
	if err != nil {
		return store.Scene{}, fmt.Errorf("load scene: %w", err)
	}
	return scene, nil
}

// SetScene creates or updates a document's scene metadata, including
// the required outline beats the gate enforces.
func (s *Service) SetScene(ctx context.Context, scene store.Scene) (store.Scene, error) {
	if strings.TrimSpace(scene.DocumentID) == "" {
		return store.Scene{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "documentId is required", nil)
	}
	if _, err := s.loadDocument(ctx, scene.DocumentID); err != nil {
		return store.Scene{}, err
	}
	current, err := s.store.GetScene(ctx, scene.DocumentID)
	if err != nil {
		return store.Scene{}, fmt.Errorf("load scene: %w", err)
	}
	if scene.ID == "" {
		scene.ID = current.ID
	}
	if scene.ID == "" {
		scene.ID = util.NewID("scene")
	}
	if err := s.store.UpsertScene(ctx, scene); err != nil {
		return store.Scene{}, fmt.Errorf("save scene: %w", err)
	}
	return scene, nil
}

// ListDocuments returns summaries for every stored document.
func (s *Service) ListDocuments(ctx context.Context) ([]store.DocumentSummary, error) {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

func (s *Service) loadDocument(ctx context.Context, documentID string) (doc.Document, error) {
	document, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc.Document{}, domainError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("document %s not found", documentID), nil)
		}
		return doc.Document{}, fmt.Errorf("load document: %w", err)
	}
	return document, nil
}

func (s *Service) gateContext(ctx context.Context, document doc.Document, override bool) (policy.GateContext, error) {
	scene, err := s.store.GetScene(ctx, document.ID)
	if err != nil {
		return policy.GateContext{}, fmt.Errorf("load scene: %w", err)
	}
	meta := policy.SceneMeta{ID: scene.ID, Blocks: blockStates(document.Blocks)}
	if len(scene.RequiredBeats) > 0 {
		meta.Outline = &policy.Outline{RequiredBeats: scene.RequiredBeats}
	}
	return policy.GateContext{SceneMeta: meta, Style: s.style, AllowOverride: override}, nil
}

func (s *Service) syncSearch(document doc.Document, removedBlockIDs []string) {
	if s.search == nil {
		return
	}
	record := search.DocumentRecord{ID: document.ID, Title: document.Title}
	blocks := make([]search.BlockRecord, 0, len(document.Blocks))
	for _, b := range document.Blocks {
		blocks = append(blocks, search.BlockRecord{
			ID:         search.BlockRecordID(document.ID, b.ID),
			BlockID:    b.ID,
			DocumentID: document.ID,
			Kind:       b.Kind,
			Text:       b.Text,
		})
	}
	s.search.SyncDocument(record, blocks, removedBlockIDs)
}

func blockStates(blocks []doc.Block) []policy.BlockState {
	states := make([]policy.BlockState, 0, len(blocks))
	for _, b := range blocks {
		states = append(states, policy.BlockState{ID: b.ID, Text: b.Text, Hash: b.Hash})
	}
	return states
}

func removedBlockIDs(documentID string, before, after []doc.Block) []string {
	kept := make(map[string]bool, len(after))
	for _, b := range after {
		kept[b.ID] = true
	}
	var removed []string
	for _, b := range before {
		if !kept[b.ID] {
			removed = append(removed, search.BlockRecordID(documentID, b.ID))
		}
	}
	return removed
}

func mapBatchError(err error) error {
	var batchErr *engine.BatchError
	if errors.As(err, &batchErr) {
		return domainError(http.StatusConflict, batchErr.Code, batchErr.Message, batchErr.Conflicts)
	}
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
}
