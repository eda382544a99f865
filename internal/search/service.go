package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// SyncDocument pushes a document's current title and blocks to Meilisearch and
// drops index entries for blocks that no longer exist (fire-and-forget).
func (s *Service) SyncDocument(d DocumentRecord, blocks []BlockRecord, removedBlockIDs []string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDocument(d); err != nil {
			log.Printf("search: index document %s: %v", d.ID, err)
		}
		if err := s.meili.IndexBlocks(blocks); err != nil {
			log.Printf("search: index blocks for %s: %v", d.ID, err)
		}
		if len(removedBlockIDs) > 0 {
			if err := s.meili.DeleteBlocks(removedBlockIDs); err != nil {
				log.Printf("search: delete stale blocks for %s: %v", d.ID, err)
			}
		}
	}()
}

// DeleteDocument removes a document and its blocks from the search index (fire-and-forget).
func (s *Service) DeleteDocument(id string, blockIDs []string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			log.Printf("search: delete document %s: %v", id, err)
		}
		if len(blockIDs) > 0 {
			if err := s.meili.DeleteBlocks(blockIDs); err != nil {
				log.Printf("search: delete blocks for %s: %v", id, err)
			}
		}
	}()
}

// ReindexAll pushes the given records to Meilisearch in bulk.
func (s *Service) ReindexAll(documents []DocumentRecord, blocks []BlockRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(documents) > 0 {
		if err := s.meili.IndexDocuments(documents); err != nil {
			log.Printf("search: reindex documents: %v", err)
		}
	}
	if len(blocks) > 0 {
		if err := s.meili.IndexBlocks(blocks); err != nil {
			log.Printf("search: reindex blocks: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	documents, blocks, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(documents, blocks)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
