package store

import (
	"encoding/json"
	"time"
)

type DocumentSummary struct {
	ID           string
	Title        string
	BaseVersion  string
	BlockCount   int
	LastModified time.Time
}

// Scene is the editorial contract around a document: what it is about
// and which blocks the outline requires it to keep.
type Scene struct {
	ID            string
	DocumentID    string
	Title         string
	Summary       string
	RequiredBeats []string
}

// EditLogEntry records one applied batch: the raw batch, the version
// transition it caused, and the archive commit that captured it.
type EditLogEntry struct {
	ID            string
	DocumentID    string
	BaseVersion   string
	NewVersion    string
	Actor         string
	Notes         string
	Batch         json.RawMessage
	ChangedBlocks []string
	CommitHash    string
	AppliedAt     time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
	Added     int
	Removed   int
}
