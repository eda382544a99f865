package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultBlock    ResultType = "block"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Snippet    string     `json:"snippet"`
	DocumentID string     `json:"documentId"`
	BlockID    string     `json:"blockId,omitempty"`
	Kind       string     `json:"kind,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterDocumentID string
	FilterKind       string // paragraph or heading, applies to blocks only
	Limit            int
	Offset           int
}

// Response is the envelope returned to search callers.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexDocument(d DocumentRecord) error
	IndexBlocks(blocks []BlockRecord) error
	DeleteDocument(id string) error
	DeleteBlocks(ids []string) error
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BlockRecord is the data we index for one block. ID is the composite
// documentID__blockID, since block ids only need to be unique within a
// document.
type BlockRecord struct {
	ID         string `json:"id"`
	BlockID    string `json:"blockId"`
	DocumentID string `json:"documentId"`
	Kind       string `json:"kind"`
	Text       string `json:"text"`
}

// BlockRecordID builds the index-safe composite id for a block.
func BlockRecordID(documentID, blockID string) string {
	return documentID + "__" + blockID
}
