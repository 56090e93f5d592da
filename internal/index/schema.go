package index

// DocumentIndex defines the interface for document indexing operations.
// Consumers depend on this interface rather than the concrete *DB type.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
