package cloud

import (
	"context"

	"tvcompare/pkg/models"
)

// DocumentID is the primary key of the single mirrored record.
const DocumentID = 1

// Backend talks to one remote store. Implementations classify failures as
// ErrSchemaMissing or ErrConnectivity, and Fetch returns ErrNoDocument when
// the record is absent.
type Backend interface {
	Probe(ctx context.Context) (exists bool, err error)
	Fetch(ctx context.Context) (*models.SyncDocument, error)
	Upsert(ctx context.Context, doc models.SyncDocument) error
	Insert(ctx context.Context, doc models.SyncDocument) error
	Close() error
}

// Dialer builds a backend handle. It must not perform network I/O.
type Dialer func(endpoint, credential string) (Backend, error)

func defaultDialers() map[string]Dialer {
	return map[string]Dialer{
		"postgres":   DialPostgres,
		"postgresql": DialPostgres,
		"http":       DialREST,
		"https":      DialREST,
	}
}
