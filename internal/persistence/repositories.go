package persistence

import "context"

// CaseRepository stores case records keyed by id. Implementations provide no
// transactions or compare-and-swap; PutCase is a plain upsert.
type CaseRepository interface {
	ListCases(ctx context.Context) ([]Case, error)
	GetCase(ctx context.Context, id string) (Case, error)
	PutCase(ctx context.Context, c Case) error
	DeleteCase(ctx context.Context, id string) error
}
