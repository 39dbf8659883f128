// Package scope implements the tenant-scoped data-access layer. Every
// persistence operation against a tenant-scoped entity type goes through
// ScopedStore, the single interception point that stamps and filters rows by
// the caller's active tenant. Handlers never see the raw Client.
package scope

import (
	"context"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
)

// Record is a persisted row keyed by column name. The id column is "id"
// (UUID string); tenant-scoped entities additionally carry their declared
// tenant column.
type Record map[string]any

// Filter matches rows by column equality. The scoped store merges the tenant
// predicate into the filter before execution; caller-supplied values for the
// tenant column are overwritten, never honored.
type Filter map[string]any

// ErrNotFound keeps store-level misses consistent across the memory and
// postgres clients. The scoped store also returns it for rows that exist but
// belong to another tenant, so the two cases are indistinguishable upstream.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// Client is the raw, unscoped persistence contract. It is implemented by the
// in-memory and postgres stores and must only ever be handed to ScopedStore:
// wiring code constructs a Client, wraps it, and discards the reference.
type Client interface {
	// Create inserts the record and returns it as stored.
	Create(ctx context.Context, entity string, rec Record) (Record, error)
	// FindUnique loads one row by primary key. Unique lookups cannot carry
	// arbitrary predicates, which is why the scoped store applies its tenant
	// check after the read.
	FindUnique(ctx context.Context, entity string, entityID id.EntityID) (Record, error)
	// FindMany returns all rows matching the filter.
	FindMany(ctx context.Context, entity string, filter Filter) ([]Record, error)
	// UpdateMany applies changes to all rows matching the filter and returns
	// the number of rows affected.
	UpdateMany(ctx context.Context, entity string, filter Filter, changes Record) (int64, error)
	// DeleteMany removes all rows matching the filter and returns the number
	// of rows affected.
	DeleteMany(ctx context.Context, entity string, filter Filter) (int64, error)
}

// clone copies a record so callers can't mutate store-held state.
func clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// cloneFilter copies a filter before the scoped store merges predicates into
// it, so the caller's map is never mutated.
func cloneFilter(f Filter) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}
