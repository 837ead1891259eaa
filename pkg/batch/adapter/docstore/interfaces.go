// Package docstore defines the document-store port the repository layer is
// built against: single-document inserts, filtered finds with sort/skip/limit
// cursors, filtered replaces reporting matched/modified counts, distinct-field
// queries and an atomic increment-with-upsert. MongoDB is the production
// implementation; an in-memory implementation backs tests and ephemeral runs.
package docstore

import (
	"context"
	"errors"
)

// Document is a flat wire-level document. Values are restricted to the
// canonical types string, int64, float64, bool, time.Time, nil, Document and
// []interface{}; adapters normalize driver-specific types to these on read.
type Document map[string]interface{}

// Filter selects documents by exact field match. A nil value matches
// documents where the field is absent or null. A value may also be an
// InClause produced by In.
type Filter map[string]interface{}

// InClause matches documents whose field value equals any of Values.
type InClause struct {
	Values []interface{}
}

// In builds an InClause for use as a Filter value.
func In(values ...interface{}) InClause {
	return InClause{Values: values}
}

// Sort specifies ordering by a single field.
type Sort struct {
	Field      string
	Descending bool
}

// FindOptions carries the optional sort/skip/limit/projection of a Find.
type FindOptions struct {
	Sort  []Sort
	Skip  int64
	Limit int64
	// Projection restricts the returned fields to the listed ones
	// (the identity field may still be returned by some engines).
	Projection []string
}

// ReplaceResult reports the outcome of a ReplaceOne.
type ReplaceResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// ErrDuplicateKey is returned by InsertOne when a unique index rejects the document.
var ErrDuplicateKey = errors.New("duplicate key")

// Cursor iterates lazily over the documents matched by a Find.
type Cursor interface {
	// Next advances the cursor. It returns false when the cursor is exhausted
	// or an error occurred; Err distinguishes the two.
	Next(ctx context.Context) bool

	// Decode returns the current document.
	Decode() (Document, error)

	// Err returns the error that terminated iteration, if any.
	Err() error

	// Close releases the cursor.
	Close(ctx context.Context) error
}

// Collection is a named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// InsertOne inserts a single document. ErrDuplicateKey is returned when a
	// unique index rejects it.
	InsertOne(ctx context.Context, doc Document) error

	// FindOne returns the first document matching the filter, or a nil
	// Document (and nil error) when none matches.
	FindOne(ctx context.Context, filter Filter) (Document, error)

	// Find returns a cursor over the documents matching the filter.
	Find(ctx context.Context, filter Filter, opts *FindOptions) (Cursor, error)

	// ReplaceOne replaces the first document matching the filter with doc.
	// With upsert, a missing document is inserted instead.
	ReplaceOne(ctx context.Context, filter Filter, doc Document, upsert bool) (ReplaceResult, error)

	// Distinct returns the distinct values of the given field among the
	// documents matching the filter.
	Distinct(ctx context.Context, field string, filter Filter) ([]interface{}, error)

	// FindOneAndIncrement atomically adds delta to the named integer field of
	// the document matching the filter, creating the document if absent, and
	// returns the post-increment value. This is the storage engine's atomic
	// read-modify-write; no application-level locking is involved.
	FindOneAndIncrement(ctx context.Context, filter Filter, field string, delta int64) (int64, error)

	// EnsureIndex idempotently creates a (possibly unique) index over the
	// given fields in order.
	EnsureIndex(ctx context.Context, fields []string, unique bool) error
}

// Store provides access to named collections of a single logical database.
type Store interface {
	// Collection returns a handle for the named collection (created lazily).
	Collection(name string) Collection

	// Close releases the underlying client or state.
	Close(ctx context.Context) error
}
