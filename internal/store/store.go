package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// IDField is the store-assigned identity key. It is never returned by ReadAll.
const IDField = "_id"

// ErrClosed is returned by every call made after Close
var ErrClosed = errors.New("record store is closed")

// Document is a schemaless record held in a collection
type Document map[string]interface{}

// RecordStore is a collection-oriented document store. Calls block until the
// store answers; there are no partial or streamed results.
type RecordStore interface {
	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
	// ExistsAndNonEmpty reports whether the collection exists and holds at least one document
	ExistsAndNonEmpty(ctx context.Context, collection string) (bool, error)
	// Count returns the number of documents in the collection
	Count(ctx context.Context, collection string) (int, error)
	// BulkInsert appends documents and returns how many were stored
	BulkInsert(ctx context.Context, collection string, docs []Document) (int, error)
	// ReadAll returns every document in insertion order, without IDField
	ReadAll(ctx context.Context, collection string) ([]Document, error)
	// ReplaceAll drops the collection contents, inserts docs and returns how many were stored
	ReplaceAll(ctx context.Context, collection string, docs []Document) (int, error)
	// Close releases the store's resources
	Close() error
}

var collectionNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// ValidateCollection rejects names that cannot be used as a collection (or table) name
func ValidateCollection(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
