package lotto

import (
	"context"
	"net/http"
)

// Store defines the persistent collection of recorded entries.
//
// Records are value snapshots: a changed record is written back with Replace
// under its existing ID. List returns records ordered by creation date, then ID.
type Store interface {
	// Insert adds a new record; inserting an existing ID fails with ErrRecordExists
	Insert(ctx context.Context, record EntryRecord) error

	// Replace overwrites the record with the same ID
	Replace(ctx context.Context, record EntryRecord) error

	// Delete removes a single record by ID
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every record
	DeleteAll(ctx context.Context) error

	// Get loads a single record by ID
	Get(ctx context.Context, id string) (EntryRecord, error)

	// List returns all current records in order
	List(ctx context.Context) ([]EntryRecord, error)

	// Subscribe registers fn to receive the ordered collection after every
	// successful mutation. Collections arrive in the order they were read and
	// fn must not mutate the store. The returned function cancels the subscription.
	Subscribe(fn func([]EntryRecord)) (cancel func())
}

// PageFetcher retrieves the text of a results page with a single attempt
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// DrawParser turns page text into a DrawResult and never fails
type DrawParser interface {
	Parse(raw string) DrawResult
}

// Doer is the subset of *http.Client used by HTTPFetcher
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher runs functions on the context that owns presentation state
type Dispatcher interface {
	Dispatch(fn func())
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
