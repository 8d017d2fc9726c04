package graph

import (
	"context"
)

// WriteRequest is one batch bound to a single partition range.
type WriteRequest struct {
	Collection *Collection
	Range      KeyRange
	Elements   []Element
	Upsert     bool
}

// ElementFailure reports a permanent failure of Elements[Index] in a WriteRequest.
type ElementFailure struct {
	Index int
	Err   error
}

// WriteResponse acknowledges a batch. Elements not listed in Failures were written.
type WriteResponse struct {
	CapacityUnits float64
	Failures      []ElementFailure
}

// Writer is what the bulk importer needs from a store.
type Writer interface {
	PartitionRanges(ctx context.Context, coll *Collection) ([]KeyRange, error)
	BulkWrite(ctx context.Context, req *WriteRequest) (*WriteResponse, error)
}

// Admin covers database and collection lifecycle, used only at setup and teardown.
type Admin interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	DeleteDatabase(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, coll *Collection) (*Collection, error)
	GetCollection(ctx context.Context, database, name string) (*Collection, error)
}

type Engine interface {
	Writer
	Admin
	Close(ctx context.Context) error
}
